package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"courtside/models"
	"courtside/realtime"
	"courtside/utils"

	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const clubsTable = "clubs"

// MediaStore uploads public media and returns its URL.
type MediaStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

type ClubService struct {
	DB        *gorm.DB
	Media     MediaStore // nil when media uploads are not configured
	Publisher realtime.Publisher
	Logger    *zap.Logger
}

func NewClubService(db *gorm.DB, media MediaStore, pub realtime.Publisher, logger *zap.Logger) *ClubService {
	return &ClubService{DB: db, Media: media, Publisher: pub, Logger: logger}
}

type CreateClubInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	City        string `json:"city"`
}

// normalizeCity title-cases a city name ("new york" -> "New York").
func normalizeCity(city string) string {
	city = strings.Join(strings.Fields(city), " ")
	if city == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(city))
}

func (s *ClubService) Create(ctx context.Context, ownerID string, in CreateClubInput) (*models.Club, error) {
	name := strings.Join(strings.Fields(in.Name), " ")
	if n := utf8.RuneCountInString(name); n < 3 || n > 60 {
		return nil, invalid("club name must be 3 to 60 characters")
	}
	base := slug.Make(name)
	if base == "" {
		return nil, invalid("club name must contain letters or digits")
	}

	club := models.Club{
		Name:        name,
		OwnerID:     ownerID,
		Description: strings.TrimSpace(in.Description),
		City:        normalizeCity(in.City),
		MemberCount: 1,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate, err := uniqueSlug(tx, base)
		if err != nil {
			return err
		}
		club.Slug = candidate
		if err := tx.Create(&club).Error; err != nil {
			return errors.Wrap(err, "create club")
		}
		owner := models.ClubMember{ClubID: club.ID, UserID: ownerID, Role: models.ClubRoleOwner}
		return errors.Wrap(tx.Create(&owner).Error, "add owner")
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("club created", zap.String("club_id", club.ID), zap.String("slug", club.Slug))
	publishFor(ctx, s.Publisher, s.Logger, clubsTable, realtime.EventInsert, club.ID, ownerID)
	return &club, nil
}

// uniqueSlug appends -2, -3, ... until the slug is free.
func uniqueSlug(tx *gorm.DB, base string) (string, error) {
	candidate := base
	for i := 2; i <= 50; i++ {
		var n int64
		if err := tx.Unscoped().Model(&models.Club{}).Where("slug = ?", candidate).Count(&n).Error; err != nil {
			return "", errors.Wrap(err, "check slug")
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", ErrConflict
}

func (s *ClubService) Get(ctx context.Context, clubSlug string) (*models.Club, error) {
	var club models.Club
	err := s.DB.WithContext(ctx).Where("slug = ?", clubSlug).First(&club).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load club")
	}
	return &club, nil
}

func (s *ClubService) List(ctx context.Context, city string, limit int) ([]models.Club, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	q := s.DB.WithContext(ctx)
	if city = normalizeCity(city); city != "" {
		q = q.Where("city = ?", city)
	}
	var out []models.Club
	err := q.Order("member_count DESC, name ASC").Limit(limit).Find(&out).Error
	return out, errors.Wrap(err, "list clubs")
}

func (s *ClubService) Join(ctx context.Context, clubSlug, userID string) (*models.ClubMember, error) {
	club, err := s.Get(ctx, clubSlug)
	if err != nil {
		return nil, err
	}
	member := models.ClubMember{ClubID: club.ID, UserID: userID, Role: models.ClubRoleMember}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member)
		if res.Error != nil {
			return errors.Wrap(res.Error, "join club")
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return errors.Wrap(tx.Model(&models.Club{}).Where("id = ?", club.ID).
			Update("member_count", gorm.Expr("member_count + 1")).Error, "count member")
	})
	if err != nil {
		return nil, err
	}
	publishFor(ctx, s.Publisher, s.Logger, "club_members", realtime.EventInsert, member.ID, club.OwnerID, userID)
	return &member, nil
}

// Leave removes a member. The owner cannot leave their own club.
func (s *ClubService) Leave(ctx context.Context, clubSlug, userID string) error {
	club, err := s.Get(ctx, clubSlug)
	if err != nil {
		return err
	}
	if club.OwnerID == userID {
		return invalidState("owner cannot leave the club")
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("club_id = ? AND user_id = ?", club.ID, userID).Delete(&models.ClubMember{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "leave club")
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return errors.Wrap(tx.Model(&models.Club{}).Where("id = ?", club.ID).
			Update("member_count", gorm.Expr("member_count - 1")).Error, "count member")
	})
	if err != nil {
		return err
	}
	publishFor(ctx, s.Publisher, s.Logger, "club_members", realtime.EventDelete, club.ID, club.OwnerID, userID)
	return nil
}

func (s *ClubService) Members(ctx context.Context, clubSlug string) ([]models.ClubMember, error) {
	club, err := s.Get(ctx, clubSlug)
	if err != nil {
		return nil, err
	}
	var out []models.ClubMember
	err = s.DB.WithContext(ctx).Where("club_id = ?", club.ID).Order("created_at ASC").Find(&out).Error
	return out, errors.Wrap(err, "list members")
}

// SetLogo uploads a new logo. Only the owner or an admin may change it.
func (s *ClubService) SetLogo(ctx context.Context, clubSlug, userID string, body io.Reader, contentType string) (*models.Club, error) {
	if s.Media == nil {
		return nil, ErrUnavailable
	}
	club, err := s.Get(ctx, clubSlug)
	if err != nil {
		return nil, err
	}
	var m models.ClubMember
	err = s.DB.WithContext(ctx).Where("club_id = ? AND user_id = ?", club.ID, userID).First(&m).Error
	if err != nil || (m.Role != models.ClubRoleOwner && m.Role != models.ClubRoleAdmin) {
		return nil, ErrForbidden
	}
	key, err := utils.ImageKey("clubs", club.ID, contentType)
	if err != nil {
		return nil, invalid(err.Error())
	}
	url, err := s.Media.Upload(ctx, key, body, contentType)
	if err != nil {
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	if err := s.DB.WithContext(ctx).Model(club).Update("logo_url", url).Error; err != nil {
		return nil, errors.Wrap(err, "save logo")
	}
	club.LogoURL = url
	return club, nil
}
