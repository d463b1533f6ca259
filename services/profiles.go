package services

import (
	"context"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"courtside/cache"
	"courtside/models"
	"courtside/realtime"
	"courtside/utils"

	"github.com/gosimple/unidecode"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	profilesTable   = "player_profiles"
	profileCacheTTL = 5 * time.Minute
)

var (
	skillLevels = map[string]bool{"beginner": true, "intermediate": true, "advanced": true, "expert": true}
	surfaces    = map[string]bool{"": true, "hard": true, "clay": true, "grass": true, "carpet": true}
)

type ProfileService struct {
	DB        *gorm.DB
	Economy   *Economy
	Cache     cache.Cache
	Media     MediaStore
	Publisher realtime.Publisher
	Logger    *zap.Logger
}

func NewProfileService(db *gorm.DB, eco *Economy, c cache.Cache, media MediaStore, pub realtime.Publisher, logger *zap.Logger) *ProfileService {
	return &ProfileService{DB: db, Economy: eco, Cache: c, Media: media, Publisher: pub, Logger: logger}
}

type ProfileInput struct {
	DisplayName      string   `json:"display_name"`
	Email            string   `json:"email"`
	Role             string   `json:"role"`
	SkillLevel       string   `json:"skill_level"`
	Bio              string   `json:"bio"`
	City             string   `json:"city"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	PreferredSurface string   `json:"preferred_surface"`
}

type ProfileQuery struct {
	Q     string
	Role  string
	Skill string
	City  string
	Limit int
}

// searchKey folds a name for matching: "José Núñez" -> "jose nunez".
func searchKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(unidecode.Unidecode(s)), " "))
}

func (in *ProfileInput) validate() error {
	in.DisplayName = strings.Join(strings.Fields(in.DisplayName), " ")
	if n := utf8.RuneCountInString(in.DisplayName); n < 2 || n > 50 {
		return invalid("display_name must be 2 to 50 characters")
	}
	if in.Role == "" {
		in.Role = string(models.RolePlayer)
	}
	if in.Role != string(models.RolePlayer) && in.Role != string(models.RoleCoach) {
		return invalid("role must be player or coach")
	}
	if in.SkillLevel == "" {
		in.SkillLevel = "beginner"
	}
	if !skillLevels[in.SkillLevel] {
		return invalid("unknown skill_level")
	}
	if !surfaces[in.PreferredSurface] {
		return invalid("unknown preferred_surface")
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return invalid("latitude and longitude go together")
	}
	if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90 || *in.Longitude < -180 || *in.Longitude > 180) {
		return invalid("coordinates out of range")
	}
	return nil
}

// Upsert creates or replaces the caller's profile and makes sure their progress row exists.
func (s *ProfileService) Upsert(ctx context.Context, userID string, in ProfileInput) (*models.PlayerProfile, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var p models.PlayerProfile
	event := realtime.EventUpdate
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			p = models.PlayerProfile{UserID: userID}
			event = realtime.EventInsert
		} else if err != nil {
			return errors.Wrap(err, "load profile")
		}
		p.DisplayName = in.DisplayName
		p.SearchName = searchKey(in.DisplayName)
		p.Email = strings.TrimSpace(in.Email)
		p.Role = models.Role(in.Role)
		p.SkillLevel = in.SkillLevel
		p.Bio = strings.TrimSpace(in.Bio)
		p.City = normalizeCity(in.City)
		p.Latitude, p.Longitude = in.Latitude, in.Longitude
		p.PreferredSurface = in.PreferredSurface
		if err := tx.Save(&p).Error; err != nil {
			return errors.Wrap(err, "save profile")
		}
		_, err = s.Economy.WithTx(tx).ensureProgress(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		_ = s.Cache.Delete(ctx, cache.ProfileKey(userID), cache.OpponentKey(userID))
	}
	publishFor(ctx, s.Publisher, s.Logger, profilesTable, event, p.ID, userID)
	return &p, nil
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*models.PlayerProfile, error) {
	var p models.PlayerProfile
	if s.Cache != nil {
		if hit, err := cache.GetJSON(ctx, s.Cache, cache.ProfileKey(userID), &p); err == nil && hit {
			return &p, nil
		}
	}
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load profile")
	}
	if s.Cache != nil {
		if err := cache.SetJSON(ctx, s.Cache, cache.ProfileKey(userID), &p, profileCacheTTL); err != nil {
			s.Logger.Warn("cache profile failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return &p, nil
}

// Search matches on the folded display name, so "jose" finds "José".
func (s *ProfileService) Search(ctx context.Context, q ProfileQuery) ([]models.PlayerProfile, error) {
	if q.Limit < 1 || q.Limit > 50 {
		q.Limit = 20
	}
	db := s.DB.WithContext(ctx)
	if key := searchKey(q.Q); key != "" {
		db = db.Where("search_name LIKE ?", "%"+escapeLike(key)+"%")
	}
	if q.Role != "" {
		db = db.Where("role = ?", q.Role)
	}
	if q.Skill != "" {
		db = db.Where("skill_level = ?", q.Skill)
	}
	if city := normalizeCity(q.City); city != "" {
		db = db.Where("city = ?", city)
	}
	var out []models.PlayerProfile
	err := db.Order("display_name ASC").Limit(q.Limit).Find(&out).Error
	return out, errors.Wrap(err, "search profiles")
}

func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}

func (s *ProfileService) SetAvatar(ctx context.Context, userID string, body io.Reader, contentType string) (*models.PlayerProfile, error) {
	if s.Media == nil {
		return nil, ErrUnavailable
	}
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	key, err := utils.ImageKey("avatars", userID, contentType)
	if err != nil {
		return nil, invalid(err.Error())
	}
	url, err := s.Media.Upload(ctx, key, body, contentType)
	if err != nil {
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}
	if err := s.DB.WithContext(ctx).Model(&models.PlayerProfile{}).
		Where("user_id = ?", userID).Update("avatar_url", url).Error; err != nil {
		return nil, errors.Wrap(err, "save avatar")
	}
	p.AvatarURL = url
	if s.Cache != nil {
		_ = s.Cache.Delete(ctx, cache.ProfileKey(userID))
	}
	publishFor(ctx, s.Publisher, s.Logger, profilesTable, realtime.EventUpdate, p.ID, userID)
	return p, nil
}
