package services

import (
	"context"

	"courtside/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AchievementService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewAchievementService(db *gorm.DB, logger *zap.Logger) *AchievementService {
	return &AchievementService{DB: db, Logger: logger}
}

// Seed upserts the built-in catalog by code.
func (s *AchievementService) Seed(ctx context.Context) error {
	for _, def := range models.AchievementCatalog {
		def := def
		var existing models.Achievement
		err := s.DB.WithContext(ctx).
			Where(models.Achievement{Code: def.Code}).
			Assign(models.Achievement{
				Name:        def.Name,
				Description: def.Description,
				Rarity:      def.Rarity,
				Threshold:   def.Threshold,
			}).
			FirstOrCreate(&existing).Error
		if err != nil {
			return errors.Wrapf(err, "seed achievement %s", def.Code)
		}
	}
	return nil
}

// Evaluate awards every achievement whose threshold the user now meets.
// It runs on the caller's transaction.
func (s *AchievementService) Evaluate(tx *gorm.DB, userID string) ([]models.Achievement, error) {
	var prog models.UserProgress
	if err := tx.Where("user_id = ?", userID).First(&prog).Error; err != nil {
		return nil, errors.Wrap(err, "load progress")
	}

	var defs []models.Achievement
	if err := tx.Find(&defs).Error; err != nil {
		return nil, errors.Wrap(err, "load achievements")
	}

	var owned []string
	if err := tx.Model(&models.UserAchievement{}).
		Where("user_id = ?", userID).
		Pluck("achievement_id", &owned).Error; err != nil {
		return nil, errors.Wrap(err, "load user achievements")
	}
	have := make(map[string]bool, len(owned))
	for _, id := range owned {
		have[id] = true
	}

	var awarded []models.Achievement
	for _, def := range defs {
		if have[def.ID] || !meetsThreshold(&prog, def.Threshold) {
			continue
		}
		ua := models.UserAchievement{UserID: userID, AchievementID: def.ID, AwardedAt: utcNow()}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ua)
		if res.Error != nil {
			return nil, errors.Wrapf(res.Error, "award %s", def.Code)
		}
		if res.RowsAffected == 0 {
			continue
		}
		awarded = append(awarded, def)
		s.Logger.Info("achievement awarded", zap.String("user_id", userID), zap.String("code", def.Code))
	}
	return awarded, nil
}

func (s *AchievementService) ForUser(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	var out []models.UserAchievement
	err := s.DB.WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Order("awarded_at DESC").
		Find(&out).Error
	return out, errors.Wrap(err, "list achievements")
}

// meetsThreshold requires every key to be met. Empty or unknown thresholds never match.
func meetsThreshold(prog *models.UserProgress, req map[string]int64) bool {
	if len(req) == 0 {
		return false
	}
	for key, required := range req {
		var have int64
		switch key {
		case "total_matches":
			have = prog.TotalMatches
		case "matches_won":
			have = prog.MatchesWon
		case "level":
			have = int64(prog.Level)
		case "quizzes_passed":
			have = prog.QuizzesPassed
		case "sessions_attended":
			have = prog.SessionsAttended
		case "tokens":
			have = prog.Tokens
		default:
			return false
		}
		if have < required {
			return false
		}
	}
	return true
}
