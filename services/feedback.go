package services

import (
	"context"
	"strings"

	"courtside/economy"
	"courtside/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FeedbackService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

func NewFeedbackService(db *gorm.DB, logger *zap.Logger) *FeedbackService {
	return &FeedbackService{DB: db, Logger: logger}
}

type FeedbackInput struct {
	SessionID string `json:"session_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

type FeedbackResult struct {
	Feedback *models.CoachFeedback `json:"feedback"`
	Reward   economy.CoachReward   `json:"reward"`
	Coach    *models.CoachProgress `json:"coach"`
}

// Submit rates the host of a completed session the player attended.
// The coach's CRP, CXP and CTK change in the same transaction.
func (s *FeedbackService) Submit(ctx context.Context, playerID string, in FeedbackInput) (*FeedbackResult, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, invalid("rating must be 1 to 5")
	}
	res := &FeedbackResult{Reward: economy.CoachFeedbackReward(in.Rating)}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, err := loadSession(tx, in.SessionID)
		if err != nil {
			return err
		}
		if sess.Status != models.SessionCompleted {
			return invalidState("session is not completed")
		}
		var attended int64
		if err := tx.Model(&models.SessionParticipant{}).
			Where("session_id = ? AND user_id = ? AND left_at IS NULL", sess.ID, playerID).
			Count(&attended).Error; err != nil {
			return errors.Wrap(err, "check attendance")
		}
		if attended == 0 {
			return ErrForbidden
		}

		fb := models.CoachFeedback{
			CoachID:   sess.HostID,
			PlayerID:  playerID,
			SessionID: sess.ID,
			Rating:    in.Rating,
			Comment:   strings.TrimSpace(in.Comment),
		}
		created := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fb)
		if created.Error != nil {
			return errors.Wrap(created.Error, "save feedback")
		}
		if created.RowsAffected == 0 {
			return ErrConflict
		}
		res.Feedback = &fb

		coach := models.CoachProgress{UserID: sess.HostID, CoachLevel: 1}
		if err := tx.Where(models.CoachProgress{UserID: sess.HostID}).FirstOrCreate(&coach).Error; err != nil {
			return errors.Wrap(err, "load coach progress")
		}
		r := res.Reward
		if err := tx.Model(&models.CoachProgress{}).Where("user_id = ?", sess.HostID).
			Updates(map[string]interface{}{
				"crp":            gorm.Expr("crp + ?", r.CRP),
				"cxp":            gorm.Expr("cxp + ?", r.CXP),
				"ctk":            gorm.Expr("ctk + ?", r.CTK),
				"feedback_count": gorm.Expr("feedback_count + 1"),
				"rating_total":   gorm.Expr("rating_total + ?", in.Rating),
			}).Error; err != nil {
			return errors.Wrap(err, "award coach")
		}
		if err := tx.Where("user_id = ?", sess.HostID).First(&coach).Error; err != nil {
			return errors.Wrap(err, "reload coach progress")
		}
		coach.CoachLevel = economy.CoachLevel(coach.CXP)
		if coach.FeedbackCount > 0 {
			coach.AverageRating = float64(coach.RatingTotal) / float64(coach.FeedbackCount)
		}
		if err := tx.Model(&models.CoachProgress{}).Where("user_id = ?", sess.HostID).
			Updates(map[string]interface{}{
				"coach_level":    coach.CoachLevel,
				"average_rating": coach.AverageRating,
			}).Error; err != nil {
			return errors.Wrap(err, "update coach level")
		}
		res.Coach = &coach
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("coach feedback",
		zap.String("coach_id", res.Coach.UserID), zap.Int("rating", in.Rating),
		zap.Int64("crp", res.Reward.CRP), zap.Int64("cxp", res.Reward.CXP))
	return res, nil
}

func (s *FeedbackService) CoachProgress(ctx context.Context, coachID string) (*models.CoachProgress, error) {
	var c models.CoachProgress
	err := s.DB.WithContext(ctx).Where("user_id = ?", coachID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &c, errors.Wrap(err, "load coach progress")
}
