package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"courtside/models"
	"courtside/realtime"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const appointmentsTable = "appointment_requests"

type AppointmentService struct {
	DB        *gorm.DB
	Notifier  Notifier
	Publisher realtime.Publisher
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewAppointmentService(db *gorm.DB, notifier Notifier, pub realtime.Publisher, logger *zap.Logger) *AppointmentService {
	return &AppointmentService{DB: db, Notifier: notifier, Publisher: pub, Logger: logger, Now: utcNow}
}

type AppointmentInput struct {
	CoachID     string    `json:"coach_id"`
	RequestedAt time.Time `json:"requested_at"`
	DurationMin int       `json:"duration_min"`
	Note        string    `json:"note"`
}

func (s *AppointmentService) profile(ctx context.Context, userID string) (*models.PlayerProfile, error) {
	var p models.PlayerProfile
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &p, errors.Wrap(err, "load profile")
}

// Request asks a coach for a lesson and emails the coach.
func (s *AppointmentService) Request(ctx context.Context, playerID string, in AppointmentInput) (*models.AppointmentRequest, error) {
	if in.CoachID == "" || in.CoachID == playerID {
		return nil, invalid("a different coach_id is required")
	}
	if !in.RequestedAt.After(s.Now()) {
		return nil, invalid("requested_at must be in the future")
	}
	if in.DurationMin == 0 {
		in.DurationMin = 60
	}
	if in.DurationMin < 30 || in.DurationMin > 240 {
		return nil, invalid("duration_min must be between 30 and 240")
	}
	coach, err := s.profile(ctx, in.CoachID)
	if err != nil {
		return nil, err
	}
	if !coach.IsCoach() {
		return nil, invalid("requested user is not a coach")
	}

	req := models.AppointmentRequest{
		PlayerID:    playerID,
		CoachID:     in.CoachID,
		RequestedAt: in.RequestedAt.UTC(),
		DurationMin: in.DurationMin,
		Note:        strings.TrimSpace(in.Note),
		Status:      models.AppointmentPending,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dup int64
		if err := tx.Model(&models.AppointmentRequest{}).
			Where("player_id = ? AND coach_id = ? AND requested_at = ? AND status = ?",
				playerID, in.CoachID, req.RequestedAt, models.AppointmentPending).
			Count(&dup).Error; err != nil {
			return errors.Wrap(err, "check duplicate request")
		}
		if dup > 0 {
			return ErrConflict
		}
		return errors.Wrap(tx.Create(&req).Error, "create appointment request")
	})
	if err != nil {
		return nil, err
	}

	playerName := playerID
	if p, err := s.profile(ctx, playerID); err == nil {
		playerName = p.DisplayName
	}
	s.notify(ctx, coach, "New lesson request",
		fmt.Sprintf("%s asked for a %d minute lesson on %s.", playerName, req.DurationMin, req.RequestedAt.Format(time.RFC1123)))
	publishFor(ctx, s.Publisher, s.Logger, appointmentsTable, realtime.EventInsert, req.ID, playerID, in.CoachID)
	return &req, nil
}

// Respond lets the coach accept or decline a pending request. The player is emailed.
func (s *AppointmentService) Respond(ctx context.Context, requestID, coachID string, accept bool) (*models.AppointmentRequest, error) {
	to := models.AppointmentDeclined
	if accept {
		to = models.AppointmentAccepted
	}
	req, err := s.transition(ctx, requestID, []models.AppointmentStatus{models.AppointmentPending}, to, func(r *models.AppointmentRequest) error {
		if r.CoachID != coachID {
			return ErrForbidden
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if player, err := s.profile(ctx, req.PlayerID); err == nil {
		s.notify(ctx, player, "Lesson request "+string(req.Status),
			fmt.Sprintf("Your lesson request for %s was %s.", req.RequestedAt.Format(time.RFC1123), req.Status))
	}
	return req, nil
}

// Cancel is open to either party while the request is pending or accepted.
func (s *AppointmentService) Cancel(ctx context.Context, requestID, userID string) (*models.AppointmentRequest, error) {
	return s.transition(ctx, requestID,
		[]models.AppointmentStatus{models.AppointmentPending, models.AppointmentAccepted},
		models.AppointmentCancelled,
		func(r *models.AppointmentRequest) error {
			if r.CoachID != userID && r.PlayerID != userID {
				return ErrForbidden
			}
			return nil
		})
}

func (s *AppointmentService) List(ctx context.Context, userID string) ([]models.AppointmentRequest, error) {
	var out []models.AppointmentRequest
	err := s.DB.WithContext(ctx).
		Where("player_id = ? OR coach_id = ?", userID, userID).
		Order("requested_at ASC").
		Limit(100).
		Find(&out).Error
	return out, errors.Wrap(err, "list appointments")
}

func (s *AppointmentService) transition(ctx context.Context, id string, from []models.AppointmentStatus, to models.AppointmentStatus, check func(*models.AppointmentRequest) error) (*models.AppointmentRequest, error) {
	var req models.AppointmentRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&req).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errors.Wrap(err, "load appointment request")
		}
		if err := check(&req); err != nil {
			return err
		}
		now := s.Now()
		res := tx.Model(&models.AppointmentRequest{}).
			Where("id = ? AND status IN ?", id, from).
			Updates(map[string]interface{}{"status": to, "responded_at": now})
		if res.Error != nil {
			return errors.Wrap(res.Error, "update appointment request")
		}
		if res.RowsAffected == 0 {
			return invalidState("request is " + string(req.Status))
		}
		req.Status = to
		req.RespondedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishFor(ctx, s.Publisher, s.Logger, appointmentsTable, realtime.EventUpdate, req.ID, req.PlayerID, req.CoachID)
	return &req, nil
}

func (s *AppointmentService) notify(ctx context.Context, to *models.PlayerProfile, subject, text string) {
	if s.Notifier == nil {
		return
	}
	err := s.Notifier.Notify(ctx, Notification{ToEmail: to.Email, ToName: to.DisplayName, Subject: subject, Text: text})
	if err != nil {
		s.Logger.Warn("notification failed", zap.String("user_id", to.UserID), zap.Error(err))
	}
}
