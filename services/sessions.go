package services

import (
	"context"
	"strings"
	"time"

	"courtside/economy"
	"courtside/models"
	"courtside/realtime"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sessionsTable   = "training_sessions"
	SessionAttendXP = 15
)

type SessionService struct {
	DB           *gorm.DB
	Economy      *Economy
	Publisher    realtime.Publisher
	Logger       *zap.Logger
	RefundCutoff time.Duration // leaving later than this before start forfeits the fee
	Now          func() time.Time
}

func NewSessionService(db *gorm.DB, eco *Economy, pub realtime.Publisher, logger *zap.Logger, refundCutoff time.Duration) *SessionService {
	return &SessionService{DB: db, Economy: eco, Publisher: pub, Logger: logger, RefundCutoff: refundCutoff, Now: utcNow}
}

type CreateSessionInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	DurationMin int       `json:"duration_min"`
	Capacity    int       `json:"capacity"`
	CostTokens  int64     `json:"cost_tokens"`
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utcNow()
}

func (s *SessionService) Create(ctx context.Context, hostID string, in CreateSessionInput) (*models.TrainingSession, error) {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return nil, invalid("title required")
	case !in.StartsAt.After(s.now()):
		return nil, invalid("starts_at must be in the future")
	case in.Capacity < 1 || in.Capacity > 50:
		return nil, invalid("capacity must be between 1 and 50")
	case in.CostTokens < 0:
		return nil, invalid("cost_tokens must not be negative")
	}
	if in.DurationMin == 0 {
		in.DurationMin = 60
	}
	if in.DurationMin < 15 || in.DurationMin > 480 {
		return nil, invalid("duration_min must be between 15 and 480")
	}

	sess := models.TrainingSession{
		HostID:      hostID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		StartsAt:    in.StartsAt.UTC(),
		DurationMin: in.DurationMin,
		Capacity:    in.Capacity,
		CostTokens:  in.CostTokens,
		Status:      models.SessionOpen,
	}
	if err := s.DB.WithContext(ctx).Create(&sess).Error; err != nil {
		return nil, errors.Wrap(err, "create session")
	}
	publishFor(ctx, s.Publisher, s.Logger, sessionsTable, realtime.EventInsert, sess.ID, hostID)
	return &sess, nil
}

// List returns upcoming open sessions, or a host's sessions when hostID is set.
func (s *SessionService) List(ctx context.Context, hostID string) ([]models.TrainingSession, error) {
	q := s.DB.WithContext(ctx)
	if hostID != "" {
		q = q.Where("host_id = ?", hostID)
	} else {
		q = q.Where("status = ? AND starts_at > ?", models.SessionOpen, s.now())
	}
	var out []models.TrainingSession
	err := q.Order("starts_at ASC").Limit(100).Find(&out).Error
	return out, errors.Wrap(err, "list sessions")
}

func loadSession(tx *gorm.DB, id string) (*models.TrainingSession, error) {
	var sess models.TrainingSession
	err := tx.Where("id = ?", id).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}
	return &sess, nil
}

// Join takes a seat, charging the session fee and HP.
func (s *SessionService) Join(ctx context.Context, sessionID, userID string) (*models.TrainingSession, error) {
	var sess *models.TrainingSession
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sess, err = loadSession(tx, sessionID)
		if err != nil {
			return err
		}
		if sess.HostID == userID {
			return invalid("host cannot join their own session")
		}
		if !sess.StartsAt.After(s.now()) {
			return invalidState("session already started")
		}
		var existing int64
		if err := tx.Model(&models.SessionParticipant{}).
			Where("session_id = ? AND user_id = ?", sessionID, userID).
			Count(&existing).Error; err != nil {
			return errors.Wrap(err, "check participant")
		}
		if existing > 0 {
			return ErrConflict
		}

		res := tx.Model(&models.TrainingSession{}).
			Where("id = ? AND status = ? AND joined < capacity", sessionID, models.SessionOpen).
			Update("joined", gorm.Expr("joined + 1"))
		if res.Error != nil {
			return errors.Wrap(res.Error, "reserve seat")
		}
		if res.RowsAffected == 0 {
			return invalidState("session is not open")
		}
		if err := tx.Model(&models.TrainingSession{}).
			Where("id = ? AND joined >= capacity", sessionID).
			Update("status", models.SessionFull).Error; err != nil {
			return errors.Wrap(err, "mark full")
		}

		eco := s.Economy.WithTx(tx)
		if sess.CostTokens > 0 {
			if _, err := eco.SpendTokens(ctx, userID, sess.CostTokens, models.TokenSpend, "session_fee", sess.ID); err != nil {
				return err
			}
		}
		if _, err := eco.SpendHP(ctx, userID, economy.HPCostSession); err != nil {
			return err
		}
		p := models.SessionParticipant{SessionID: sessionID, UserID: userID, PaidTokens: sess.CostTokens}
		if err := tx.Create(&p).Error; err != nil {
			return errors.Wrap(err, "add participant")
		}
		sess, err = loadSession(tx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	publishFor(ctx, s.Publisher, s.Logger, sessionsTable, realtime.EventUpdate, sess.ID, sess.HostID, userID)
	return sess, nil
}

// Leave frees a seat before the session starts. Leaving before the refund
// cutoff refunds the fee and removes the seat; later the fee is forfeited to
// the host and the participant row is kept so Complete still pays it out.
func (s *SessionService) Leave(ctx context.Context, sessionID, userID string) (refunded bool, err error) {
	var hostID string
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, err := loadSession(tx, sessionID)
		if err != nil {
			return err
		}
		hostID = sess.HostID
		if sess.Status != models.SessionOpen && sess.Status != models.SessionFull {
			return invalidState("session is " + string(sess.Status))
		}
		now := s.now()
		if !now.Before(sess.StartsAt) {
			return invalidState("session already started")
		}
		var p models.SessionParticipant
		err = tx.Where("session_id = ? AND user_id = ? AND left_at IS NULL", sessionID, userID).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "load participant")
		}

		refunded = now.Before(sess.StartsAt.Add(-s.RefundCutoff))
		if refunded {
			if err := tx.Delete(&p).Error; err != nil {
				return errors.Wrap(err, "remove participant")
			}
		} else {
			res := tx.Model(&models.SessionParticipant{}).
				Where("id = ? AND left_at IS NULL", p.ID).
				Update("left_at", now)
			if res.Error != nil {
				return errors.Wrap(res.Error, "mark participant left")
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		if err := tx.Model(&models.TrainingSession{}).
			Where("id = ? AND status IN ?", sessionID, []models.SessionStatus{models.SessionOpen, models.SessionFull}).
			Updates(map[string]interface{}{
				"joined": gorm.Expr("joined - 1"),
				"status": models.SessionOpen,
			}).Error; err != nil {
			return errors.Wrap(err, "release seat")
		}
		if refunded && p.PaidTokens > 0 {
			if _, err := s.Economy.WithTx(tx).AwardTokens(ctx, userID, p.PaidTokens, models.TokenRefund, "session_refund", sessionID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	publishFor(ctx, s.Publisher, s.Logger, sessionsTable, realtime.EventUpdate, sessionID, hostID, userID)
	return refunded, nil
}

// Complete closes a started session: the host is paid the collected fees,
// forfeited ones included, and every attending participant gets XP.
func (s *SessionService) Complete(ctx context.Context, sessionID, hostID string) (*models.TrainingSession, error) {
	var (
		sess         *models.TrainingSession
		participants []models.SessionParticipant
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sess, err = loadSession(tx, sessionID)
		if err != nil {
			return err
		}
		if sess.HostID != hostID {
			return ErrForbidden
		}
		if s.now().Before(sess.StartsAt) {
			return invalidState("session has not started")
		}
		now := s.now()
		res := tx.Model(&models.TrainingSession{}).
			Where("id = ? AND status IN ?", sessionID, []models.SessionStatus{models.SessionOpen, models.SessionFull}).
			Updates(map[string]interface{}{"status": models.SessionCompleted, "completed_at": now})
		if res.Error != nil {
			return errors.Wrap(res.Error, "complete session")
		}
		if res.RowsAffected == 0 {
			return invalidState("session is " + string(sess.Status))
		}
		sess.Status = models.SessionCompleted
		sess.CompletedAt = &now

		if err := tx.Where("session_id = ?", sessionID).Find(&participants).Error; err != nil {
			return errors.Wrap(err, "load participants")
		}
		eco := s.Economy.WithTx(tx)
		var fees int64
		for _, p := range participants {
			fees += p.PaidTokens
			if !p.Attending() {
				continue
			}
			if err := bump(tx, p.UserID, map[string]int64{"sessions_attended": 1}); err != nil {
				return err
			}
			if _, err := eco.AwardXP(ctx, p.UserID, SessionAttendXP, "session_"+sessionID); err != nil {
				return err
			}
		}
		if fees > 0 {
			if _, err := eco.AwardTokens(ctx, hostID, fees, models.TokenPayout, "session_fees", sessionID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ids := []string{hostID}
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	publishFor(ctx, s.Publisher, s.Logger, sessionsTable, realtime.EventUpdate, sessionID, ids...)
	return sess, nil
}

// ExpireStale expires open or full sessions that ended without being completed
// and refunds every participant, including those who forfeited by leaving late.
func (s *SessionService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	var candidates []models.TrainingSession
	err := s.DB.WithContext(ctx).
		Where("status IN ? AND starts_at < ?", []models.SessionStatus{models.SessionOpen, models.SessionFull}, now).
		Find(&candidates).Error
	if err != nil {
		return 0, errors.Wrap(err, "list stale sessions")
	}

	expired := 0
	for _, c := range candidates {
		if c.StartsAt.Add(time.Duration(c.DurationMin) * time.Minute).After(now) {
			continue
		}
		var (
			refunded []string
			done     bool
		)
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.TrainingSession{}).
				Where("id = ? AND status = ?", c.ID, c.Status).
				Update("status", models.SessionExpired)
			if res.Error != nil {
				return errors.Wrap(res.Error, "expire session")
			}
			if res.RowsAffected == 0 {
				return nil
			}
			var participants []models.SessionParticipant
			if err := tx.Where("session_id = ?", c.ID).Find(&participants).Error; err != nil {
				return errors.Wrap(err, "load participants")
			}
			eco := s.Economy.WithTx(tx)
			for _, p := range participants {
				if p.PaidTokens > 0 {
					if _, err := eco.AwardTokens(ctx, p.UserID, p.PaidTokens, models.TokenRefund, "session_expired", c.ID); err != nil {
						return err
					}
				}
				refunded = append(refunded, p.UserID)
			}
			done = true
			return nil
		})
		if err != nil {
			s.Logger.Warn("session expiry failed", zap.String("session_id", c.ID), zap.Error(err))
			continue
		}
		if !done {
			continue
		}
		expired++
		publishFor(ctx, s.Publisher, s.Logger, sessionsTable, realtime.EventUpdate, c.ID, append(refunded, c.HostID)...)
	}
	if expired > 0 {
		s.Logger.Info("sessions expired", zap.Int("count", expired))
	}
	return expired, nil
}
