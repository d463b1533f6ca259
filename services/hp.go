package services

import (
	"context"
	"sync/atomic"
	"time"

	"courtside/models"
	"courtside/telemetry"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	hpSweepBatch       = 200
	hpSweepConcurrency = 4
)

// HPService runs the HP regeneration and inactivity decay sweeps.
type HPService struct {
	DB      *gorm.DB
	Economy *Economy
	Logger  *zap.Logger
}

func NewHPService(db *gorm.DB, eco *Economy, logger *zap.Logger) *HPService {
	return &HPService{DB: db, Economy: eco, Logger: logger}
}

func (s *HPService) Regenerate(ctx context.Context, userID string) (int, error) {
	return s.Economy.RegenerateHP(ctx, userID)
}

// RegenerateAll regenerates every recently active user below max HP.
// Users idle past the decay window are left to DecayInactive.
func (s *HPService) RegenerateAll(ctx context.Context) (int, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "hp.regenerate_all")
	defer span.End()

	cutoff := s.Economy.now().Add(-s.Economy.Config.HP.DecayAfter)
	var processed int64
	lastID := ""
	for {
		var ids []string
		err := s.DB.WithContext(ctx).Model(&models.UserProgress{}).
			Where("hp < max_hp AND last_active_at >= ? AND user_id > ?", cutoff, lastID).
			Order("user_id ASC").
			Limit(hpSweepBatch).
			Pluck("user_id", &ids).Error
		if err != nil {
			return int(processed), errors.Wrap(err, "list users below max hp")
		}
		if len(ids) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(hpSweepConcurrency)
		for _, id := range ids {
			id := id
			g.Go(func() error {
				if _, err := s.Economy.RegenerateHP(gctx, id); err != nil {
					s.Logger.Warn("hp regen failed", zap.String("user_id", id), zap.Error(err))
					return nil
				}
				atomic.AddInt64(&processed, 1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return int(processed), err
		}
		if err := ctx.Err(); err != nil {
			return int(processed), err
		}
		lastID = ids[len(ids)-1]
		if len(ids) < hpSweepBatch {
			break
		}
	}
	span.SetAttributes(attribute.Int64("hp.processed", processed))
	s.Logger.Info("hp regen sweep done", zap.Int64("processed", processed))
	return int(processed), nil
}

// DecayInactive removes HP from users idle past the decay window.
// LastHPDecayAt marks how far decay has been applied, so reruns never double count a day.
func (s *HPService) DecayInactive(ctx context.Context) (int, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "hp.decay_inactive")
	defer span.End()

	cfg := s.Economy.Config.HP
	now := s.Economy.now()
	var users []models.UserProgress
	err := s.DB.WithContext(ctx).
		Where("last_active_at < ? AND hp > ?", now.Add(-cfg.DecayAfter), cfg.Floor).
		Find(&users).Error
	if err != nil {
		return 0, errors.Wrap(err, "list inactive users")
	}

	decayed := 0
	for _, u := range users {
		from := u.LastActiveAt.Add(cfg.DecayAfter)
		if u.LastHPDecayAt != nil && u.LastHPDecayAt.After(from) {
			from = *u.LastHPDecayAt
		}
		days := int(now.Sub(from) / (24 * time.Hour))
		if days <= 0 {
			continue
		}
		hp := cfg.DecayHP(u.HP, from.Add(-cfg.DecayAfter), now)
		mark := from.Add(time.Duration(days) * 24 * time.Hour)
		res := s.DB.WithContext(ctx).Model(&models.UserProgress{}).
			Where("user_id = ? AND hp = ?", u.UserID, u.HP).
			Updates(map[string]interface{}{
				"hp":               hp,
				"last_hp_decay_at": mark,
				"last_hp_regen_at": now,
			})
		if res.Error != nil {
			s.Logger.Warn("hp decay failed", zap.String("user_id", u.UserID), zap.Error(res.Error))
			continue
		}
		if res.RowsAffected > 0 {
			decayed++
		}
	}
	span.SetAttributes(attribute.Int("hp.decayed", decayed))
	s.Logger.Info("hp decay sweep done", zap.Int("decayed", decayed))
	return decayed, nil
}
