package services

import (
	"context"
	"fmt"
	"time"

	"courtside/economy"
	"courtside/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ledger is the set of atomic balance operations. Each call is a single
// transaction or conditional update, so concurrent callers never double-spend.
type Ledger interface {
	AwardTokens(ctx context.Context, userID string, amount int64, kind models.TokenKind, reason, refID string) (int64, error)
	SpendTokens(ctx context.Context, userID string, amount int64, kind models.TokenKind, reason, refID string) (int64, error)
	AwardXP(ctx context.Context, userID string, xp int64, reason string) (*XPAward, error)
	SpendHP(ctx context.Context, userID string, amount int) (int, error)
	RegenerateHP(ctx context.Context, userID string) (int, error)
}

type EconomyConfig struct {
	HP            economy.HPConfig
	LevelUpBonus  int64 // tokens per level reached, times the level
	StarterTokens int64
}

var DefaultEconomyConfig = EconomyConfig{
	HP:            economy.DefaultHPConfig,
	LevelUpBonus:  10,
	StarterTokens: 100,
}

// XPAward is the outcome of AwardXP.
type XPAward struct {
	Progress        *models.UserProgress `json:"progress"`
	XPAwarded       int64                `json:"xp_awarded"`
	LevelsGained    int                  `json:"levels_gained"`
	BonusTokens     int64                `json:"bonus_tokens"`
	NewAchievements []models.Achievement `json:"new_achievements,omitempty"`
}

// Economy is the gorm-backed Ledger.
type Economy struct {
	DB           *gorm.DB
	Config       EconomyConfig
	Achievements *AchievementService
	Logger       *zap.Logger
	Now          func() time.Time
}

var _ Ledger = (*Economy)(nil)

func NewEconomy(db *gorm.DB, cfg EconomyConfig, achievements *AchievementService, logger *zap.Logger) *Economy {
	return &Economy{DB: db, Config: cfg, Achievements: achievements, Logger: logger, Now: utcNow}
}

// WithTx returns a copy bound to an outer transaction.
func (e *Economy) WithTx(tx *gorm.DB) *Economy {
	c := *e
	c.DB = tx
	return &c
}

func (e *Economy) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return utcNow()
}

func (e *Economy) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return e.DB.WithContext(ctx).Transaction(fn)
}

// ensureProgress loads the user's progress row, creating it with the starter grant.
func (e *Economy) ensureProgress(tx *gorm.DB, userID string) (*models.UserProgress, error) {
	if userID == "" {
		return nil, invalid("user id required")
	}
	var p models.UserProgress
	err := tx.Where("user_id = ?", userID).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "load progress")
	}

	now := e.now()
	p = models.UserProgress{
		UserID:        userID,
		Level:         1,
		Tokens:        e.Config.StarterTokens,
		HP:            e.Config.HP.Max,
		MaxHP:         e.Config.HP.Max,
		LastHPRegenAt: now,
		LastActiveAt:  now,
	}
	if err := tx.Create(&p).Error; err != nil {
		return nil, errors.Wrap(err, "create progress")
	}
	if e.Config.StarterTokens > 0 {
		if err := record(tx, userID, e.Config.StarterTokens, models.TokenAward, "starter_tokens", ""); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func record(tx *gorm.DB, userID string, amount int64, kind models.TokenKind, reason, refID string) error {
	t := models.TokenTransaction{UserID: userID, Amount: amount, Kind: kind, Reason: reason, RefID: refID}
	return errors.Wrap(tx.Create(&t).Error, "record token transaction")
}

func balance(tx *gorm.DB, userID string) (int64, error) {
	var tokens int64
	err := tx.Model(&models.UserProgress{}).Where("user_id = ?", userID).Select("tokens").Scan(&tokens).Error
	return tokens, errors.Wrap(err, "read balance")
}

func (e *Economy) AwardTokens(ctx context.Context, userID string, amount int64, kind models.TokenKind, reason, refID string) (int64, error) {
	if amount <= 0 {
		return 0, invalid("amount must be positive")
	}
	var tokens int64
	err := e.run(ctx, func(tx *gorm.DB) error {
		if _, err := e.ensureProgress(tx, userID); err != nil {
			return err
		}
		if err := tx.Model(&models.UserProgress{}).
			Where("user_id = ?", userID).
			Update("tokens", gorm.Expr("tokens + ?", amount)).Error; err != nil {
			return errors.Wrap(err, "credit tokens")
		}
		if err := record(tx, userID, amount, kind, reason, refID); err != nil {
			return err
		}
		var err error
		tokens, err = balance(tx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	e.Logger.Info("tokens awarded",
		zap.String("user_id", userID), zap.Int64("amount", amount),
		zap.String("kind", string(kind)), zap.String("reason", reason))
	return tokens, nil
}

func (e *Economy) SpendTokens(ctx context.Context, userID string, amount int64, kind models.TokenKind, reason, refID string) (int64, error) {
	if amount <= 0 {
		return 0, invalid("amount must be positive")
	}
	var tokens int64
	err := e.run(ctx, func(tx *gorm.DB) error {
		if _, err := e.ensureProgress(tx, userID); err != nil {
			return err
		}
		res := tx.Model(&models.UserProgress{}).
			Where("user_id = ? AND tokens >= ?", userID, amount).
			Update("tokens", gorm.Expr("tokens - ?", amount))
		if res.Error != nil {
			return errors.Wrap(res.Error, "debit tokens")
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientTokens
		}
		if err := record(tx, userID, -amount, kind, reason, refID); err != nil {
			return err
		}
		var err error
		tokens, err = balance(tx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return tokens, nil
}

// AwardXP adds XP, recomputes the level from the curve and pays the level-up
// bonus for every level crossed. Achievements are evaluated in the same transaction.
func (e *Economy) AwardXP(ctx context.Context, userID string, xp int64, reason string) (*XPAward, error) {
	if xp < 0 {
		return nil, invalid("xp must not be negative")
	}
	award := &XPAward{XPAwarded: xp}
	err := e.run(ctx, func(tx *gorm.DB) error {
		if _, err := e.ensureProgress(tx, userID); err != nil {
			return err
		}
		if xp > 0 {
			if err := tx.Model(&models.UserProgress{}).
				Where("user_id = ?", userID).
				Update("total_xp", gorm.Expr("total_xp + ?", xp)).Error; err != nil {
				return errors.Wrap(err, "add xp")
			}
		}

		var p models.UserProgress
		if err := tx.Where("user_id = ?", userID).First(&p).Error; err != nil {
			return errors.Wrap(err, "reload progress")
		}

		newLevel := economy.CalculateLevelFromXP(p.TotalXP)
		if newLevel > p.Level {
			now := e.now()
			// Guarded on the old level so a concurrent award cannot pay the bonus twice.
			res := tx.Model(&models.UserProgress{}).
				Where("user_id = ? AND level = ?", userID, p.Level).
				Updates(map[string]interface{}{"level": newLevel, "last_level_up_at": now})
			if res.Error != nil {
				return errors.Wrap(res.Error, "level up")
			}
			if res.RowsAffected == 1 {
				bonus := economy.LevelUpBonus(p.Level, newLevel, e.Config.LevelUpBonus)
				if bonus > 0 {
					if err := tx.Model(&models.UserProgress{}).
						Where("user_id = ?", userID).
						Update("tokens", gorm.Expr("tokens + ?", bonus)).Error; err != nil {
						return errors.Wrap(err, "level up bonus")
					}
					if err := record(tx, userID, bonus, models.TokenLevelUp, fmt.Sprintf("level_%d", newLevel), ""); err != nil {
						return err
					}
				}
				award.LevelsGained = newLevel - p.Level
				award.BonusTokens = bonus
			}
		}

		if e.Achievements != nil {
			got, err := e.Achievements.Evaluate(tx, userID)
			if err != nil {
				return err
			}
			award.NewAchievements = got
		}

		if err := tx.Where("user_id = ?", userID).First(&p).Error; err != nil {
			return errors.Wrap(err, "reload progress")
		}
		award.Progress = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.Logger.Info("xp awarded",
		zap.String("user_id", userID), zap.Int64("xp", xp), zap.String("reason", reason),
		zap.Int64("total_xp", award.Progress.TotalXP), zap.Int("level", award.Progress.Level),
		zap.Int("levels_gained", award.LevelsGained))
	return award, nil
}

// SpendHP applies pending regeneration, then takes amount HP and marks the user active.
func (e *Economy) SpendHP(ctx context.Context, userID string, amount int) (int, error) {
	if amount < 0 {
		return 0, invalid("hp amount must not be negative")
	}
	var left int
	err := e.run(ctx, func(tx *gorm.DB) error {
		p, err := e.ensureProgress(tx, userID)
		if err != nil {
			return err
		}
		hp, err := e.regenerate(tx, p)
		if err != nil {
			return err
		}
		res := tx.Model(&models.UserProgress{}).
			Where("user_id = ? AND hp >= ?", userID, amount).
			Updates(map[string]interface{}{
				"hp":             gorm.Expr("hp - ?", amount),
				"last_active_at": e.now(),
			})
		if res.Error != nil {
			return errors.Wrap(res.Error, "spend hp")
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientHP
		}
		left = hp - amount
		return nil
	})
	return left, err
}

func (e *Economy) RegenerateHP(ctx context.Context, userID string) (int, error) {
	var hp int
	err := e.run(ctx, func(tx *gorm.DB) error {
		p, err := e.ensureProgress(tx, userID)
		if err != nil {
			return err
		}
		hp, err = e.regenerate(tx, p)
		return err
	})
	return hp, err
}

func (e *Economy) hpConfig(p *models.UserProgress) economy.HPConfig {
	cfg := e.Config.HP
	if p.MaxHP > 0 {
		cfg.Max = p.MaxHP
	}
	return cfg
}

// regenerate applies whole-hour regeneration. The update is guarded on the
// HP value read, so a lost race just returns the winner's value.
func (e *Economy) regenerate(tx *gorm.DB, p *models.UserProgress) (int, error) {
	hp, mark := e.hpConfig(p).RegenHP(p.HP, p.LastHPRegenAt, e.now())
	if hp == p.HP && mark.Equal(p.LastHPRegenAt) {
		return hp, nil
	}
	res := tx.Model(&models.UserProgress{}).
		Where("user_id = ? AND hp = ?", p.UserID, p.HP).
		Updates(map[string]interface{}{"hp": hp, "last_hp_regen_at": mark})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "regenerate hp")
	}
	if res.RowsAffected == 0 {
		var cur models.UserProgress
		if err := tx.Where("user_id = ?", p.UserID).First(&cur).Error; err != nil {
			return 0, errors.Wrap(err, "reload progress")
		}
		return cur.HP, nil
	}
	return hp, nil
}
