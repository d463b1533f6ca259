package services

import (
	"context"
	"time"

	"courtside/analysis"
	"courtside/cache"
	"courtside/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const opponentCacheTTL = 2 * time.Minute

// OpponentDirectory looks registered opponents up for the analyzer, through the read cache.
type OpponentDirectory struct {
	DB     *gorm.DB
	Cache  cache.Cache
	Logger *zap.Logger
}

var _ analysis.OpponentLookup = (*OpponentDirectory)(nil)

func NewOpponentDirectory(db *gorm.DB, c cache.Cache, logger *zap.Logger) *OpponentDirectory {
	return &OpponentDirectory{DB: db, Cache: c, Logger: logger}
}

func (d *OpponentDirectory) LookupOpponent(ctx context.Context, id string) (*analysis.OpponentStats, error) {
	var stats analysis.OpponentStats
	if d.Cache != nil {
		if hit, err := cache.GetJSON(ctx, d.Cache, cache.OpponentKey(id), &stats); err == nil && hit {
			return &stats, nil
		}
	}

	var prog models.UserProgress
	err := d.DB.WithContext(ctx).Where("user_id = ?", id).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lookup opponent")
	}
	// SkillLevel stays empty: the analyzer derives it from the level.
	stats = analysis.OpponentStats{Level: prog.Level, MatchesPlayed: prog.TotalMatches}

	if d.Cache != nil {
		if err := cache.SetJSON(ctx, d.Cache, cache.OpponentKey(id), stats, opponentCacheTTL); err != nil {
			d.Logger.Warn("cache opponent failed", zap.String("user_id", id), zap.Error(err))
		}
	}
	return &stats, nil
}
