package workers

import (
	"context"

	"courtside/cache"
	"courtside/realtime"

	"go.uber.org/zap"
)

// ChangeSource delivers realtime changes; *realtime.Hub satisfies it.
type ChangeSource interface {
	Subscribe(table string, filter map[string]string) (<-chan realtime.Change, func())
}

// CacheInvalidator drops cached opponent and profile entries when the user
// they describe changes. Duplicate or late changes only cause an extra miss.
type CacheInvalidator struct {
	Source ChangeSource
	Cache  cache.Cache
	Logger *zap.Logger
}

func NewCacheInvalidator(src ChangeSource, c cache.Cache, logger *zap.Logger) *CacheInvalidator {
	return &CacheInvalidator{Source: src, Cache: c, Logger: logger}
}

func (w *CacheInvalidator) Start(ctx context.Context) {
	changes, cancel := w.Source.Subscribe("", nil)
	w.Logger.Info("starting cache invalidator")
	go func() {
		defer cancel()
		w.Run(ctx, changes)
	}()
}

// Run consumes changes until ctx is done or the channel closes.
func (w *CacheInvalidator) Run(ctx context.Context, changes <-chan realtime.Change) {
	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("cache invalidator stopped")
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			w.apply(ctx, c)
		}
	}
}

func (w *CacheInvalidator) apply(ctx context.Context, c realtime.Change) {
	userID := c.Filter["user_id"]
	if userID == "" {
		return
	}
	keys := []string{cache.OpponentKey(userID)}
	if c.Table == "player_profiles" {
		keys = append(keys, cache.ProfileKey(userID))
	}
	if err := w.Cache.Delete(ctx, keys...); err != nil {
		w.Logger.Warn("cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}
