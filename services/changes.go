package services

import (
	"context"

	"courtside/realtime"

	"go.uber.org/zap"
)

// publishFor announces a row change once per interested user.
// Publishing is best effort; a failure is logged and never fails the write.
func publishFor(ctx context.Context, pub realtime.Publisher, logger *zap.Logger, table string, event realtime.Event, rowID string, userIDs ...string) {
	if pub == nil {
		return
	}
	seen := make(map[string]bool, len(userIDs))
	for _, uid := range userIDs {
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		c := realtime.NewChange(table, event, rowID, map[string]string{"user_id": uid})
		if err := pub.Publish(ctx, c); err != nil {
			logger.Warn("publish change failed",
				zap.String("table", table), zap.String("row_id", rowID), zap.Error(err))
		}
	}
}
