package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"courtside/middleware"
	"courtside/realtime"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const streamKeepAlive = 20 * time.Second

// recipientTables are filtered by recipient rather than owner.
var recipientTables = map[string]bool{"messages": true}

// SetupStreamRoutes serves realtime changes for the caller over SSE. Clients
// treat each event as an invalidation hint and re-fetch.
func SetupStreamRoutes(app fiber.Router, hub *realtime.Hub, auth fiber.Handler) {
	app.Get("/stream/changes", auth, func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		table := c.Query("table")

		var feeds []<-chan realtime.Change
		var cancels []func()
		if table == "" || !recipientTables[table] {
			ch, cancel := hub.Subscribe(table, map[string]string{"user_id": userID})
			feeds, cancels = append(feeds, ch), append(cancels, cancel)
		}
		if table == "" || recipientTables[table] {
			ch, cancel := hub.Subscribe(table, map[string]string{"recipient_id": userID})
			feeds, cancels = append(feeds, ch), append(cancels, cancel)
		}
		// Pad to two feeds; a nil channel never fires.
		for len(feeds) < 2 {
			feeds = append(feeds, nil)
		}

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer func() {
				for _, cancel := range cancels {
					cancel()
				}
			}()
			ticker := time.NewTicker(streamKeepAlive)
			defer ticker.Stop()

			if _, err := w.WriteString(": connected\n\n"); err != nil || w.Flush() != nil {
				return
			}
			for {
				var (
					change realtime.Change
					ok     bool
				)
				select {
				case change, ok = <-feeds[0]:
				case change, ok = <-feeds[1]:
				case <-ticker.C:
					if _, err := w.WriteString(": ping\n\n"); err != nil || w.Flush() != nil {
						return
					}
					continue
				}
				if !ok {
					return
				}
				data, err := json.Marshal(change)
				if err != nil {
					zap.L().Warn("encode change failed", zap.Error(err))
					continue
				}
				fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
				if err := w.Flush(); err != nil {
					zap.L().Debug("stream closed", zap.String("user_id", userID))
					return
				}
			}
		})
		return nil
	})
}
