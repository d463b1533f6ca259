package realtime

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type hubSub struct {
	table  string
	filter map[string]string
	ch     chan Change
}

// Hub fans changes out to in-process subscribers such as SSE clients.
// Slow subscribers miss changes instead of blocking publishers.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]*hubSub
	nextID int
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{subs: make(map[int]*hubSub), logger: logger}
}

func (h *Hub) Publish(_ context.Context, c Change) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subs {
		if !c.Matches(s.table, s.filter) {
			continue
		}
		select {
		case s.ch <- c:
		default:
			h.logger.Debug("dropping change for slow subscriber",
				zap.Int("subscriber", id), zap.String("table", c.Table))
		}
	}
	return nil
}

// Subscribe registers a subscriber. The returned cancel func closes the channel.
func (h *Hub) Subscribe(table string, filter map[string]string) (<-chan Change, func()) {
	s := &hubSub{table: table, filter: filter, ch: make(chan Change, 16)}
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = s
	h.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(s.ch)
		})
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Bridge forwards every NATS change into the hub until ctx is done.
func (h *Hub) Bridge(ctx context.Context, conn *nats.Conn) error {
	changes, err := Subscribe(ctx, conn, "", nil)
	if err != nil {
		return errors.Wrap(err, "bridge changes")
	}
	go func() {
		for c := range changes {
			_ = h.Publish(ctx, c)
		}
	}()
	return nil
}
