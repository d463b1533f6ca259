package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const filterHeader = "Courtside-Filter"

type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// NopPublisher drops every change.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Change) error { return nil }

// Connect opens a NATS connection that keeps retrying in the background.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("courtside"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connect nats")
	}
	return nc, nil
}

type NATSPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewNATSPublisher(conn *nats.Conn, logger *zap.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, logger: logger}
}

func (p *NATSPublisher) Publish(_ context.Context, c Change) error {
	if p.conn == nil || p.conn.IsClosed() {
		return nats.ErrConnectionClosed
	}
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode change")
	}
	msg := nats.NewMsg(c.Subject())
	msg.Data = data
	if len(c.Filter) > 0 {
		msg.Header.Set(filterHeader, EncodeFilter(c.Filter))
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		p.logger.Warn("publish change failed",
			zap.String("subject", msg.Subject), zap.Error(err))
		return errors.Wrap(err, "publish change")
	}
	return nil
}

// changeSink is the receiving end of a NATS subscription. nats.go may still be
// inside a message handler after Unsubscribe returns, so send and close share a lock.
type changeSink struct {
	mu     sync.Mutex
	closed bool
	ch     chan Change
}

func newChangeSink(size int) *changeSink {
	return &changeSink{ch: make(chan Change, size)}
}

// send delivers c unless the sink is closed or full.
func (s *changeSink) send(c Change) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- c:
		return true
	default:
		return false
	}
}

func (s *changeSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Subscribe delivers changes on table matching filter until ctx is done.
// An empty table receives every change.
func Subscribe(ctx context.Context, conn *nats.Conn, table string, filter map[string]string) (<-chan Change, error) {
	sink := newChangeSink(256)
	sub, err := conn.Subscribe(TableSubject(table), func(msg *nats.Msg) {
		c, ok := decode(msg)
		if !ok || !c.Matches(table, filter) {
			return
		}
		sink.send(c)
	})
	if err != nil {
		return nil, errors.Wrap(err, "subscribe changes")
	}
	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
		sink.close()
	}()
	return sink.ch, nil
}

func decode(msg *nats.Msg) (Change, bool) {
	var c Change
	if err := json.Unmarshal(msg.Data, &c); err != nil {
		return c, false
	}
	if len(c.Filter) == 0 && msg.Header != nil {
		if f := msg.Header.Get(filterHeader); f != "" {
			c.Filter = ParseFilter(f)
		}
	}
	return c, true
}
