package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"go_ingest_backend/pkg/apperr"
	"go_ingest_backend/pkg/logging"
	"go_ingest_backend/platform/metrics"
)

const natsPendingMessages = 1024

// NatsBus maps channels onto core NATS subjects. Like Redis pub/sub it has no
// persistence: a subject with no subscriber drops the message.
type NatsBus struct {
	conn    *nats.Conn
	metrics *metrics.Metrics
}

func ConnectNats(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("go-ingest-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logging.Logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, apperr.Transport("connect", err)
	}
	logging.Logger.Info("Connected to NATS", "url", conn.ConnectedUrl())
	return conn, nil
}

func NewNatsBus(conn *nats.Conn, m *metrics.Metrics) *NatsBus {
	return &NatsBus{conn: conn, metrics: m}
}

func (b *NatsBus) Publish(_ context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperr.Validationf("payload", err, "cannot serialize payload for %s", channel)
	}
	if err := b.conn.Publish(channel, data); err != nil {
		logging.Logger.Error("fail Publish", "channel", channel, "error", err)
		return apperr.Transport("publish "+channel, err)
	}
	b.metrics.EventPublished(channel)
	return nil
}

// Subscribe funnels every subject into one Go channel so a single goroutine delivers
// messages in the order the server sent them.
func (b *NatsBus) Subscribe(ctx context.Context, channels []string, handler Handler) (Subscription, error) {
	msgs := make(chan *nats.Msg, natsPendingMessages)
	subs := make([]*nats.Subscription, 0, len(channels))

	unsubscribeAll := func() {
		for _, s := range subs {
			if err := s.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed {
				logging.Logger.Warn("fail Unsubscribe", "subject", s.Subject, "error", err)
			}
		}
	}

	for _, channel := range channels {
		s, err := b.conn.ChanSubscribe(channel, msgs)
		if err != nil {
			unsubscribeAll()
			return nil, apperr.Transport("subscribe "+channel, err)
		}
		subs = append(subs, s)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		unsubscribeAll()
		return nil, apperr.Transport("subscribe", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &natsSubscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer unsubscribeAll()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg := <-msgs:
				handler(subCtx, Message{Channel: msg.Subject, Payload: msg.Data})
			}
		}
	}()

	return sub, nil
}

func (b *NatsBus) Close() error {
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return err
	}
	return nil
}

type natsSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *natsSubscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}
