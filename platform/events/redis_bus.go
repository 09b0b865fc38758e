package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"

	"go_ingest_backend/pkg/apperr"
	"go_ingest_backend/pkg/logging"
	"go_ingest_backend/platform/metrics"
)

// RedisBus maps channels onto Redis PUBLISH / SUBSCRIBE.
type RedisBus struct {
	redisClient *redis.Client
	metrics     *metrics.Metrics
}

func NewRedisBus(redisClient *redis.Client, m *metrics.Metrics) *RedisBus {
	return &RedisBus{redisClient: redisClient, metrics: m}
}

func (b *RedisBus) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperr.Validationf("payload", err, "cannot serialize payload for %s", channel)
	}
	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		logging.Logger.Error("fail Publish", "channel", channel, "error", err)
		return apperr.Transport("publish "+channel, err)
	}
	b.metrics.EventPublished(channel)
	logging.Logger.Debug("Published event", "channel", channel)
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, channels []string, handler Handler) (Subscription, error) {
	pubsub := b.redisClient.Subscribe(ctx, channels...)
	// the first confirmation means the SUBSCRIBE command, with every channel, was applied
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		logging.Logger.Error("fail Subscribe", "channels", channels, "error", err)
		return nil, apperr.Transport("subscribe", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &redisSubscription{cancel: cancel, done: make(chan struct{})}
	msgs := pubsub.Channel()

	go func() {
		defer close(sub.done)
		defer func() {
			if err := pubsub.Close(); err != nil {
				logging.Logger.Warn("fail closing pubsub", "error", err)
			}
		}()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				handler(subCtx, Message{Channel: msg.Channel, Payload: []byte(msg.Payload)})
			}
		}
	}()

	return sub, nil
}

// Close is a no-op; the Redis client is owned by the infrastructure layer.
func (b *RedisBus) Close() error {
	return nil
}

type redisSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}
