// Package fanout relays bus events to live client streams. One broker
// subscription feeds a listener registry keyed by file id, plus the global key.
//
// Every stream pings its client once per heartbeat. Neither SSE nor WebSocket
// reports a silent disconnect, so a dropped client stays registered until its
// next ping fails, at most one heartbeat later.
package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go_ingest_backend/models"
	"go_ingest_backend/pkg/logging"
	"go_ingest_backend/platform/events"
	"go_ingest_backend/platform/metrics"
)

const defaultHeartbeat = 15 * time.Second

// ErrGatewayStopped ends streams when the gateway shuts down.
var ErrGatewayStopped = errors.New("gateway stopped")

// Sink is one client transport.
type Sink interface {
	// Send writes one encoded StreamEvent and flushes it.
	Send(frame []byte) error
	// Ping probes the connection so a silent disconnect is noticed.
	Ping() error
}

type Gateway struct {
	bus       events.Bus
	registry  *Registry
	metrics   *metrics.Metrics
	heartbeat time.Duration

	mu      sync.Mutex
	sub     events.Subscription
	done    chan struct{}
	stopped sync.Once
}

func NewGateway(bus events.Bus, registry *Registry, m *metrics.Metrics, heartbeat time.Duration) *Gateway {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &Gateway{
		bus:       bus,
		registry:  registry,
		metrics:   m,
		heartbeat: heartbeat,
		done:      make(chan struct{}),
	}
}

func (g *Gateway) Registry() *Registry { return g.registry }

// Start opens the single subscription to every event channel.
func (g *Gateway) Start(ctx context.Context) error {
	sub, err := g.bus.Subscribe(ctx, events.Channels(), g.handle)
	if err != nil {
		return err
	}
	g.mu.Lock()
	g.sub = sub
	g.mu.Unlock()
	logging.Logger.Info("fan-out gateway subscribed", "channels", events.Channels())
	return nil
}

// Stop closes the subscription and ends every open stream.
func (g *Gateway) Stop() error {
	var err error
	g.stopped.Do(func() {
		close(g.done)
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.sub != nil {
			err = g.sub.Close()
		}
	})
	return err
}

func (g *Gateway) handle(_ context.Context, msg events.Message) {
	g.metrics.EventReceived(msg.Channel)

	ev, err := events.Decode(msg.Channel, msg.Payload)
	if err != nil {
		g.metrics.EventDropped("invalid")
		logging.Logger.Warn("dropping undecodable event", "channel", msg.Channel, "error", err)
		return
	}
	frame, err := json.Marshal(models.StreamEvent{Type: ev.Kind(), Data: ev})
	if err != nil {
		g.metrics.EventDropped("invalid")
		logging.Logger.Error("fail encoding stream event", "channel", msg.Channel, "error", err)
		return
	}

	g.registry.Dispatch(ev.EventFileID(), frame)
	g.registry.Dispatch(AllKey, frame)
}

// Stream registers a listener under key and forwards its frames to sink until ctx
// is cancelled, the gateway stops or the sink fails. The listener is removed
// exactly once on return.
func (g *Gateway) Stream(ctx context.Context, key string, sink Sink) error {
	l := g.registry.Add(key)
	defer g.registry.Remove(l)

	ticker := time.NewTicker(g.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-g.done:
			return ErrGatewayStopped
		case frame := <-l.C():
			if err := sink.Send(frame); err != nil {
				logging.Logger.Debug("stream write failed, closing", "key", key, "error", err)
				return err
			}
		case <-ticker.C:
			if err := sink.Ping(); err != nil {
				logging.Logger.Debug("stream ping failed, closing", "key", key, "error", err)
				return err
			}
		}
	}
}
