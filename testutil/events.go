package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"go_ingest_backend/platform/events"
)

// Recorder collects delivered messages for assertions.
type Recorder struct {
	mu   sync.Mutex
	msgs []events.Message
}

func (r *Recorder) Handle(_ context.Context, msg events.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *Recorder) Messages() []events.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Message(nil), r.msgs...)
}

// WaitFor polls until at least n messages arrived or the timeout expires.
func (r *Recorder) WaitFor(t *testing.T, n int, timeout time.Duration) []events.Message {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if msgs := r.Messages(); len(msgs) >= n {
			return msgs
		}
		time.Sleep(5 * time.Millisecond)
	}
	msgs := r.Messages()
	t.Fatalf("expected %d messages, got %d", n, len(msgs))
	return msgs
}

// Eventually polls cond until it holds or the timeout expires.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
