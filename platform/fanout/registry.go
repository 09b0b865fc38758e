package fanout

import (
	"sync"

	"go_ingest_backend/pkg/logging"
	"go_ingest_backend/platform/metrics"
)

// AllKey is the listener key of the global stream.
const AllKey = "all"

const defaultBuffer = 64

// Listener receives encoded stream events for one key.
type Listener struct {
	key  string
	ch   chan []byte
	once sync.Once
}

func (l *Listener) Key() string { return l.key }

// C delivers frames in dispatch order.
func (l *Listener) C() <-chan []byte { return l.ch }

// Registry maps a key (file id or AllKey) to its live listeners.
type Registry struct {
	mu        sync.RWMutex
	listeners map[string]map[*Listener]struct{}
	buffer    int
	metrics   *metrics.Metrics
}

func NewRegistry(buffer int, m *metrics.Metrics) *Registry {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Registry{
		listeners: make(map[string]map[*Listener]struct{}),
		buffer:    buffer,
		metrics:   m,
	}
}

func scope(key string) string {
	if key == AllKey {
		return "all"
	}
	return "file"
}

func (r *Registry) Add(key string) *Listener {
	l := &Listener{key: key, ch: make(chan []byte, r.buffer)}

	r.mu.Lock()
	set, ok := r.listeners[key]
	if !ok {
		set = make(map[*Listener]struct{})
		r.listeners[key] = set
	}
	set[l] = struct{}{}
	r.mu.Unlock()

	r.metrics.StreamOpened(scope(key))
	return l
}

// Remove unregisters l. Only the first call has an effect; empty keys are dropped.
func (r *Registry) Remove(l *Listener) {
	l.once.Do(func() {
		r.mu.Lock()
		if set, ok := r.listeners[l.key]; ok {
			delete(set, l)
			if len(set) == 0 {
				delete(r.listeners, l.key)
			}
		}
		r.mu.Unlock()
		r.metrics.StreamClosed(scope(l.key))
	})
}

// Dispatch offers frame to every listener under key without blocking. A listener
// whose buffer is full misses the frame. It returns the number of deliveries.
func (r *Registry) Dispatch(key string, frame []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for l := range r.listeners[key] {
		select {
		case l.ch <- frame:
			delivered++
		default:
			r.metrics.EventDropped("buffer_full")
			logging.Logger.Warn("listener buffer full, dropping event", "key", key)
		}
	}
	return delivered
}

func (r *Registry) Count(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[key])
}

// Stats returns the number of global listeners and of listeners on any file id.
func (r *Registry) Stats() (global, perFile int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for key, set := range r.listeners {
		if key == AllKey {
			global += len(set)
		} else {
			perFile += len(set)
		}
	}
	return global, perFile
}

// Keys returns the number of distinct keys with at least one listener.
func (r *Registry) Keys() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}
