package fanout

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"go_ingest_backend/platform/metrics"
)

func TestRegistryDispatchIsolation(t *testing.T) {
	r := NewRegistry(4, nil)
	a := r.Add("f1")
	b := r.Add("f2")

	assert.Equal(t, 1, r.Dispatch("f1", []byte("x")))
	assert.Equal(t, 0, r.Dispatch("nobody", []byte("y")))

	assert.Len(t, a.C(), 1)
	assert.Len(t, b.C(), 0)
}

func TestRegistryFullBufferDropsWithoutBlocking(t *testing.T) {
	m := metrics.NewMetrics()
	r := NewRegistry(1, m)
	slow := r.Add("f1")
	fast := r.Add("f1")

	assert.Equal(t, 2, r.Dispatch("f1", []byte("1")))
	<-fast.C()
	assert.Equal(t, 1, r.Dispatch("f1", []byte("2")), "slow listener misses the second frame")

	assert.Equal(t, "1", string(<-slow.C()))
	assert.Equal(t, "2", string(<-fast.C()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped.WithLabelValues("buffer_full")))
}

func TestRegistryRemoveOnce(t *testing.T) {
	m := metrics.NewMetrics()
	r := NewRegistry(1, m)
	l := r.Add(AllKey)
	other := r.Add(AllKey)

	var wg sync.WaitGroup
	for _i := 0; _i < 10; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Remove(l)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, r.Count(AllKey))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveStreams.WithLabelValues("all")))

	r.Remove(other)
	assert.Equal(t, 0, r.Keys())
}

func TestRegistryStats(t *testing.T) {
	r := NewRegistry(1, nil)
	r.Add(AllKey)
	r.Add("f1")
	r.Add("f1")
	r.Add("f2")

	global, perFile := r.Stats()
	assert.Equal(t, 1, global)
	assert.Equal(t, 3, perFile)
	assert.Equal(t, 2, r.Count("f1"))
}
