package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.EventPublished("FILE_UPLOADED")
		m.EventReceived("FILE_UPLOADED")
		m.EventDropped("buffer_full")
		m.StreamOpened("all")
		m.StreamClosed("all")
		m.ObserveProcessing("completed", time.Now())
		m.CacheLookup("file", true)
	})
}

func TestCountersAndRegistration(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	require.NoError(t, m.Register(reg), "double registration is tolerated")

	m.EventPublished("FILE_ERROR")
	m.EventPublished("FILE_ERROR")
	m.StreamOpened("file")
	m.StreamOpened("file")
	m.StreamClosed("file")
	m.CacheLookup("rows", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("FILE_ERROR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveStreams.WithLabelValues("file")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("rows", "miss")))
}
