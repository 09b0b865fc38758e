// Package metrics holds the Prometheus instruments shared by the bus, the cache-aside
// repository, the processing worker and the fan-out gateway. All helper methods are
// safe to call on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ingest"

type Metrics struct {
	EventsPublished    *prometheus.CounterVec
	EventsReceived     *prometheus.CounterVec
	EventsDropped      *prometheus.CounterVec
	ActiveStreams      *prometheus.GaugeVec
	ProcessingDuration *prometheus.HistogramVec
	CacheLookups       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "published_total",
				Help:      "Events handed to the broker, by channel",
			},
			[]string{"channel"},
		),
		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "received_total",
				Help:      "Events received by the fan-out gateway, by channel",
			},
			[]string{"channel"},
		),
		EventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "dropped_total",
				Help:      "Events not delivered to a listener, by reason",
			},
			[]string{"reason"},
		),
		ActiveStreams: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "active_streams",
				Help:      "Open client push streams, by scope (file or all)",
			},
			[]string{"scope"},
		),
		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "processing_duration_seconds",
				Help:      "Time from FILE_UPLOADED receipt to terminal status",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "repository",
				Name:      "cache_lookups_total",
				Help:      "Cache-aside lookups, by kind and result",
			},
			[]string{"kind", "result"},
		),
	}
}

// Register adds every collector to reg. Collectors already registered are tolerated.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.EventsPublished,
		m.EventsReceived,
		m.EventsDropped,
		m.ActiveStreams,
		m.ProcessingDuration,
		m.CacheLookups,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

func (m *Metrics) EventPublished(channel string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(channel).Inc()
}

func (m *Metrics) EventReceived(channel string) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(channel).Inc()
}

func (m *Metrics) EventDropped(reason string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) StreamOpened(scope string) {
	if m == nil {
		return
	}
	m.ActiveStreams.WithLabelValues(scope).Inc()
}

func (m *Metrics) StreamClosed(scope string) {
	if m == nil {
		return
	}
	m.ActiveStreams.WithLabelValues(scope).Dec()
}

func (m *Metrics) ObserveProcessing(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.ProcessingDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
}

func (m *Metrics) CacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}
