package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks the relay from outbox_events to the broker.
type OutboxMetrics struct {
	events  *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return nil
	}
	m := &OutboxMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Outbox rows handled by outcome (published, retry, dead_lettered).",
		}, []string{"event_type", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "outbox_publish_lag_seconds",
			Help:    "Delay between staging a row and the broker ack.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"event_type"}),
	}
	reg.MustRegister(m.events, m.latency)
	return m
}

func (m *OutboxMetrics) ObserveOutcome(eventType, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *OutboxMetrics) ObserveLag(eventType string, lag time.Duration) {
	if m == nil || lag < 0 {
		return
	}
	m.latency.WithLabelValues(normalizeLabel(eventType)).Observe(lag.Seconds())
}
