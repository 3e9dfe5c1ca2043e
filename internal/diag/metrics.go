// Package diag instruments the event pipeline with Prometheus metrics
// and serves them on an optional diagnostics listener.
package diag

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gatehook"

// Metrics holds the pipeline instruments on a private registry so the
// diagnostics endpoint only exposes what the bridge records.
type Metrics struct {
	registry *prometheus.Registry

	eventsReceived   *prometheus.CounterVec
	eventsFiltered   *prometheus.CounterVec
	deliveries       *prometheus.CounterVec
	deliveryFailures *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
	actions          *prometheus.CounterVec
	channelLookups   *prometheus.CounterVec
}

// NewMetrics builds and registers all pipeline instruments.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Gateway events seen per kind, before filtering.",
		}, []string{"kind"}),
		eventsFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_filtered_total",
			Help:      "Events dropped by sender policy, per kind and sender.",
		}, []string{"kind", "sender"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook POSTs that completed, per kind and status class.",
		}, []string{"kind", "status"}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_failures_total",
			Help:      "Webhook deliveries that yielded no actions, per kind and reason.",
		}, []string{"kind", "reason"}),
		deliveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Webhook round-trip duration per kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_executed_total",
			Help:      "Webhook actions executed, per type and outcome.",
		}, []string{"type", "status"}),
		channelLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_lookups_total",
			Help:      "Channel metadata lookups per source: cache, rest, or miss.",
		}, []string{"source"}),
	}
	m.registry.MustRegister(
		m.eventsReceived,
		m.eventsFiltered,
		m.deliveries,
		m.deliveryFailures,
		m.deliveryDuration,
		m.actions,
		m.channelLookups,
	)
	return m
}

// RecordEvent counts a gateway event of the given kind.
func (m *Metrics) RecordEvent(kind string) {
	m.eventsReceived.WithLabelValues(kind).Inc()
}

// RecordFiltered counts an event dropped by a sender policy.
func (m *Metrics) RecordFiltered(kind, sender string) {
	m.eventsFiltered.WithLabelValues(kind, sender).Inc()
}

// RecordDelivery counts a completed webhook POST and observes its
// round-trip time. status is the HTTP status class, e.g. "2xx".
func (m *Metrics) RecordDelivery(kind, status string, d time.Duration) {
	m.deliveries.WithLabelValues(kind, status).Inc()
	m.deliveryDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordDeliveryFailure counts a delivery that produced no usable
// response. reason is one of transport, oversize, or parse.
func (m *Metrics) RecordDeliveryFailure(kind, reason string) {
	m.deliveryFailures.WithLabelValues(kind, reason).Inc()
}

// RecordAction counts one executed action. status is ok, error, or
// skipped.
func (m *Metrics) RecordAction(actionType, status string) {
	m.actions.WithLabelValues(actionType, status).Inc()
}

// RecordChannelLookup counts a channel metadata lookup by source.
func (m *Metrics) RecordChannelLookup(source string) {
	m.channelLookups.WithLabelValues(source).Inc()
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
