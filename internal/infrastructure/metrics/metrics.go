// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "commerce_sync"

// Metrics holds every collector on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	webhooksTotal        *prometheus.CounterVec
	webhookDuration      *prometheus.HistogramVec
	projectionFailures   *prometheus.CounterVec
	outboxDispatched     *prometheus.CounterVec
	queueItemsTotal      *prometheus.CounterVec
	syncRunsTotal        *prometheus.CounterVec
	syncDuration         *prometheus.HistogramVec
	integrationsDisabled prometheus.Counter
}

// New registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		webhooksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Inbound webhooks by platform and outcome.",
		}, []string{"platform", "outcome"}),
		webhookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Webhook handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"platform"}),
		projectionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projection_failures_total",
			Help:      "Failed best-effort projections by event kind.",
		}, []string{"kind"}),
		outboxDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_dispatch_total",
			Help:      "Outbox dispatch attempts by result.",
		}, []string{"result"}),
		queueItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_items_total",
			Help:      "Sync queue transitions by sync type and result.",
		}, []string{"sync_type", "result"}),
		syncRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Per-platform sync runs by status.",
		}, []string{"platform", "status"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of orchestrated and scheduled sync runs.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 180, 600},
		}, []string{"mode"}),
		integrationsDisabled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrations_disabled_total",
			Help:      "Integrations soft-disabled after repeated sync failures.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.webhooksTotal,
		m.webhookDuration,
		m.projectionFailures,
		m.outboxDispatched,
		m.queueItemsTotal,
		m.syncRunsTotal,
		m.syncDuration,
		m.integrationsDisabled,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) WebhookHandled(platform, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.webhooksTotal.WithLabelValues(platform, outcome).Inc()
	m.webhookDuration.WithLabelValues(platform).Observe(elapsed.Seconds())
}

func (m *Metrics) ProjectionFailed(kind string) {
	if m == nil {
		return
	}
	m.projectionFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) OutboxDispatched(result string) {
	if m == nil {
		return
	}
	m.outboxDispatched.WithLabelValues(result).Inc()
}

func (m *Metrics) QueueItem(syncType, result string) {
	if m == nil {
		return
	}
	m.queueItemsTotal.WithLabelValues(syncType, result).Inc()
}

func (m *Metrics) SyncRun(platform, status string) {
	if m == nil {
		return
	}
	m.syncRunsTotal.WithLabelValues(platform, status).Inc()
}

func (m *Metrics) SyncDuration(mode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.syncDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (m *Metrics) IntegrationDisabled() {
	if m == nil {
		return
	}
	m.integrationsDisabled.Inc()
}
