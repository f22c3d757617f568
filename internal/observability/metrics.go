// Package observability exposes this service's Prometheus metrics: HTTP
// request counts/latency, job queue throughput, enrichment stage outcomes,
// and vector store / model call latency. Built on the real
// prometheus/client_golang registry rather than a hand-rolled exposition
// writer, so /metrics is a standard promhttp.Handler().
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "feedback_intel"

// Metrics holds every counter/histogram/gauge this service emits. A nil
// *Metrics is safe to call methods on: every method is a no-op when m is
// nil, so callers never need to guard on whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIInflight        prometheus.Gauge

	JobsEnqueuedTotal *prometheus.CounterVec
	JobsProcessedTotal *prometheus.CounterVec
	JobDuration        *prometheus.HistogramVec
	QueueDepth         *prometheus.GaugeVec

	ModelCallDuration *prometheus.HistogramVec
	ModelCallErrors   *prometheus.CounterVec

	VectorStoreCallDuration *prometheus.HistogramVec
	VectorStoreCallErrors   *prometheus.CounterVec

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	TopicsSpawnedTotal  prometheus.Counter
	UnassignedPoolSize  prometheus.Gauge
}

// New registers every metric against a fresh registry. Each call builds
// its own registry, so repeated calls do not collide on registration.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		APIRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method, route, and status.",
		}, []string{"method", "route", "status"}),

		APIRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),

		APIInflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "inflight_requests",
			Help:      "Number of HTTP requests currently being handled.",
		}),

		JobsEnqueuedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "enqueued_total",
			Help:      "Total jobs enqueued by queue name.",
		}, []string{"queue"}),

		JobsProcessedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "processed_total",
			Help:      "Total jobs processed by queue name and outcome (ack, nack).",
		}, []string{"queue", "outcome"}),

		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Handler duration by queue name.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}, []string{"queue"}),

		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "queue_depth",
			Help:      "Last observed depth of each named queue.",
		}, []string{"queue"}),

		ModelCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "call_duration_seconds",
			Help:      "Model call latency by operation (classify, embed) and version.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation", "version"}),

		ModelCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "call_errors_total",
			Help:      "Model call failures by operation and version.",
		}, []string{"operation", "version"}),

		VectorStoreCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vectorstore",
			Name:      "call_duration_seconds",
			Help:      "Vector store call latency by operation (upsert, query).",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),

		VectorStoreCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vectorstore",
			Name:      "call_errors_total",
			Help:      "Vector store call failures by operation.",
		}, []string{"operation"}),

		CacheHitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Cache hits by endpoint.",
		}, []string{"endpoint"}),

		CacheMissesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Cache misses by endpoint.",
		}, []string{"endpoint"}),

		TopicsSpawnedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cluster",
			Name:      "topics_spawned_total",
			Help:      "Total new topics spawned from the unassigned pool.",
		}),

		UnassignedPoolSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cluster",
			Name:      "unassigned_pool_size",
			Help:      "Last observed size of the unassigned feedback pool.",
		}),
	}
}

// Handler returns the promhttp handler serving this registry's metrics in
// the standard Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
