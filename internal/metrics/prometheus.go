// Package metrics provides Prometheus metrics for the tendalyze service and loaders.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all tendalyze metrics.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	IngestRows      *prometheus.CounterVec
	IngestErrors    *prometheus.CounterVec
	IngestDurations *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a metrics instance backed by its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tendalyze",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tendalyze",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.IngestRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tendalyze",
			Name:      "ingest_rows_total",
			Help:      "Rows written by ingestion, by table",
		},
		[]string{"table"},
	)

	m.IngestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tendalyze",
			Name:      "ingest_errors_total",
			Help:      "Failed imports by kind",
		},
		[]string{"kind"},
	)

	m.IngestDurations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tendalyze",
			Name:      "ingest_duration_seconds",
			Help:      "Import duration by kind",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	m.registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.IngestRows,
		m.IngestErrors,
		m.IngestDurations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// AddRows counts rows written to table.
func (m *Metrics) AddRows(table string, n int) {
	if n > 0 {
		m.IngestRows.WithLabelValues(table).Add(float64(n))
	}
}

// ObserveIngest records an import's duration and, on failure, its error.
func (m *Metrics) ObserveIngest(kind string, elapsed time.Duration, err error) {
	m.IngestDurations.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err != nil {
		m.IngestErrors.WithLabelValues(kind).Inc()
	}
}
