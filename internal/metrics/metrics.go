// Package metrics provides Prometheus metrics for timejump
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for timejump
type Metrics struct {
	// Index metrics
	IndexBuildsTotal       prometheus.Counter
	IndexBuildDuration     prometheus.Histogram
	IndexedDocuments       prometheus.Gauge
	ProjectionAnomalyTotal prometheus.Counter

	// Query metrics
	QueriesTotal  *prometheus.CounterVec
	QueryDuration prometheus.Histogram
	ResultsTotal  *prometheus.CounterVec

	// HTTP request metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Journal metrics
	JournalWritesTotal *prometheus.CounterVec
	JournalBytesTotal  prometheus.Counter

	// Server metrics
	ServerUptimeSeconds prometheus.GaugeFunc
	ServerStartTime     time.Time
}

// NewMetrics creates all metrics and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ServerStartTime: time.Now(),
	}
	factory := promauto.With(reg)

	// Index metrics
	m.IndexBuildsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "timejump_index_builds_total",
			Help: "Total number of search index builds",
		},
	)

	m.IndexBuildDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "timejump_index_build_duration_seconds",
			Help:    "Duration of search index builds in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	m.IndexedDocuments = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "timejump_indexed_documents",
			Help: "Number of documents in the current search index",
		},
	)

	m.ProjectionAnomalyTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "timejump_projection_anomalies_total",
			Help: "Total number of timeline nodes skipped for lacking a path",
		},
	)

	// Query metrics
	m.QueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timejump_queries_total",
			Help: "Total number of resolved queries by outcome",
		},
		[]string{"outcome"},
	)

	m.QueryDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "timejump_query_duration_seconds",
			Help:    "Duration of query resolution in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5},
		},
	)

	m.ResultsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timejump_results_total",
			Help: "Total number of results returned by kind",
		},
		[]string{"kind"},
	)

	// HTTP request metrics
	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timejump_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timejump_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	m.HTTPRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "timejump_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Journal metrics
	m.JournalWritesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timejump_journal_writes_total",
			Help: "Total number of timeline mutations written to the journal",
		},
		[]string{"op"},
	)

	m.JournalBytesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "timejump_journal_bytes_total",
			Help: "Total bytes appended to the journal",
		},
	)

	// Server metrics
	m.ServerUptimeSeconds = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "timejump_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.ServerStartTime).Seconds() },
	)

	return m
}

// IndexBuilt records a search index build
func (m *Metrics) IndexBuilt(documents, anomalies int, took time.Duration) {
	m.IndexBuildsTotal.Inc()
	m.IndexBuildDuration.Observe(took.Seconds())
	m.IndexedDocuments.Set(float64(documents))
}

// ProjectionAnomaly counts one skipped timeline node
func (m *Metrics) ProjectionAnomaly() {
	m.ProjectionAnomalyTotal.Inc()
}

// QueryServed records one resolved query and its result counts
func (m *Metrics) QueryServed(outcome string, dateResults, matches int, took time.Duration) {
	m.QueriesTotal.WithLabelValues(outcome).Inc()
	m.QueryDuration.Observe(took.Seconds())
	m.ResultsTotal.WithLabelValues("dateRange").Add(float64(dateResults))
	m.ResultsTotal.WithLabelValues("match").Add(float64(matches))
}

// JournalWritten records one journal entry
func (m *Metrics) JournalWritten(op string, size int) {
	m.JournalWritesTotal.WithLabelValues(op).Inc()
	m.JournalBytesTotal.Add(float64(size))
}

// RecordHTTPRequest records an HTTP request with its status
func (m *Metrics) RecordHTTPRequest(path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}
