// Package metrics defines the Prometheus metric collectors used by the
// search service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	HTTPRequestsInFlight   prometheus.Gauge
	SearchQueriesTotal     *prometheus.CounterVec
	SearchLatency          *prometheus.HistogramVec
	SearchResultsCount     prometheus.Histogram
	SuggestRequestsTotal   prometheus.Counter
	CacheHitsTotal         prometheus.Counter
	CacheMissesTotal       prometheus.Counter
	CatalogRebuildsTotal   *prometheus.CounterVec
	CatalogRebuildDuration prometheus.Histogram
	IndexRecords           prometheus.Gauge
	IndexTerms             prometheus.Gauge
	IndexGeneration        prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewWithRegistry creates all collectors and registers them with reg. Tests
// pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (ranked, filter_only, zero_result).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
		),
		SuggestRequestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "suggest_requests_total",
				Help: "Total number of suggestion requests.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of search cache misses.",
			},
		),
		CatalogRebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_rebuilds_total",
				Help: "Total catalog index rebuilds by status.",
			},
			[]string{"status"},
		),
		CatalogRebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "catalog_rebuild_duration_seconds",
				Help:    "Time to build and publish a new catalog index.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
			},
		),
		IndexRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_records",
				Help: "Number of records in the current index.",
			},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_terms",
				Help: "Number of distinct terms in the current index.",
			},
		),
		IndexGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_generation",
				Help: "Number of times the catalog has been indexed since start.",
			},
		),
		gatherer: gatherer,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.SuggestRequestsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CatalogRebuildsTotal,
		m.CatalogRebuildDuration,
		m.IndexRecords,
		m.IndexTerms,
		m.IndexGeneration,
	)

	return m
}

// ObserveRebuild records a successful index rebuild.
func (m *Metrics) ObserveRebuild(generation uint64, records, terms int, duration time.Duration) {
	m.CatalogRebuildsTotal.WithLabelValues("success").Inc()
	m.CatalogRebuildDuration.Observe(duration.Seconds())
	m.IndexRecords.Set(float64(records))
	m.IndexTerms.Set(float64(terms))
	m.IndexGeneration.Set(float64(generation))
}

// ObserveRebuildFailure records a rebuild that could not load the catalog.
func (m *Metrics) ObserveRebuildFailure() {
	m.CatalogRebuildsTotal.WithLabelValues("error").Inc()
}

// ObserveSearch records one search query.
func (m *Metrics) ObserveSearch(resultType string, cacheStatus string, results int, latency time.Duration) {
	m.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	m.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	m.SearchResultsCount.Observe(float64(results))
}

// Handler returns the Prometheus scrape HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
