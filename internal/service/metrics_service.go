package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/simulacro-api/internal/models"
)

const metricsNamespace = "simulacro"

var (
	httpLabels    = []string{"method", "path", "status"}
	rankingLabels = []string{"kind"}
)

// MetricsService owns the Prometheus registry of the ranking API and the
// counters behind the admin snapshot.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration    *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrites     prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	queryDuration   *prometheus.HistogramVec
	fetchFailures   *prometheus.CounterVec
	rankingDuration *prometheus.HistogramVec

	hits     atomic.Uint64
	misses   atomic.Uint64
	failures atomic.Uint64

	mu           sync.Mutex
	computations map[string]uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry:     prometheus.NewRegistry(),
		computations: map[string]uint64{},
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests by route template",
			Buckets:   prometheus.DefBuckets,
		}, httpLabels),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template and status",
		}, httpLabels),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ranking_cache",
			Name:      "lookups_total",
			Help:      "Ranking cache lookups by outcome",
		}, []string{"outcome"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "ranking_cache",
			Name:      "read_seconds",
			Help:      "Ranking cache read latency",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheWrites: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "ranking_cache",
			Name:      "write_seconds",
			Help:      "Ranking cache write latency",
			Buckets:   prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "ranking_cache",
			Name:      "hit_ratio",
			Help:      "Share of ranking cache lookups served from Redis",
		}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "db_query_duration_seconds",
			Help:      "Duration of directory and exam result queries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "result_fetch_failures_total",
			Help:      "Per-student exam result fetches that failed and were skipped",
		}, []string{"phase"}),
		rankingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "ranking_compute_duration_seconds",
			Help:      "Time spent computing scores, rankings and averages",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, rankingLabels),
	}

	m.registry.MustRegister(
		m.httpDuration, m.httpRequests,
		m.cacheLookups, m.cacheLatency, m.cacheWrites, m.cacheHitRatio,
		m.queryDuration, m.fetchFailures, m.rankingDuration,
		collectors.NewGoCollector(),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.httpRequests.WithLabelValues(method, path, code).Inc()
}

// RecordCacheOperation records a ranking cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	outcome := "miss"
	if hit {
		outcome = "hit"
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	m.cacheLookups.WithLabelValues(outcome).Inc()
	m.cacheHitRatio.Set(m.hitRatio())
}

// ObserveCacheWrite records a ranking cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrites.Observe(duration.Seconds())
}

// ObserveDBQuery records a query against the directory or the result store.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordFetchFailure counts a skipped per-student result fetch.
func (m *MetricsService) RecordFetchFailure(phase models.Phase) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(string(phase)).Inc()
	m.failures.Add(1)
}

// ObserveRanking records the duration of a score, ranking or average computation.
func (m *MetricsService) ObserveRanking(kind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.rankingDuration.WithLabelValues(kind).Observe(duration.Seconds())
	m.mu.Lock()
	m.computations[kind]++
	m.mu.Unlock()
}

// Snapshot summarises the ranking engine for the admin system endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	m.mu.Lock()
	computations := make(map[string]uint64, len(m.computations))
	for kind, count := range m.computations {
		computations[kind] = count
	}
	m.mu.Unlock()

	return models.SystemMetrics{
		CacheHitRatio:       m.hitRatio(),
		CacheHits:           m.hits.Load(),
		CacheMisses:         m.misses.Load(),
		ResultFetchFailures: m.failures.Load(),
		Computations:        computations,
		Goroutines:          runtime.NumGoroutine(),
		GeneratedAt:         time.Now().UTC(),
	}
}

func (m *MetricsService) hitRatio() float64 {
	hits := m.hits.Load()
	total := hits + m.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
