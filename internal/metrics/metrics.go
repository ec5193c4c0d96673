// Package metrics registers the Prometheus collectors for the HTTP layer and
// the read-path cache.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric name constants.
const (
	metricRequestDuration    = "mentacare_http_request_duration_seconds"
	metricRequestsTotal      = "mentacare_http_requests_total"
	metricCacheRequests      = "mentacare_cache_requests_total"
	metricCacheStores        = "mentacare_cache_stores_total"
	metricCacheInvalidations = "mentacare_cache_invalidated_entries_total"
)

// DefaultHTTPDurationBuckets are histogram buckets for HTTP request durations.
var DefaultHTTPDurationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// Metrics holds every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	// RequestDuration tracks HTTP request duration in seconds by method, route, and status code.
	RequestDuration *prometheus.HistogramVec

	// RequestsTotal counts HTTP requests by method, route, and status code.
	RequestsTotal *prometheus.CounterVec

	// CacheRequests counts cache lookups by region and result (hit or miss).
	CacheRequests *prometheus.CounterVec

	// CacheStores counts cache writes by region.
	CacheStores *prometheus.CounterVec

	// CacheInvalidations counts entries removed by invalidation, by pattern.
	CacheInvalidations *prometheus.CounterVec
}

// New creates a private registry with Go and process collectors and
// registers the service metrics on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newWithRegistry(reg)
}

func newWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricRequestDuration,
			Help:    "HTTP request duration in seconds",
			Buckets: DefaultHTTPDurationBuckets,
		}, []string{"method", "route", "status_code"}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: metricRequestsTotal,
			Help: "Total HTTP requests by method, route, and status code",
		}, []string{"method", "route", "status_code"}),

		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: metricCacheRequests,
			Help: "Cache lookups by region and result",
		}, []string{"region", "result"}),

		CacheStores: factory.NewCounterVec(prometheus.CounterOpts{
			Name: metricCacheStores,
			Help: "Cache writes by region",
		}, []string{"region"}),

		CacheInvalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: metricCacheInvalidations,
			Help: "Cache entries removed by invalidation pattern",
		}, []string{"pattern"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hit implements cache.Observer.
func (m *Metrics) Hit(region string) {
	m.CacheRequests.WithLabelValues(region, "hit").Inc()
}

// Miss implements cache.Observer.
func (m *Metrics) Miss(region string) {
	m.CacheRequests.WithLabelValues(region, "miss").Inc()
}

// Stored implements cache.Observer.
func (m *Metrics) Stored(region string) {
	m.CacheStores.WithLabelValues(region).Inc()
}

// Invalidated implements cache.Observer.
func (m *Metrics) Invalidated(pattern string, removed int) {
	if removed <= 0 {
		return
	}
	m.CacheInvalidations.WithLabelValues(pattern).Add(float64(removed))
}

// statusCapture wraps http.ResponseWriter to capture the status code.
type statusCapture struct {
	http.ResponseWriter
	code int
}

func (s *statusCapture) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration. It must receive the same
// *http.Request the mux does so the matched route pattern is visible after
// the call.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sc := &statusCapture{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(sc, r)

		duration := time.Since(start).Seconds()
		route := normalizeRoute(r)
		status := strconv.Itoa(sc.code)

		m.RequestDuration.WithLabelValues(r.Method, route, status).Observe(duration)
		m.RequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

// normalizeRoute returns a low-cardinality route label. Requests that matched
// no pattern share one label.
func normalizeRoute(r *http.Request) string {
	if pat := r.Pattern; pat != "" {
		return pat
	}
	return "unmatched"
}
