package middleware

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsMiddleware exposes spec.md §6's three required series: a request
// counter, a response-code histogram bucketed per hundreds (1xx..5xx), and
// a response-time histogram labelled by "METHOD URI".
type MetricsMiddleware struct {
	requests  *prometheus.CounterVec
	statuses  *prometheus.HistogramVec
	durations *prometheus.HistogramVec
}

// NewMetricsMiddleware registers its collectors against the default
// registry, matching the teacher's use of promauto for zero-boilerplate
// registration.
func NewMetricsMiddleware() *MetricsMiddleware {
	return &MetricsMiddleware{
		requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "permanode_http_requests_total",
			Help: "Total HTTP requests handled.",
		}, []string{"route"}),
		statuses: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "permanode_http_response_status_bucket",
			Help:    "Response status codes, bucketed per hundreds (1xx..5xx).",
			Buckets: []float64{1, 2, 3, 4, 5},
		}, []string{"route"}),
		durations: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "permanode_http_request_duration_seconds",
			Help:    "Request latency, labelled by \"METHOD URI\".",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler wraps next with request counting, status bucketing, and latency
// observation.
func (m *MetricsMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := r.Method + " " + r.URL.Path
			m.requests.WithLabelValues(route).Inc()

			wrapper := &statusCapture{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapper, r)

			m.statuses.WithLabelValues(route).Observe(float64(wrapper.statusCode / 100))
			m.durations.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusCapture struct {
	http.ResponseWriter
	statusCode int
}

func (s *statusCapture) WriteHeader(code int) {
	s.statusCode = code
	s.ResponseWriter.WriteHeader(code)
}
