package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	AuthFailuresTotal *prometheus.CounterVec
	TokensIssuedTotal *prometheus.CounterVec

	// Rate limit metrics
	RateLimitDeniedTotal      prometheus.Counter
	RateLimitStoreErrorsTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vantage_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vantage_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vantage_auth_failures_total",
				Help: "Total number of rejected authentication attempts",
			},
			[]string{"reason"},
		),
		TokensIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vantage_tokens_issued_total",
				Help: "Total number of tokens issued",
			},
			[]string{"purpose"},
		),
		RateLimitDeniedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vantage_ratelimit_denied_total",
				Help: "Total number of requests denied by the rate limiter",
			},
		),
		RateLimitStoreErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vantage_ratelimit_store_errors_total",
				Help: "Total number of counter store errors (fail-open admissions)",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthFailuresTotal,
		m.TokensIssuedTotal,
		m.RateLimitDeniedTotal,
		m.RateLimitStoreErrorsTotal,
	)

	return m
}

// Handler returns an HTTP handler exposing the registry in the
// Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
