package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Credential outcomes recorded by RecordCredential.
const (
	OutcomeIssued   = "issued"
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Credential kinds recorded by RecordCredential.
const (
	KindLoginToken   = "login_token"
	KindIdentityCode = "identity_code"
)

// Metrics holds the server's prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	credentials *prometheus.CounterVec
	rateLimited prometheus.Counter
}

// NewMetrics registers civid's collectors plus the go and process
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "civid",
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method, and status.",
			},
			[]string{"route", "method", "status"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "civid",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		credentials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "civid",
				Name:      "credentials_total",
				Help:      "Login tokens and identity codes by outcome.",
			},
			[]string{"kind", "outcome"},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "civid",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter.",
			},
		),
	}

	registry.MustRegister(
		m.requests,
		m.durations,
		m.credentials,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordRequest counts one finished request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordCredential counts a credential being issued, accepted, or rejected.
func (m *Metrics) RecordCredential(kind, outcome string) {
	if m == nil {
		return
	}
	m.credentials.WithLabelValues(kind, outcome).Inc()
}

// RecordRateLimited counts one rejected request.
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
