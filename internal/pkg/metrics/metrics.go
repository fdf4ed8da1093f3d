package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	AuthzDecisionsTotal    *prometheus.CounterVec
	EnrollmentChangesTotal *prometheus.CounterVec
}

// New creates a registry with the process and Go collectors and every
// application metric registered on it.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursehub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coursehub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursehub_authz_decisions_total",
				Help: "Authorization decisions by action and result",
			},
			[]string{"action", "result"},
		),
		EnrollmentChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coursehub_enrollment_changes_total",
				Help: "Enrollment rows changed or skipped by reconciliation",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.EnrollmentChangesTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP records one finished request. path must be the route template,
// never the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// RecordDecision counts an authorization decision. The result label is
// "allow" or the deny reason.
func (m *Metrics) RecordDecision(action string, allowed bool, reason string) {
	result := "allow"
	if !allowed {
		result = reason
	}
	m.AuthzDecisionsTotal.WithLabelValues(action, result).Inc()
}

// RecordEnrollmentDelta counts the outcome of one reconciliation.
func (m *Metrics) RecordEnrollmentDelta(added, removed, skipped int) {
	m.EnrollmentChangesTotal.WithLabelValues("added").Add(float64(added))
	m.EnrollmentChangesTotal.WithLabelValues("removed").Add(float64(removed))
	m.EnrollmentChangesTotal.WithLabelValues("skipped").Add(float64(skipped))
}
