// Package metrics exposes prometheus instruments for the HTTP layer and the audit trail
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every instrument the application records
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	AuditEntries    *prometheus.CounterVec
	AccessDenied    *prometheus.CounterVec
	LoginAttempts   *prometheus.CounterVec
}

// New registers the application instruments plus the Go runtime and process
// collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcms_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "travelcms_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AuditEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcms_audit_entries_total",
			Help: "Audit log entries written, by category and action.",
		}, []string{"category", "action"}),
		AccessDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcms_access_denied_total",
			Help: "Requests rejected by the role gate, by capability.",
		}, []string{"capability"}),
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelcms_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// Registry returns the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
