package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	authDecisions   *prometheus.CounterVec
	upstreamCalls   *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bff_http_requests_total",
			Help: "HTTP requests served, by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bff_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bff_http_errors_total",
			Help: "Error responses, by route, method and error code.",
		}, []string{"path", "method", "code"}),
		authDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bff_auth_decisions_total",
			Help: "Authorization gate outcomes.",
		}, []string{"decision"}),
		upstreamCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bff_upstream_calls_total",
			Help: "Backend RPC calls, by service, method and outcome.",
		}, []string{"service", "method", "outcome"}),
		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bff_circuit_breaker_state",
			Help: "Circuit breaker state per backend (0 closed, 1 half-open, 2 open).",
		}, []string{"service"}),
	}
}

// Registry exposes the underlying registry for the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(path, method, code).Inc()
}

// RecordAuthDecision counts a gate outcome.
func (m *Metrics) RecordAuthDecision(decision string) {
	if m == nil {
		return
	}
	m.authDecisions.WithLabelValues(decision).Inc()
}

// RecordUpstreamCall counts a backend call and its outcome.
func (m *Metrics) RecordUpstreamCall(service, method, outcome string) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(service, method, outcome).Inc()
}

// SetBreakerState publishes the numeric breaker state for a backend.
func (m *Metrics) SetBreakerState(service string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(service).Set(float64(state))
}
