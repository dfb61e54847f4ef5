package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. Each instance owns its registry so tests and
// multiple servers in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Tool metrics
	ToolCalls    *prometheus.CounterVec
	ToolDuration *prometheus.HistogramVec
	BatchItems   *prometheus.CounterVec

	// Security metrics
	AuthDenials   *prometheus.CounterVec
	Confirmations *prometheus.CounterVec

	// Engine metrics
	BreakerState *prometheus.GaugeVec

	// WebSocket metrics
	WSConnections prometheus.Gauge

	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsguard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fsguard_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),

		ToolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsguard_tool_calls_total",
				Help: "Total number of tool calls by outcome",
			},
			[]string{"tool", "outcome"},
		),
		ToolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fsguard_tool_duration_seconds",
				Help:    "Tool call duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 30, 120},
			},
			[]string{"tool"},
		),
		BatchItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsguard_batch_items_total",
				Help: "Batch items processed by result",
			},
			[]string{"operation", "result"},
		),

		AuthDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsguard_authorization_denials_total",
				Help: "Rejected path authorizations by error kind",
			},
			[]string{"kind"},
		),
		Confirmations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsguard_confirmations_total",
				Help: "Confirmation requests by outcome",
			},
			[]string{"outcome"},
		),

		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fsguard_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"breaker"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fsguard_ws_connections",
				Help: "Number of connected confirmation clients",
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "fsguard_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordToolCall records one tool invocation. outcome is "success", "error" or a
// failure kind.
func (m *Metrics) RecordToolCall(tool, outcome string, duration time.Duration) {
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.ToolCalls++
	m.snapshot.TotalDuration += duration.Seconds()
	if outcome != OutcomeSuccess {
		m.snapshot.FailedCalls++
	}
	m.mu.Unlock()
}

// RecordBatch records the per-item results of a batch
func (m *Metrics) RecordBatch(operation string, succeeded, failed int) {
	m.BatchItems.WithLabelValues(operation, "success").Add(float64(succeeded))
	m.BatchItems.WithLabelValues(operation, "error").Add(float64(failed))
}

// RecordDenial records a rejected authorization
func (m *Metrics) RecordDenial(kind string) {
	m.AuthDenials.WithLabelValues(kind).Inc()

	m.mu.Lock()
	m.snapshot.Denials++
	m.mu.Unlock()
}

// RecordConfirmation records a confirmation outcome
func (m *Metrics) RecordConfirmation(outcome string) {
	m.Confirmations.WithLabelValues(outcome).Inc()

	m.mu.Lock()
	m.snapshot.Confirmations++
	m.mu.Unlock()
}

// SetBreakerState publishes a circuit breaker state
func (m *Metrics) SetBreakerState(name string, state int) {
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}
