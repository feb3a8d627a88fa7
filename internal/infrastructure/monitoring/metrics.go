package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. Each instance carries its own
// registry so tests can construct metrics without collisions.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Dispatch metrics
	DispatchesTotal  *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	SecurityDenials  *prometheus.CounterVec

	// Bridge metrics
	BridgeSessions  prometheus.Gauge
	BridgeFrames    *prometheus.CounterVec
	RemoteInvokes   *prometheus.CounterVec
	RemoteDuration  *prometheus.HistogramVec
	DroppedResponse prometheus.Counter

	startTime time.Time
	Uptime    prometheus.Gauge
}

// NewMetrics creates a metrics collector with a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolgate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		DispatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_dispatches_total",
				Help: "Total number of tool dispatches by outcome",
			},
			[]string{"tool", "outcome"},
		),
		DispatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolgate_dispatch_duration_seconds",
				Help:    "Tool dispatch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		SecurityDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_security_denials_total",
				Help: "Total number of security gate denials",
			},
			[]string{"tool", "reason"},
		),

		BridgeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "toolgate_bridge_sessions",
				Help: "Number of agent sessions currently ready",
			},
		),
		BridgeFrames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_bridge_frames_total",
				Help: "Total number of bridge frames by type and direction",
			},
			[]string{"type", "direction"},
		),
		RemoteInvokes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolgate_remote_invokes_total",
				Help: "Total number of remote invocations by outcome",
			},
			[]string{"outcome"},
		),
		RemoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolgate_remote_invoke_duration_seconds",
				Help:    "Remote invocation duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
		DroppedResponse: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "toolgate_bridge_dropped_responses_total",
				Help: "Responses dropped for lack of a matching pending request",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "toolgate_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
	}

	return m
}

// Handler returns an http.Handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDispatch records one tool dispatch.
func (m *Metrics) RecordDispatch(tool, outcome string, duration time.Duration) {
	m.DispatchesTotal.WithLabelValues(tool, outcome).Inc()
	m.DispatchDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordDenial records a security gate denial.
func (m *Metrics) RecordDenial(tool, reason string) {
	m.SecurityDenials.WithLabelValues(tool, reason).Inc()
}

// RecordFrame records one bridge frame.
func (m *Metrics) RecordFrame(frameType, direction string) {
	m.BridgeFrames.WithLabelValues(frameType, direction).Inc()
}

// RecordRemoteInvoke records one remote invocation.
func (m *Metrics) RecordRemoteInvoke(tool, outcome string, duration time.Duration) {
	m.RemoteInvokes.WithLabelValues(outcome).Inc()
	m.RemoteDuration.WithLabelValues(tool).Observe(duration.Seconds())
}
