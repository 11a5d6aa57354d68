package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/framehost/internal/channel"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Frame session metrics
	FramesActive prometheus.Gauge
	FramesTotal  prometheus.Counter

	// Channel metrics
	MessagesQueued    prometheus.Counter
	MessagesDelivered prometheus.Counter
	DeliveryFailures  prometheus.Counter
	MessagesDropped   *prometheus.CounterVec
	Handshakes        prometheus.Counter
	InboundPayloads   *prometheus.CounterVec

	// Error report metrics
	ErrorReports *prometheus.CounterVec

	// Screenshot metrics
	Screenshots *prometheus.CounterVec

	// Sandbox metrics
	SandboxRuns     *prometheus.CounterVec
	SandboxDuration prometheus.Histogram

	// WebSocket metrics
	WSConnections *prometheus.GaugeVec

	startTime time.Time
	snapshot  Snapshot
	mu        sync.RWMutex
}

// Snapshot holds current metric values for the JSON health endpoint
type Snapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	ActiveFrames  int64   `json:"active_frames"`
	ErrorReports  int64   `json:"error_reports"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector backed by its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framehost_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framehost_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		FramesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "framehost_frames_active",
			Help: "Number of open frame sessions",
		}),
		FramesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "framehost_frames_total",
			Help: "Total number of frame sessions created",
		}),

		MessagesQueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "framehost_channel_queued_total",
			Help: "Outbound messages queued before frame readiness",
		}),
		MessagesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "framehost_channel_delivered_total",
			Help: "Outbound messages handed to the transport",
		}),
		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "framehost_channel_delivery_failures_total",
			Help: "Outbound messages the transport rejected",
		}),
		MessagesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framehost_channel_dropped_total",
				Help: "Inbound messages discarded by the channel",
			},
			[]string{"reason"},
		),
		Handshakes: factory.NewCounter(prometheus.CounterOpts{
			Name: "framehost_channel_handshakes_total",
			Help: "Frames that completed the readiness handshake",
		}),
		InboundPayloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framehost_channel_payloads_total",
				Help: "Classified inbound payloads",
			},
			[]string{"kind"},
		),

		ErrorReports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framehost_error_reports_total",
				Help: "Frame error reports by line mapping outcome",
			},
			[]string{"language", "mapped"},
		),

		Screenshots: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framehost_screenshots_total",
				Help: "Screenshots received from frames",
			},
			[]string{"outcome"},
		),

		SandboxRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framehost_sandbox_runs_total",
				Help: "Programs executed in the in-process sandbox",
			},
			[]string{"status"},
		),
		SandboxDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "framehost_sandbox_duration_seconds",
			Help:    "Sandbox execution time in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),

		WSConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "framehost_ws_connections",
				Help: "Number of active WebSocket connections",
			},
			[]string{"role"},
		),
	}
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetFramesActive sets the number of open frame sessions
func (m *Metrics) SetFramesActive(count int) {
	m.FramesActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveFrames = int64(count)
	m.mu.Unlock()
}

// IncFramesTotal increments the created frames counter
func (m *Metrics) IncFramesTotal() {
	m.FramesTotal.Inc()
}

// RecordPayload counts a classified inbound payload
func (m *Metrics) RecordPayload(kind channel.Kind) {
	m.InboundPayloads.WithLabelValues(kind.String()).Inc()
}

// RecordErrorReport counts an error report and whether a line was recovered
func (m *Metrics) RecordErrorReport(language string, mapped bool) {
	label := "false"
	if mapped {
		label = "true"
	}
	m.ErrorReports.WithLabelValues(language, label).Inc()

	m.mu.Lock()
	m.snapshot.ErrorReports++
	m.mu.Unlock()
}

// RecordScreenshot counts a screenshot by persistence outcome
func (m *Metrics) RecordScreenshot(outcome string) {
	m.Screenshots.WithLabelValues(outcome).Inc()
}

// RecordSandboxRun records one sandbox execution
func (m *Metrics) RecordSandboxRun(status string, duration time.Duration) {
	m.SandboxRuns.WithLabelValues(status).Inc()
	m.SandboxDuration.Observe(duration.Seconds())
}

// IncWSConnections increments WebSocket connections for a role (frame, host)
func (m *Metrics) IncWSConnections(role string) {
	m.WSConnections.WithLabelValues(role).Inc()
}

// DecWSConnections decrements WebSocket connections for a role
func (m *Metrics) DecWSConnections(role string) {
	m.WSConnections.WithLabelValues(role).Dec()
}

// Snapshot returns current values for JSON consumers
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}

// ChannelObserver adapts the metrics to channel.Observer
func (m *Metrics) ChannelObserver() channel.Observer {
	return channelObserver{m: m}
}

type channelObserver struct {
	m *Metrics
}

func (o channelObserver) MessageQueued()    { o.m.MessagesQueued.Inc() }
func (o channelObserver) MessageDelivered() { o.m.MessagesDelivered.Inc() }
func (o channelObserver) DeliveryFailed()   { o.m.DeliveryFailures.Inc() }
func (o channelObserver) HandshakeCompleted() {
	o.m.Handshakes.Inc()
}
func (o channelObserver) MessageDropped(reason channel.DropReason) {
	o.m.MessagesDropped.WithLabelValues(string(reason)).Inc()
}
