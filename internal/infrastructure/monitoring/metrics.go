package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus collectors
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Widget metrics
	WidgetRenders *prometheus.CounterVec
	WidgetActions *prometheus.CounterVec
	ToolCalls     *prometheus.CounterVec
	ToolDuration  *prometheus.HistogramVec

	// Confirmation metrics
	Confirmations        *prometheus.CounterVec
	ConfirmationsPending prometheus.Gauge

	// Host and session metrics
	HostMessages       *prometheus.CounterVec
	SessionTransitions *prometheus.CounterVec
	PagesActive        prometheus.Gauge

	// Agent runtime metrics
	AgentRequests *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	Uptime    prometheus.GaugeFunc
	startTime time.Time

	registry *prometheus.Registry

	mu       sync.RWMutex
	snapshot Snapshot
}

// Snapshot holds counters for the JSON health endpoint
type Snapshot struct {
	TotalRequests   int64   `json:"total_requests"`
	TotalErrors     int64   `json:"total_errors"`
	WidgetsRendered int64   `json:"widgets_rendered"`
	WidgetsRejected int64   `json:"widgets_rejected"`
	ActivePages     int64   `json:"active_pages"`
	AvgLatencyMS    float64 `json:"avg_latency_ms"`

	totalDuration float64
}

// NewMetrics registers every collector on a private registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith registers every collector on reg
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),
		registry:  reg,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		WidgetRenders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_widget_renders_total",
				Help: "Widgets rendered or rejected, by type and status",
			},
			[]string{"widget_type", "status"},
		),
		WidgetActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_widget_actions_total",
				Help: "Widget actions triggered, by type and action",
			},
			[]string{"widget_type", "action"},
		),
		ToolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_tool_calls_total",
				Help: "Agent tool invocations",
			},
			[]string{"tool", "status"},
		),
		ToolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_tool_duration_seconds",
				Help:    "Agent tool invocation duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30, 120},
			},
			[]string{"tool"},
		),

		Confirmations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_confirmations_total",
				Help: "Confirmation requests by terminal state",
			},
			[]string{"state"},
		),
		ConfirmationsPending: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_confirmations_pending",
				Help: "Confirmation dialogs waiting on the user",
			},
		),

		HostMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_host_messages_total",
				Help: "Host channel messages by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		SessionTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_session_transitions_total",
				Help: "Session bootstrap transitions",
			},
			[]string{"status", "kind"},
		),
		PagesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_pages_active",
				Help: "Number of connected chat pages",
			},
		),

		AgentRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_agent_requests_total",
				Help: "Requests sent to the agent runtime",
			},
			[]string{"kind", "status"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "gateway_uptime_seconds",
			Help: "Gateway uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordWidgetRender records a render attempt. status is "rendered" or a rejection reason.
func (m *Metrics) RecordWidgetRender(widgetType, status string) {
	if widgetType == "" {
		widgetType = "unknown"
	}
	m.WidgetRenders.WithLabelValues(widgetType, status).Inc()

	m.mu.Lock()
	if status == StatusRendered {
		m.snapshot.WidgetsRendered++
	} else {
		m.snapshot.WidgetsRejected++
	}
	m.mu.Unlock()
}

// RecordWidgetAction records a triggered widget action
func (m *Metrics) RecordWidgetAction(widgetType, action string) {
	m.WidgetActions.WithLabelValues(widgetType, action).Inc()
}

// RecordToolCall records one agent tool invocation
func (m *Metrics) RecordToolCall(tool, status string, duration time.Duration) {
	m.ToolCalls.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// ConfirmationShown marks a dialog as waiting
func (m *Metrics) ConfirmationShown() {
	m.ConfirmationsPending.Inc()
}

// ConfirmationResolved records the terminal state of a shown dialog
func (m *Metrics) ConfirmationResolved(state string) {
	m.ConfirmationsPending.Dec()
	m.Confirmations.WithLabelValues(state).Inc()
}

// RecordHostMessage records how the host bridge handled a message
func (m *Metrics) RecordHostMessage(msgType, outcome string) {
	if msgType == "" {
		msgType = "unknown"
	}
	m.HostMessages.WithLabelValues(msgType, outcome).Inc()
}

// RecordSessionTransition records a session machine state change
func (m *Metrics) RecordSessionTransition(status, kind string) {
	m.SessionTransitions.WithLabelValues(status, kind).Inc()
}

// RecordAgentRequest records a request to the agent runtime
func (m *Metrics) RecordAgentRequest(kind, status string) {
	m.AgentRequests.WithLabelValues(kind, status).Inc()
}

// SetPagesActive sets the number of connected pages
func (m *Metrics) SetPagesActive(count int) {
	m.PagesActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActivePages = int64(count)
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// Snapshot returns the current JSON counters
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.TotalRequests > 0 {
		s.AvgLatencyMS = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	return s
}

// UptimeDuration returns time since the collectors were created
func (m *Metrics) UptimeDuration() time.Duration {
	return time.Since(m.startTime)
}
