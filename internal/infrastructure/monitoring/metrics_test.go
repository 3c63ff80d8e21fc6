package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/agent"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/action"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/hostbridge"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/render"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/session"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/widget"
)

func TestNewMetricsIsolated(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordHostMessage("SET_TOKEN", "accepted")
	assert.Equal(t, 1.0, promtest.ToFloat64(a.HostMessages.WithLabelValues("SET_TOKEN", "accepted")))
	assert.Equal(t, 0.0, promtest.ToFloat64(b.HostMessages.WithLabelValues("SET_TOKEN", "accepted")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/def", nil))

	assert.Equal(t, 2.0, promtest.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/sessions/:id", "404")))
	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.TotalErrors)
}

func TestTrackerCountsViewsAndActions(t *testing.T) {
	m := NewMetrics()
	tracker := m.Tracker()

	tracker.Track(render.Event{Name: render.EventView, WidgetType: widget.TypeBalanceCard})
	tracker.Track(render.Event{Name: render.EventAction, WidgetType: widget.TypeBalanceCard, Action: "topup"})

	assert.Equal(t, 1.0, promtest.ToFloat64(m.WidgetRenders.WithLabelValues("balance_card", StatusRendered)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.WidgetActions.WithLabelValues("balance_card", "topup")))
	assert.Equal(t, int64(1), m.Snapshot().WidgetsRendered)
}

func TestRecordAckCountsRejections(t *testing.T) {
	m := NewMetrics()

	m.RecordAck(&action.Ack{Status: action.StatusRendered, WidgetType: widget.TypeBalanceCard})
	m.RecordAck(&action.Ack{Status: action.StatusInvalid})
	m.RecordAck(nil)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.WidgetRenders.WithLabelValues("unknown", action.StatusInvalid)))
	assert.Equal(t, int64(1), m.Snapshot().WidgetsRejected)
}

func TestHostAndSessionHooks(t *testing.T) {
	m := NewMetrics()

	m.HostRecorder()("SET_CONTEXT", hostbridge.OutcomeOriginRejected)
	m.SessionObserver()(session.Session{Status: session.StatusError, ErrorKind: session.ErrorMissingToken})

	assert.Equal(t, 1.0, promtest.ToFloat64(m.HostMessages.WithLabelValues("SET_CONTEXT", string(hostbridge.OutcomeOriginRejected))))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.SessionTransitions.WithLabelValues("error", "missing_token")))
}

func TestConfirmationGauge(t *testing.T) {
	m := NewMetrics()
	obs := m.ConfirmationObserver()

	m.ConfirmationShown()
	m.ConfirmationShown()
	assert.Equal(t, 2.0, promtest.ToFloat64(m.ConfirmationsPending))

	m.ConfirmationResolved("resolved-confirm")
	assert.Equal(t, 1.0, promtest.ToFloat64(m.ConfirmationsPending))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Confirmations.WithLabelValues("resolved-confirm")))
	assert.NotNil(t, obs)
}

type stubAgent struct {
	err error
}

func (s stubAgent) SendMessage(context.Context, string, agent.Message) error { return s.err }
func (s stubAgent) Postback(context.Context, string, agent.Postback) error   { return s.err }

func TestInstrumentAgent(t *testing.T) {
	m := NewMetrics()

	require.NoError(t, m.InstrumentAgent(stubAgent{}).Postback(context.Background(), "t", agent.Postback{}))
	require.Error(t, m.InstrumentAgent(stubAgent{err: errors.New("down")}).SendMessage(context.Background(), "t", agent.Message{}))

	assert.Equal(t, 1.0, promtest.ToFloat64(m.AgentRequests.WithLabelValues("postback", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.AgentRequests.WithLabelValues("message", "error")))
}

func TestTimer(t *testing.T) {
	m := NewMetrics()
	NewTimer(m, "render_widget").Stop("success")
	(*Timer)(nil).Stop("ignored")

	assert.Equal(t, 1.0, promtest.ToFloat64(m.ToolCalls.WithLabelValues("render_widget", "success")))
}

func TestSnapshotLatency(t *testing.T) {
	m := NewMetrics()
	m.RecordHTTPRequest("GET", "/health", "200", 10*time.Millisecond)
	m.RecordHTTPRequest("GET", "/health", "200", 30*time.Millisecond)
	m.SetPagesActive(3)

	snap := m.Snapshot()
	assert.InDelta(t, 20.0, snap.AvgLatencyMS, 0.001)
	assert.Equal(t, int64(3), snap.ActivePages)
	assert.Greater(t, m.UptimeDuration(), time.Duration(0))
}
