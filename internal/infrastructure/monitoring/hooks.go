package monitoring

import (
	"context"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/agent"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/action"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/hostbridge"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/render"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/session"
)

// StatusRendered labels successful widget renders
const StatusRendered = action.StatusRendered

// Tracker counts widget views and actions
func (m *Metrics) Tracker() render.Tracker {
	return render.TrackerFunc(func(e render.Event) {
		switch e.Name {
		case render.EventView:
			m.RecordWidgetRender(string(e.WidgetType), StatusRendered)
		case render.EventAction:
			m.RecordWidgetAction(string(e.WidgetType), e.Action)
		}
	})
}

// RecordAck counts a render_widget outcome that never reached the renderer
func (m *Metrics) RecordAck(ack *action.Ack) {
	if ack == nil || ack.Status == action.StatusRendered {
		return
	}
	m.RecordWidgetRender(string(ack.WidgetType), ack.Status)
}

// HostRecorder counts host bridge outcomes
func (m *Metrics) HostRecorder() hostbridge.Recorder {
	return func(msgType string, outcome hostbridge.Outcome) {
		m.RecordHostMessage(msgType, string(outcome))
	}
}

// SessionObserver counts session transitions
func (m *Metrics) SessionObserver() session.Observer {
	return func(s session.Session) {
		m.RecordSessionTransition(string(s.Status), string(s.ErrorKind))
	}
}

// ConfirmationObserver tracks pending and resolved dialogs
func (m *Metrics) ConfirmationObserver() action.ResolutionObserver {
	return confirmationObserver{m}
}

type confirmationObserver struct {
	m *Metrics
}

func (o confirmationObserver) ConfirmationShown(*action.Confirmation) {
	o.m.ConfirmationShown()
}

func (o confirmationObserver) ConfirmationResolved(c *action.Confirmation) {
	o.m.ConfirmationResolved(string(c.State()))
}

// AgentClient is the runtime surface a page calls
type AgentClient interface {
	SendMessage(ctx context.Context, token string, msg agent.Message) error
	Postback(ctx context.Context, token string, pb agent.Postback) error
}

// InstrumentAgent counts requests made through next
func (m *Metrics) InstrumentAgent(next AgentClient) AgentClient {
	return &instrumentedAgent{next: next, m: m}
}

type instrumentedAgent struct {
	next AgentClient
	m    *Metrics
}

func (a *instrumentedAgent) SendMessage(ctx context.Context, token string, msg agent.Message) error {
	err := a.next.SendMessage(ctx, token, msg)
	a.m.RecordAgentRequest("message", outcome(err))
	return err
}

func (a *instrumentedAgent) Postback(ctx context.Context, token string, pb agent.Postback) error {
	err := a.next.Postback(ctx, token, pb)
	a.m.RecordAgentRequest("postback", outcome(err))
	return err
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
