package page

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/agent"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/action"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/hostbridge"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/render"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/session"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/id"
)

var (
	ErrUnknownView = errors.New("unknown view")
	ErrNotReady    = errors.New("session not ready")
)

// Outbound frame types
const (
	FrameSession      = "session"
	FrameWidget       = "widget"
	FrameNotice       = "notice"
	FrameHostMessage  = "host_message"
	FrameDeeplink     = "deeplink"
	FrameConfirmation = "confirmation_resolved"
	FrameError        = "error"
)

// Sink writes frames to the connected shell
type Sink interface {
	Send(frame map[string]interface{}) error
}

// Agent is the slice of the runtime client a page uses
type Agent interface {
	SendMessage(ctx context.Context, token string, msg agent.Message) error
	Postback(ctx context.Context, token string, pb agent.Postback) error
}

// Options configure a page
type Options struct {
	Origins     *hostbridge.OriginPolicy
	Session     session.Policy
	Renderer    *render.Renderer
	Agent       Agent
	Sink        Sink
	HostBreaker *resilience.Breaker
	Recorder    hostbridge.Recorder
	Logger      *zap.Logger
	// Metadata is delivered with the initial token, typically from the query string
	Metadata map[string]any
	// AgentTimeout bounds each outbound agent request
	AgentTimeout time.Duration
	// Tracer, when set, records a span per agent request
	Tracer *tracing.Tracer
	// Confirmations is told about every dialog the page tracks
	Confirmations action.ResolutionObserver
}

// Page is the root scope of one connected chat page. It owns the message
// bus, host bridge, session machine and the widget timeline, and implements
// action.Timeline for the tools that act on it.
type Page struct {
	id       id.PageID
	logger   *zap.Logger
	sink     Sink
	agent    Agent
	renderer *render.Renderer
	timeout  time.Duration
	tracer   *tracing.Tracer
	confirms action.ResolutionObserver

	bus     *hostbridge.Bus
	host    *hostbridge.Bridge
	machine *session.Machine

	mu          sync.Mutex
	metadata    map[string]any
	token       string
	views       map[id.ViewID]*render.View
	order       []id.ViewID
	pendingHelp []string
	pending     map[id.ConfirmationID]*action.Confirmation
	inflight    context.Context
	stop        context.CancelFunc
	onClose     []func(*Page)

	done      chan struct{}
	closeOnce sync.Once
	cancel    context.CancelFunc
	root      context.Context
}

// New creates a page and wires its bus to the host bridge
func New(opts Options) *Page {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageID := id.NewPageID()
	logger = logger.With(zap.String("page_id", pageID.String()))

	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.New(logger)
	}
	timeout := opts.AgentTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	root, cancel := context.WithCancel(context.Background())
	p := &Page{
		id:       pageID,
		logger:   logger,
		sink:     opts.Sink,
		agent:    opts.Agent,
		renderer: renderer,
		timeout:  timeout,
		tracer:   opts.Tracer,
		confirms: opts.Confirmations,
		bus:      hostbridge.NewBus(),
		machine:  session.NewMachine(opts.Session, logger),
		metadata: copyMap(opts.Metadata),
		views:    make(map[id.ViewID]*render.View),
		pending:  make(map[id.ConfirmationID]*action.Confirmation),
		done:     make(chan struct{}),
		root:     root,
		cancel:   cancel,
	}
	p.inflight, p.stop = context.WithCancel(root)

	sender := hostbridge.NewBestEffortSender(hostbridge.SenderFunc(p.sendToHost), opts.HostBreaker, logger)
	p.host = hostbridge.NewBridge(opts.Origins, sender, p, logger).WithRecorder(opts.Recorder)
	if _, err := p.host.Attach(p.bus); err != nil {
		logger.Error("Failed to attach host bridge", zap.Error(err))
	}
	p.machine.Observe(p.sessionChanged)
	return p
}

// ID returns the page id
func (p *Page) ID() id.PageID {
	return p.id
}

// Session returns the current session state
func (p *Page) Session() session.Session {
	return p.machine.Current()
}

// ObserveSession registers an observer for session transitions
func (p *Page) ObserveSession(o session.Observer) {
	p.machine.Observe(o)
}

// OnClose registers a teardown hook
func (p *Page) OnClose(fn func(*Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClose = append(p.onClose, fn)
}

// Start bootstraps the session from the token the page was opened with.
// An empty token moves the session straight to the error state.
func (p *Page) Start(token string) session.Session {
	return p.applyToken(token)
}

// HandleHostMessage publishes a host envelope on the page bus
func (p *Page) HandleHostMessage(env hostbridge.Envelope) error {
	return p.bus.Publish(env)
}

// Authorized reports whether token is the bearer token the session was built from
func (p *Page) Authorized(token string) bool {
	p.mu.Lock()
	current := p.token
	p.mu.Unlock()
	if current == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(token)) == 1
}

// HostContext returns the context delivered by the host
func (p *Page) HostContext() map[string]any {
	return p.host.Context()
}

// Trigger routes a click on a rendered widget
func (p *Page) Trigger(viewID id.ViewID, actionID string, input render.Input) error {
	p.mu.Lock()
	view, ok := p.views[viewID]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownView, viewID)
	}
	return view.Trigger(actionID, input)
}

// Views returns the timeline in display order
func (p *Page) Views() []*render.View {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*render.View, 0, len(p.order))
	for _, vid := range p.order {
		out = append(out, p.views[vid])
	}
	return out
}

// PendingConfirmations returns the number of unanswered dialogs
func (p *Page) PendingConfirmations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Stop cancels in-flight agent requests. Pending confirmations are left alone.
func (p *Page) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stop()
	p.inflight, p.stop = context.WithCancel(p.root)
	p.logger.Info("Agent response stopped by user")
}

// Close tears the page down. Blocked confirmation waits return ErrTimelineClosed.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		p.cancel()
		close(p.done)
		p.bus.Close()

		p.mu.Lock()
		hooks := p.onClose
		p.onClose = nil
		p.mu.Unlock()

		for _, fn := range hooks {
			fn(p)
		}
		p.logger.Info("Page closed")
	})
}

// Show implements action.Timeline
func (p *Page) Show(view *render.View) error {
	if p.closed() {
		return action.ErrTimelineClosed
	}
	p.mu.Lock()
	p.views[view.ID] = view
	p.order = append(p.order, view.ID)
	p.mu.Unlock()

	p.send(map[string]interface{}{"type": FrameWidget, "view": view})
	return nil
}

// Notice implements action.Timeline
func (p *Page) Notice(level, text string) error {
	if p.closed() {
		return action.ErrTimelineClosed
	}
	view := p.renderer.Notice(level, text)
	p.send(map[string]interface{}{
		"type":  FrameNotice,
		"level": level,
		"text":  text,
		"html":  view.HTML,
	})
	return nil
}

// Postback implements action.Timeline
func (p *Page) Postback(payload map[string]any) {
	s := p.machine.Current()
	pb := agent.Postback{
		SessionID: s.SessionID,
		UserID:    s.UserID,
		Payload:   payload,
		Context:   p.host.Context(),
	}
	p.dispatch("postback", func(ctx context.Context, token string) error {
		return p.agent.Postback(ctx, token, pb)
	})
}

// OpenDeeplink implements render.DeeplinkOpener by handing the URL to the shell
func (p *Page) OpenDeeplink(url string) error {
	if p.closed() {
		return action.ErrTimelineClosed
	}
	p.send(map[string]interface{}{"type": FrameDeeplink, "url": url})
	return nil
}

// Done implements action.Timeline
func (p *Page) Done() <-chan struct{} {
	return p.done
}

// ConfirmationShown implements action.ResolutionObserver
func (p *Page) ConfirmationShown(c *action.Confirmation) {
	if c.State().Terminal() {
		return
	}
	p.mu.Lock()
	p.pending[c.ID] = c
	p.mu.Unlock()

	if p.confirms != nil {
		p.confirms.ConfirmationShown(c)
	}
}

// ConfirmationResolved implements action.ResolutionObserver
func (p *Page) ConfirmationResolved(c *action.Confirmation) {
	p.mu.Lock()
	_, tracked := p.pending[c.ID]
	delete(p.pending, c.ID)
	p.mu.Unlock()

	if tracked && p.confirms != nil {
		p.confirms.ConfirmationResolved(c)
	}

	frame := map[string]interface{}{"type": FrameConfirmation, "state": string(c.State())}
	if c.View != nil {
		frame["view_id"] = c.View.ID
	}
	p.send(frame)
}

// TokenAccepted implements hostbridge.Listener
func (p *Page) TokenAccepted(token, userID string) {
	if userID != "" {
		p.mu.Lock()
		p.metadata["userId"] = userID
		p.mu.Unlock()
	}
	p.applyToken(token)
}

// ContextUpdated implements hostbridge.Listener
func (p *Page) ContextUpdated(ctx map[string]any) {
	p.logger.Debug("Host context stored", zap.Int("keys", len(ctx)))
}

// TransactionHelp implements hostbridge.Listener. Requests arriving before
// the session is ready are kept until it is.
func (p *Page) TransactionHelp(transactionID string) {
	if !p.machine.Current().Ready() {
		p.mu.Lock()
		p.pendingHelp = append(p.pendingHelp, transactionID)
		p.mu.Unlock()
		p.logger.Debug("Deferred transaction help until session is ready", zap.String("transaction_id", transactionID))
		return
	}
	p.requestHelp(transactionID)
}

// HelpMessage is the user turn sent for a transaction help request
func HelpMessage(transactionID string) string {
	return "I need help with transaction " + transactionID
}

func (p *Page) applyToken(token string) session.Session {
	p.mu.Lock()
	metadata := copyMap(p.metadata)
	p.mu.Unlock()

	s := p.machine.Apply(token, metadata)
	if s.Ready() {
		p.mu.Lock()
		p.token = token
		p.mu.Unlock()
		p.flushHelp()
	}
	return s
}

func (p *Page) sessionChanged(s session.Session) {
	p.send(map[string]interface{}{"type": FrameSession, "session": s})
}

func (p *Page) flushHelp() {
	p.mu.Lock()
	pending := p.pendingHelp
	p.pendingHelp = nil
	p.mu.Unlock()

	for _, transactionID := range pending {
		p.requestHelp(transactionID)
	}
}

func (p *Page) requestHelp(transactionID string) {
	s := p.machine.Current()
	msg := agent.Message{
		SessionID: s.SessionID,
		UserID:    s.UserID,
		Text:      HelpMessage(transactionID),
		Context:   p.host.Context(),
	}
	p.logger.Info("Transaction help requested", zap.String("transaction_id", transactionID))
	p.dispatch("message", func(ctx context.Context, token string) error {
		return p.agent.SendMessage(ctx, token, msg)
	})
}

// dispatch runs an agent request off the caller's goroutine under the
// current in-flight context
func (p *Page) dispatch(kind string, fn func(ctx context.Context, token string) error) {
	if p.agent == nil || p.closed() {
		return
	}

	p.mu.Lock()
	parent := p.inflight
	token := p.token
	p.mu.Unlock()

	if token == "" {
		p.logger.Warn("Dropping agent request without a session token", zap.String("kind", kind))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(parent, p.timeout)
		defer cancel()

		var span *tracing.Span
		if p.tracer != nil {
			span, ctx = p.tracer.StartSpan(ctx, "agent."+kind)
			span.SetTag("page_id", p.id.String())
			defer func() {
				span.Finish()
				p.tracer.Submit(span)
			}()
		}

		err := fn(ctx, token)
		if err != nil && span != nil {
			span.SetError(err)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn("Agent request failed", zap.String("kind", kind), zap.Error(err))
			p.send(map[string]interface{}{"type": FrameError, "message": "The assistant is unavailable right now."})
		}
	}()
}

func (p *Page) sendToHost(msg hostbridge.Message) error {
	return p.sinkSend(map[string]interface{}{"type": FrameHostMessage, "data": hostbridge.Wire(msg)})
}

func (p *Page) send(frame map[string]interface{}) {
	if err := p.sinkSend(frame); err != nil {
		p.logger.Debug("Frame not delivered", zap.Any("type", frame["type"]), zap.Error(err))
	}
}

func (p *Page) sinkSend(frame map[string]interface{}) error {
	if p.sink == nil {
		return nil
	}
	if p.closed() {
		return action.ErrTimelineClosed
	}
	frame["timestamp"] = time.Now().Unix()
	return p.sink.Send(frame)
}

func (p *Page) closed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
