package hostbridge

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/utils"
)

// Outcome classifies how an envelope was handled
type Outcome string

const (
	OutcomeAccepted       Outcome = "accepted"
	OutcomeIgnored        Outcome = "ignored"
	OutcomeOriginRejected Outcome = "origin_rejected"
	OutcomeShapeRejected  Outcome = "shape_rejected"
	OutcomeTokenRejected  Outcome = "token_rejected"
)

// ChannelMobile is stamped into every context delivered by the host
const ChannelMobile = "mobile"

// Listener is notified of accepted host messages, in delivery order
type Listener interface {
	TokenAccepted(token, userID string)
	ContextUpdated(ctx map[string]any)
	TransactionHelp(transactionID string)
}

// Recorder counts handled envelopes
type Recorder func(msgType string, outcome Outcome)

// Bridge validates host envelopes and keeps the token and context they carry.
// Nothing from an envelope is trusted before both the origin and shape checks pass.
type Bridge struct {
	policy   *OriginPolicy
	sender   *BestEffortSender
	listener Listener
	record   Recorder
	logger   *zap.Logger

	mu      sync.RWMutex
	token   string
	userID  string
	context map[string]any
}

// NewBridge creates a host bridge. listener may be nil.
func NewBridge(policy *OriginPolicy, sender *BestEffortSender, listener Listener, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		policy:   policy,
		sender:   sender,
		listener: listener,
		logger:   logger,
	}
}

// WithRecorder sets the outcome recorder
func (b *Bridge) WithRecorder(r Recorder) *Bridge {
	b.record = r
	return b
}

// Attach subscribes the bridge to bus
func (b *Bridge) Attach(bus *Bus) (Subscription, error) {
	return bus.Subscribe(func(env Envelope) { b.Handle(env) })
}

// Handle processes one envelope. Rejections are dropped, never returned as errors.
func (b *Bridge) Handle(env Envelope) Outcome {
	if !b.policy.IsAllowed(env.Origin) {
		b.logger.Warn("Host message from unauthorized origin", zap.String("origin", env.Origin))
		return b.done("", OutcomeOriginRejected)
	}

	msg, err := ParseMessage(env.Data)
	if err != nil {
		// foreign messages share the channel, so this is expected noise
		b.logger.Debug("Ignoring non-host message", zap.String("origin", env.Origin), zap.Error(err))
		return b.done("", OutcomeShapeRejected)
	}

	switch m := msg.(type) {
	case SetToken:
		return b.done(string(m.MessageType()), b.setToken(m))
	case SetContext:
		if err := utils.ValidateContext(m.Context); err != nil {
			b.logger.Warn("Rejected host context", zap.Error(err))
			return b.done(string(m.MessageType()), OutcomeShapeRejected)
		}
		b.setContext(m.Context, "")
		return b.done(string(m.MessageType()), OutcomeAccepted)
	case TransactionHelp:
		b.setContext(nil, m.TransactionID)
		b.logger.Info("Transaction help triggered", zap.String("transaction_id", m.TransactionID))
		if b.listener != nil {
			b.listener.TransactionHelp(m.TransactionID)
		}
		return b.done(string(m.MessageType()), OutcomeAccepted)
	default:
		// outbound only
		return b.done(string(m.MessageType()), OutcomeIgnored)
	}
}

func (b *Bridge) setToken(m SetToken) Outcome {
	token := strings.TrimSpace(m.Token)
	if token == "" || len(token) > utils.MaxTokenLength {
		b.logger.Warn("Rejected host token", zap.Int("length", len(m.Token)))
		return OutcomeTokenRejected
	}

	b.mu.Lock()
	b.token = token
	b.userID = m.UserID
	b.mu.Unlock()

	b.logger.Info("Host token received",
		logging.Token("fingerprint", token),
		zap.String("user_id", m.UserID),
		zap.Int("length", len(token)),
	)

	b.Send(TokenReceived{Success: true})
	if b.listener != nil {
		b.listener.TokenAccepted(token, m.UserID)
	}
	return OutcomeAccepted
}

// setContext replaces the stored context with incoming, or stamps a non-empty
// transactionID onto the current one
func (b *Bridge) setContext(incoming map[string]any, transactionID string) {
	b.mu.Lock()
	next := make(map[string]any, len(b.context)+len(incoming)+2)
	if transactionID != "" {
		for k, v := range b.context {
			next[k] = v
		}
		next["transactionId"] = transactionID
	} else {
		for k, v := range incoming {
			next[k] = v
		}
	}
	next["channel"] = ChannelMobile
	b.context = next
	snapshot := copyContext(next)
	b.mu.Unlock()

	b.logger.Debug("Host context updated", zap.Int("keys", len(snapshot)))
	if b.listener != nil {
		b.listener.ContextUpdated(snapshot)
	}
}

// Send posts msg to the host without ever failing
func (b *Bridge) Send(msg Message) bool {
	return b.sender.Send(msg)
}

// Token returns the accepted token and user id
func (b *Bridge) Token() (token, userID string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token, b.userID
}

// Context returns a copy of the current host context, nil before any arrived
func (b *Bridge) Context() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.context == nil {
		return nil
	}
	return copyContext(b.context)
}

func (b *Bridge) done(msgType string, outcome Outcome) Outcome {
	if b.record != nil {
		b.record(msgType, outcome)
	}
	return outcome
}

func copyContext(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
