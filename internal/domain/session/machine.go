package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/utils"
)

// Observer is told about every state transition
type Observer func(s Session)

// Machine runs Bootstrap once per distinct token and keeps the result.
// Re-applying the token it already bootstrapped returns the current state.
type Machine struct {
	policy Policy
	logger *zap.Logger

	apply sync.Mutex // serializes Apply so observers see transitions in order

	mu          sync.RWMutex
	state       Session
	fingerprint string
	applied     bool
	observers   []Observer
}

// NewMachine creates a machine in the idle state
func NewMachine(policy Policy, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		policy: policy,
		logger: logger,
		state:  Session{Status: StatusIdle},
	}
}

// Observe registers an observer
func (m *Machine) Observe(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Current returns the current state
func (m *Machine) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Apply bootstraps a session for token unless it was already applied
func (m *Machine) Apply(token string, metadata map[string]any) Session {
	m.apply.Lock()
	defer m.apply.Unlock()

	fp := utils.Fingerprint(token)

	m.mu.RLock()
	same := m.applied && fp == m.fingerprint
	current := m.state
	m.mu.RUnlock()
	if same {
		return current
	}

	if token != "" {
		m.transition(fp, Session{Status: StatusLoading})
	}

	next := Bootstrap(token, metadata, m.policy)
	m.transition(fp, next)

	if next.Ready() {
		m.logger.Info("Session ready",
			zap.String("session_id", next.SessionID),
			zap.String("user_id", next.UserID),
			zap.Time("expires_at", next.ExpiresAt),
		)
	} else {
		m.logger.Warn("Session bootstrap failed",
			zap.String("kind", string(next.ErrorKind)),
			zap.String("error", next.Error),
		)
	}
	return next
}

func (m *Machine) transition(fp string, s Session) {
	m.mu.Lock()
	m.state = s
	m.fingerprint = fp
	m.applied = true
	observers := make([]Observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, o := range observers {
		o(s)
	}
}
