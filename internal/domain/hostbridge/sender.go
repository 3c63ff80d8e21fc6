package hostbridge

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/infrastructure/resilience"
)

// Sender posts a message to the embedding host
type Sender interface {
	SendToHost(msg Message) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(msg Message) error

func (f SenderFunc) SendToHost(msg Message) error {
	return f(msg)
}

// BestEffortSender never reports failures to its caller. Errors, panics and
// an open breaker are logged and dropped.
type BestEffortSender struct {
	next    Sender
	breaker *resilience.Breaker
	logger  *zap.Logger
}

// NewBestEffortSender wraps next. breaker may be nil.
func NewBestEffortSender(next Sender, breaker *resilience.Breaker, logger *zap.Logger) *BestEffortSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BestEffortSender{next: next, breaker: breaker, logger: logger}
}

// Send delivers msg if it can and reports whether it did
func (s *BestEffortSender) Send(msg Message) (sent bool) {
	if s == nil || s.next == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("Host send panicked",
				zap.String("type", string(msg.MessageType())),
				zap.String("panic", fmt.Sprint(r)),
			)
			sent = false
		}
	}()

	var err error
	if s.breaker != nil {
		err = s.breaker.Do(func() error {
			return s.next.SendToHost(msg)
		})
	} else {
		err = s.next.SendToHost(msg)
	}

	if err != nil {
		s.logger.Warn("Host send failed",
			zap.String("type", string(msg.MessageType())),
			zap.Error(err),
		)
		return false
	}
	return true
}
