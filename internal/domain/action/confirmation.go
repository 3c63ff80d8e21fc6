package action

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/render"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/id"
)

// State of a confirmation instance. Every state but StatePending is terminal.
type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "resolved-confirm"
	StateCancelled State = "resolved-cancel"
	StateInvalid   State = "resolved-invalid"
)

// Terminal reports whether s can no longer change
func (s State) Terminal() bool {
	return s != StatePending
}

// ReasonInvalidDialog is returned to the agent when the dialog fails validation
const ReasonInvalidDialog = "invalid_dialog_payload"

// Confirmation is a one-shot resolver for a single dialog instance.
// The first resolution wins; later attempts report false and are discarded.
type Confirmation struct {
	ID   id.ConfirmationID
	View *render.View

	mu     sync.Mutex
	state  State
	result map[string]any
	done   chan struct{}
}

func newConfirmation() *Confirmation {
	return &Confirmation{
		ID:    id.NewConfirmationID(),
		state: StatePending,
		done:  make(chan struct{}),
	}
}

func invalidConfirmation() *Confirmation {
	c := newConfirmation()
	c.settle(StateInvalid, map[string]any{"confirmed": false, "reason": ReasonInvalidDialog})
	return c
}

// Resolve settles the confirmation from a postback payload. An empty payload
// counts as confirmation; a false "confirmed" flag counts as cancellation.
func (c *Confirmation) Resolve(payload map[string]any) bool {
	if len(payload) == 0 {
		payload = map[string]any{"confirmed": true}
	}

	state := StateConfirmed
	if confirmed, ok := payload["confirmed"].(bool); ok && !confirmed {
		state = StateCancelled
	}
	return c.settle(state, payload)
}

func (c *Confirmation) settle(state State, result map[string]any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return false
	}
	c.state = state
	c.result = result
	close(c.done)
	return true
}

// State returns the current state
func (c *Confirmation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the resolution payload once the confirmation is terminal
func (c *Confirmation) Result() (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Terminal() {
		return nil, false
	}
	return copyResult(c.result), true
}

// Done is closed when the confirmation resolves
func (c *Confirmation) Done() <-chan struct{} {
	return c.done
}

// Await blocks until the confirmation resolves. Cancelling ctx or closing the
// timeline returns an error and leaves the confirmation pending.
func (c *Confirmation) Await(ctx context.Context, closed <-chan struct{}) (map[string]any, error) {
	select {
	case <-c.done:
		result, _ := c.Result()
		return result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-closed:
		// a click may race with teardown; prefer the resolution
		select {
		case <-c.done:
			result, _ := c.Result()
			return result, nil
		default:
		}
		return nil, ErrTimelineClosed
	}
}

func copyResult(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
