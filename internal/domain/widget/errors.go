package widget

import (
	"errors"
	"fmt"
)

// ErrInvalidWidget is matched by every *ValidationError via errors.Is
var ErrInvalidWidget = errors.New("invalid widget payload")

// ValidationError describes the first structural mismatch of a rejected payload
type ValidationError struct {
	// Type is the declared discriminator, empty when it was missing or not a string
	Type Type `json:"type,omitempty"`
	// Path is a JSON pointer into the payload, empty for the root
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	subject := "widget"
	if e.Type != "" {
		subject = string(e.Type)
	}
	if e.Path == "" {
		return fmt.Sprintf("invalid %s: %s", subject, e.Reason)
	}
	return fmt.Sprintf("invalid %s at %s: %s", subject, e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidWidget
}

// AsValidationError extracts a *ValidationError from an error chain
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
