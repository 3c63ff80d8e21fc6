// Package widget defines the closed set of agent-declared UI payloads and
// validates untrusted input against it.
//
// Key Components:
//   - Payload: sealed interface over the five widget variants
//   - Registry: compiled JSON Schema (draft 2020-12) per variant
//   - ValidationError: first structural mismatch with a JSON pointer path
//
// Validation order is fixed: size and depth limits, discriminator, variant
// schema, then decoding into the typed struct with defaults applied. A payload
// that fails any step is rejected as a whole.
//
// Example Usage:
//
//	payload, err := widget.Default().Validate(args["widget"])
//	if verr, ok := widget.AsValidationError(err); ok {
//	    logger.Warn("rejected widget", zap.String("path", verr.Path))
//	}
package widget
