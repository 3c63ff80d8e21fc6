// Package action is the agent-facing side of the widget system.
//
// It validates widget payloads, renders them onto a page timeline and, for
// confirmation dialogs, suspends the agent call until the user answers.
//
// Key Components:
//   - Bridge: render_widget and request_confirmation operations
//   - Confirmation: One-shot resolver for a single dialog instance
//   - Timeline: The page surface views and notices are shown on
//   - ToolProvider: Registers both operations with the tool registry
//
// Confirmation States:
//   - pending: dialog shown, nobody has answered
//   - resolved-confirm / resolved-cancel: first click decides
//   - resolved-invalid: dialog failed validation and was never shown
//
// Example Usage:
//
//	bridge := action.NewBridge(widget.Default(), render.New(logger), logger)
//	result, err := bridge.RequestConfirmation(ctx, page, dialog)
package action
