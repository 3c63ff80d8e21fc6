// Package render turns validated widgets into sanitized HTML fragments and
// the action bindings behind their buttons.
//
// Key Components:
//   - Renderer: exhaustive dispatch over widget.Payload
//   - View: fragment plus bindings, Trigger performs a click
//   - FormPolicy: ticket form submit validation (attachments sniffed with mimetype)
//   - FormatMoney: grouped amounts with currency symbols via golang.org/x/text
//
// Deeplink bindings go to a DeeplinkOpener and never post back. Postback
// bindings call the view's PostbackFunc once per click with the button
// payload merged over {__id, __label}. The default confirm/cancel pair of a
// confirmation dialog posts {confirmed: true} and {confirmed: false}.
//
// Example Usage:
//
//	r := render.New(logger).WithOpener(page).WithTracker(tracker)
//	view := r.Render(payload, page.Postback)
//	err := view.Trigger("confirm", render.Input{})
package render
