package ws

import "github.com/GriffinCanCode/EcoAssist/backend/internal/domain/render"

// Inbound frame types
const (
	TypeHostMessage  = "host_message"
	TypeWidgetAction = "widget_action"
	TypeStop         = "stop"
	TypePing         = "ping"
)

// Outbound frame types owned by the socket rather than the page
const (
	TypeSystem = "system"
	TypePong   = "pong"
	TypeError  = "error"
)

// Inbound is any frame the chat page sends. Fields are read per Type.
type Inbound struct {
	Type string `json:"type"`

	// host_message
	Origin string      `json:"origin,omitempty"`
	Data   interface{} `json:"data,omitempty"`

	// widget_action
	ViewID      string              `json:"view_id,omitempty"`
	ActionID    string              `json:"action_id,omitempty"`
	Values      map[string]string   `json:"values,omitempty"`
	Attachments []render.Attachment `json:"attachments,omitempty"`
}
