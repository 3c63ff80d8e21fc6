package service

import "encoding/json"

// Category groups providers
type Category string

const (
	CategoryWidgets Category = "widgets"
	CategorySession Category = "session"
)

// Tool describes one agent-callable operation
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	// Blocking tools hold the call open until the user responds
	Blocking bool `json:"blocking"`
}

// Definition describes a provider and the tools it exposes
type Definition struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     Category `json:"category"`
	Capabilities []string `json:"capabilities,omitempty"`
	Tools        []Tool   `json:"tools"`
}

// Call carries the caller's scope into a tool execution. Scope is the
// page-level object the provider acts on; providers assert the type they need.
type Call struct {
	SessionID string
	Scope     interface{}
}

// Result is the tool result returned to the agent
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *string     `json:"error,omitempty"`
}
