package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/service"
)

// Tool names exposed to the agent
const (
	ToolRenderWidget        = "render_widget"
	ToolRequestConfirmation = "request_confirmation"
)

// ErrNoTimeline is returned when a tool call carries no page scope
var ErrNoTimeline = errors.New("call has no timeline")

// ToolProvider exposes the bridge through the tool registry
type ToolProvider struct {
	bridge *Bridge
}

// NewToolProvider creates the widgets provider
func NewToolProvider(bridge *Bridge) *ToolProvider {
	return &ToolProvider{bridge: bridge}
}

// Definition returns service metadata
func (p *ToolProvider) Definition() service.Definition {
	schema := p.bridge.Registry().Schema()
	return service.Definition{
		ID:          "widgets",
		Name:        "Widget Service",
		Description: "Structured widgets and human confirmation in the chat timeline",
		Category:    service.CategoryWidgets,
		Capabilities: []string{
			"render",
			"confirm",
		},
		Tools: []service.Tool{
			{
				Name:        ToolRenderWidget,
				Description: "Render a balance card, transaction table, ticket form, confirmation dialog or ticket status board",
				Parameters:  wrapSchema("widget", schema),
			},
			{
				Name:        ToolRequestConfirmation,
				Description: "Show a confirmation dialog and wait for the user to confirm or cancel",
				Parameters:  wrapSchema("dialog", schema),
				Blocking:    true,
			},
		},
	}
}

// Execute runs a widget tool against the caller's timeline
func (p *ToolProvider) Execute(ctx context.Context, tool string, params map[string]interface{}, call *service.Call) (*service.Result, error) {
	var tl Timeline
	if call != nil {
		tl, _ = call.Scope.(Timeline)
	}
	if tl == nil {
		return service.ErrorResult("no active page for session"), ErrNoTimeline
	}

	switch tool {
	case ToolRenderWidget:
		return p.renderWidget(ctx, tl, params)
	case ToolRequestConfirmation:
		return p.requestConfirmation(ctx, tl, params)
	default:
		return service.ErrorResult(fmt.Sprintf("unknown tool: %s", tool)), fmt.Errorf("%w: %s", service.ErrToolNotFound, tool)
	}
}

func (p *ToolProvider) renderWidget(ctx context.Context, tl Timeline, params map[string]interface{}) (*service.Result, error) {
	ack, err := p.bridge.RenderWidget(ctx, tl, argument(params, "widget"))
	if ack == nil {
		return service.ErrorResult(err.Error()), err
	}
	if ack.Status == StatusInvalid {
		result := service.ErrorResult(ack.Reason)
		result.Data = ack
		return result, nil
	}
	return &service.Result{Success: true, Data: ack}, nil
}

func (p *ToolProvider) requestConfirmation(ctx context.Context, tl Timeline, params map[string]interface{}) (*service.Result, error) {
	result, err := p.bridge.RequestConfirmation(ctx, tl, argument(params, "dialog"))
	if err != nil {
		return service.ErrorResult(err.Error()), err
	}
	return &service.Result{Success: true, Data: result}, nil
}

// argument accepts the payload either under key or as the whole parameter object
func argument(params map[string]interface{}, key string) interface{} {
	if v, ok := params[key]; ok {
		return v
	}
	return params
}

func wrapSchema(key string, schema json.RawMessage) json.RawMessage {
	wrapped, err := sonic.ConfigStd.Marshal(map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{key: schema},
		"required":   []string{key},
	})
	if err != nil {
		return schema
	}
	return wrapped
}
