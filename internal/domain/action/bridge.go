package action

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/render"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/widget"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/id"
)

// ErrTimelineClosed is returned when the page owning a call goes away
var ErrTimelineClosed = errors.New("timeline closed")

// Ack statuses returned by render_widget
const (
	StatusRendered = "rendered"
	StatusInvalid  = "invalid_widget_payload"
)

// Notice texts shown in place of rejected widgets
const (
	NoticeInvalidWidget = "Widget payload was invalid."
	NoticeInvalidDialog = "Confirmation dialog is invalid."
)

// Notice levels
const (
	NoticeError = "error"
	NoticeInfo  = "info"
)

// Timeline is the page-owned chat surface widgets are shown on
type Timeline interface {
	render.DeeplinkOpener
	// Show appends a view, or fails with ErrTimelineClosed
	Show(view *render.View) error
	// Notice appends a standalone status line
	Notice(level, text string) error
	// Postback forwards a widget interaction to the agent
	Postback(payload map[string]any)
	// Done is closed when the timeline is torn down
	Done() <-chan struct{}
}

// ResolutionObserver is implemented by timelines that track the dialogs
// they show. ConfirmationShown runs before the dialog becomes clickable.
type ResolutionObserver interface {
	ConfirmationShown(c *Confirmation)
	ConfirmationResolved(c *Confirmation)
}

// Ack is the immediate result of render_widget
type Ack struct {
	Status     string                  `json:"status"`
	WidgetType widget.Type             `json:"widgetType,omitempty"`
	ViewID     id.ViewID               `json:"viewId,omitempty"`
	Widget     widget.Payload          `json:"widget,omitempty"`
	Reason     string                  `json:"reason,omitempty"`
	Error      *widget.ValidationError `json:"error,omitempty"`
}

// Bridge exposes the widget system to the agent. It holds no per-call state.
type Bridge struct {
	registry *widget.Registry
	renderer *render.Renderer
	logger   *zap.Logger
}

// NewBridge creates a bridge
func NewBridge(registry *widget.Registry, renderer *render.Renderer, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{registry: registry, renderer: renderer, logger: logger}
}

// Registry returns the schema registry used for validation
func (b *Bridge) Registry() *widget.Registry {
	return b.registry
}

// RenderWidget validates raw, shows it on tl and acknowledges without waiting
// for the user. An invalid payload shows a notice instead and returns the
// rejection ack together with the *widget.ValidationError.
func (b *Bridge) RenderWidget(ctx context.Context, tl Timeline, raw any) (*Ack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := b.registry.Validate(raw)
	if err != nil {
		verr, _ := widget.AsValidationError(err)
		b.logger.Warn("Rejected widget payload", zap.Error(err))
		if nerr := tl.Notice(NoticeError, NoticeInvalidWidget); errors.Is(nerr, ErrTimelineClosed) {
			return nil, nerr
		}
		return &Ack{Status: StatusInvalid, Reason: err.Error(), Error: verr}, err
	}

	view := b.renderer.WithOpener(tl).Render(payload, tl.Postback)
	if err := tl.Show(view); err != nil {
		return nil, err
	}

	b.logger.Debug("Widget rendered",
		zap.String("widget_type", string(payload.WidgetType())),
		zap.String("view_id", view.ID.String()),
	)
	return &Ack{
		Status:     StatusRendered,
		WidgetType: payload.WidgetType(),
		ViewID:     view.ID,
		Widget:     payload,
	}, nil
}

// Confirm validates a confirmation dialog and shows it. An invalid dialog
// yields an already resolved-invalid confirmation and an error notice.
func (b *Bridge) Confirm(tl Timeline, raw any) (*Confirmation, error) {
	payload, err := b.registry.ValidateAs(raw, widget.TypeConfirmationDialog)
	if err != nil {
		b.logger.Warn("Rejected confirmation dialog", zap.Error(err))
		if nerr := tl.Notice(NoticeError, NoticeInvalidDialog); errors.Is(nerr, ErrTimelineClosed) {
			return nil, nerr
		}
		return invalidConfirmation(), nil
	}

	c := newConfirmation()
	c.View = b.renderer.WithOpener(tl).Render(payload, func(p map[string]any) {
		if !c.Resolve(p) {
			b.logger.Debug("Ignored repeat confirmation click", zap.String("confirmation_id", c.ID.String()))
			return
		}
		b.logger.Info("Confirmation resolved",
			zap.String("confirmation_id", c.ID.String()),
			zap.String("state", string(c.State())),
		)
		if observer, ok := tl.(ResolutionObserver); ok {
			observer.ConfirmationResolved(c)
		}
	})

	if observer, ok := tl.(ResolutionObserver); ok {
		observer.ConfirmationShown(c)
	}
	if err := tl.Show(c.View); err != nil {
		return nil, err
	}
	return c, nil
}

// RequestConfirmation shows a dialog and blocks until the user answers it.
// Cancelling ctx abandons the wait without resolving the dialog.
func (b *Bridge) RequestConfirmation(ctx context.Context, tl Timeline, raw any) (map[string]any, error) {
	c, err := b.Confirm(tl, raw)
	if err != nil {
		return nil, err
	}
	if c.State() == StateInvalid {
		result, _ := c.Result()
		return result, nil
	}
	return c.Await(ctx, tl.Done())
}
