package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/widget"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/id"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrNoPostback    = errors.New("widget has no postback channel")
	ErrNoOpener      = errors.New("no deeplink opener configured")
	ErrUnsupported   = errors.New("unsupported widget")
)

// PostbackFunc delivers a widget interaction to the agent
type PostbackFunc func(payload map[string]any)

// DeeplinkOpener hands a URL to the embedding shell
type DeeplinkOpener interface {
	OpenDeeplink(url string) error
}

// BindingKind selects what Trigger does for an action
type BindingKind string

const (
	BindingDeeplink BindingKind = "deeplink"
	BindingPostback BindingKind = "postback"
	BindingSubmit   BindingKind = "submit"
	BindingCancel   BindingKind = "cancel"
)

// Binding ties a clickable element of the fragment to its behaviour
type Binding struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Kind     BindingKind    `json:"kind"`
	Variant  string         `json:"variant,omitempty"`
	Deeplink string         `json:"deeplink,omitempty"`
	Payload  map[string]any `json:"-"`

	// bare bindings post Payload as-is, without __id and __label
	bare bool
}

// Attachment is a file supplied to a ticket form attachment field
type Attachment struct {
	Field string `json:"field"`
	Name  string `json:"name"`
	Data  []byte `json:"data"`
}

// Input is transient form state sent with a click. Only ticket form submits read it.
type Input struct {
	Values      map[string]string `json:"values,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
}

// View is one rendered widget in a timeline
type View struct {
	ID         id.ViewID   `json:"id"`
	WidgetType widget.Type `json:"widgetType"`
	HTML       string      `json:"html"`
	Supported  bool        `json:"supported"`
	Actions    []Binding   `json:"actions"`

	payload  widget.Payload
	postback PostbackFunc
	opener   DeeplinkOpener
	tracker  Tracker
	forms    *FormPolicy

	mu sync.Mutex
}

// Payload returns the validated widget behind the view, nil for placeholders
func (v *View) Payload() widget.Payload {
	return v.payload
}

// Binding looks up an action by id
func (v *View) Binding(actionID string) (Binding, bool) {
	for _, b := range v.Actions {
		if b.ID == actionID {
			return b, true
		}
	}
	return Binding{}, false
}

// Trigger performs the action bound to actionID. Deeplinks never post back.
// Postbacks call the postback function exactly once per call.
func (v *View) Trigger(actionID string, input Input) error {
	if !v.Supported {
		return ErrUnsupported
	}
	b, ok := v.Binding(actionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, actionID)
	}

	var payload map[string]any
	switch b.Kind {
	case BindingDeeplink:
		v.track(EventAction, b.ID, map[string]any{"url": b.Deeplink})
		if v.opener == nil {
			return ErrNoOpener
		}
		return v.opener.OpenDeeplink(b.Deeplink)
	case BindingPostback:
		payload = b.postbackPayload()
	case BindingSubmit:
		form, _ := v.payload.(*widget.TicketForm)
		submitted, err := v.forms.Submit(form, input)
		if err != nil {
			return err
		}
		payload = map[string]any{
			"__id":        b.ID,
			"__label":     b.Label,
			"fields":      submitted.Fields,
			"attachments": submitted.Attachments,
		}
		if form.Metadata != nil {
			payload["metadata"] = form.Metadata
		}
	case BindingCancel:
		payload = map[string]any{"__id": b.ID, "__label": b.Label, "cancelled": true}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, actionID)
	}

	if v.postback == nil {
		return ErrNoPostback
	}
	v.track(EventAction, b.ID, nil)

	// serialise clicks on one view so postbacks keep click order
	v.mu.Lock()
	defer v.mu.Unlock()
	v.postback(payload)
	return nil
}

func (b Binding) postbackPayload() map[string]any {
	if b.bare {
		return copyMap(b.Payload)
	}
	merged := map[string]any{"__id": b.ID, "__label": b.Label}
	for k, val := range b.Payload {
		merged[k] = val
	}
	return merged
}

func (v *View) track(name, action string, metadata map[string]any) {
	if v.tracker == nil {
		return
	}
	v.tracker.Track(Event{Name: name, WidgetType: v.WidgetType, Action: action, Metadata: metadata})
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, val := range in {
		out[k] = val
	}
	return out
}
