package render

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/widget"
)

// Analytics event names
const (
	EventView   = "widget.view"
	EventAction = "widget.action"
)

// Event is one analytics observation
type Event struct {
	Name       string
	WidgetType widget.Type
	Action     string
	Metadata   map[string]any
}

// Tracker receives analytics events. Implementations must not block.
type Tracker interface {
	Track(event Event)
}

// TrackerFunc adapts a function to Tracker
type TrackerFunc func(event Event)

func (f TrackerFunc) Track(event Event) { f(event) }

// LogTracker writes events to a zap logger at debug level
type LogTracker struct {
	logger *zap.Logger
}

// NewLogTracker creates a tracker backed by logger
func NewLogTracker(logger *zap.Logger) *LogTracker {
	return &LogTracker{logger: logger}
}

func (t *LogTracker) Track(event Event) {
	t.logger.Debug("widget event",
		zap.String("event", event.Name),
		zap.String("widget_type", string(event.WidgetType)),
		zap.String("action", event.Action),
		zap.Any("metadata", event.Metadata),
	)
}
