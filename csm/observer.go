package csm

import "log/slog"

// EventType identifies the kind of CSM event.
type EventType string

const (
	EventStateUpdated     EventType = "csm.state.updated"
	EventActionFired      EventType = "csm.action.fired"
	EventActionForbidden  EventType = "csm.action.forbidden"
	EventEvaluationFailed EventType = "csm.evaluation.failed"
)

// Event is emitted by the CSM on state updates and action dispositions.
type Event struct {
	Type   EventType
	State  StateID
	Active bool
	Detail string
}

// Observer receives CSM events for logging or metrics. Implementations must
// not call back into the CSM; events are delivered under its lock.
type Observer interface {
	OnEvent(e Event)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) OnEvent(Event) {}

// SlogObserver emits events to a slog.Logger. The event type becomes the log
// message; vetoes and evaluation failures log at warn and error.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver creates a SlogObserver. A nil logger uses slog.Default.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger}
}

func (o *SlogObserver) OnEvent(e Event) {
	attrs := []any{
		slog.Int("state", int(e.State)),
		slog.Bool("active", e.Active),
	}
	if e.Detail != "" {
		attrs = append(attrs, slog.String("detail", e.Detail))
	}
	switch e.Type {
	case EventActionForbidden:
		o.logger.Warn(string(e.Type), attrs...)
	case EventEvaluationFailed:
		o.logger.Error(string(e.Type), attrs...)
	default:
		o.logger.Debug(string(e.Type), attrs...)
	}
}
