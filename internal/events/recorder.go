package events

import (
	"context"

	"github.com/ayusman/touchless/internal/gesture"
	"github.com/ayusman/touchless/internal/store"
)

// EventWriter persists events.
type EventWriter interface {
	Record(ctx context.Context, e *store.Event) error
}

// Recorder writes every event to the event log.
type Recorder struct {
	w EventWriter
}

// NewRecorder creates a Recorder over w.
func NewRecorder(w EventWriter) *Recorder {
	return &Recorder{w: w}
}

// Publish records ev.
func (r *Recorder) Publish(ctx context.Context, ev gesture.Event) error {
	return r.w.Record(ctx, &store.Event{
		Kind:      string(ev.Kind),
		Source:    ev.Source,
		Timestamp: ev.Timestamp,
	})
}
