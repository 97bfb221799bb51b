// Package events delivers accepted gesture events to their consumers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/touchless/internal/gesture"
	"github.com/ayusman/touchless/internal/logging"
)

// Sink consumes accepted gesture events.
type Sink interface {
	Publish(ctx context.Context, ev gesture.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev gesture.Event) error

// Publish calls f.
func (f SinkFunc) Publish(ctx context.Context, ev gesture.Event) error {
	return f(ctx, ev)
}

// Message is the wire form shared by the websocket feed and redis channel.
type Message struct {
	Gesture   string `json:"gesture"`
	Source    string `json:"source"`
	Timestamp int64  `json:"timestamp"` // Unix ms
}

// NewMessage converts an event to its wire form.
func NewMessage(ev gesture.Event) Message {
	return Message{
		Gesture:   string(ev.Kind),
		Source:    ev.Source,
		Timestamp: ev.Timestamp.UnixMilli(),
	}
}

// Event converts the message back, validating the kind.
func (m Message) Event() (gesture.Event, error) {
	k, err := gesture.ParseKind(m.Gesture)
	if err != nil {
		return gesture.Event{}, err
	}
	return gesture.Event{Kind: k, Source: m.Source, Timestamp: time.UnixMilli(m.Timestamp)}, nil
}

func encode(ev gesture.Event) ([]byte, error) {
	return json.Marshal(NewMessage(ev))
}

// Fanout publishes each event to every registered sink. A failing sink
// does not stop delivery to the others.
type Fanout struct {
	mu    sync.RWMutex
	sinks []namedSink
	log   logging.Logger
}

type namedSink struct {
	name string
	sink Sink
}

// NewFanout creates an empty fan-out.
func NewFanout(log logging.Logger) *Fanout {
	if log == nil {
		log = logging.Nop()
	}
	return &Fanout{log: log.With("component", "events")}
}

// Add registers a sink under name, used in log lines and errors.
func (f *Fanout) Add(name string, s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, namedSink{name: name, sink: s})
}

// Len returns the number of registered sinks.
func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sinks)
}

// Publish delivers ev to all sinks in registration order and joins their
// errors.
func (f *Fanout) Publish(ctx context.Context, ev gesture.Event) error {
	f.mu.RLock()
	sinks := append([]namedSink(nil), f.sinks...)
	f.mu.RUnlock()

	var errs []error
	for _, s := range sinks {
		if err := s.sink.Publish(ctx, ev); err != nil {
			f.log.Warnf("sink %s: %v", s.name, err)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
