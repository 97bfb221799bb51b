package gesture

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// State of a Coordinator.
type State int

const (
	// Idle accepts the next gesture.
	Idle State = iota
	// Suppressed discards gestures until the debounce window passes.
	Suppressed
)

func (s State) String() string {
	if s == Suppressed {
		return "suppressed"
	}
	return "idle"
}

// Coordinator debounces classified gestures so at most one event is
// accepted per interval. The window restarts only on acceptance.
type Coordinator struct {
	mu       sync.Mutex
	clock    clock.Clock
	interval time.Duration
	last     time.Time
	accepted bool
}

// NewCoordinator creates a coordinator. A nil clock means the wall clock.
func NewCoordinator(interval time.Duration, clk clock.Clock) *Coordinator {
	if clk == nil {
		clk = clock.New()
	}
	return &Coordinator{clock: clk, interval: interval}
}

// Offer submits a classified gesture. It returns the accepted event, or
// false if the gesture fell inside the debounce window.
func (c *Coordinator) Offer(kind Kind, source string) (Event, bool) {
	now, ok := c.Accept()
	if !ok {
		return Event{}, false
	}
	return Event{Kind: kind, Source: source, Timestamp: now}, true
}

// Accept opens a new debounce window if the previous one has elapsed and
// returns the acceptance time.
func (c *Coordinator) Accept() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.accepted && now.Sub(c.last) < c.interval {
		return time.Time{}, false
	}

	c.last = now
	c.accepted = true
	return now, true
}

// State reports whether the coordinator would accept a gesture now.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accepted && c.clock.Now().Sub(c.last) < c.interval {
		return Suppressed
	}
	return Idle
}

// LastAccepted returns the time of the last accepted event.
func (c *Coordinator) LastAccepted() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.accepted
}

// Reset returns the coordinator to Idle.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accepted = false
	c.last = time.Time{}
}
