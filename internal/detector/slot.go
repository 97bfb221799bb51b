package detector

import (
	"time"

	"go.uber.org/atomic"
)

// Result is one completed detection.
type Result struct {
	// Seq increases with every submitted frame; a higher Seq was captured later.
	Seq       uint64
	Hands     []HandLandmarks
	FrameTime time.Time
	Completed time.Time
}

// Slot is a single-entry publish point between a detector goroutine and the
// tick loop. Publishing replaces any unread result. After Close every
// Publish is dropped.
type Slot struct {
	v      atomic.Pointer[Result]
	closed atomic.Bool
}

// NewSlot returns an empty open slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Publish stores r unless the slot is closed. It reports whether r was kept.
func (s *Slot) Publish(r *Result) bool {
	if s.closed.Load() {
		return false
	}
	s.v.Store(r)
	// Close may have run between the check and the store.
	if s.closed.Load() {
		s.v.Store(nil)
		return false
	}
	return true
}

// Take removes and returns the latest result, or nil if none arrived since
// the previous Take.
func (s *Slot) Take() *Result {
	return s.v.Swap(nil)
}

// Peek returns the latest result without consuming it.
func (s *Slot) Peek() *Result {
	return s.v.Load()
}

// Close drops any pending result and rejects later publishes.
func (s *Slot) Close() {
	s.closed.Store(true)
	s.v.Store(nil)
}

// Closed reports whether Close has been called.
func (s *Slot) Closed() bool {
	return s.closed.Load()
}
