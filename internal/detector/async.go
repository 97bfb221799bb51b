package detector

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"github.com/ayusman/touchless/internal/capture"
	"github.com/ayusman/touchless/internal/logging"
)

// CloseTimeout bounds how long Close waits for an in-flight detection
// before closing the detector underneath it.
const CloseTimeout = 2 * time.Second

// Async runs a Detector off the tick loop. At most one detection is in
// flight; a Submit while busy is dropped so the loop never blocks.
// Completed detections land in a Slot that the loop drains with Take.
type Async struct {
	det   Detector
	slot  *Slot
	log   logging.Logger
	clock clock.Clock

	closeWait time.Duration

	busy     atomic.Bool
	seq      atomic.Uint64
	dropped  atomic.Uint64
	failures atomic.Uint64
	wg       sync.WaitGroup
	once     sync.Once
}

// NewAsync wraps det. A nil logger or clock gets a no-op logger and the
// wall clock.
func NewAsync(det Detector, log logging.Logger, clk clock.Clock) *Async {
	if log == nil {
		log = logging.Nop()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Async{
		det:   det,
		slot:  NewSlot(),
		log:   log.With("component", "detector"),
		clock: clk,

		closeWait: CloseTimeout,
	}
}

// Submit starts detection on a private copy of frame. It returns false if
// a detection is already running or the wrapper is closed.
func (a *Async) Submit(frame *capture.Frame) bool {
	if a.slot.Closed() {
		return false
	}
	if !a.busy.CompareAndSwap(false, true) {
		a.dropped.Inc()
		return false
	}

	seq := a.seq.Inc()
	f := frame.Clone()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.busy.Store(false)

		hands, err := a.det.Detect(f)
		if err != nil {
			a.failures.Inc()
			a.log.Warnf("detection %d failed: %v", seq, err)
			return
		}

		a.slot.Publish(&Result{
			Seq:       seq,
			Hands:     hands,
			FrameTime: f.Timestamp,
			Completed: a.clock.Now(),
		})
	}()
	return true
}

// Take returns the newest completed detection not yet taken, if any.
func (a *Async) Take() *Result {
	return a.slot.Take()
}

// Busy reports whether a detection is in flight.
func (a *Async) Busy() bool {
	return a.busy.Load()
}

// Failures returns how many detections returned an error.
func (a *Async) Failures() uint64 {
	return a.failures.Load()
}

// Dropped returns how many submits were skipped because the detector was busy.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

// Close tears down the wrapper. Results still in flight are discarded.
// It waits up to CloseTimeout for the running detection, then closes the
// detector whether or not that detection has returned.
func (a *Async) Close() error {
	var err error
	a.once.Do(func() {
		a.slot.Close()

		done := make(chan struct{})
		go func() {
			a.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-a.clock.After(a.closeWait):
			a.log.Warnf("detection still running after %s, closing detector anyway", a.closeWait)
		}

		err = a.det.Close()
	})
	return err
}
