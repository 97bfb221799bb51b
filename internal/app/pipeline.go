package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/atomic"

	"github.com/ayusman/touchless/internal/capture"
	"github.com/ayusman/touchless/internal/detector"
	"github.com/ayusman/touchless/internal/gesture"
)

// motionLevels reports the smoothed motion level used for frame-rate
// switching.
type motionLevels interface {
	Level() float64
	History() []float64
}

// run is the state of one Start..Stop cycle. Fields other than the atomics
// are owned by the loop goroutine.
type run struct {
	settings gesture.Settings
	strategy gesture.Strategy
	coord    *gesture.Coordinator
	emotion  *gesture.EmotionClassifier
	async    *detector.Async

	// motion is fed every frame when the strategy is not itself motion based.
	motion *capture.MotionExtractor
	levels motionLevels

	ticks      uint64
	lastActive time.Time
	active     atomic.Bool
	fps        atomic.Int32

	queue     chan gesture.Event
	stop      chan struct{}
	done      chan struct{}
	delivered chan struct{}
}

func (a *App) newRun(s gesture.Settings) *run {
	r := &run{
		settings:  s,
		coord:     gesture.NewCoordinator(s.Debounce, a.config.Clock),
		emotion:   gesture.NewEmotionClassifier(s.EmotionDebounce, a.config.Clock),
		queue:     make(chan gesture.Event, eventQueueSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		delivered: make(chan struct{}),
	}
	r.fps.Store(int32(a.config.IdleFPS))

	switch a.config.Pipeline {
	case PipelineLandmarks:
		r.strategy = gesture.NewLandmarkStrategy(a.config.Logger)
		r.async = detector.NewAsync(keepOpen{a.config.Detector}, a.config.Logger, a.config.Clock)
		r.motion = capture.NewMotionExtractor(s.MotionConfig())
		r.levels = r.motion
	default:
		ms := gesture.NewMotionStrategy(s)
		r.strategy = ms
		r.levels = ms
	}
	return r
}

// loop drives step from a ticker whose period follows the current frame rate.
func (a *App) loop(r *run) {
	defer close(r.done)

	ticker := a.config.Clock.Ticker(time.Second / time.Duration(r.fps.Load()))
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			fps := r.fps.Load()
			a.step(r)
			if now := r.fps.Load(); now != fps {
				ticker.Reset(time.Second / time.Duration(now))
			}
		}
	}
}

// step is one tick: read a frame, shape detector calls, classify, debounce.
// Frame read failures and detector failures are absorbed.
func (a *App) step(r *run) {
	frame, err := a.config.Camera.ReadFrame()
	if err != nil {
		if errors.Is(err, capture.ErrNoFrame) {
			a.log.Debugf("no frame: %v", err)
		} else {
			a.log.Warnf("reading frame: %v", err)
		}
		return
	}
	a.latest.Store(frame)

	if !a.enabled.Load() {
		return
	}

	now := a.config.Clock.Now()
	r.ticks++

	var result *detector.Result
	if r.async != nil {
		if r.ticks%uint64(r.settings.DetectEvery) == 0 {
			r.async.Submit(frame)
		}
		result = r.async.Take()
	}

	kind, ok := r.strategy.Step(gesture.Input{Frame: frame, Detection: result, Now: now})
	a.updateRate(r, frame, now)
	if !ok {
		return
	}

	ev, ok := r.coord.Offer(kind, r.strategy.Name())
	if !ok {
		a.log.Debugf("%s suppressed", kind)
		return
	}
	a.emit(r, ev)
}

// updateRate switches between idle and active frame rates on the smoothed
// motion level.
func (a *App) updateRate(r *run, frame *capture.Frame, now time.Time) {
	if r.motion != nil {
		r.motion.Extract(frame)
	}

	if r.levels.Level() >= a.config.ActiveLevel {
		r.lastActive = now
		if !r.active.Load() {
			r.active.Store(true)
			r.fps.Store(int32(a.config.ActiveFPS))
			a.config.Camera.SetFPS(a.config.ActiveFPS)
			a.log.Debugf("switched to active mode")
		}
		return
	}

	if r.active.Load() && now.Sub(r.lastActive) > a.config.IdleTimeout {
		r.active.Store(false)
		r.fps.Store(int32(a.config.IdleFPS))
		a.config.Camera.SetFPS(a.config.IdleFPS)
		a.log.Debugf("switched to idle mode")
	}
}

// emit records ev as the last event and queues it for delivery. A full
// queue drops the event rather than stalling the loop.
func (a *App) emit(r *run, ev gesture.Event) {
	a.last.Store(&ev)
	a.log.Infof("gesture %s (%s)", ev.Kind, ev.Source)

	select {
	case r.queue <- ev:
	default:
		a.log.Warnf("event queue full, dropping %s", ev.Kind)
	}
}

// deliver publishes queued events to the sink until the queue is closed.
func (a *App) deliver(r *run) {
	defer close(r.delivered)
	for ev := range r.queue {
		if a.config.Sink == nil {
			continue
		}
		if err := a.config.Sink.Publish(context.Background(), ev); err != nil {
			a.log.Warnf("delivering %s: %v", ev.Kind, err)
		}
	}
}
