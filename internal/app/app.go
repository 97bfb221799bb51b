// Package app runs the gesture pipeline: it reads frames on a cooperative
// tick loop, classifies them and hands accepted events to the sinks.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"github.com/ayusman/touchless/internal/capture"
	"github.com/ayusman/touchless/internal/detector"
	"github.com/ayusman/touchless/internal/events"
	"github.com/ayusman/touchless/internal/gesture"
	"github.com/ayusman/touchless/internal/logging"
)

// Pipeline selects how gestures are recognized.
type Pipeline string

const (
	// PipelineMotion classifies frame-differencing motion.
	PipelineMotion Pipeline = "motion"
	// PipelineLandmarks classifies hand poses from the landmark detector.
	PipelineLandmarks Pipeline = "landmarks"
)

// ParsePipeline validates a pipeline name. Empty means motion.
func ParsePipeline(s string) (Pipeline, error) {
	switch Pipeline(s) {
	case "", PipelineMotion:
		return PipelineMotion, nil
	case PipelineLandmarks:
		return PipelineLandmarks, nil
	}
	return "", fmt.Errorf("unknown pipeline %q", s)
}

// Pipeline timing defaults.
const (
	// IdleFPS is the frame rate when no motion is detected.
	IdleFPS = 5
	// ActiveFPS is the frame rate while the scene is moving.
	ActiveFPS = 15
	// IdleTimeout is how long the motion level must stay low before
	// dropping back to IdleFPS.
	IdleTimeout = 2 * time.Second
	// ActiveLevel is the smoothed motion level that switches to ActiveFPS.
	ActiveLevel = 5.0

	eventQueueSize = 16
)

var (
	// ErrNoCamera is returned by New without a frame source.
	ErrNoCamera = errors.New("no camera configured")
	// ErrNoDetector is returned by New for the landmark pipeline without a detector.
	ErrNoDetector = errors.New("landmark pipeline requires a detector")
)

// Config holds configuration options for the application.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Pipeline Pipeline
	Settings gesture.Settings

	IdleFPS     int
	ActiveFPS   int
	ActiveLevel float64
	IdleTimeout time.Duration

	// InitAttempts and InitInterval bound the detector warm-up.
	InitAttempts int
	InitInterval time.Duration

	// Sink receives accepted events off the tick loop.
	Sink events.Sink

	Clock  clock.Clock
	Logger logging.Logger
}

func (c *Config) applyDefaults() {
	if c.Pipeline == "" {
		c.Pipeline = PipelineMotion
	}
	if c.Settings == (gesture.Settings{}) {
		c.Settings = gesture.DefaultSettings()
	}
	if c.IdleFPS <= 0 {
		c.IdleFPS = IdleFPS
	}
	if c.ActiveFPS <= 0 {
		c.ActiveFPS = ActiveFPS
	}
	if c.ActiveLevel <= 0 {
		c.ActiveLevel = ActiveLevel
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = IdleTimeout
	}
	if c.InitAttempts <= 0 {
		c.InitAttempts = detector.DefaultInitAttempts
	}
	if c.InitInterval <= 0 {
		c.InitInterval = detector.DefaultInitInterval
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Logger == nil {
		c.Logger = logging.Nop()
	}
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Running          bool           `json:"running"`
	Enabled          bool           `json:"enabled"`
	Pipeline         Pipeline       `json:"pipeline"`
	Active           bool           `json:"active"`
	FPS              int            `json:"fps"`
	MotionLevel      float64        `json:"motion_level"`
	MotionHistory    []float64      `json:"motion_history,omitempty"`
	LastEvent        *gesture.Event `json:"last_event,omitempty"`
	DetectorFailures uint64         `json:"detector_failures"`
	DetectorDropped  uint64         `json:"detector_dropped"`
}

// App is the main application that orchestrates gesture detection and
// event delivery.
type App struct {
	config Config
	log    logging.Logger

	mu       sync.Mutex
	settings gesture.Settings
	run      *run

	enabled atomic.Bool
	latest  atomic.Pointer[capture.Frame]
	last    atomic.Pointer[gesture.Event]
}

// New creates an App. Detection starts enabled.
func New(config Config) (*App, error) {
	config.applyDefaults()

	if config.Camera == nil {
		return nil, ErrNoCamera
	}
	if _, err := ParsePipeline(string(config.Pipeline)); err != nil {
		return nil, err
	}
	if config.Pipeline == PipelineLandmarks && config.Detector == nil {
		return nil, ErrNoDetector
	}
	if err := config.Settings.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		config:   config,
		log:      config.Logger.With("component", "app"),
		settings: config.Settings,
	}
	a.enabled.Store(true)
	return a, nil
}

// Start opens the camera, waits for the detector when the landmark
// pipeline is selected, and starts the tick loop. It fails with an error
// wrapping capture.ErrSourceUnavailable or detector.ErrDetectorInitFailed.
// Starting a running App is a no-op.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.run != nil {
		return nil
	}

	if err := a.config.Camera.Open(); err != nil {
		if !errors.Is(err, capture.ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", capture.ErrSourceUnavailable, err)
		}
		return err
	}

	if a.config.Pipeline == PipelineLandmarks {
		err := detector.WaitReady(ctx, a.config.Detector, a.config.InitAttempts, a.config.InitInterval, a.log)
		if err != nil {
			a.config.Camera.Close()
			return err
		}
	}

	a.config.Camera.SetFPS(a.config.IdleFPS)

	r := a.newRun(a.settings)
	a.run = r
	go a.loop(r)
	go a.deliver(r)

	a.log.Infof("%s pipeline started", a.config.Pipeline)
	return nil
}

// Stop halts the tick loop, waits for in-flight work, delivers queued
// events and closes the camera. The detector stays open for a later Start.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := a.run
	if r == nil {
		return
	}
	a.run = nil

	close(r.stop)
	<-r.done
	if r.async != nil {
		r.async.Close()
	}
	close(r.queue)
	<-r.delivered

	if err := a.config.Camera.Close(); err != nil {
		a.log.Warnf("closing camera: %v", err)
	}
	a.log.Infof("%s pipeline stopped", a.config.Pipeline)
}

// Restart stops the pipeline and starts it again with the current settings.
func (a *App) Restart(ctx context.Context) error {
	a.Stop()
	return a.Start(ctx)
}

// Close stops the pipeline and releases the detector.
func (a *App) Close() error {
	a.Stop()
	if a.config.Detector != nil {
		return a.config.Detector.Close()
	}
	return nil
}

// Running reports whether the tick loop is running.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.run != nil
}

// SetEnabled enables or disables gesture detection. Frames keep being
// read while disabled so the preview stream stays live.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) != enabled {
		a.log.Infof("detection enabled=%v", enabled)
	}
}

// Enabled returns whether gesture detection is currently enabled.
func (a *App) Enabled() bool {
	return a.enabled.Load()
}

// Pipeline returns the configured pipeline.
func (a *App) Pipeline() Pipeline {
	return a.config.Pipeline
}

// Settings returns the settings the next Start will use.
func (a *App) Settings() gesture.Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// ApplySettings validates s and stores it for the next Start. A running
// pipeline keeps the settings it was started with.
func (a *App) ApplySettings(s gesture.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settings = s
	if a.run != nil {
		a.log.Infof("settings updated, applied on next start")
	}
	return nil
}

// LatestFrame returns the most recent frame read, or nil.
func (a *App) LatestFrame() *capture.Frame {
	return a.latest.Load()
}

// LastEvent returns the most recently accepted event.
func (a *App) LastEvent() (gesture.Event, bool) {
	ev := a.last.Load()
	if ev == nil {
		return gesture.Event{}, false
	}
	return *ev, true
}

// ObserveFace feeds one set of face landmarks to the emotion classifier.
// Accepted emotions that map to a gesture are delivered like any other
// event. It returns false when the pipeline is stopped or disabled.
func (a *App) ObserveFace(face gesture.Face) (gesture.Event, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r := a.run
	if r == nil || !a.enabled.Load() {
		return gesture.Event{}, false
	}

	reading, ok := r.emotion.Observe(face)
	if !ok {
		return gesture.Event{}, false
	}
	kind, ok := reading.Emotion.Gesture()
	if !ok {
		a.log.Debugf("emotion %s has no gesture", reading.Emotion)
		return gesture.Event{}, false
	}

	ev := gesture.Event{Kind: kind, Source: gesture.SourceEmotion, Timestamp: reading.Timestamp}
	a.emit(r, ev)
	return ev, true
}

// Status reports the pipeline state.
func (a *App) Status() Status {
	a.mu.Lock()
	r := a.run
	a.mu.Unlock()

	st := Status{
		Running:  r != nil,
		Enabled:  a.enabled.Load(),
		Pipeline: a.config.Pipeline,
	}
	if ev, ok := a.LastEvent(); ok {
		st.LastEvent = &ev
	}
	if r == nil {
		return st
	}

	st.Active = r.active.Load()
	st.FPS = int(r.fps.Load())
	st.MotionLevel = r.levels.Level()
	st.MotionHistory = r.levels.History()
	if r.async != nil {
		st.DetectorFailures = r.async.Failures()
		st.DetectorDropped = r.async.Dropped()
	}
	return st
}

// keepOpen hides Close so stopping a run leaves the shared detector usable.
type keepOpen struct {
	detector.Detector
}

func (keepOpen) Close() error { return nil }
