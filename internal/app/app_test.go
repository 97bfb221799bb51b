package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"

	"github.com/ayusman/touchless/internal/capture"
	"github.com/ayusman/touchless/internal/detector"
	"github.com/ayusman/touchless/internal/events"
	"github.com/ayusman/touchless/internal/gesture"
	"github.com/ayusman/touchless/testdata"
)

func motionSettings() gesture.Settings {
	s := gesture.DefaultSettings()
	s.MinMotionPixels = 100
	s.SampleStride = 1
	return s
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// openRun opens the camera and builds a run without starting the loop, so
// tests can drive step directly.
func openRun(t *testing.T, a *App) *run {
	t.Helper()
	if err := a.config.Camera.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	r := a.newRun(a.Settings())
	t.Cleanup(func() {
		if r.async != nil {
			r.async.Close()
		}
	})
	return r
}

func drain(r *run) []gesture.Event {
	var out []gesture.Event
	for {
		select {
		case ev := <-r.queue:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type collector struct {
	mu  sync.Mutex
	evs []gesture.Event
}

func (c *collector) sink() events.Sink {
	return events.SinkFunc(func(_ context.Context, ev gesture.Event) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.evs = append(c.evs, ev)
		return nil
	})
}

func (c *collector) got() []gesture.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]gesture.Event(nil), c.evs...)
}

func TestParsePipeline(t *testing.T) {
	tests := []struct {
		in      string
		want    Pipeline
		wantErr bool
	}{
		{"", PipelineMotion, false},
		{"motion", PipelineMotion, false},
		{"landmarks", PipelineLandmarks, false},
		{"contours", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePipeline(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParsePipeline(%q) = (%q, %v)", tt.in, got, err)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	cam := capture.NewMockCamera(nil, false)
	bad := gesture.DefaultSettings()
	bad.DetectEvery = 0

	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"no camera", Config{Settings: gesture.DefaultSettings()}, ErrNoCamera},
		{"landmarks without detector", Config{Camera: cam, Pipeline: PipelineLandmarks, Settings: gesture.DefaultSettings()}, ErrNoDetector},
		{"invalid settings", Config{Camera: cam, Settings: bad}, gesture.ErrInvalidSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := New(Config{Camera: cam, Pipeline: "contours", Settings: gesture.DefaultSettings()}); err == nil {
		t.Error("New() should reject an unknown pipeline")
	}
}

func TestNew_DefaultSettings(t *testing.T) {
	a := newTestApp(t, Config{Camera: capture.NewMockCamera(nil, false)})
	if got := a.Settings(); got != gesture.DefaultSettings() {
		t.Errorf("Settings() = %+v, want defaults", got)
	}
}

func TestApp_Step_MotionSwipe(t *testing.T) {
	mock := clock.NewMock()
	cam := capture.NewMockCamera(testdata.Swipe(320, 120, 250, 20, 40), false)
	a := newTestApp(t, Config{Camera: cam, Settings: motionSettings(), Clock: mock})
	r := openRun(t, a)

	for i := 0; i < 4; i++ {
		mock.Add(100 * time.Millisecond)
		a.step(r)
	}

	got := drain(r)
	if len(got) != 1 {
		t.Fatalf("events = %v, want one swipe", got)
	}
	ev := got[0]
	if ev.Kind != gesture.SwipeLeft || ev.Source != gesture.SourceMotion {
		t.Errorf("event = %+v, want swipe_left from motion", ev)
	}
	if !ev.Timestamp.Equal(mock.Now()) {
		t.Errorf("timestamp = %v, want %v", ev.Timestamp, mock.Now())
	}
	if last, ok := a.LastEvent(); !ok || last != ev {
		t.Errorf("LastEvent() = %+v, %v", last, ok)
	}
	if a.LatestFrame() == nil {
		t.Error("LatestFrame() should hold the last frame read")
	}
}

func TestApp_Step_Debounce(t *testing.T) {
	mock := clock.NewMock()
	cam := capture.NewMockCamera(testdata.Swipe(320, 120, 250, 20, 40), true)
	a := newTestApp(t, Config{Camera: cam, Settings: motionSettings(), Clock: mock})
	r := openRun(t, a)

	for i := 0; i < 8; i++ {
		mock.Add(100 * time.Millisecond)
		a.step(r)
	}
	if got := drain(r); len(got) != 1 {
		t.Fatalf("events inside one debounce window = %v, want exactly one", got)
	}

	mock.Add(motionSettings().Debounce)
	for i := 0; i < 8; i++ {
		mock.Add(100 * time.Millisecond)
		a.step(r)
	}
	if got := drain(r); len(got) == 0 {
		t.Error("expected another event after the debounce window elapsed")
	}
}

func TestApp_Step_LandmarksEveryK(t *testing.T) {
	mock := clock.NewMock()
	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.ThumbsUpLandmarks()})
	cam := capture.NewMockCamera(testdata.Static(64, 48, 1), true)

	a := newTestApp(t, Config{
		Camera:   cam,
		Detector: det,
		Pipeline: PipelineLandmarks,
		Settings: gesture.DefaultSettings(),
		Clock:    mock,
	})
	r := openRun(t, a)

	a.step(r)
	a.step(r)
	if n := det.Calls(); n != 0 {
		t.Fatalf("detector called %d times before the third tick", n)
	}

	a.step(r)
	waitFor(t, "detection to finish", func() bool { return !r.async.Busy() })
	if n := det.Calls(); n != 1 {
		t.Fatalf("detector calls = %d, want 1", n)
	}
	if got := drain(r); len(got) != 0 {
		t.Fatalf("result should be classified on the next tick, got %v", got)
	}

	a.step(r)
	got := drain(r)
	if len(got) != 1 || got[0].Kind != gesture.ThumbsUp || got[0].Source != gesture.SourceLandmarks {
		t.Fatalf("events = %v, want thumbs_up from landmarks", got)
	}

	// The next detection classifies again but falls inside the window.
	for i := 0; i < 3; i++ {
		a.step(r)
	}
	waitFor(t, "second detection", func() bool { return det.Calls() == 2 && !r.async.Busy() })
	a.step(r)
	if got := drain(r); len(got) != 0 {
		t.Errorf("events inside debounce window = %v", got)
	}
}

func TestApp_Step_TransientDetectorFailure(t *testing.T) {
	mock := clock.NewMock()
	det := detector.NewMockDetector()
	det.SetError(errors.New("pipe closed"))
	cam := capture.NewMockCamera(testdata.Static(64, 48, 1), true)

	a := newTestApp(t, Config{
		Camera:   cam,
		Detector: det,
		Pipeline: PipelineLandmarks,
		Settings: gesture.DefaultSettings(),
		Clock:    mock,
	})
	r := openRun(t, a)

	for i := 0; i < 3; i++ {
		a.step(r)
	}
	waitFor(t, "failed detection", func() bool { return !r.async.Busy() })
	a.step(r)
	if r.async.Failures() != 1 {
		t.Errorf("Failures() = %d, want 1", r.async.Failures())
	}
	if got := drain(r); len(got) != 0 {
		t.Fatalf("failed detection produced events %v", got)
	}

	det.SetError(nil)
	det.SetHands([]detector.HandLandmarks{detector.PeaceLandmarks()})
	a.step(r)
	a.step(r)
	waitFor(t, "recovered detection", func() bool { return !r.async.Busy() })
	a.step(r)
	if got := drain(r); len(got) != 1 || got[0].Kind != gesture.Peace {
		t.Errorf("events after recovery = %v, want peace", got)
	}
}

func TestApp_Step_Disabled(t *testing.T) {
	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	cam := capture.NewMockCamera(testdata.Static(64, 48, 1), true)

	a := newTestApp(t, Config{
		Camera:   cam,
		Detector: det,
		Pipeline: PipelineLandmarks,
		Settings: gesture.DefaultSettings(),
		Clock:    clock.NewMock(),
	})
	r := openRun(t, a)

	a.SetEnabled(false)
	for i := 0; i < 6; i++ {
		a.step(r)
	}
	if n := det.Calls(); n != 0 {
		t.Errorf("detector called %d times while disabled", n)
	}
	if got := drain(r); len(got) != 0 {
		t.Errorf("events while disabled = %v", got)
	}
	if a.LatestFrame() == nil {
		t.Error("frames should still be read while disabled")
	}
	if a.Enabled() {
		t.Error("Enabled() = true after SetEnabled(false)")
	}
}

func TestApp_FrameRateSwitching(t *testing.T) {
	mock := clock.NewMock()
	cam := capture.NewMockCamera(testdata.Swipe(320, 120, 250, 20, 40), true)
	a := newTestApp(t, Config{Camera: cam, Settings: motionSettings(), Clock: mock})
	r := openRun(t, a)

	for i := 0; i < 4; i++ {
		mock.Add(100 * time.Millisecond)
		a.step(r)
	}
	if !r.active.Load() || cam.FPS() != ActiveFPS || int(r.fps.Load()) != ActiveFPS {
		t.Fatalf("active=%v fps=%d, want active at %d", r.active.Load(), cam.FPS(), ActiveFPS)
	}

	cam.SetFrames(testdata.Static(320, 120, 1))
	for i := 0; i < 25; i++ {
		mock.Add(300 * time.Millisecond)
		a.step(r)
	}
	if r.active.Load() || cam.FPS() != IdleFPS {
		t.Errorf("active=%v fps=%d, want idle at %d", r.active.Load(), cam.FPS(), IdleFPS)
	}
}

func TestApp_Start_SourceUnavailable(t *testing.T) {
	cam := capture.NewMockCamera(nil, false)
	cam.FailOpen(errors.New("device busy"))
	a := newTestApp(t, Config{Camera: cam, Settings: gesture.DefaultSettings()})

	err := a.Start(context.Background())
	if !errors.Is(err, capture.ErrSourceUnavailable) {
		t.Fatalf("Start() error = %v, want ErrSourceUnavailable", err)
	}
	if a.Running() {
		t.Error("Running() = true after failed start")
	}
}

func TestApp_Start_DetectorInitFailed(t *testing.T) {
	det := detector.NewMockDetector()
	det.FailReady(100, errors.New("model loading"))
	cam := capture.NewMockCamera(testdata.Static(64, 48, 1), true)

	a := newTestApp(t, Config{
		Camera:       cam,
		Detector:     det,
		Pipeline:     PipelineLandmarks,
		Settings:     gesture.DefaultSettings(),
		InitAttempts: 2,
		InitInterval: time.Millisecond,
	})

	err := a.Start(context.Background())
	if !errors.Is(err, detector.ErrDetectorInitFailed) {
		t.Fatalf("Start() error = %v, want ErrDetectorInitFailed", err)
	}
	if det.ReadyCalls() != 2 {
		t.Errorf("ReadyCalls() = %d, want 2", det.ReadyCalls())
	}
	if cam.IsOpen() {
		t.Error("camera should be closed after detector init failure")
	}
	if a.Running() {
		t.Error("Running() = true after failed start")
	}
}

func TestApp_StartStop(t *testing.T) {
	c := &collector{}
	s := motionSettings()
	s.Debounce = 50 * time.Millisecond
	cam := capture.NewMockCamera(testdata.Swipe(320, 120, 250, 20, 40), true)

	a := newTestApp(t, Config{
		Camera:    cam,
		Settings:  s,
		IdleFPS:   100,
		ActiveFPS: 100,
		Sink:      c.sink(),
	})

	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := a.Start(ctx); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if !a.Running() || !cam.IsOpen() {
		t.Fatal("pipeline should be running with the camera open")
	}

	waitFor(t, "two delivered events", func() bool { return len(c.got()) >= 2 })
	st := a.Status()
	if !st.Running || st.Pipeline != PipelineMotion || st.LastEvent == nil {
		t.Errorf("Status() = %+v", st)
	}

	a.Stop()
	if a.Running() || cam.IsOpen() {
		t.Error("Stop() should stop the loop and close the camera")
	}
	for _, ev := range c.got() {
		if ev.Source != gesture.SourceMotion {
			t.Errorf("unexpected source in %+v", ev)
		}
	}

	if err := a.Restart(ctx); err != nil {
		t.Fatalf("Restart() error = %v", err)
	}
	if !a.Running() {
		t.Error("Restart() should leave the pipeline running")
	}
	a.Stop()
	a.Stop()
}

func TestApp_CloseReleasesDetector(t *testing.T) {
	det := detector.NewMockDetector()
	cam := capture.NewMockCamera(testdata.Static(64, 48, 1), true)
	a, err := New(Config{
		Camera:   cam,
		Detector: det,
		Pipeline: PipelineLandmarks,
		Settings: gesture.DefaultSettings(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	a.Stop()
	if det.Closed() {
		t.Fatal("Stop() must not close the shared detector")
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !det.Closed() {
		t.Error("Close() should close the detector")
	}
}

func happyFace() gesture.Face {
	const width, height, lift, eye = 0.12, 0.03, 0.02, 0.025
	cy := 0.7
	return gesture.Face{
		MouthLeft:      r2.Point{X: 0.5 - width/2, Y: cy - lift},
		MouthRight:     r2.Point{X: 0.5 + width/2, Y: cy - lift},
		MouthTop:       r2.Point{X: 0.5, Y: cy - height/2},
		MouthBottom:    r2.Point{X: 0.5, Y: cy + height/2},
		LeftEyeTop:     r2.Point{X: 0.4, Y: 0.4 - eye/2},
		LeftEyeBottom:  r2.Point{X: 0.4, Y: 0.4 + eye/2},
		RightEyeTop:    r2.Point{X: 0.6, Y: 0.4 - eye/2},
		RightEyeBottom: r2.Point{X: 0.6, Y: 0.4 + eye/2},
	}
}

func TestApp_ObserveFace(t *testing.T) {
	c := &collector{}
	cam := capture.NewMockCamera(testdata.Static(64, 48, 1), true)
	a := newTestApp(t, Config{Camera: cam, Settings: gesture.DefaultSettings(), Sink: c.sink()})

	if _, ok := a.ObserveFace(happyFace()); ok {
		t.Fatal("ObserveFace() should ignore faces while stopped")
	}

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ev, ok := a.ObserveFace(happyFace())
	if !ok || ev.Kind != gesture.HappyEmotion || ev.Source != gesture.SourceEmotion {
		t.Fatalf("ObserveFace() = %+v, %v; want happy_emotion", ev, ok)
	}
	if _, ok := a.ObserveFace(happyFace()); ok {
		t.Error("second face inside the emotion window should be suppressed")
	}

	waitFor(t, "emotion event delivery", func() bool { return len(c.got()) == 1 })
}

func TestApp_ApplySettings(t *testing.T) {
	cam := capture.NewMockCamera(testdata.Static(64, 48, 1), true)
	a := newTestApp(t, Config{Camera: cam, Settings: gesture.DefaultSettings()})

	bad := gesture.DefaultSettings()
	bad.SmoothingFactor = 1
	if err := a.ApplySettings(bad); !errors.Is(err, gesture.ErrInvalidSettings) {
		t.Fatalf("ApplySettings(invalid) error = %v", err)
	}

	if err := a.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	next := gesture.DefaultSettings()
	next.Debounce = 500 * time.Millisecond
	if err := a.ApplySettings(next); err != nil {
		t.Fatalf("ApplySettings() error = %v", err)
	}
	if a.Settings() != next {
		t.Errorf("Settings() = %+v, want %+v", a.Settings(), next)
	}

	a.mu.Lock()
	running := a.run.settings
	a.mu.Unlock()
	if running.Debounce != gesture.DefaultSettings().Debounce {
		t.Error("a running pipeline must keep the settings it started with")
	}

	if err := a.Restart(context.Background()); err != nil {
		t.Fatal(err)
	}
	a.mu.Lock()
	running = a.run.settings
	a.mu.Unlock()
	if running.Debounce != next.Debounce {
		t.Error("Restart() should pick up the new settings")
	}
}
