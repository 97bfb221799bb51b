package gesture

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r2"

	"github.com/ayusman/touchless/internal/capture"
	"github.com/ayusman/touchless/internal/detector"
)

const epsilon = 1e-9

func sampleAt(x, y float64) capture.MotionSample {
	return capture.MotionSample{
		Intensity:        60,
		MotionPixelCount: 2000,
		Centroid:         r2.Point{X: x, Y: y},
		HasCentroid:      true,
	}
}

func TestMotionAggregator_SeedsWithoutVelocity(t *testing.T) {
	a := NewMotionAggregator(0.7)
	now := time.Unix(0, 0)

	if _, ok := a.Update(sampleAt(100, 100), now); ok {
		t.Fatal("first centroid should only seed the position")
	}
	pos, seeded := a.Position()
	if !seeded || pos != (r2.Point{X: 100, Y: 100}) {
		t.Errorf("Position() = %v, %v; want (100,100), true", pos, seeded)
	}
}

func TestMotionAggregator_Smoothing(t *testing.T) {
	a := NewMotionAggregator(0.7)
	now := time.Unix(0, 0)
	a.Update(sampleAt(100, 100), now)

	fv, ok := a.Update(sampleAt(300, 100), now.Add(33*time.Millisecond))
	if !ok {
		t.Fatal("expected a feature vector")
	}
	if math.Abs(fv.Velocity.X-60) > epsilon || math.Abs(fv.Velocity.Y) > epsilon {
		t.Errorf("Velocity = %v, want (60, 0)", fv.Velocity)
	}
	if math.Abs(fv.Speed-60) > epsilon {
		t.Errorf("Speed = %v, want 60", fv.Speed)
	}
	if math.Abs(fv.Wrist.X-160) > epsilon {
		t.Errorf("smoothed x = %v, want 160", fv.Wrist.X)
	}
	if fv.Intensity != 60 {
		t.Errorf("Intensity = %v, want 60", fv.Intensity)
	}
}

func TestMotionAggregator_NoCentroidSkips(t *testing.T) {
	a := NewMotionAggregator(0.7)
	now := time.Unix(0, 0)
	a.Update(sampleAt(100, 100), now)

	if _, ok := a.Update(capture.MotionSample{MotionPixelCount: 10}, now); ok {
		t.Error("sample without centroid should not produce features")
	}
	if pos, _ := a.Position(); pos != (r2.Point{X: 100, Y: 100}) {
		t.Errorf("position moved to %v without a centroid", pos)
	}
}

func TestMotionAggregator_TrailWindow(t *testing.T) {
	a := NewMotionAggregator(0.5)
	start := time.Unix(0, 0)

	for i := 0; i < 20; i++ {
		a.Update(sampleAt(float64(i), 0), start.Add(time.Duration(i)*100*time.Millisecond))
	}

	trail := a.Trail()
	if len(trail) != 10 {
		t.Fatalf("len(Trail()) = %d, want 10 points within one second", len(trail))
	}
	last := start.Add(1900 * time.Millisecond)
	for _, p := range trail {
		if last.Sub(p.Time) >= TrailWindow {
			t.Errorf("trail point at %v is older than the window", p.Time)
		}
	}

	a.Reset()
	if len(a.Trail()) != 0 {
		t.Error("Reset() should clear the trail")
	}
	if _, seeded := a.Position(); seeded {
		t.Error("Reset() should clear the seed")
	}
}

func TestPlausible(t *testing.T) {
	tests := []struct {
		name   string
		modify func(h *detector.HandLandmarks)
		ok     bool
	}{
		{"fixture", func(h *detector.HandLandmarks) {}, true},
		{"hand too short", func(h *detector.HandLandmarks) {
			h.Points[detector.MiddleTip] = detector.Point3D{X: 0.5, Y: 0.75}
		}, false},
		{"hand too long", func(h *detector.HandLandmarks) {
			h.Points[detector.Wrist].Y = 0.95
			h.Points[detector.MiddleTip].Y = 0.3
		}, false},
		{"fingers too close", func(h *detector.HandLandmarks) {
			h.Points[detector.PinkyTip] = h.Points[detector.IndexTip]
		}, false},
		{"fingers too far apart", func(h *detector.HandLandmarks) {
			h.Points[detector.PinkyTip].X = 0.05
		}, false},
		{"depth ignored", func(h *detector.HandLandmarks) {
			h.Points[detector.MiddleTip].Z = 5
		}, true},
		{"NaN length", func(h *detector.HandLandmarks) {
			h.Points[detector.MiddleTip].X = math.NaN()
		}, false},
		{"NaN width", func(h *detector.HandLandmarks) {
			h.Points[detector.PinkyTip].Y = math.NaN()
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := detector.OpenPalmLandmarks()
			tt.modify(&h)
			err := Plausible(&h)
			if tt.ok && err != nil {
				t.Errorf("Plausible() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrImplausible) {
				t.Errorf("Plausible() = %v, want ErrImplausible", err)
			}
		})
	}
}

func TestLandmarkAggregator_RejectsNaN(t *testing.T) {
	h := detector.OpenPalmLandmarks()
	h.Points[detector.MiddleTip].X = math.NaN()
	h.Points[detector.PinkyTip].Y = math.NaN()

	if _, err := NewLandmarkAggregator().Features(&h); !errors.Is(err, ErrImplausible) {
		t.Errorf("Features() error = %v, want ErrImplausible", err)
	}
}

func TestLandmarkAggregator_Features(t *testing.T) {
	a := NewLandmarkAggregator()
	h := detector.OpenPalmLandmarks()

	fv, err := a.Features(&h)
	if err != nil {
		t.Fatalf("Features() error = %v", err)
	}
	if fv.ExtendedCount() != 5 {
		t.Errorf("ExtendedCount() = %d, want 5", fv.ExtendedCount())
	}
	if math.Abs(fv.FingerSpread-0.39) > epsilon {
		t.Errorf("FingerSpread = %v, want 0.39", fv.FingerSpread)
	}
	if fv.Speed != 0 {
		t.Errorf("first observation Speed = %v, want 0", fv.Speed)
	}

	moved := h
	for i := range moved.Points {
		moved.Points[i].X += 0.05
	}
	fv, _ = a.Features(&moved)
	if math.Abs(fv.Velocity.X-0.05) > epsilon || math.Abs(fv.Speed-0.05) > epsilon {
		t.Errorf("Velocity = %v Speed = %v, want 0.05 to the right", fv.Velocity, fv.Speed)
	}

	other := detector.OpenPalmLandmarks()
	other.Handedness = "Left"
	fv, _ = a.Features(&other)
	if fv.Speed != 0 {
		t.Error("a different hand should not inherit velocity")
	}
}

func TestLandmarkAggregator_ImplausibleSkipsTracking(t *testing.T) {
	a := NewLandmarkAggregator()
	h := detector.FistLandmarks()
	h.Points[detector.PinkyTip] = h.Points[detector.IndexTip]

	if _, err := a.Features(&h); err == nil {
		t.Fatal("expected implausible error")
	}
	if len(a.prev) != 0 {
		t.Error("rejected hand should not be tracked")
	}
}
