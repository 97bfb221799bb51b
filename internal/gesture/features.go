package gesture

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r2"

	"github.com/ayusman/touchless/internal/capture"
	"github.com/ayusman/touchless/internal/detector"
)

// Plausible hand proportions in normalized image units.
const (
	MinHandLength = 0.1
	MaxHandLength = 0.6
	MinHandWidth  = 0.05
	MaxHandWidth  = 0.4
)

// TrailWindow is how long smoothed motion positions are kept.
const TrailWindow = time.Second

// ErrImplausible marks a landmark set whose proportions do not look like a hand.
var ErrImplausible = errors.New("implausible hand")

// FeatureVector is the per-tick summary handed to a classifier. Motion
// vectors fill the kinematic fields; landmark vectors also fill the finger
// fields.
type FeatureVector struct {
	Velocity  r2.Point
	Speed     float64
	Intensity float64

	Extended     [detector.NumFingers]bool
	FingerSpread float64
	Wrist        r2.Point

	// IndexOffset is the index fingertip relative to the wrist.
	IndexOffset r2.Point
	// TipBelowBase is set when a fingertip is lower in the image than its MCP.
	TipBelowBase    [detector.NumFingers]bool
	ThumbAboveWrist bool
	ThumbAboveBase  bool
}

// ExtendedCount returns the number of extended fingers.
func (f FeatureVector) ExtendedCount() int {
	n := 0
	for _, e := range f.Extended {
		if e {
			n++
		}
	}
	return n
}

// onlyExtended reports whether exactly the given fingers are extended.
func (f FeatureVector) onlyExtended(fingers ...detector.Finger) bool {
	var want [detector.NumFingers]bool
	for _, fg := range fingers {
		want[fg] = true
	}
	return f.Extended == want
}

// TrailPoint is one smoothed position in the motion trail.
type TrailPoint struct {
	Pos  r2.Point
	Time time.Time
}

// MotionAggregator smooths motion centroids into a hand position and
// derives its velocity between ticks.
type MotionAggregator struct {
	smoothing float64
	pos       r2.Point
	seeded    bool
	trail     []TrailPoint
}

// NewMotionAggregator creates an aggregator with the given EMA weight.
func NewMotionAggregator(smoothing float64) *MotionAggregator {
	return &MotionAggregator{smoothing: smoothing}
}

// Update folds a sample into the smoothed position. No feature vector is
// produced for samples without a centroid or for the first centroid, which
// only seeds the position.
func (a *MotionAggregator) Update(s capture.MotionSample, now time.Time) (FeatureVector, bool) {
	if !s.HasCentroid {
		return FeatureVector{}, false
	}

	if !a.seeded {
		a.pos = s.Centroid
		a.seeded = true
		a.push(now)
		return FeatureVector{}, false
	}

	smoothed := a.pos.Mul(a.smoothing).Add(s.Centroid.Mul(1 - a.smoothing))
	vel := smoothed.Sub(a.pos)
	a.pos = smoothed
	a.push(now)

	return FeatureVector{
		Velocity:  vel,
		Speed:     vel.Norm(),
		Intensity: s.Intensity,
		Wrist:     smoothed,
	}, true
}

func (a *MotionAggregator) push(now time.Time) {
	a.trail = append(a.trail, TrailPoint{Pos: a.pos, Time: now})
	cut := 0
	for cut < len(a.trail) && now.Sub(a.trail[cut].Time) >= TrailWindow {
		cut++
	}
	if cut > 0 {
		a.trail = append(a.trail[:0], a.trail[cut:]...)
	}
}

// Position returns the smoothed position and whether one has been seeded.
func (a *MotionAggregator) Position() (r2.Point, bool) {
	return a.pos, a.seeded
}

// Trail returns a copy of the positions recorded in the last TrailWindow.
func (a *MotionAggregator) Trail() []TrailPoint {
	out := make([]TrailPoint, len(a.trail))
	copy(out, a.trail)
	return out
}

// Reset forgets the smoothed position and trail.
func (a *MotionAggregator) Reset() {
	a.pos = r2.Point{}
	a.seeded = false
	a.trail = a.trail[:0]
}

// Plausible checks hand proportions: wrist to middle fingertip must lie in
// [MinHandLength, MaxHandLength] and index to pinky tip in
// [MinHandWidth, MaxHandWidth]. NaN coordinates fail both checks.
func Plausible(h *detector.HandLandmarks) error {
	length := h.At(detector.Wrist).Sub(h.At(detector.MiddleTip)).Norm()
	if !(length >= MinHandLength && length <= MaxHandLength) {
		return fmt.Errorf("%w: wrist to middle tip %.3f", ErrImplausible, length)
	}
	width := h.At(detector.IndexTip).Sub(h.At(detector.PinkyTip)).Norm()
	if !(width >= MinHandWidth && width <= MaxHandWidth) {
		return fmt.Errorf("%w: index to pinky tip %.3f", ErrImplausible, width)
	}
	return nil
}

// LandmarkAggregator derives finger features from hand landmarks. Wrist
// velocity is tracked per handedness label.
type LandmarkAggregator struct {
	prev map[string]r2.Point
}

// NewLandmarkAggregator creates an empty aggregator.
func NewLandmarkAggregator() *LandmarkAggregator {
	return &LandmarkAggregator{prev: make(map[string]r2.Point)}
}

// Features returns the feature vector for h, or an error wrapping
// ErrImplausible when the set fails the plausibility check.
func (a *LandmarkAggregator) Features(h *detector.HandLandmarks) (FeatureVector, error) {
	if err := Plausible(h); err != nil {
		return FeatureVector{}, err
	}

	wrist := h.At(detector.Wrist)
	fv := FeatureVector{Wrist: wrist}

	if p, ok := a.prev[h.Handedness]; ok {
		fv.Velocity = wrist.Sub(p)
		fv.Speed = fv.Velocity.Norm()
	}
	a.prev[h.Handedness] = wrist

	minX, maxX := math.Inf(1), math.Inf(-1)
	for f := detector.Finger(0); f < detector.NumFingers; f++ {
		c := detector.ChainOf(f)
		tip, joint, base := h.At(c.Tip), h.At(c.Joint), h.At(c.Base)

		fv.Extended[f] = tip.Y < joint.Y && joint.Y < base.Y
		fv.TipBelowBase[f] = tip.Y > base.Y

		minX = math.Min(minX, tip.X)
		maxX = math.Max(maxX, tip.X)
	}
	fv.FingerSpread = maxX - minX

	fv.IndexOffset = h.Tip(detector.Index).Sub(wrist)

	thumbTip := h.Tip(detector.Thumb)
	fv.ThumbAboveWrist = thumbTip.Y < wrist.Y
	fv.ThumbAboveBase = thumbTip.Y < h.At(detector.ThumbMCP).Y

	return fv, nil
}

// Reset forgets tracked wrist positions.
func (a *LandmarkAggregator) Reset() {
	clear(a.prev)
}
