package gesture

import (
	"errors"
	"time"

	"github.com/ayusman/touchless/internal/capture"
	"github.com/ayusman/touchless/internal/detector"
	"github.com/ayusman/touchless/internal/logging"
)

// Input is what one tick hands to a Strategy.
type Input struct {
	// Frame is the frame read this tick, nil if the source had none.
	Frame *capture.Frame
	// Detection is a landmark result that completed since the last tick.
	Detection *detector.Result
	Now       time.Time
}

// Strategy is one way of turning ticks into classified gestures. Pipelines
// differ in extraction and classification; debouncing is shared.
type Strategy interface {
	// Name is used as the event source.
	Name() string
	// Step consumes one tick and returns a classified gesture, if any.
	Step(in Input) (Kind, bool)
	// Reset drops all history.
	Reset()
}

// MotionStrategy classifies hand motion found by frame differencing.
type MotionStrategy struct {
	settings  Settings
	extractor *capture.MotionExtractor
	agg       *MotionAggregator
}

// NewMotionStrategy builds the frame-differencing pipeline.
func NewMotionStrategy(s Settings) *MotionStrategy {
	return &MotionStrategy{
		settings:  s,
		extractor: capture.NewMotionExtractor(s.MotionConfig()),
		agg:       NewMotionAggregator(s.SmoothingFactor),
	}
}

func (m *MotionStrategy) Name() string { return SourceMotion }

func (m *MotionStrategy) Step(in Input) (Kind, bool) {
	if in.Frame == nil {
		return "", false
	}
	sample, ok := m.extractor.Extract(in.Frame)
	if !ok {
		return "", false
	}
	fv, ok := m.agg.Update(sample, in.Now)
	if !ok {
		return "", false
	}
	return ClassifyMotion(fv, m.settings)
}

func (m *MotionStrategy) Reset() {
	m.extractor.Reset()
	m.agg.Reset()
}

// Level is the smoothed motion level in [0,100].
func (m *MotionStrategy) Level() float64 { return m.extractor.Level() }

// History returns recent motion intensities.
func (m *MotionStrategy) History() []float64 { return m.extractor.History() }

// Trail returns the smoothed hand positions of the last second.
func (m *MotionStrategy) Trail() []TrailPoint { return m.agg.Trail() }

// LandmarkStrategy classifies hand poses from detector results. Each
// result is classified once; the first hand producing a gesture wins.
type LandmarkStrategy struct {
	agg *LandmarkAggregator
	log logging.Logger
}

// NewLandmarkStrategy builds the landmark pipeline.
func NewLandmarkStrategy(log logging.Logger) *LandmarkStrategy {
	if log == nil {
		log = logging.Nop()
	}
	return &LandmarkStrategy{
		agg: NewLandmarkAggregator(),
		log: log,
	}
}

func (l *LandmarkStrategy) Name() string { return SourceLandmarks }

func (l *LandmarkStrategy) Step(in Input) (Kind, bool) {
	if in.Detection == nil {
		return "", false
	}
	return l.Classify(in.Detection.Hands)
}

// Classify runs the landmark pipeline over one set of detected hands.
func (l *LandmarkStrategy) Classify(hands []detector.HandLandmarks) (Kind, bool) {
	for i := range hands {
		fv, err := l.agg.Features(&hands[i])
		if err != nil {
			if errors.Is(err, ErrImplausible) {
				l.log.Debugf("hand %d rejected: %v", i, err)
			}
			continue
		}
		if k, ok := ClassifyHand(fv); ok {
			return k, true
		}
	}
	return "", false
}

func (l *LandmarkStrategy) Reset() {
	l.agg.Reset()
}
