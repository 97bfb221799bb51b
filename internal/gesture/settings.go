package gesture

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/touchless/internal/capture"
)

// ErrInvalidSettings is returned by Settings.Validate.
var ErrInvalidSettings = errors.New("invalid detection settings")

// Settings tunes both pipelines. It is passed by value at construction and
// never changes while a pipeline runs.
type Settings struct {
	// MotionThreshold is the per-pixel averaged channel delta that marks motion.
	MotionThreshold float64 `json:"motion_threshold" yaml:"motion_threshold"`
	// GestureThreshold is the minimum smoothed velocity component, in pixels
	// per tick, for a motion gesture.
	GestureThreshold float64 `json:"gesture_threshold" yaml:"gesture_threshold"`
	// Debounce is the minimum gap between accepted events of one pipeline.
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
	// MinMotionPixels must be exceeded before a centroid is computed.
	MinMotionPixels int `json:"min_motion_pixels" yaml:"min_motion_pixels"`
	// SmoothingFactor is the EMA weight of the previous position, in [0,1).
	SmoothingFactor float64 `json:"smoothing_factor" yaml:"smoothing_factor"`
	// SampleStride samples every Nth pixel during differencing.
	SampleStride int `json:"sample_stride" yaml:"sample_stride"`
	// DetectEvery submits a frame to the landmark detector every Nth tick.
	DetectEvery int `json:"detect_every" yaml:"detect_every"`
	// EmotionDebounce is the independent window for emotion events.
	EmotionDebounce time.Duration `json:"emotion_debounce" yaml:"emotion_debounce"`
}

// DefaultSettings returns the tuned defaults.
func DefaultSettings() Settings {
	return Settings{
		MotionThreshold:  25,
		GestureThreshold: 40,
		Debounce:         1200 * time.Millisecond,
		MinMotionPixels:  1500,
		SmoothingFactor:  0.7,
		SampleStride:     2,
		DetectEvery:      3,
		EmotionDebounce:  2 * time.Second,
	}
}

// Validate rejects settings no pipeline can run with.
func (s Settings) Validate() error {
	var errs []error
	if s.MotionThreshold < 0 {
		errs = append(errs, fmt.Errorf("motion_threshold %v is negative", s.MotionThreshold))
	}
	if s.GestureThreshold < 0 {
		errs = append(errs, fmt.Errorf("gesture_threshold %v is negative", s.GestureThreshold))
	}
	if s.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("debounce %v must be positive", s.Debounce))
	}
	if s.MinMotionPixels < 0 {
		errs = append(errs, fmt.Errorf("min_motion_pixels %d is negative", s.MinMotionPixels))
	}
	if s.SmoothingFactor < 0 || s.SmoothingFactor >= 1 {
		errs = append(errs, fmt.Errorf("smoothing_factor %v outside [0,1)", s.SmoothingFactor))
	}
	if s.SampleStride < 1 {
		errs = append(errs, fmt.Errorf("sample_stride %d must be at least 1", s.SampleStride))
	}
	if s.DetectEvery < 1 {
		errs = append(errs, fmt.Errorf("detect_every %d must be at least 1", s.DetectEvery))
	}
	if s.EmotionDebounce <= 0 {
		errs = append(errs, fmt.Errorf("emotion_debounce %v must be positive", s.EmotionDebounce))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

// MotionConfig derives the frame-differencing config.
func (s Settings) MotionConfig() capture.MotionConfig {
	return capture.MotionConfig{
		Threshold: s.MotionThreshold,
		MinPixels: s.MinMotionPixels,
		Stride:    s.SampleStride,
		Smoothing: s.SmoothingFactor,
	}
}
