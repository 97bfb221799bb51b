package detector

import (
	"context"
	"errors"

	"github.com/ayusman/touchless/internal/capture"
)

var (
	// ErrDetectorInitFailed is the terminal error returned when a detector
	// does not become ready within its retry budget.
	ErrDetectorInitFailed = errors.New("detector initialization failed")

	// ErrInvalidLandmarks is returned for point sets that are not exactly
	// 21 points.
	ErrInvalidLandmarks = errors.New("invalid landmark set")
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *capture.Frame) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Readier is implemented by detectors that need a warm-up before the
// first Detect call.
type Readier interface {
	Ready(ctx context.Context) error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int `yaml:"max_hands"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `yaml:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`

	// ScriptPath overrides the MediaPipe service script lookup.
	ScriptPath string `yaml:"script_path"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
