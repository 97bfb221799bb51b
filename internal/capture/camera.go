// Package capture provides frame sources and frame-differencing motion
// extraction for the gesture pipeline. OpenCV-backed devices and encoders
// live in the cv subpackage.
package capture

import "errors"

// Default camera settings
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrSourceUnavailable is returned when the frame source cannot be opened,
	// for example because permission was denied or no device exists.
	ErrSourceUnavailable = errors.New("frame source unavailable")

	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrNoFrame is returned when the source is open but produced no frame this tick.
	ErrNoFrame = errors.New("no frame available")
)

// Camera is a pull-based frame source.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*Frame, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Encoder turns a frame into compressed image bytes.
type Encoder func(*Frame) ([]byte, error)
