// Package cv implements capture sources and frame encoding on OpenCV.
package cv

import (
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/touchless/internal/capture"
)

// cameraImpl captures frames from a local video device using GoCV.
type cameraImpl struct {
	deviceID int
	vc       *gocv.VideoCapture
	mat      gocv.Mat
	mu       sync.Mutex
	running  bool
	fps      int
}

// NewCamera creates a new Camera with the given device ID.
func NewCamera(deviceID int) capture.Camera {
	return &cameraImpl{
		deviceID: deviceID,
		fps:      capture.DefaultFPS,
	}
}

// Open opens the device at 640x480. Any failure is reported as
// capture.ErrSourceUnavailable; retrying is left to the caller.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("%w: device %d: %v", capture.ErrSourceUnavailable, c.deviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("%w: device %d did not open", capture.ErrSourceUnavailable, c.deviceID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, capture.DefaultWidth)
	vc.Set(gocv.VideoCaptureFrameHeight, capture.DefaultHeight)
	vc.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.vc = vc
	c.mat = gocv.NewMat()
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.vc == nil {
		c.running = false
		return nil
	}

	err := c.vc.Close()
	c.mat.Close()
	c.vc = nil
	c.running = false

	return err
}

// ReadFrame grabs the next frame and copies it out of OpenCV memory.
func (c *cameraImpl) ReadFrame() (*capture.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.vc == nil {
		return nil, capture.ErrCameraNotOpen
	}

	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, capture.ErrNoFrame
	}

	return frameFromMat(c.mat, time.Now()), nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.vc != nil {
		c.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

func frameFromMat(m gocv.Mat, ts time.Time) *capture.Frame {
	return &capture.Frame{
		Pix:       m.ToBytes(),
		Width:     m.Cols(),
		Height:    m.Rows(),
		Channels:  m.Channels(),
		Timestamp: ts,
	}
}
