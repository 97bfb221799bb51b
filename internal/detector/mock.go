package detector

import (
	"context"
	"sync"

	"github.com/ayusman/touchless/internal/capture"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu         sync.Mutex
	hands      []HandLandmarks
	err        error
	gate       chan struct{}
	calls      int
	readyFails int
	readyErr   error
	readyCalls int
	closed     bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Block makes Detect wait until gate is closed or receives.
func (m *MockDetector) Block(gate chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = gate
}

// FailReady makes the first n Ready calls fail with err.
func (m *MockDetector) FailReady(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readyFails = n
	m.readyErr = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *capture.Frame) ([]HandLandmarks, error) {
	m.mu.Lock()
	m.calls++
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]HandLandmarks, len(m.hands))
	copy(out, m.hands)
	return out, nil
}

// Ready fails for the configured number of calls, then succeeds.
func (m *MockDetector) Ready(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readyCalls++
	if m.readyCalls <= m.readyFails {
		return m.readyErr
	}
	return ctx.Err()
}

// Calls returns the number of Detect invocations.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ReadyCalls returns the number of Ready invocations.
func (m *MockDetector) ReadyCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readyCalls
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func hand(pts [NumLandmarks][2]float64) HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}
	for i, p := range pts {
		h.Points[i] = Point3D{X: p[0], Y: p[1]}
	}
	return h
}

// ThumbsUpLandmarks returns a hand with the thumb raised and the other four
// fingers curled below their knuckles.
func ThumbsUpLandmarks() HandLandmarks {
	return hand([NumLandmarks][2]float64{
		Wrist:    {0.5, 0.8},
		ThumbCMC: {0.55, 0.75}, ThumbMCP: {0.58, 0.65}, ThumbIP: {0.58, 0.50}, ThumbTip: {0.58, 0.35},
		IndexMCP: {0.55, 0.70}, IndexPIP: {0.55, 0.68}, IndexDIP: {0.52, 0.70}, IndexTip: {0.50, 0.72},
		MiddleMCP: {0.50, 0.68}, MiddlePIP: {0.50, 0.66}, MiddleDIP: {0.47, 0.68}, MiddleTip: {0.45, 0.70},
		RingMCP: {0.45, 0.70}, RingPIP: {0.45, 0.68}, RingDIP: {0.42, 0.70}, RingTip: {0.40, 0.72},
		PinkyMCP: {0.40, 0.72}, PinkyPIP: {0.40, 0.70}, PinkyDIP: {0.37, 0.72}, PinkyTip: {0.35, 0.74},
	})
}

// OpenPalmLandmarks returns a hand with all five fingers straight and spread.
func OpenPalmLandmarks() HandLandmarks {
	return hand([NumLandmarks][2]float64{
		Wrist:    {0.5, 0.8},
		ThumbCMC: {0.55, 0.75}, ThumbMCP: {0.62, 0.70}, ThumbIP: {0.68, 0.65}, ThumbTip: {0.73, 0.60},
		IndexMCP: {0.55, 0.68}, IndexPIP: {0.57, 0.55}, IndexDIP: {0.58, 0.45}, IndexTip: {0.58, 0.35},
		MiddleMCP: {0.50, 0.66}, MiddlePIP: {0.50, 0.52}, MiddleDIP: {0.50, 0.40}, MiddleTip: {0.50, 0.28},
		RingMCP: {0.45, 0.68}, RingPIP: {0.43, 0.55}, RingDIP: {0.42, 0.45}, RingTip: {0.42, 0.35},
		PinkyMCP: {0.40, 0.70}, PinkyPIP: {0.37, 0.60}, PinkyDIP: {0.35, 0.50}, PinkyTip: {0.34, 0.42},
	})
}

// FistLandmarks returns a closed hand with every tip folded under its knuckle.
func FistLandmarks() HandLandmarks {
	return hand([NumLandmarks][2]float64{
		Wrist:    {0.5, 0.8},
		ThumbCMC: {0.57, 0.74}, ThumbMCP: {0.60, 0.68}, ThumbIP: {0.57, 0.64}, ThumbTip: {0.52, 0.66},
		IndexMCP: {0.56, 0.58}, IndexPIP: {0.56, 0.54}, IndexDIP: {0.55, 0.58}, IndexTip: {0.53, 0.62},
		MiddleMCP: {0.51, 0.57}, MiddlePIP: {0.51, 0.53}, MiddleDIP: {0.51, 0.58}, MiddleTip: {0.51, 0.63},
		RingMCP: {0.46, 0.58}, RingPIP: {0.46, 0.55}, RingDIP: {0.47, 0.59}, RingTip: {0.49, 0.64},
		PinkyMCP: {0.42, 0.61}, PinkyPIP: {0.42, 0.58}, PinkyDIP: {0.44, 0.62}, PinkyTip: {0.47, 0.66},
	})
}

// PeaceLandmarks returns a hand with index and middle raised in a V.
func PeaceLandmarks() HandLandmarks {
	return hand([NumLandmarks][2]float64{
		Wrist:    {0.5, 0.8},
		ThumbCMC: {0.56, 0.75}, ThumbMCP: {0.59, 0.70}, ThumbIP: {0.56, 0.66}, ThumbTip: {0.52, 0.67},
		IndexMCP: {0.55, 0.66}, IndexPIP: {0.565, 0.53}, IndexDIP: {0.575, 0.45}, IndexTip: {0.58, 0.38},
		MiddleMCP: {0.50, 0.65}, MiddlePIP: {0.49, 0.50}, MiddleDIP: {0.48, 0.41}, MiddleTip: {0.47, 0.33},
		RingMCP: {0.45, 0.67}, RingPIP: {0.45, 0.63}, RingDIP: {0.46, 0.67}, RingTip: {0.47, 0.70},
		PinkyMCP: {0.41, 0.69}, PinkyPIP: {0.42, 0.66}, PinkyDIP: {0.43, 0.69}, PinkyTip: {0.45, 0.71},
	})
}

// PointLeftLandmarks returns a hand with only the index finger extended,
// pointing toward smaller x.
func PointLeftLandmarks() HandLandmarks {
	return hand([NumLandmarks][2]float64{
		Wrist:    {0.5, 0.5},
		ThumbCMC: {0.47, 0.47}, ThumbMCP: {0.44, 0.47}, ThumbIP: {0.41, 0.49}, ThumbTip: {0.39, 0.51},
		IndexMCP: {0.42, 0.56}, IndexPIP: {0.37, 0.545}, IndexDIP: {0.33, 0.53}, IndexTip: {0.30, 0.52},
		MiddleMCP: {0.43, 0.60}, MiddlePIP: {0.39, 0.61}, MiddleDIP: {0.40, 0.64}, MiddleTip: {0.42, 0.64},
		RingMCP: {0.44, 0.63}, RingPIP: {0.40, 0.65}, RingDIP: {0.41, 0.68}, RingTip: {0.43, 0.67},
		PinkyMCP: {0.45, 0.66}, PinkyPIP: {0.42, 0.68}, PinkyDIP: {0.43, 0.70}, PinkyTip: {0.45, 0.70},
	})
}

// PointRightLandmarks is PointLeftLandmarks mirrored.
func PointRightLandmarks() HandLandmarks {
	return PointLeftLandmarks().MirrorX()
}
