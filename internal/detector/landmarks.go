// Package detector turns frames into hand landmark sets and delivers them
// to the tick loop through a single-slot result.
package detector

import (
	"fmt"

	"github.com/golang/geo/r2"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Finger identifies one of the five digits.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers
)

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

func (f Finger) String() string {
	if f < 0 || f >= NumFingers {
		return fmt.Sprintf("finger(%d)", int(f))
	}
	return fingerNames[f]
}

// Chain holds the base, middle and tip joint indices used to decide
// whether a finger is straightened. For the thumb these are MCP, IP and TIP.
type Chain struct {
	Base, Joint, Tip int
}

var chains = [NumFingers]Chain{
	Thumb:  {ThumbMCP, ThumbIP, ThumbTip},
	Index:  {IndexMCP, IndexPIP, IndexTip},
	Middle: {MiddleMCP, MiddlePIP, MiddleTip},
	Ring:   {RingMCP, RingPIP, RingTip},
	Pinky:  {PinkyMCP, PinkyPIP, PinkyTip},
}

// ChainOf returns the joint chain for a finger.
func ChainOf(f Finger) Chain {
	return chains[f]
}

// Point3D represents a 3D point in space with x, y, z coordinates.
// X and Y are normalized to [0,1] image space; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// XY drops the depth component.
func (p Point3D) XY() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// FromPoints builds a landmark set from a raw detector result. Anything other
// than exactly 21 points is rejected with ErrInvalidLandmarks.
func FromPoints(points []Point3D, handedness string, score float64) (HandLandmarks, error) {
	if len(points) != NumLandmarks {
		return HandLandmarks{}, fmt.Errorf("%w: got %d points, want %d", ErrInvalidLandmarks, len(points), NumLandmarks)
	}
	h := HandLandmarks{Handedness: handedness, Score: score}
	copy(h.Points[:], points)
	return h, nil
}

// At returns the 2D position of landmark i.
func (h *HandLandmarks) At(i int) r2.Point {
	return h.Points[i].XY()
}

// Tip returns the 2D fingertip position of f.
func (h *HandLandmarks) Tip(f Finger) r2.Point {
	return h.At(chains[f].Tip)
}

// MirrorX flips the set horizontally, as for a selfie-view camera.
func (h HandLandmarks) MirrorX() HandLandmarks {
	for i := range h.Points {
		h.Points[i].X = 1 - h.Points[i].X
	}
	switch h.Handedness {
	case "Left":
		h.Handedness = "Right"
	case "Right":
		h.Handedness = "Left"
	}
	return h
}
