package gesture

import (
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
)

// Emotion is a facial expression label.
type Emotion string

const (
	Happy     Emotion = "happy"
	Excited   Emotion = "excited"
	Surprised Emotion = "surprised"
	Sleepy    Emotion = "sleepy"
)

// Face holds the facial landmarks the emotion rules need, in normalized
// image coordinates.
type Face struct {
	MouthLeft   r2.Point `json:"mouth_left"`
	MouthRight  r2.Point `json:"mouth_right"`
	MouthTop    r2.Point `json:"mouth_top"`
	MouthBottom r2.Point `json:"mouth_bottom"`

	LeftEyeTop     r2.Point `json:"left_eye_top"`
	LeftEyeBottom  r2.Point `json:"left_eye_bottom"`
	RightEyeTop    r2.Point `json:"right_eye_top"`
	RightEyeBottom r2.Point `json:"right_eye_bottom"`
}

// FaceFeatures summarizes a face for classification.
type FaceFeatures struct {
	MouthWidth  float64
	MouthHeight float64
	// MouthRatio is width over height.
	MouthRatio float64
	// CornerLift is how far the mouth corners sit above the mouth center.
	CornerLift float64
	// EyeOpening is the mean vertical eyelid gap.
	EyeOpening float64
}

const (
	minMouthWidth = 0.02
	maxMouthWidth = 0.4

	liftSmile       = 0.01
	liftNeutral     = 0.005
	wideSmileRatio  = 2.5
	openMouthHeight = 0.5
	eyesWide        = 0.035
	eyesClosing     = 0.012
)

// ExtractFaceFeatures measures f. Faces with a mouth narrower or wider than
// a real face could produce are rejected.
func ExtractFaceFeatures(f Face) (FaceFeatures, error) {
	w := f.MouthRight.Sub(f.MouthLeft).Norm()
	if w < minMouthWidth || w > maxMouthWidth {
		return FaceFeatures{}, fmt.Errorf("%w: mouth width %.3f", ErrImplausible, w)
	}
	h := math.Abs(f.MouthBottom.Y - f.MouthTop.Y)

	ratio := math.Inf(1)
	if h > 0 {
		ratio = w / h
	}

	centerY := (f.MouthTop.Y + f.MouthBottom.Y) / 2
	cornersY := (f.MouthLeft.Y + f.MouthRight.Y) / 2

	eyes := (math.Abs(f.LeftEyeBottom.Y-f.LeftEyeTop.Y) + math.Abs(f.RightEyeBottom.Y-f.RightEyeTop.Y)) / 2

	return FaceFeatures{
		MouthWidth:  w,
		MouthHeight: h,
		MouthRatio:  ratio,
		CornerLift:  centerY - cornersY,
		EyeOpening:  eyes,
	}, nil
}

// ClassifyEmotion maps face features to an emotion, first match wins.
func ClassifyEmotion(ff FaceFeatures) (Emotion, bool) {
	switch {
	case ff.MouthHeight > openMouthHeight*ff.MouthWidth && ff.EyeOpening > eyesWide && ff.CornerLift < liftNeutral:
		return Surprised, true
	case ff.CornerLift > liftSmile && ff.MouthRatio < wideSmileRatio:
		return Excited, true
	case ff.CornerLift > liftSmile:
		return Happy, true
	case ff.EyeOpening < eyesClosing:
		return Sleepy, true
	}
	return "", false
}

// Gesture returns the gesture an emotion stands for, if any.
func (e Emotion) Gesture() (Kind, bool) {
	switch e {
	case Happy, Excited:
		return HappyEmotion, true
	}
	return "", false
}

// EmotionReading is an accepted emotion.
type EmotionReading struct {
	Emotion   Emotion   `json:"emotion"`
	Timestamp time.Time `json:"timestamp"`
}

// EmotionClassifier classifies faces and debounces the result on its own
// window, independent of hand gestures.
type EmotionClassifier struct {
	coord *Coordinator
}

// NewEmotionClassifier creates a classifier with the given debounce window.
func NewEmotionClassifier(interval time.Duration, clk clock.Clock) *EmotionClassifier {
	return &EmotionClassifier{coord: NewCoordinator(interval, clk)}
}

// Observe classifies one face. Implausible or neutral faces, and faces
// inside the debounce window, yield false.
func (c *EmotionClassifier) Observe(f Face) (EmotionReading, bool) {
	ff, err := ExtractFaceFeatures(f)
	if err != nil {
		return EmotionReading{}, false
	}
	e, ok := ClassifyEmotion(ff)
	if !ok {
		return EmotionReading{}, false
	}
	at, ok := c.coord.Accept()
	if !ok {
		return EmotionReading{}, false
	}
	return EmotionReading{Emotion: e, Timestamp: at}, true
}

// Reset clears the debounce window.
func (c *EmotionClassifier) Reset() {
	c.coord.Reset()
}
