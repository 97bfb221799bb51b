// Package gesture turns per-frame motion samples and hand landmarks into
// debounced gesture events.
package gesture

import (
	"fmt"
	"time"
)

// Kind is a recognized gesture label.
type Kind string

const (
	SwipeLeft    Kind = "swipe_left"
	SwipeRight   Kind = "swipe_right"
	OpenPalm     Kind = "open_palm"
	ThumbsUp     Kind = "thumbs_up"
	PointLeft    Kind = "point_left"
	PointRight   Kind = "point_right"
	Fist         Kind = "fist"
	Peace        Kind = "peace"
	HappyEmotion Kind = "happy_emotion"
)

// AllKinds lists every Kind in declaration order.
var AllKinds = []Kind{
	SwipeLeft, SwipeRight, OpenPalm, ThumbsUp,
	PointLeft, PointRight, Fist, Peace, HappyEmotion,
}

var kindLabels = map[Kind]string{
	SwipeLeft:    "Swipe Left",
	SwipeRight:   "Swipe Right",
	OpenPalm:     "Open Palm",
	ThumbsUp:     "Thumbs Up",
	PointLeft:    "Point Left",
	PointRight:   "Point Right",
	Fist:         "Fist",
	Peace:        "Peace",
	HappyEmotion: "Happy",
}

// ParseKind validates a wire name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kindLabels[k]; !ok {
		return "", fmt.Errorf("unknown gesture kind %q", s)
	}
	return k, nil
}

// Label is the human readable name.
func (k Kind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

// Sources
const (
	SourceMotion    = "motion"
	SourceLandmarks = "landmarks"
	SourceEmotion   = "emotion"
)

// Event is an accepted, timestamped gesture.
type Event struct {
	Kind      Kind      `json:"gesture"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}
