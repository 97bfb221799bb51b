package gesture

import (
	"math"

	"github.com/ayusman/touchless/internal/detector"
)

// Fixed classifier limits.
const (
	swipeMaxVertical = 25
	swipeMinSpeed    = 5
	palmMinIntensity = 50
	thumbMinIntense  = 35
	raiseMinSpeed    = 4

	pointDominance = 0.7
	pointMinOffset = 0.1
	palmMinSpread  = 0.03
	fistMaxSpread  = 0.08
)

// ClassifyMotion maps a motion feature vector to a gesture. Rules are tried
// in order and the first match wins; no match is the common case.
func ClassifyMotion(fv FeatureVector, s Settings) (Kind, bool) {
	vx, vy := fv.Velocity.X, fv.Velocity.Y

	switch {
	case vx < -s.GestureThreshold && math.Abs(vy) < swipeMaxVertical && fv.Speed > swipeMinSpeed:
		return SwipeLeft, true
	case vx > s.GestureThreshold && math.Abs(vy) < swipeMaxVertical && fv.Speed > swipeMinSpeed:
		return SwipeRight, true
	case vy < -s.GestureThreshold && fv.Intensity > palmMinIntensity && fv.Speed > raiseMinSpeed:
		return OpenPalm, true
	case vy > s.GestureThreshold && fv.Intensity > thumbMinIntense && fv.Speed > raiseMinSpeed:
		return ThumbsUp, true
	}
	return "", false
}

// ClassifyHand maps a landmark feature vector to a gesture, first match wins.
func ClassifyHand(fv FeatureVector) (Kind, bool) {
	fingersDown := fv.TipBelowBase[detector.Index] && fv.TipBelowBase[detector.Middle] &&
		fv.TipBelowBase[detector.Ring] && fv.TipBelowBase[detector.Pinky]

	if fv.onlyExtended(detector.Index) {
		dx, dy := fv.IndexOffset.X, fv.IndexOffset.Y
		if math.Abs(dx) > pointDominance*math.Abs(dy) {
			if dx < -pointMinOffset {
				return PointLeft, true
			}
			if dx > pointMinOffset {
				return PointRight, true
			}
		}
	}

	if fv.ExtendedCount() == int(detector.NumFingers) && fv.FingerSpread > palmMinSpread {
		return OpenPalm, true
	}

	if fv.onlyExtended(detector.Thumb) && fv.ThumbAboveWrist && fv.ThumbAboveBase && fingersDown {
		return ThumbsUp, true
	}

	if fv.ExtendedCount() == 0 && fingersDown && fv.FingerSpread < fistMaxSpread {
		return Fist, true
	}

	if fv.onlyExtended(detector.Index, detector.Middle) &&
		fv.TipBelowBase[detector.Ring] && fv.TipBelowBase[detector.Pinky] {
		return Peace, true
	}

	return "", false
}
