package gesture

import (
	"github.com/teslashibe/go-gesture-home/pkg/debug"
)

// BaseConfidence is the visibility score of a fully in-frame hand.
// Confidence is a visibility proxy, not a model probability; sensitivity
// thresholds are tuned against it.
const BaseConfidence = 0.9

// Confidence bounds.
const (
	MinConfidence = 0.1
	MaxConfidence = 1.0
)

// keyPoints are checked for visibility: wrist plus the five fingertips.
var keyPoints = [...]int{Wrist, ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// fingers pairs each non-thumb tip with its middle joint.
var fingers = [...][2]int{
	{IndexTip, IndexPIP},
	{MiddleTip, MiddlePIP},
	{RingTip, RingPIP},
	{PinkyTip, PinkyPIP},
}

// Classifier converts landmark frames to observations. It is stateless.
type Classifier struct {
	Base float64 // Base confidence before visibility scaling
}

// NewClassifier creates a classifier with the default base confidence.
func NewClassifier() *Classifier {
	return &Classifier{Base: BaseConfidence}
}

// Classify returns the observation for the first hand in the frame.
// ok is false when no hand is present.
func (c *Classifier) Classify(f Frame) (obs Observation, ok bool) {
	hand, ok := f.Primary()
	if !ok {
		return Observation{}, false
	}

	base := c.Base
	if base <= 0 {
		base = BaseConfidence
	}

	obs = Observation{
		FingerCount: CountFingers(hand),
		Confidence:  scaledConfidence(hand, base),
		Timestamp:   f.Timestamp,
	}
	debug.FrameLog("✋ fingers=%d conf=%.2f hands=%d\n", obs.FingerCount, obs.Confidence, len(f.Hands))
	return obs, true
}

// CountFingers returns the number of extended fingers, clamped to [0,4].
//
// The thumb is extended when its tip is left of the IP joint in raw image x.
// Handedness is not considered, so a mirrored feed inverts the thumb test.
func CountFingers(h Hand) int {
	lm := h.Landmarks
	count := 0

	if lm[ThumbTip].X < lm[ThumbIP].X {
		count++
	}

	for _, f := range fingers {
		if lm[f[0]].Y < lm[f[1]].Y {
			count++
		}
	}

	if count > MaxFingers {
		count = MaxFingers
	}
	return count
}

// VisibilityConfidence scores how much of the hand is inside the frame.
func VisibilityConfidence(h Hand) float64 {
	return scaledConfidence(h, BaseConfidence)
}

func scaledConfidence(h Hand, base float64) float64 {
	visible := 0
	for _, idx := range keyPoints {
		if h.Landmarks[idx].InFrame() {
			visible++
		}
	}
	score := base * float64(visible) / float64(len(keyPoints))
	return clamp(score, MinConfidence, MaxConfidence)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
