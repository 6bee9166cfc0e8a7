// Package gesture turns hand landmarks into finger-count observations.
package gesture

import "time"

// NumLandmarks is the number of keypoints per tracked hand.
const NumLandmarks = 21

// Landmark indices (MediaPipe hand topology).
const (
	Wrist = 0

	ThumbIP  = 3
	ThumbTip = 4

	IndexPIP = 6
	IndexTip = 8

	MiddlePIP = 10
	MiddleTip = 12

	RingPIP = 14
	RingTip = 16

	PinkyPIP = 18
	PinkyTip = 20
)

// Point is a normalized 2D keypoint. On-screen coordinates lie in [0,1];
// the model may report points slightly outside the frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// InFrame reports whether the point lies inside [0,1] on both axes.
func (p Point) InFrame() bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

// Hand is one tracked hand.
type Hand struct {
	Landmarks [NumLandmarks]Point `json:"landmarks"`
}

// Frame is one landmark observation from the source. Hands are ordered
// by priority; only the first is classified.
type Frame struct {
	Hands     []Hand    `json:"hands"`
	Timestamp time.Time `json:"timestamp"`
}

// Primary returns the highest-priority hand, if any.
func (f Frame) Primary() (Hand, bool) {
	if len(f.Hands) == 0 {
		return Hand{}, false
	}
	return f.Hands[0], true
}
