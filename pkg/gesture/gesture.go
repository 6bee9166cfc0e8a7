package gesture

import (
	"fmt"
	"strings"
	"time"
)

// MaxFingers is the highest finger count, one per device slot.
const MaxFingers = 4

// Observation is the per-frame classifier output.
type Observation struct {
	FingerCount int       `json:"fingerCount"`
	Confidence  float64   `json:"confidence"`
	Timestamp   time.Time `json:"timestamp"`
}

// Qualifies reports whether the observation can drive a device: a finger
// count in [1,4] with confidence at or above sensitivity.
func (o Observation) Qualifies(sensitivity float64) bool {
	return o.FingerCount >= 1 && o.FingerCount <= MaxFingers && o.Confidence >= sensitivity
}

// Named is a macro gesture identifier.
type Named string

// Recognized macro gestures. Aliases map onto the same action.
const (
	WaveRight Named = "wave_right"
	AllOn     Named = "all_on"
	WaveLeft  Named = "wave_left"
	AllOff    Named = "all_off"
	Fist      Named = "fist"
	Emergency Named = "emergency"
)

// KnownNamed lists every recognized macro gesture.
var KnownNamed = []Named{WaveRight, AllOn, WaveLeft, AllOff, Fist, Emergency}

// Event is a committed gesture: either a finger count or a macro.
type Event struct {
	FingerCount int       `json:"fingerCount,omitempty"`
	Gesture     Named     `json:"gestureType,omitempty"`
	Confidence  float64   `json:"confidence"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventFrom promotes an observation.
func EventFrom(o Observation) Event {
	return Event{
		FingerCount: o.FingerCount,
		Confidence:  o.Confidence,
		Timestamp:   o.Timestamp,
	}
}

// IsNamed reports whether the event carries a macro gesture.
func (e Event) IsNamed() bool {
	return e.Gesture != ""
}

// Label is a short human-readable form used in logs and metadata.
func (e Event) Label() string {
	if e.IsNamed() {
		return string(e.Gesture)
	}
	return fmt.Sprintf("%d_fingers", e.FingerCount)
}

// NormalizeNamed lower-cases and trims a gesture name.
func NormalizeNamed(s string) Named {
	return Named(strings.ToLower(strings.TrimSpace(s)))
}

// SimulatedConfidence is the fixed confidence of simulated gestures.
const SimulatedConfidence = 0.95
