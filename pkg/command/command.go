// Package command maps committed gestures to device intents.
//
// Mapping is a pure function: the same event always yields the same intents.
package command

import (
	"fmt"

	"github.com/teslashibe/go-gesture-home/pkg/gesture"
)

// Action is the desired device operation.
type Action string

const (
	// Toggle flips the current status. Not idempotent under duplicate delivery.
	Toggle Action = "toggle"
	// SetOn and SetOff are explicit-state operations and are idempotent.
	SetOn  Action = "set_on"
	SetOff Action = "set_off"
	// NotRecognized carries suggestions and must not mutate any device.
	NotRecognized Action = "not_recognized"
)

// TargetAll addresses every device.
const TargetAll = "all"

// Intent is one unit of work for the dispatcher.
type Intent struct {
	Target      string        `json:"target"`
	Action      Action        `json:"action"`
	Source      gesture.Event `json:"source"`
	Confidence  float64       `json:"confidence"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// Mutates reports whether the intent changes device state.
func (i Intent) Mutates() bool {
	return i.Action == Toggle || i.Action == SetOn || i.Action == SetOff
}

// DesiredStatus returns the explicit status for set intents.
func (i Intent) DesiredStatus() (status bool, ok bool) {
	switch i.Action {
	case SetOn:
		return true, true
	case SetOff:
		return false, true
	default:
		return false, false
	}
}

// DefaultSlots maps finger counts 1..4 to device ids.
var DefaultSlots = [gesture.MaxFingers]string{"1", "2", "3", "4"}

// Mapper holds the finger-slot table.
type Mapper struct {
	slots [gesture.MaxFingers]string
}

// NewMapper creates a mapper with a custom slot table.
func NewMapper(slots [gesture.MaxFingers]string) *Mapper {
	return &Mapper{slots: slots}
}

var defaultMapper = NewMapper(DefaultSlots)

// Map converts an event using the default slot table.
func Map(ev gesture.Event) []Intent {
	return defaultMapper.Map(ev)
}

// DeviceForFinger returns the device id for a finger count.
func DeviceForFinger(fingers int) (string, bool) {
	return defaultMapper.DeviceForFinger(fingers)
}

// DeviceForFinger returns the device id for a finger count.
func (m *Mapper) DeviceForFinger(fingers int) (string, bool) {
	if fingers < 1 || fingers > gesture.MaxFingers {
		return "", false
	}
	return m.slots[fingers-1], true
}

// Map converts a committed event into intents.
func (m *Mapper) Map(ev gesture.Event) []Intent {
	if ev.IsNamed() {
		return []Intent{m.mapNamed(ev)}
	}

	id, ok := m.DeviceForFinger(ev.FingerCount)
	if !ok {
		return []Intent{m.notRecognized(ev, fmt.Sprintf("%d_fingers", ev.FingerCount))}
	}
	return []Intent{{
		Target:     id,
		Action:     Toggle,
		Source:     ev,
		Confidence: ev.Confidence,
	}}
}

// Suggestions lists valid gesture mappings for user-facing hints.
func (m *Mapper) Suggestions() []string {
	out := make([]string, 0, gesture.MaxFingers+len(gesture.KnownNamed))
	for i, id := range m.slots {
		out = append(out, fmt.Sprintf("%d finger(s) → toggle device %s", i+1, id))
	}
	out = append(out,
		"wave_right / all_on → all devices on",
		"wave_left / all_off → all devices off",
		"fist / emergency → all devices on",
	)
	return out
}

// ParseGesture resolves a gesture name to its canonical form.
func ParseGesture(name string) (gesture.Named, bool) {
	n := gesture.NormalizeNamed(name)
	for _, known := range gesture.KnownNamed {
		if n == known {
			return n, true
		}
	}
	return n, false
}

func (m *Mapper) mapNamed(ev gesture.Event) Intent {
	intent := Intent{
		Target:     TargetAll,
		Source:     ev,
		Confidence: ev.Confidence,
	}
	switch gesture.NormalizeNamed(string(ev.Gesture)) {
	case gesture.WaveRight, gesture.AllOn, gesture.Fist, gesture.Emergency:
		intent.Action = SetOn
	case gesture.WaveLeft, gesture.AllOff:
		intent.Action = SetOff
	default:
		return m.notRecognized(ev, string(ev.Gesture))
	}
	return intent
}

func (m *Mapper) notRecognized(ev gesture.Event, name string) Intent {
	return Intent{
		Target:      name,
		Action:      NotRecognized,
		Source:      ev,
		Confidence:  ev.Confidence,
		Suggestions: m.Suggestions(),
	}
}
