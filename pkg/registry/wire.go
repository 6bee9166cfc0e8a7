package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-gesture-home/pkg/gesture"
)

// Request and response bodies for the registry HTTP API.

// DevicesResponse is returned by GET /api/devices.
type DevicesResponse struct {
	Success  bool                   `json:"success"`
	Devices  map[string]DeviceState `json:"devices"`
	Settings Settings               `json:"settings"`
}

// ToggleRequest is the body of POST /api/devices/:id/toggle.
// Requests carrying gesture info are refused while gesture control is disabled.
type ToggleRequest struct {
	FingerCount *int    `json:"fingerCount,omitempty"`
	GestureType string  `json:"gestureType,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	Status      *bool   `json:"status,omitempty"`
}

// FromGesture reports whether the toggle was triggered by a gesture.
func (t ToggleRequest) FromGesture() bool {
	return t.FingerCount != nil || t.GestureType != ""
}

// Event returns the gesture event described by the request.
func (t ToggleRequest) Event() gesture.Event {
	ev := gesture.Event{
		Gesture:    gesture.NormalizeNamed(t.GestureType),
		Confidence: t.Confidence,
		Timestamp:  time.Now(),
	}
	if t.FingerCount != nil {
		ev.FingerCount = *t.FingerCount
	}
	return ev
}

// ToggleResponse is returned by the toggle endpoint.
type ToggleResponse struct {
	Success        bool             `json:"success"`
	Device         *DeviceState     `json:"device,omitempty"`
	PreviousStatus bool             `json:"previousStatus"`
	GestureInfo    *GestureMetadata `json:"gestureInfo,omitempty"`
	Message        string           `json:"message,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// BulkRequest is the body of POST /api/devices/bulk. Empty IDs means all devices.
type BulkRequest struct {
	IDs         []string `json:"ids,omitempty"`
	Status      bool     `json:"status"`
	FingerCount *int     `json:"fingerCount,omitempty"`
	GestureType string   `json:"gestureType,omitempty"`
	Confidence  float64  `json:"confidence,omitempty"`
}

// FromGesture reports whether the bulk write was triggered by a gesture.
func (b BulkRequest) FromGesture() bool {
	return b.FingerCount != nil || b.GestureType != ""
}

// BulkResponse is returned by the bulk endpoint and by reset.
type BulkResponse struct {
	Success bool                   `json:"success"`
	Devices map[string]DeviceState `json:"devices,omitempty"`
	Message string                 `json:"message,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// ProcessRequest is the body of POST /api/gesture/process and /simulate.
// Timestamp is unix milliseconds.
type ProcessRequest struct {
	FingerCount *int    `json:"fingerCount,omitempty"`
	GestureType string  `json:"gestureType,omitempty"`
	Confidence  float64 `json:"confidence"`
	Timestamp   int64   `json:"timestamp,omitempty"`
}

// ErrEmptyGesture is returned when a request names neither a finger count nor a gesture.
var ErrEmptyGesture = errors.New("registry: fingerCount or gestureType required")

// ErrInvalidConfidence is returned when a request's confidence lies outside [0,1].
var ErrInvalidConfidence = errors.New("registry: confidence outside [0,1]")

// Event converts the request to a gesture event.
func (p ProcessRequest) Event() (gesture.Event, error) {
	if p.FingerCount == nil && p.GestureType == "" {
		return gesture.Event{}, ErrEmptyGesture
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return gesture.Event{}, fmt.Errorf("%w: %v", ErrInvalidConfidence, p.Confidence)
	}
	ev := gesture.Event{
		Gesture:    gesture.NormalizeNamed(p.GestureType),
		Confidence: p.Confidence,
		Timestamp:  time.Now(),
	}
	if p.FingerCount != nil {
		ev.FingerCount = *p.FingerCount
	}
	if p.Timestamp > 0 {
		ev.Timestamp = time.UnixMilli(p.Timestamp)
	}
	return ev, nil
}

// ProcessResult is returned by process and simulate.
type ProcessResult struct {
	Success      bool                   `json:"success"`
	Message      string                 `json:"message"`
	Device       *DeviceState           `json:"device,omitempty"`
	Devices      map[string]DeviceState `json:"devices,omitempty"`
	VoiceMessage string                 `json:"voiceMessage,omitempty"`
	Suggestions  []string               `json:"suggestions,omitempty"`
}

// SettingsResponse is returned by POST /api/gesture/settings.
type SettingsResponse struct {
	Success  bool     `json:"success"`
	Settings Settings `json:"settings"`
	Error    string   `json:"error,omitempty"`
}

// StatusResponse is a bare success/message body.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
