package protocol

import (
	"time"

	"github.com/teslashibe/go-gesture-home/pkg/dispatch"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
)

// =============================================================================
// Conversions
// =============================================================================

// FromDeviceState converts an authoritative registry state.
func FromDeviceState(d registry.DeviceState) DeviceData {
	return DeviceData{
		ID:          d.ID,
		Name:        d.Name,
		Status:      d.Status,
		LastUpdated: d.LastUpdated,
		Location:    d.Location,
		Confirmed:   true,
	}
}

// FromMirrored converts a mirrored state, keeping its confirmed flag.
func FromMirrored(m dispatch.MirroredState) DeviceData {
	d := FromDeviceState(m.DeviceState)
	d.Confirmed = m.Confirmed
	return d
}

// DeviceState converts back to a registry state.
func (d DeviceData) DeviceState() registry.DeviceState {
	return registry.DeviceState{
		ID:          d.ID,
		Name:        d.Name,
		Status:      d.Status,
		LastUpdated: d.LastUpdated,
		Location:    d.Location,
	}
}

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewFeedbackMessage wraps a dispatch feedback event. The feedback id is
// kept as the message id.
func NewFeedbackMessage(fb dispatch.Feedback) (*Message, error) {
	data := FeedbackData{
		Outcome:    string(fb.Outcome),
		Gesture:    fb.Gesture,
		Confidence: fb.Confidence,
		Message:    fb.Message,
	}
	for _, d := range fb.Devices {
		data.Devices = append(data.Devices, FromMirrored(d))
	}

	msg, err := NewMessage(MessageType(fb.Type), data)
	if err != nil {
		return nil, err
	}
	if fb.ID != "" {
		msg.ID = fb.ID
	}
	if !fb.Timestamp.IsZero() {
		msg.Timestamp = fb.Timestamp.UnixMilli()
	}
	return msg, nil
}

// NewDeviceUpdateMessage creates a device_update message
func NewDeviceUpdateMessage(d registry.DeviceState) (*Message, error) {
	return NewMessage(TypeDeviceUpdate, DeviceUpdateData{Device: FromDeviceState(d)})
}

// NewErrorMessage creates an error message outside of dispatch
func NewErrorMessage(text string) (*Message, error) {
	return NewMessage(TypeError, FeedbackData{Outcome: "error", Message: text})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetFeedbackData extracts feedback data from a message
func (m *Message) GetFeedbackData() (*FeedbackData, error) {
	var data FeedbackData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetDeviceUpdate extracts a device update from a message
func (m *Message) GetDeviceUpdate() (*DeviceUpdateData, error) {
	var data DeviceUpdateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
