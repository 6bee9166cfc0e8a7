// Package protocol defines the WebSocket message types pushed by the
// gesture hub to dashboards and agents.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Feedback stream (/ws/feedback)
	TypeGestureDetected MessageType = "gesture_detected" // Gesture seen, nothing mapped
	TypeStatusChanged   MessageType = "status_changed"   // Device state changed by a gesture
	TypeError           MessageType = "error"            // Dispatch refused or failed

	// Device stream (/ws/devices)
	TypeDeviceUpdate MessageType = "device_update" // Authoritative device write

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewMessage creates a new message with a fresh id and the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Payload:   rawData,
	}, nil
}

// ParseData unmarshals the message payload into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// DeviceData is one device as seen on the wire.
type DeviceData struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Status      bool      `json:"status"`
	LastUpdated time.Time `json:"lastUpdated"`
	Location    string    `json:"location,omitempty"`
	Confirmed   bool      `json:"confirmed"`
}

// FeedbackData is the payload of gesture_detected, status_changed and error messages.
type FeedbackData struct {
	Outcome    string       `json:"outcome"`
	Gesture    string       `json:"gesture"`
	Confidence float64      `json:"confidence"`
	Message    string       `json:"message,omitempty"`
	Devices    []DeviceData `json:"devices,omitempty"`
}

// DeviceUpdateData is the payload of device_update messages.
type DeviceUpdateData struct {
	Device DeviceData `json:"device"`
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
