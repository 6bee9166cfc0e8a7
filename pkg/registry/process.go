package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/teslashibe/go-gesture-home/pkg/command"
	"github.com/teslashibe/go-gesture-home/pkg/gesture"
)

// Messages returned to callers.
const (
	MsgDisabled       = "Gesture control is disabled"
	MsgNotFound       = "Device not found"
	MsgNotRecognized  = "Gesture not recognized"
	MsgLowConfidence  = "Gesture confidence below sensitivity"
	MsgResetComplete  = "All devices reset"
	MsgMissingGesture = "fingerCount or gestureType required"
	MsgBadConfidence  = "confidence must be within [0,1]"
)

// Process handles a gesture on the server side: map it, apply it, record it.
func (r *Registry) Process(req ProcessRequest) ProcessResult {
	settings := r.Settings()
	if !settings.Enabled {
		return ProcessResult{Success: false, Message: MsgDisabled}
	}

	ev, err := req.Event()
	if errors.Is(err, ErrInvalidConfidence) {
		return ProcessResult{Success: false, Message: MsgBadConfidence}
	}
	if err != nil {
		return ProcessResult{Success: false, Message: MsgMissingGesture}
	}
	if ev.Confidence < settings.Sensitivity {
		return ProcessResult{
			Success: false,
			Message: fmt.Sprintf("%s (%.2f < %.2f)", MsgLowConfidence, ev.Confidence, settings.Sensitivity),
		}
	}

	var result ProcessResult
	for _, intent := range command.Map(ev) {
		result = r.applyIntent(intent)
	}

	deviceID := ""
	if result.Device != nil {
		deviceID = result.Device.ID
	}
	if result.Success {
		r.RecordGestureMetadata(MetadataFor(ev, deviceID))
	}
	return result
}

// Simulate processes a gesture with the fixed simulated confidence.
func (r *Registry) Simulate(req ProcessRequest) ProcessResult {
	req.Confidence = gesture.SimulatedConfidence
	return r.Process(req)
}

func (r *Registry) applyIntent(in command.Intent) ProcessResult {
	switch in.Action {
	case command.Toggle:
		d, _, err := r.ToggleByID(in.Target, nil)
		if err != nil {
			return ProcessResult{Success: false, Message: MsgNotFound}
		}
		return ProcessResult{
			Success:      true,
			Message:      fmt.Sprintf("%s toggled %s", d.Name, d.StatusWord()),
			Device:       &d,
			VoiceMessage: fmt.Sprintf("%s turned %s", d.Name, d.StatusWord()),
		}

	case command.SetOn, command.SetOff:
		status, _ := in.DesiredStatus()
		devices, err := r.BulkSet(nil, status)
		if err != nil {
			return ProcessResult{Success: false, Message: err.Error()}
		}
		word := "off"
		if status {
			word = "on"
		}
		return ProcessResult{
			Success:      true,
			Message:      fmt.Sprintf("All devices set %s", word),
			Devices:      devices,
			VoiceMessage: fmt.Sprintf("All devices turned %s", word),
		}

	default:
		return ProcessResult{
			Success:     false,
			Message:     fmt.Sprintf("%s: %s", MsgNotRecognized, in.Target),
			Suggestions: in.Suggestions,
		}
	}
}

// Local adapts a Registry to the context-aware client interface used by
// dispatchers running in the same process.
type Local struct {
	R *Registry
}

// ToggleDevice toggles (or sets) a device on behalf of a gesture.
func (l Local) ToggleDevice(ctx context.Context, id string, desired *bool, ev gesture.Event) (DeviceState, error) {
	if err := ctx.Err(); err != nil {
		return DeviceState{}, err
	}
	if !l.R.Enabled() {
		return DeviceState{}, ErrDisabled
	}
	d, _, err := l.R.ToggleByID(id, desired)
	return d, err
}

// BulkSet sets devices on behalf of a gesture.
func (l Local) BulkSet(ctx context.Context, ids []string, status bool, ev gesture.Event) (map[string]DeviceState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !l.R.Enabled() {
		return nil, ErrDisabled
	}
	return l.R.BulkSet(ids, status)
}

// GetAll returns every device.
func (l Local) GetAll(ctx context.Context) (map[string]DeviceState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.R.GetAll(), nil
}

// RecordGestureMetadata forwards to the registry.
func (l Local) RecordGestureMetadata(ctx context.Context, meta GestureMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.R.RecordGestureMetadata(meta)
	return nil
}

// GetSettings returns the registry settings.
func (l Local) GetSettings(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	return l.R.Settings(), nil
}

// IsRemoteFailure reports whether err means the registry could not be reached
// (as opposed to a definite answer like not-found or disabled).
func IsRemoteFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDisabled) || errors.Is(err, ErrInvalidSettings) {
		return false
	}
	return true
}
