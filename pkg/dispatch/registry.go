// Package dispatch delivers gesture intents to the device registry and
// reconciles the outcome into a local device mirror.
//
// The registry interfaces are small and consumer-side; the dispatcher
// depends only on what it calls.
package dispatch

import (
	"context"

	"github.com/teslashibe/go-gesture-home/pkg/gesture"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
)

// Toggler toggles (or sets, when desired is non-nil) a single device.
type Toggler interface {
	ToggleDevice(ctx context.Context, id string, desired *bool, ev gesture.Event) (registry.DeviceState, error)
}

// BulkSetter sets many devices at once. Empty ids means all devices.
type BulkSetter interface {
	BulkSet(ctx context.Context, ids []string, status bool, ev gesture.Event) (map[string]registry.DeviceState, error)
}

// Lister returns every device.
type Lister interface {
	GetAll(ctx context.Context) (map[string]registry.DeviceState, error)
}

// MetadataRecorder stores gesture summaries.
type MetadataRecorder interface {
	RecordGestureMetadata(ctx context.Context, meta registry.GestureMetadata) error
}

// Registry is everything the dispatcher needs from the device authority.
type Registry interface {
	Toggler
	BulkSetter
	Lister
	MetadataRecorder
}

var (
	_ Registry = (*registry.HTTPClient)(nil)
	_ Registry = registry.Local{}
)
