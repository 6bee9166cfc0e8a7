// Package registry is the authoritative device-state service.
//
// A Registry is the single writer for device state and gesture settings.
// Readers get copies; nothing outside the package mutates the map.
package registry

import (
	"sort"
	"time"
)

// DeviceState is the authoritative state of one device.
type DeviceState struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Status      bool      `json:"status"`
	LastUpdated time.Time `json:"lastUpdated"`
	Location    string    `json:"location"`
}

// StatusWord returns "on" or "off".
func (d DeviceState) StatusWord() string {
	if d.Status {
		return "on"
	}
	return "off"
}

// DeviceSpec describes a device created at start-up.
type DeviceSpec struct {
	ID       string
	Name     string
	Location string
}

// DefaultDevices are the four gesture slots, primary room first.
var DefaultDevices = []DeviceSpec{
	{ID: "1", Name: "Living Room Light", Location: "living_room"},
	{ID: "2", Name: "Bedroom Light", Location: "bedroom"},
	{ID: "3", Name: "Kitchen Light", Location: "kitchen"},
	{ID: "4", Name: "Bathroom Fan", Location: "bathroom"},
}

// SortedIDs returns the keys of a device map in order.
func SortedIDs(devices map[string]DeviceState) []string {
	ids := make([]string, 0, len(devices))
	for id := range devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
