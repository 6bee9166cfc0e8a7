package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-gesture-home/pkg/registry"
	"github.com/teslashibe/go-gesture-home/pkg/store"
)

// MirroredState is a local copy of a device tagged with whether the
// registry has confirmed it.
type MirroredState struct {
	registry.DeviceState
	Confirmed bool `json:"confirmed"`
}

// Mirror is the locally observable device map. Readers get snapshots.
//
// Merge rules: a confirmed state always replaces an unconfirmed one;
// between confirmed states the newer lastUpdated wins; local optimistic
// writes always apply and are marked unconfirmed.
type Mirror struct {
	mu      sync.RWMutex
	devices map[string]MirroredState
	store   store.Store
	saveMu  sync.Mutex
	logger  *slog.Logger
	now     func() time.Time

	onChange func(MirroredState)
}

// NewMirror creates a mirror seeded with the default devices, all off and
// unconfirmed. A nil store keeps nothing between runs.
func NewMirror(st store.Store, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mirror{
		devices: make(map[string]MirroredState, len(registry.DefaultDevices)),
		store:   st,
		logger:  logger,
		now:     time.Now,
	}
	for _, s := range registry.DefaultDevices {
		m.devices[s.ID] = MirroredState{DeviceState: registry.DeviceState{ID: s.ID, Name: s.Name, Location: s.Location}}
	}
	return m
}

// OnChange registers a callback for every applied change. It runs
// outside the mirror lock.
func (m *Mirror) OnChange(fn func(MirroredState)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Load restores persisted state. Missing data is not an error.
func (m *Mirror) Load() error {
	if m.store == nil {
		return nil
	}
	data, err := m.store.Load()
	if err != nil {
		return fmt.Errorf("load mirror: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var saved map[string]MirroredState
	if err := json.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("decode mirror: %w", err)
	}

	m.mu.Lock()
	for id, d := range saved {
		m.devices[id] = d
	}
	m.mu.Unlock()
	m.logger.Info("mirror loaded", "devices", len(saved))
	return nil
}

// Get returns one device.
func (m *Mirror) Get(id string) (MirroredState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.devices[id]
	return d, ok
}

// Snapshot returns a copy of every device.
func (m *Mirror) Snapshot() map[string]MirroredState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]MirroredState, len(m.devices))
	for id, d := range m.devices {
		out[id] = d
	}
	return out
}

// Unconfirmed returns the ids of devices whose state is a local guess.
func (m *Mirror) Unconfirmed() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, d := range m.devices {
		if !d.Confirmed {
			ids = append(ids, id)
		}
	}
	return ids
}

// ApplyConfirmed adopts a state returned or pushed by the registry.
// It reports whether the mirror changed.
func (m *Mirror) ApplyConfirmed(d registry.DeviceState) bool {
	m.mu.Lock()
	cur, ok := m.devices[d.ID]
	if ok && cur.Confirmed && !d.LastUpdated.After(cur.LastUpdated) {
		m.mu.Unlock()
		return false
	}
	next := MirroredState{DeviceState: d, Confirmed: true}
	m.devices[d.ID] = next
	fn := m.onChange
	m.mu.Unlock()

	m.persist()
	if fn != nil {
		fn(next)
	}
	return true
}

// ApplyAll adopts every state from a registry listing.
func (m *Mirror) ApplyAll(devices map[string]registry.DeviceState) int {
	n := 0
	for _, d := range devices {
		if m.ApplyConfirmed(d) {
			n++
		}
	}
	return n
}

// Toggle flips a device locally and marks it unconfirmed.
func (m *Mirror) Toggle(id string) MirroredState {
	m.mu.Lock()
	cur := m.devices[id]
	next := m.optimisticLocked(id, cur, !cur.Status)
	fn := m.onChange
	m.mu.Unlock()

	m.persist()
	if fn != nil {
		fn(next)
	}
	return next
}

// Set writes status locally to the listed devices (all when empty),
// marking them unconfirmed.
func (m *Mirror) Set(ids []string, status bool) []MirroredState {
	m.mu.Lock()
	if len(ids) == 0 {
		ids = make([]string, 0, len(m.devices))
		for id := range m.devices {
			ids = append(ids, id)
		}
	}
	out := make([]MirroredState, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.optimisticLocked(id, m.devices[id], status))
	}
	fn := m.onChange
	m.mu.Unlock()

	m.persist()
	if fn != nil {
		for _, d := range out {
			fn(d)
		}
	}
	return out
}

func (m *Mirror) optimisticLocked(id string, cur MirroredState, status bool) MirroredState {
	ts := m.now()
	if !ts.After(cur.LastUpdated) {
		ts = cur.LastUpdated.Add(time.Nanosecond)
	}
	cur.ID = id
	cur.Status = status
	cur.LastUpdated = ts
	cur.Confirmed = false
	m.devices[id] = cur
	return cur
}

func (m *Mirror) persist() {
	if m.store == nil {
		return
	}
	m.saveMu.Lock()
	defer m.saveMu.Unlock()
	data, err := json.Marshal(m.Snapshot())
	if err != nil {
		m.logger.Warn("mirror encode failed", "error", err)
		return
	}
	if err := m.store.Save(data); err != nil {
		m.logger.Warn("mirror persist failed", "error", err)
	}
}
