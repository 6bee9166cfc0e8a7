package registry

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-gesture-home/pkg/debug"
	"github.com/teslashibe/go-gesture-home/pkg/gesture"
)

// GestureMetadata summarizes one processed gesture.
type GestureMetadata struct {
	Label       string    `json:"label"`
	FingerCount int       `json:"fingerCount,omitempty"`
	GestureType string    `json:"gestureType,omitempty"`
	Confidence  float64   `json:"confidence"`
	DeviceID    string    `json:"deviceId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// MetadataFor builds metadata from a committed event.
func MetadataFor(ev gesture.Event, deviceID string) GestureMetadata {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return GestureMetadata{
		Label:       ev.Label(),
		FingerCount: ev.FingerCount,
		GestureType: string(ev.Gesture),
		Confidence:  ev.Confidence,
		DeviceID:    deviceID,
		Timestamp:   ts,
	}
}

// Health is the registry health summary.
type Health struct {
	ActiveDevices int              `json:"activeDevices"`
	TotalDevices  int              `json:"totalDevices"`
	GestureCount  uint64           `json:"gestureCount"`
	LastGesture   *GestureMetadata `json:"lastGesture"`
	Settings      Settings         `json:"settings"`
}

// Registry holds the authoritative device map.
type Registry struct {
	mu       sync.RWMutex
	devices  map[string]DeviceState
	settings Settings

	gestureCount uint64
	lastGesture  *GestureMetadata

	subsMu sync.RWMutex
	subs   map[string]func(DeviceState)

	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for lastUpdated.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithSettings sets the initial settings.
func WithSettings(s Settings) Option {
	return func(r *Registry) { r.settings = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithDevices replaces the default device table.
func WithDevices(specs []DeviceSpec) Option {
	return func(r *Registry) {
		r.devices = make(map[string]DeviceState, len(specs))
		for _, s := range specs {
			r.devices[s.ID] = DeviceState{ID: s.ID, Name: s.Name, Location: s.Location}
		}
	}
}

// New creates a registry with every device off.
func New(opts ...Option) *Registry {
	r := &Registry{
		settings: DefaultSettings(),
		subs:     make(map[string]func(DeviceState)),
		now:      time.Now,
		logger:   slog.Default(),
	}
	WithDevices(DefaultDevices)(r)
	for _, opt := range opts {
		opt(r)
	}

	start := r.now()
	for id, d := range r.devices {
		d.LastUpdated = start
		r.devices[id] = d
	}
	return r
}

// GetAll returns a copy of every device.
func (r *Registry) GetAll() map[string]DeviceState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]DeviceState, len(r.devices))
	for id, d := range r.devices {
		out[id] = d
	}
	return out
}

// Get returns one device.
func (r *Registry) Get(id string) (DeviceState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	if !ok {
		return DeviceState{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, nil
}

// IDs returns all device ids in order.
func (r *Registry) IDs() []string {
	return SortedIDs(r.GetAll())
}

// ToggleByID flips a device, or sets it when desired is non-nil.
// It returns the new state and the previous status.
func (r *Registry) ToggleByID(id string, desired *bool) (DeviceState, bool, error) {
	r.mu.Lock()
	d, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return DeviceState{}, false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	previous := d.Status
	status := !previous
	if desired != nil {
		status = *desired
	}
	d = r.writeLocked(d, status)
	r.mu.Unlock()

	r.logger.Info("device updated", "id", id, "status", d.StatusWord(), "previous", previous)
	r.notify(d)
	return d, previous, nil
}

// BulkSet sets every listed device to status. An empty list means all
// devices. Unknown ids fail the whole call without writing anything.
func (r *Registry) BulkSet(ids []string, status bool) (map[string]DeviceState, error) {
	r.mu.Lock()
	if len(ids) == 0 {
		ids = make([]string, 0, len(r.devices))
		for id := range r.devices {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		if _, ok := r.devices[id]; !ok {
			r.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
	}

	out := make(map[string]DeviceState, len(ids))
	for _, id := range ids {
		out[id] = r.writeLocked(r.devices[id], status)
	}
	r.mu.Unlock()

	r.logger.Info("bulk set", "devices", len(out), "status", status)
	for _, d := range out {
		r.notify(d)
	}
	return out, nil
}

// Reset turns every device off and bumps every lastUpdated.
func (r *Registry) Reset() map[string]DeviceState {
	out, _ := r.BulkSet(nil, false)
	return out
}

// writeLocked stores a new status with a strictly increasing timestamp.
func (r *Registry) writeLocked(d DeviceState, status bool) DeviceState {
	ts := r.now()
	if !ts.After(d.LastUpdated) {
		ts = d.LastUpdated.Add(time.Nanosecond)
	}
	d.Status = status
	d.LastUpdated = ts
	r.devices[d.ID] = d
	debug.Log("💡 %s (%s) → %s\n", d.Name, d.ID, d.StatusWord())
	return d
}

// RecordGestureMetadata stores the last-gesture summary and bumps the counter.
func (r *Registry) RecordGestureMetadata(meta GestureMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gestureCount++
	m := meta
	r.lastGesture = &m
}

// Settings returns the current settings.
func (r *Registry) Settings() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// UpdateSettings applies a validated partial update.
func (r *Registry) UpdateSettings(p SettingsPatch) (Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, err := r.settings.Apply(p)
	if err != nil {
		return r.settings, err
	}
	r.settings = next
	r.logger.Info("settings updated", "enabled", next.Enabled, "sensitivity", next.Sensitivity,
		"detection_range", next.DetectionRange, "response_delay_ms", next.ResponseDelayMs)
	return next, nil
}

// Enabled reports whether gesture control is enabled.
func (r *Registry) Enabled() bool {
	return r.Settings().Enabled
}

// Health returns the health summary.
func (r *Registry) Health() Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := Health{
		TotalDevices: len(r.devices),
		GestureCount: r.gestureCount,
		Settings:     r.settings,
	}
	for _, d := range r.devices {
		if d.Status {
			h.ActiveDevices++
		}
	}
	if r.lastGesture != nil {
		m := *r.lastGesture
		h.LastGesture = &m
	}
	return h
}

// Subscribe registers fn for every device write. The returned function
// removes the subscription. fn runs in the writer's goroutine and must not block.
func (r *Registry) Subscribe(fn func(DeviceState)) func() {
	id := uuid.NewString()
	r.subsMu.Lock()
	r.subs[id] = fn
	r.subsMu.Unlock()

	return func() {
		r.subsMu.Lock()
		delete(r.subs, id)
		r.subsMu.Unlock()
	}
}

func (r *Registry) notify(d DeviceState) {
	r.subsMu.RLock()
	defer r.subsMu.RUnlock()
	for _, fn := range r.subs {
		fn(d)
	}
}
