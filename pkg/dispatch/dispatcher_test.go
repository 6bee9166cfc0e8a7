package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/teslashibe/go-gesture-home/pkg/gesture"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
	"github.com/teslashibe/go-gesture-home/pkg/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyRegistry wraps a real registry and can fail every call.
type flakyRegistry struct {
	registry.Local
	mu       sync.Mutex
	down     bool
	calls    int
	metadata int
}

func newFlaky() *flakyRegistry {
	return &flakyRegistry{Local: registry.Local{R: registry.New(registry.WithLogger(quietLogger()))}}
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:3001: connection refused")

func (f *flakyRegistry) check() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.down {
		return errConnRefused
	}
	return nil
}

func (f *flakyRegistry) setDown(v bool) {
	f.mu.Lock()
	f.down = v
	f.mu.Unlock()
}

func (f *flakyRegistry) ToggleDevice(ctx context.Context, id string, desired *bool, ev gesture.Event) (registry.DeviceState, error) {
	if err := f.check(); err != nil {
		return registry.DeviceState{}, err
	}
	return f.Local.ToggleDevice(ctx, id, desired, ev)
}

func (f *flakyRegistry) BulkSet(ctx context.Context, ids []string, status bool, ev gesture.Event) (map[string]registry.DeviceState, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return f.Local.BulkSet(ctx, ids, status, ev)
}

func (f *flakyRegistry) GetAll(ctx context.Context) (map[string]registry.DeviceState, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return f.Local.GetAll(ctx)
}

func (f *flakyRegistry) RecordGestureMetadata(ctx context.Context, meta registry.GestureMetadata) error {
	if err := f.check(); err != nil {
		return err
	}
	f.mu.Lock()
	f.metadata++
	f.mu.Unlock()
	return f.Local.RecordGestureMetadata(ctx, meta)
}

type recordingSink struct {
	mu     sync.Mutex
	events []Feedback
}

func (s *recordingSink) Emit(fb Feedback) {
	s.mu.Lock()
	s.events = append(s.events, fb)
	s.mu.Unlock()
}

func (s *recordingSink) all() []Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Feedback(nil), s.events...)
}

func newTestDispatcher(reg Registry, opts ...Option) (*Dispatcher, *recordingSink) {
	sink := &recordingSink{}
	opts = append([]Option{WithLogger(quietLogger()), WithSink(sink)}, opts...)
	return New(reg, NewMirror(nil, quietLogger()), opts...), sink
}

func fingers(n int) gesture.Event {
	return gesture.Event{FingerCount: n, Confidence: 0.9}
}

func TestDispatch_Confirmed(t *testing.T) {
	reg := newFlaky()
	d, sink := newTestDispatcher(reg)

	rep := d.Dispatch(t.Context(), fingers(1))
	if rep.Outcome() != Confirmed {
		t.Fatalf("outcome = %s, want confirmed", rep.Outcome())
	}
	got, _ := d.Mirror().Get("1")
	if !got.Status || !got.Confirmed {
		t.Errorf("mirror device 1 = %+v", got)
	}
	auth, _ := reg.R.Get("1")
	if got.DeviceState != auth {
		t.Errorf("mirror %+v does not match registry %+v", got.DeviceState, auth)
	}
	if rep.Results[0].Message != "Living Room Light turned on" {
		t.Errorf("message = %q", rep.Results[0].Message)
	}
	if reg.metadata != 1 {
		t.Errorf("metadata recorded %d times, want 1", reg.metadata)
	}
	if fb := sink.all(); len(fb) != 1 || fb[0].Type != FeedbackStatusChanged {
		t.Errorf("feedback = %+v", fb)
	}
}

func TestDispatch_FallbackOnRemoteFailure(t *testing.T) {
	reg := newFlaky()
	dir := t.TempDir()
	st := store.NewJSONStore(filepath.Join(dir, "mirror.json"))
	mirror := NewMirror(st, quietLogger())
	sink := &recordingSink{}
	d := New(reg, mirror, WithLogger(quietLogger()), WithSink(sink))

	reg.setDown(true)
	before, _ := mirror.Get("2")

	rep := d.Dispatch(t.Context(), fingers(2))
	if rep.Outcome() != Fallback {
		t.Fatalf("outcome = %s, want fallback", rep.Outcome())
	}
	if !errors.Is(rep.Results[0].Err, ErrRemoteUnavailable) {
		t.Errorf("err = %v, want ErrRemoteUnavailable", rep.Results[0].Err)
	}

	after, _ := mirror.Get("2")
	if after.Status == before.Status {
		t.Error("fallback did not flip device 2")
	}
	if after.Confirmed {
		t.Error("fallback state should be unconfirmed")
	}
	if auth, _ := reg.R.Get("2"); auth.Status {
		t.Error("registry changed while down")
	}

	reloaded := NewMirror(st, quietLogger())
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	if got, _ := reloaded.Get("2"); got.Status != after.Status || got.Confirmed {
		t.Errorf("persisted state = %+v, want unconfirmed status=%v", got, after.Status)
	}

	if fb := sink.all(); len(fb) != 1 || fb[0].Outcome != Fallback {
		t.Errorf("feedback = %+v", fb)
	}
	if reg.metadata != 0 {
		t.Error("metadata should not be recorded on fallback")
	}
}

func TestDispatch_ConfirmedSupersedesFallback(t *testing.T) {
	reg := newFlaky()
	d, _ := newTestDispatcher(reg)

	reg.setDown(true)
	d.Dispatch(t.Context(), fingers(3))
	if got, _ := d.Mirror().Get("3"); !got.Status || got.Confirmed {
		t.Fatalf("after fallback = %+v", got)
	}

	reg.setDown(false)
	if err := d.Sync(t.Context()); err != nil {
		t.Fatal(err)
	}
	got, _ := d.Mirror().Get("3")
	if !got.Confirmed || got.Status {
		t.Errorf("after sync = %+v, want confirmed off", got)
	}
	if len(d.Mirror().Unconfirmed()) != 0 {
		t.Errorf("unconfirmed after sync: %v", d.Mirror().Unconfirmed())
	}
}

func TestDispatch_MacroIdempotent(t *testing.T) {
	reg := newFlaky()
	d, _ := newTestDispatcher(reg)
	reg.R.ToggleByID("2", nil)

	for i := 0; i < 2; i++ {
		rep := d.Dispatch(t.Context(), gesture.Event{Gesture: gesture.WaveRight, Confidence: 0.9})
		if rep.Outcome() != Confirmed {
			t.Fatalf("pass %d outcome = %s", i, rep.Outcome())
		}
		for id, s := range reg.R.GetAll() {
			if !s.Status {
				t.Errorf("pass %d: device %s off after wave_right", i, id)
			}
		}
	}
	for id, s := range d.Mirror().Snapshot() {
		if !s.Status || !s.Confirmed {
			t.Errorf("mirror %s = %+v", id, s)
		}
	}
}

func TestDispatch_MacroFallback(t *testing.T) {
	reg := newFlaky()
	d, _ := newTestDispatcher(reg)
	reg.setDown(true)

	rep := d.Dispatch(t.Context(), gesture.Event{Gesture: gesture.AllOff, Confidence: 0.9})
	if rep.Outcome() != Fallback {
		t.Fatalf("outcome = %s", rep.Outcome())
	}
	if len(rep.Results[0].Devices) != 4 {
		t.Errorf("fallback touched %d devices, want 4", len(rep.Results[0].Devices))
	}
}

func TestDispatch_UnknownDevice(t *testing.T) {
	reg := newFlaky()
	reg.R = registry.New(registry.WithLogger(quietLogger()), registry.WithDevices(registry.DefaultDevices[:2]))
	d, sink := newTestDispatcher(reg)
	before := d.Mirror().Snapshot()

	rep := d.Dispatch(t.Context(), fingers(4))
	if rep.Outcome() != UnknownDevice {
		t.Fatalf("outcome = %s, want unknown_device", rep.Outcome())
	}
	after := d.Mirror().Snapshot()
	for id := range before {
		if before[id] != after[id] {
			t.Errorf("device %s changed on unknown target", id)
		}
	}
	if fb := sink.all(); len(fb) != 1 || fb[0].Type != FeedbackError {
		t.Errorf("feedback = %+v", fb)
	}
}

func TestDispatch_Disabled(t *testing.T) {
	reg := newFlaky()
	off := false
	reg.R.UpdateSettings(registry.SettingsPatch{Enabled: &off})
	d, _ := newTestDispatcher(reg)

	rep := d.Dispatch(t.Context(), fingers(1))
	if rep.Outcome() != Disabled {
		t.Fatalf("outcome = %s, want disabled", rep.Outcome())
	}
	if s, _ := d.Mirror().Get("1"); s.Status {
		t.Error("disabled dispatch mutated mirror")
	}
}

func TestDispatch_LocallyDisabled(t *testing.T) {
	reg := newFlaky()
	d, _ := newTestDispatcher(reg, WithEnabled(func() bool { return false }))

	rep := d.Dispatch(t.Context(), fingers(1))
	if rep.Outcome() != Disabled {
		t.Fatalf("outcome = %s", rep.Outcome())
	}
	if reg.calls != 0 {
		t.Errorf("registry called %d times while locally disabled", reg.calls)
	}
}

func TestDispatch_NotRecognized(t *testing.T) {
	reg := newFlaky()
	d, sink := newTestDispatcher(reg)

	rep := d.Dispatch(t.Context(), gesture.Event{Gesture: "peace", Confidence: 0.9})
	if rep.Outcome() != NotRecognized {
		t.Fatalf("outcome = %s", rep.Outcome())
	}
	if reg.calls != 0 {
		t.Error("registry called for unrecognized gesture")
	}
	if fb := sink.all(); len(fb) != 1 || fb[0].Type != FeedbackGestureDetected {
		t.Errorf("feedback = %+v", fb)
	}
}

func TestSimulate(t *testing.T) {
	reg := newFlaky()
	d, sink := newTestDispatcher(reg)

	rep := d.Simulate(t.Context(), 2, "")
	if rep.Event.Confidence != gesture.SimulatedConfidence {
		t.Errorf("confidence = %v", rep.Event.Confidence)
	}
	if rep.Outcome() != Confirmed {
		t.Errorf("outcome = %s", rep.Outcome())
	}

	rep = d.Simulate(t.Context(), 0, "wave_left")
	if rep.Outcome() != Confirmed || rep.Event.Gesture != gesture.WaveLeft {
		t.Errorf("named simulate = %+v", rep)
	}
	if len(sink.all()) != 2 {
		t.Errorf("feedback events = %d, want 2", len(sink.all()))
	}
}

func TestDispatch_StatsEveryAttempt(t *testing.T) {
	reg := newFlaky()
	d, _ := newTestDispatcher(reg)

	d.Dispatch(t.Context(), gesture.Event{FingerCount: 1, Confidence: 0.8})
	reg.setDown(true)
	d.Dispatch(t.Context(), gesture.Event{FingerCount: 1, Confidence: 1.0})
	d.Dispatch(t.Context(), gesture.Event{Gesture: "nope", Confidence: 0.9})

	s := d.Stats()
	if s.GestureCount != 3 {
		t.Errorf("count = %d, want 3", s.GestureCount)
	}
	if s.AverageConfidence < 0.899 || s.AverageConfidence > 0.901 {
		t.Errorf("average = %v, want 0.9", s.AverageConfidence)
	}
}
