package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-gesture-home/pkg/dispatch"
	"github.com/teslashibe/go-gesture-home/pkg/gesture"
	"github.com/teslashibe/go-gesture-home/pkg/gesture/source"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingSink struct {
	mu  sync.Mutex
	fbs []dispatch.Feedback
}

func (s *countingSink) Emit(fb dispatch.Feedback) {
	s.mu.Lock()
	s.fbs = append(s.fbs, fb)
	s.mu.Unlock()
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fbs)
}

func setup(t *testing.T, src source.Source, opts ...Option) (*Controller, *registry.Registry, *countingSink) {
	t.Helper()
	reg := registry.New(registry.WithLogger(quietLogger()))
	sink := &countingSink{}
	d := dispatch.New(registry.Local{R: reg}, nil, dispatch.WithLogger(quietLogger()), dispatch.WithSink(sink))
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(src, d, opts...), reg, sink
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandleFrame_RepeatedFramesToggleOnce(t *testing.T) {
	c, reg, sink := setup(t, nil)

	for i := 0; i < 3; i++ {
		c.HandleFrame(source.SyntheticFrame(1))
	}

	if sink.count() != 1 {
		t.Fatalf("dispatches = %d, want 1", sink.count())
	}
	if d, _ := reg.Get("1"); !d.Status {
		t.Error("device 1 should be on after one toggle")
	}
	st := c.Status()
	if st.LastExecuted != 1 || st.LastOutcome != dispatch.Confirmed {
		t.Errorf("status = %+v", st)
	}
}

func TestHandleFrame_IgnoresEmptyAndZeroFinger(t *testing.T) {
	c, _, sink := setup(t, nil)
	c.HandleFrame(source.SyntheticFrame(-1))
	c.HandleFrame(source.SyntheticFrame(0))
	if sink.count() != 0 {
		t.Errorf("dispatches = %d, want 0", sink.count())
	}
}

func TestDisable_BlocksCommits(t *testing.T) {
	c, reg, sink := setup(t, nil)
	c.Disable()

	c.HandleFrame(source.SyntheticFrame(2))
	if sink.count() != 0 {
		t.Error("disabled controller dispatched")
	}
	if c.Status().Enabled {
		t.Error("status reports enabled")
	}

	c.Enable()
	c.HandleFrame(source.SyntheticFrame(2))
	if d, _ := reg.Get("2"); !d.Status {
		t.Error("re-enabled controller did not dispatch")
	}
}

func TestSimulate_BypassesDebounce(t *testing.T) {
	c, reg, _ := setup(t, nil)

	c.Simulate(t.Context(), 3, "")
	rep := c.Simulate(t.Context(), 3, "")
	if rep.Outcome() != dispatch.Confirmed {
		t.Fatalf("outcome = %s", rep.Outcome())
	}
	if d, _ := reg.Get("3"); d.Status {
		t.Error("two simulated toggles should cancel out")
	}
	if rep.Event.Confidence != gesture.SimulatedConfidence {
		t.Errorf("confidence = %v", rep.Event.Confidence)
	}
}

func TestSimulate_Disabled(t *testing.T) {
	c, reg, _ := setup(t, nil)
	c.Disable()

	rep := c.Simulate(t.Context(), 1, "")
	if rep.Outcome() != dispatch.Disabled {
		t.Errorf("outcome = %s, want disabled", rep.Outcome())
	}
	if d, _ := reg.Get("1"); d.Status {
		t.Error("simulate while disabled mutated a device")
	}
}

func TestRun_UnavailableMarksInactive(t *testing.T) {
	c, _, _ := setup(t, source.Unavailable{Reason: errors.New("no camera")})

	if err := c.Run(t.Context()); err != nil {
		t.Fatalf("Run returned %v, want nil", err)
	}
	st := c.Status()
	if st.Active {
		t.Error("status should be inactive")
	}
	if st.InactiveReason == "" {
		t.Error("inactive reason should be set")
	}

	rep := c.Simulate(t.Context(), 0, "all_on")
	if rep.Outcome() != dispatch.Confirmed {
		t.Errorf("simulate after input loss = %s", rep.Outcome())
	}
}

func TestRun_DispatchesFromSource(t *testing.T) {
	src := source.NewMockSource(0,
		source.SyntheticFrame(4),
		source.SyntheticFrame(4),
		source.SyntheticFrame(4),
	)
	c, reg, sink := setup(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, func() bool { return src.Remaining() == 0 && sink.count() == 1 })
	if !c.Status().Active {
		t.Error("controller should be active while reading")
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if d, _ := reg.Get("4"); !d.Status {
		t.Error("device 4 not toggled")
	}
}

func TestRun_DelayedCommitUsesLastObservation(t *testing.T) {
	s := registry.DefaultSettings()
	s.ResponseDelayMs = 50
	c, reg, sink := setup(t, nil, WithSettings(s))

	c.HandleFrame(source.SyntheticFrame(1))
	c.HandleFrame(source.SyntheticFrame(3))

	waitFor(t, func() bool { return sink.count() == 1 })
	if d, _ := reg.Get("1"); d.Status {
		t.Error("superseded observation was dispatched")
	}
	if d, _ := reg.Get("3"); !d.Status {
		t.Error("last observation was not dispatched")
	}
}

func TestRun_CancelDropsPendingGesture(t *testing.T) {
	s := registry.DefaultSettings()
	s.ResponseDelayMs = 100
	src := source.NewMockSource(0, source.SyntheticFrame(2))
	c, reg, sink := setup(t, src, WithSettings(s))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, func() bool { return c.Status().Phase == "pending" })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got %v, want context.Canceled", err)
	}

	time.Sleep(200 * time.Millisecond)
	if sink.count() != 0 {
		t.Errorf("dispatches after shutdown = %d, want 0", sink.count())
	}
	if d, _ := reg.Get("2"); d.Status {
		t.Error("pending gesture toggled a device after shutdown")
	}
	if u := c.Status().Unconfirmed; len(u) != 0 {
		t.Errorf("unconfirmed = %v, want none", u)
	}
}

type staticSettings struct {
	s   registry.Settings
	err error
}

func (s staticSettings) GetSettings(context.Context) (registry.Settings, error) {
	return s.s, s.err
}

func TestSyncSettings(t *testing.T) {
	c, _, sink := setup(t, nil)

	remote := registry.DefaultSettings()
	remote.Enabled = false
	remote.Sensitivity = 0.95
	if err := c.SyncSettings(t.Context(), staticSettings{s: remote}); err != nil {
		t.Fatal(err)
	}
	if c.Enabled() || c.Status().Settings.Sensitivity != 0.95 {
		t.Errorf("status = %+v", c.Status())
	}
	c.HandleFrame(source.SyntheticFrame(1))
	if sink.count() != 0 {
		t.Error("dispatched after remote disable")
	}

	remote.Enabled = true
	c.SyncSettings(t.Context(), staticSettings{s: remote})
	c.HandleFrame(source.SyntheticFrame(1))
	if sink.count() != 0 {
		t.Error("0.9 confidence should not pass a 0.95 threshold")
	}

	if err := c.SyncSettings(t.Context(), staticSettings{err: errors.New("down")}); err == nil {
		t.Error("expected error from failing source")
	}
}

func TestApplySettings_RejectsInvalid(t *testing.T) {
	c, _, _ := setup(t, nil)
	bad := registry.DefaultSettings()
	bad.Sensitivity = 2
	if err := c.ApplySettings(bad); !errors.Is(err, registry.ErrInvalidSettings) {
		t.Errorf("err = %v", err)
	}
}
