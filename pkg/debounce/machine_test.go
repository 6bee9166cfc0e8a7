package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-gesture-home/internal/log"
	"github.com/teslashibe/go-gesture-home/pkg/gesture"
)

// recorder collects committed events.
type recorder struct {
	mu     sync.Mutex
	events []gesture.Event
}

func (r *recorder) commit(ev gesture.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []gesture.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gesture.Event(nil), r.events...)
}

func newTestMachine(s Settings, r *recorder) *Machine {
	return NewMachine(s, r.commit, WithLogger(log.Discard()))
}

func TestMachine_IdempotentWithoutDelay(t *testing.T) {
	rec := &recorder{}
	s := DefaultSettings()
	s.Cooldown = 60 * time.Millisecond
	m := newTestMachine(s, rec)

	for i := 0; i < 5; i++ {
		m.Observe(obs(2, 0.9))
	}
	if got := len(rec.snapshot()); got != 1 {
		t.Fatalf("commits: got %d, want 1", got)
	}

	time.Sleep(120 * time.Millisecond)
	if m.Phase() != Idle {
		t.Errorf("Phase after cooldown: got %v, want idle", m.Phase())
	}

	m.Observe(obs(2, 0.9))
	if got := len(rec.snapshot()); got != 2 {
		t.Errorf("commits after cooldown: got %d, want 2", got)
	}
}

func TestMachine_LastObservationWins(t *testing.T) {
	rec := &recorder{}
	s := DefaultSettings()
	s.ResponseDelay = 50 * time.Millisecond
	m := newTestMachine(s, rec)

	m.Observe(obs(1, 0.8))
	time.Sleep(10 * time.Millisecond)
	m.Observe(obs(3, 0.9))

	time.Sleep(150 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("commits: got %d, want 1", len(got))
	}
	if got[0].FingerCount != 3 {
		t.Errorf("FingerCount: got %d, want 3", got[0].FingerCount)
	}
}

func TestMachine_DisableCancelsPendingTimer(t *testing.T) {
	rec := &recorder{}
	s := DefaultSettings()
	s.ResponseDelay = 40 * time.Millisecond
	m := newTestMachine(s, rec)

	m.Observe(obs(2, 0.9))
	m.Disable()

	if m.Phase() != Idle || m.Enabled() {
		t.Fatalf("after Disable: phase=%v enabled=%v", m.Phase(), m.Enabled())
	}

	time.Sleep(100 * time.Millisecond)
	if got := len(rec.snapshot()); got != 0 {
		t.Errorf("disabled machine committed %d events", got)
	}
}

func TestMachine_ReenableStartsFresh(t *testing.T) {
	rec := &recorder{}
	m := newTestMachine(DefaultSettings(), rec)

	m.Observe(obs(2, 0.9))
	m.Disable()
	m.Enable()

	st := m.State()
	if st.LastExecuted != 0 || st.Phase != Idle || !st.Enabled {
		t.Fatalf("re-enabled state: %+v", st)
	}

	m.Observe(obs(2, 0.9))
	if got := len(rec.snapshot()); got != 2 {
		t.Errorf("commits: got %d, want 2", got)
	}
}

func TestMachine_ConcurrentObserve(t *testing.T) {
	rec := &recorder{}
	m := newTestMachine(DefaultSettings(), rec)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.Observe(obs(3, 0.9))
			}
		}()
	}
	wg.Wait()

	if got := len(rec.snapshot()); got != 1 {
		t.Errorf("commits: got %d, want 1", got)
	}
}
