package debounce

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-gesture-home/pkg/debug"
	"github.com/teslashibe/go-gesture-home/pkg/gesture"
)

// Machine owns one session's debounce state and its single timer.
// All methods are safe for concurrent use; commits are delivered outside
// the lock, in the goroutine that caused them.
type Machine struct {
	mu     sync.Mutex
	state  State
	timer  *time.Timer
	now    func() time.Time
	logger *slog.Logger

	onCommit func(gesture.Event)
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithLogger sets the logger used for phase transitions.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// NewMachine creates an enabled machine. onCommit receives every committed
// gesture and may be nil.
func NewMachine(settings Settings, onCommit func(gesture.Event), opts ...Option) *Machine {
	m := &Machine{
		state:    NewState(settings),
		now:      time.Now,
		logger:   slog.Default(),
		onCommit: onCommit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Observe feeds one classifier observation.
func (m *Machine) Observe(obs gesture.Observation) {
	m.apply(Observed{Obs: obs, At: m.now()})
}

// Enable starts a fresh session (IDLE, no last gesture) if disabled.
func (m *Machine) Enable() {
	m.apply(Enable{})
}

// Disable synchronously cancels any pending timer and returns to IDLE.
// A timer callback already in flight is ignored.
func (m *Machine) Disable() {
	m.apply(Disable{})
}

// UpdateSettings replaces the session settings.
func (m *Machine) UpdateSettings(s Settings) {
	m.apply(SettingsChanged{Settings: s})
}

// State returns a snapshot of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	return m.State().Phase
}

// Enabled reports whether the session is enabled.
func (m *Machine) Enabled() bool {
	return m.State().Enabled
}

func (m *Machine) apply(ev Event) {
	m.mu.Lock()
	next, effects := Reduce(m.state, ev)
	m.state = next

	var commits []gesture.Event
	for _, eff := range effects {
		switch e := eff.(type) {
		case ArmTimer:
			m.armLocked(e)
		case CancelTimer:
			m.stopLocked()
		case Commit:
			commits = append(commits, e.Event)
		case Transition:
			debug.FrameLog("⏱️  debounce %s → %s\n", e.From, e.To)
		}
	}
	callback := m.onCommit
	m.mu.Unlock()

	for _, ev := range commits {
		m.logger.Info("gesture committed", "fingers", ev.FingerCount, "confidence", ev.Confidence)
		if callback != nil {
			callback(ev)
		}
	}
}

func (m *Machine) armLocked(e ArmTimer) {
	m.stopLocked()
	delay := e.At.Sub(m.now())
	if delay < 0 {
		delay = 0
	}
	gen := e.Generation
	m.timer = time.AfterFunc(delay, func() {
		m.apply(Tick{At: m.now(), Generation: gen})
	})
}

func (m *Machine) stopLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
