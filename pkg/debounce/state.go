// Package debounce turns noisy per-frame observations into committed
// gesture events.
//
// The core is Reduce, a pure (state, event) -> (state, effects) function.
// Machine wraps it with a single cancelable timer and a commit callback.
package debounce

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-gesture-home/pkg/gesture"
)

// Phase is the debounce lifecycle position.
type Phase int

const (
	Idle Phase = iota
	Candidate
	Pending
	Executed
	Cooldown
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Candidate:
		return "candidate"
	case Pending:
		return "pending"
	case Executed:
		return "executed"
	case Cooldown:
		return "cooldown"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the complete debounce state for one session.
type State struct {
	Phase   Phase
	Enabled bool

	// LastExecuted is the finger count of the last committed gesture,
	// 0 when none. Cleared when the cooldown expires.
	LastExecuted int

	Pending      gesture.Observation
	HasPending   bool
	PendingUntil time.Time

	CooldownUntil time.Time

	Settings Settings

	// Generation changes whenever the timer is re-armed or the session
	// is reset; ticks carrying an older generation are ignored.
	Generation uint64
}

// NewState returns an enabled, idle session.
func NewState(s Settings) State {
	return State{
		Phase:    Idle,
		Enabled:  true,
		Settings: s.Normalize(),
	}
}

// InCooldown reports whether a cooldown window is open.
func (s State) InCooldown() bool {
	return !s.CooldownUntil.IsZero()
}

// nextDeadline returns the earliest outstanding deadline.
func (s State) nextDeadline() (time.Time, bool) {
	var next time.Time
	if s.HasPending {
		next = s.PendingUntil
	}
	if s.InCooldown() && (next.IsZero() || s.CooldownUntil.Before(next)) {
		next = s.CooldownUntil
	}
	return next, !next.IsZero()
}

// Event is an input to Reduce.
type Event interface{ isEvent() }

// Observed carries one classifier observation.
type Observed struct {
	Obs gesture.Observation
	At  time.Time
}

// Tick is delivered when the armed timer fires.
type Tick struct {
	At         time.Time
	Generation uint64
}

// Enable starts a fresh session.
type Enable struct{}

// Disable stops the session and drops all pending work.
type Disable struct{}

// SettingsChanged replaces the session settings.
type SettingsChanged struct {
	Settings Settings
}

func (Observed) isEvent()        {}
func (Tick) isEvent()            {}
func (Enable) isEvent()          {}
func (Disable) isEvent()         {}
func (SettingsChanged) isEvent() {}

// Effect is an output of Reduce for the owner to carry out.
type Effect interface{ isEffect() }

// ArmTimer asks the owner to (re)schedule its single timer.
type ArmTimer struct {
	At         time.Time
	Generation uint64
}

// CancelTimer asks the owner to stop its timer.
type CancelTimer struct{}

// Commit delivers a gesture to the mapper and dispatcher.
type Commit struct {
	Event gesture.Event
}

// Transition records a phase change, for logging.
type Transition struct {
	From, To Phase
}

func (ArmTimer) isEffect()    {}
func (CancelTimer) isEffect() {}
func (Commit) isEffect()      {}
func (Transition) isEffect()  {}
