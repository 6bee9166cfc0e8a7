package debounce

import (
	"time"

	"github.com/teslashibe/go-gesture-home/pkg/gesture"
)

// Reduce applies one event to the state. It never blocks and has no side
// effects; everything the caller must do is returned as effects.
func Reduce(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case Observed:
		return observe(s, e)
	case Tick:
		return tick(s, e)
	case Enable:
		if s.Enabled {
			return s, nil
		}
		next := NewState(s.Settings)
		next.Generation = s.Generation + 1
		return next, nil
	case Disable:
		return disable(s)
	case SettingsChanged:
		s.Settings = e.Settings.Normalize()
		return s, nil
	default:
		return s, nil
	}
}

func disable(s State) (State, []Effect) {
	if !s.Enabled {
		return s, nil
	}
	effects := []Effect{CancelTimer{}}
	if s.Phase != Idle {
		effects = append(effects, Transition{From: s.Phase, To: Idle})
	}
	next := State{
		Phase:      Idle,
		Enabled:    false,
		Settings:   s.Settings,
		Generation: s.Generation + 1,
	}
	return next, effects
}

func observe(s State, e Observed) (State, []Effect) {
	if !s.Enabled || !e.Obs.Qualifies(s.Settings.Sensitivity) {
		return s, nil
	}
	if e.Obs.FingerCount == s.LastExecuted {
		return s, nil
	}

	// Same gesture still held: keep the deadline, refresh the reading.
	if s.HasPending && s.Pending.FingerCount == e.Obs.FingerCount {
		s.Pending = e.Obs
		return s, nil
	}

	var effects []Effect
	if s.Phase != Pending {
		effects = append(effects,
			Transition{From: s.Phase, To: Candidate},
			Transition{From: Candidate, To: Pending},
		)
	}
	s.Phase = Pending
	s.Pending = e.Obs
	s.HasPending = true
	s.PendingUntil = e.At.Add(s.Settings.ResponseDelay)

	if s.Settings.ResponseDelay <= 0 {
		var fired []Effect
		s, fired = fire(s, e.At)
		effects = append(effects, fired...)
		return s, effects
	}

	s, armed := arm(s)
	return s, append(effects, armed...)
}

func tick(s State, e Tick) (State, []Effect) {
	if !s.Enabled || e.Generation != s.Generation {
		return s, nil
	}

	var effects []Effect
	if s.InCooldown() && !e.At.Before(s.CooldownUntil) {
		s.LastExecuted = 0
		s.CooldownUntil = time.Time{}
		if s.Phase == Cooldown {
			effects = append(effects, Transition{From: Cooldown, To: Idle})
			s.Phase = Idle
		}
	}

	if s.HasPending && !e.At.Before(s.PendingUntil) {
		var fired []Effect
		s, fired = fire(s, e.At)
		effects = append(effects, fired...)
		return s, effects
	}

	s, armed := arm(s)
	return s, append(effects, armed...)
}

// fire commits the pending observation and opens the cooldown window.
func fire(s State, at time.Time) (State, []Effect) {
	ev := gesture.EventFrom(s.Pending)
	effects := []Effect{
		Transition{From: Pending, To: Executed},
		Commit{Event: ev},
	}

	s.LastExecuted = s.Pending.FingerCount
	s.Pending = gesture.Observation{}
	s.HasPending = false
	s.PendingUntil = time.Time{}

	if s.Settings.Cooldown <= 0 {
		s.LastExecuted = 0
		s.CooldownUntil = time.Time{}
		s.Phase = Idle
		effects = append(effects, Transition{From: Executed, To: Idle})
		return s, effects
	}

	s.CooldownUntil = at.Add(s.Settings.Cooldown)
	s.Phase = Cooldown
	effects = append(effects, Transition{From: Executed, To: Cooldown})

	s, armed := arm(s)
	return s, append(effects, armed...)
}

// arm schedules the timer for the earliest outstanding deadline.
func arm(s State) (State, []Effect) {
	at, ok := s.nextDeadline()
	if !ok {
		return s, []Effect{CancelTimer{}}
	}
	s.Generation++
	return s, []Effect{ArmTimer{At: at, Generation: s.Generation}}
}
