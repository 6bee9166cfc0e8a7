package debounce

import "time"

// Settings holds the tunable debounce parameters.
type Settings struct {
	Sensitivity   float64       // Minimum confidence (0-1) for an observation to count
	ResponseDelay time.Duration // Stability window before a gesture commits
	Cooldown      time.Duration // Window during which the same gesture cannot re-fire
}

// DefaultCooldown is the post-commit suppression window.
const DefaultCooldown = 1500 * time.Millisecond

// DefaultSettings returns the recommended settings: commit immediately,
// suppress repeats for 1.5s.
func DefaultSettings() Settings {
	return Settings{
		Sensitivity:   0.7,
		ResponseDelay: 0,
		Cooldown:      DefaultCooldown,
	}
}

// Responsive returns settings for quick, forgiving control.
func Responsive() Settings {
	s := DefaultSettings()
	s.Sensitivity = 0.6
	s.Cooldown = time.Second
	return s
}

// Conservative returns settings for noisy scenes: higher threshold,
// a short stability window and a longer cooldown.
func Conservative() Settings {
	s := DefaultSettings()
	s.Sensitivity = 0.8
	s.ResponseDelay = 300 * time.Millisecond
	s.Cooldown = 2500 * time.Millisecond
	return s
}

// Normalize clamps sensitivity to [0,1] and negative durations to zero.
func (s Settings) Normalize() Settings {
	if s.Sensitivity < 0 {
		s.Sensitivity = 0
	}
	if s.Sensitivity > 1 {
		s.Sensitivity = 1
	}
	if s.ResponseDelay < 0 {
		s.ResponseDelay = 0
	}
	if s.Cooldown < 0 {
		s.Cooldown = 0
	}
	return s
}
