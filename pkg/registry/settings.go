package registry

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-gesture-home/pkg/debounce"
)

// Settings are the gesture-control settings shared with controllers.
type Settings struct {
	Enabled         bool    `json:"enabled"`
	Sensitivity     float64 `json:"sensitivity"`
	DetectionRange  float64 `json:"detectionRange"`
	ResponseDelayMs int     `json:"responseDelay"`
}

// MaxResponseDelayMs bounds the response delay.
const MaxResponseDelayMs = 5000

// DefaultSettings returns enabled gesture control with a 0.7 threshold.
func DefaultSettings() Settings {
	return Settings{
		Enabled:         true,
		Sensitivity:     0.7,
		DetectionRange:  0.8,
		ResponseDelayMs: 0,
	}
}

// Validate checks every field's range.
func (s Settings) Validate() error {
	if s.Sensitivity < 0 || s.Sensitivity > 1 {
		return fmt.Errorf("%w: sensitivity %v outside [0,1]", ErrInvalidSettings, s.Sensitivity)
	}
	if s.DetectionRange <= 0 || s.DetectionRange > 1 {
		return fmt.Errorf("%w: detectionRange %v outside (0,1]", ErrInvalidSettings, s.DetectionRange)
	}
	if s.ResponseDelayMs < 0 || s.ResponseDelayMs > MaxResponseDelayMs {
		return fmt.Errorf("%w: responseDelay %dms outside [0,%d]", ErrInvalidSettings, s.ResponseDelayMs, MaxResponseDelayMs)
	}
	return nil
}

// SettingsPatch is a partial update. Nil fields are left unchanged;
// unknown JSON keys are dropped by decoding into this struct.
type SettingsPatch struct {
	Enabled         *bool    `json:"enabled,omitempty"`
	Sensitivity     *float64 `json:"sensitivity,omitempty"`
	DetectionRange  *float64 `json:"detectionRange,omitempty"`
	ResponseDelayMs *int     `json:"responseDelay,omitempty"`
}

// Apply returns s with the patch applied, or an error if the result is invalid.
func (s Settings) Apply(p SettingsPatch) (Settings, error) {
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	if p.Sensitivity != nil {
		s.Sensitivity = *p.Sensitivity
	}
	if p.DetectionRange != nil {
		s.DetectionRange = *p.DetectionRange
	}
	if p.ResponseDelayMs != nil {
		s.ResponseDelayMs = *p.ResponseDelayMs
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Debounce converts the settings for a controller's debounce machine,
// keeping the given cooldown.
func (s Settings) Debounce(cooldown time.Duration) debounce.Settings {
	return debounce.Settings{
		Sensitivity:   s.Sensitivity,
		ResponseDelay: time.Duration(s.ResponseDelayMs) * time.Millisecond,
		Cooldown:      cooldown,
	}
}
