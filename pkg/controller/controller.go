// Package controller runs one gesture-control session: it reads landmark
// frames, classifies them, debounces the observations and dispatches the
// committed gestures.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-gesture-home/pkg/debounce"
	"github.com/teslashibe/go-gesture-home/pkg/dispatch"
	"github.com/teslashibe/go-gesture-home/pkg/gesture"
	"github.com/teslashibe/go-gesture-home/pkg/gesture/source"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
)

// maxFrameErrors is how many consecutive non-fatal read errors end the loop.
const maxFrameErrors = 10

const frameRetryDelay = 100 * time.Millisecond

// SettingsSource provides the authoritative settings.
type SettingsSource interface {
	GetSettings(ctx context.Context) (registry.Settings, error)
}

// Status is a point-in-time view of the session.
type Status struct {
	Active         bool                   `json:"active"`
	InactiveReason string                 `json:"inactiveReason,omitempty"`
	Enabled        bool                   `json:"enabled"`
	Phase          string                 `json:"phase"`
	LastExecuted   int                    `json:"lastExecuted"`
	Settings       registry.Settings      `json:"settings"`
	Stats          dispatch.StatsSnapshot `json:"stats"`
	LastOutcome    dispatch.Outcome       `json:"lastOutcome,omitempty"`
	LastMessage    string                 `json:"lastMessage,omitempty"`
	Unconfirmed    []string               `json:"unconfirmed,omitempty"`
}

// Controller owns one session.
type Controller struct {
	src        source.Source
	classifier *gesture.Classifier
	machine    *debounce.Machine
	dispatcher *dispatch.Dispatcher
	cooldown   time.Duration
	logger     *slog.Logger

	mu         sync.RWMutex
	settings   registry.Settings
	active     bool
	reason     string
	lastReport *dispatch.Report
	runCtx     context.Context
}

// Option configures a Controller.
type Option func(*Controller)

// WithSettings sets the initial settings.
func WithSettings(s registry.Settings) Option {
	return func(c *Controller) { c.settings = s }
}

// WithCooldown overrides the post-commit cooldown.
func WithCooldown(d time.Duration) Option {
	return func(c *Controller) { c.cooldown = d }
}

// WithClassifier overrides the classifier.
func WithClassifier(cl *gesture.Classifier) Option {
	return func(c *Controller) { c.classifier = cl }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a controller reading from src and dispatching through d.
// A nil src means no landmark input; simulation still works.
func New(src source.Source, d *dispatch.Dispatcher, opts ...Option) *Controller {
	c := &Controller{
		src:        src,
		dispatcher: d,
		classifier: gesture.NewClassifier(),
		cooldown:   debounce.DefaultCooldown,
		settings:   registry.DefaultSettings(),
		logger:     slog.Default(),
		runCtx:     context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.src == nil {
		c.src = source.Unavailable{}
	}

	c.machine = debounce.NewMachine(
		c.settings.Debounce(c.cooldown),
		c.onCommit,
		debounce.WithLogger(c.logger),
	)
	if !c.settings.Enabled {
		c.machine.Disable()
	}
	d.SetEnabledFunc(c.Enabled)
	return c
}

// Run reads frames until ctx ends or input becomes unavailable. Losing
// input is not an error: the session is marked inactive and Run returns nil.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	c.runCtx = ctx
	c.active = true
	c.reason = ""
	enabled := c.settings.Enabled
	c.mu.Unlock()
	if enabled && !c.machine.Enabled() {
		c.machine.Enable()
	}
	c.logger.Info("gesture loop started")

	failures := 0
	for {
		frame, err := c.src.Next(ctx)
		switch {
		case err == nil:
			failures = 0
			c.HandleFrame(frame)
			continue

		case ctx.Err() != nil:
			c.stop()
			return ctx.Err()

		case errors.Is(err, source.ErrUnavailable):
			c.markInactive(err.Error())
			c.logger.Warn("landmark input unavailable, gesture loop stopped", "error", err)
			return nil
		}

		failures++
		c.logger.Warn("frame read failed", "error", err, "consecutive", failures)
		if failures >= maxFrameErrors {
			c.markInactive(fmt.Sprintf("%d consecutive frame errors: %v", failures, err))
			return nil
		}
		select {
		case <-ctx.Done():
			c.stop()
			return ctx.Err()
		case <-time.After(frameRetryDelay):
		}
	}
}

// stop ends the session on cancellation. The machine is disabled so a
// pending gesture cannot commit against the cancelled context.
func (c *Controller) stop() {
	c.machine.Disable()
	c.markInactive("stopped")
}

func (c *Controller) markInactive(reason string) {
	c.mu.Lock()
	c.active = false
	c.reason = reason
	c.mu.Unlock()
}

// HandleFrame classifies one frame and feeds the debounce machine.
func (c *Controller) HandleFrame(f gesture.Frame) {
	obs, ok := c.classifier.Classify(f)
	if !ok {
		return
	}
	c.machine.Observe(obs)
}

func (c *Controller) onCommit(ev gesture.Event) {
	c.mu.RLock()
	ctx := c.runCtx
	c.mu.RUnlock()
	if ctx.Err() != nil {
		c.logger.Debug("commit dropped after shutdown", "gesture", ev.Label())
		return
	}
	c.record(c.dispatcher.Dispatch(ctx, ev))
}

func (c *Controller) record(rep dispatch.Report) {
	c.mu.Lock()
	c.lastReport = &rep
	c.mu.Unlock()
}

// Enable starts a fresh session.
func (c *Controller) Enable() {
	c.mu.Lock()
	c.settings.Enabled = true
	c.mu.Unlock()
	c.machine.Enable()
	c.logger.Info("gesture control enabled")
}

// Disable stops committing gestures and cancels any pending one.
func (c *Controller) Disable() {
	c.mu.Lock()
	c.settings.Enabled = false
	c.mu.Unlock()
	c.machine.Disable()
	c.logger.Info("gesture control disabled")
}

// Enabled reports whether gesture control is on.
func (c *Controller) Enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings.Enabled
}

// Simulate dispatches a gesture directly, bypassing classifier and debounce.
func (c *Controller) Simulate(ctx context.Context, fingerCount int, gestureType string) dispatch.Report {
	rep := c.dispatcher.Simulate(ctx, fingerCount, gestureType)
	c.record(rep)
	return rep
}

// ApplySettings replaces the session settings, toggling the session when
// the enabled flag changes. Unchanged settings are a no-op.
func (c *Controller) ApplySettings(s registry.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	if s == c.settings {
		c.mu.Unlock()
		return nil
	}
	was := c.settings.Enabled
	c.settings = s
	c.mu.Unlock()

	c.machine.UpdateSettings(s.Debounce(c.cooldown))
	switch {
	case s.Enabled && !was:
		c.machine.Enable()
	case !s.Enabled && was:
		c.machine.Disable()
	}
	c.logger.Info("settings applied", "enabled", s.Enabled, "sensitivity", s.Sensitivity, "response_delay_ms", s.ResponseDelayMs)
	return nil
}

// SyncSettings pulls settings from src and applies them.
func (c *Controller) SyncSettings(ctx context.Context, src SettingsSource) error {
	s, err := src.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("sync settings: %w", err)
	}
	return c.ApplySettings(s)
}

// Status returns the session status.
func (c *Controller) Status() Status {
	st := c.machine.State()

	c.mu.RLock()
	s := Status{
		Active:         c.active,
		InactiveReason: c.reason,
		Enabled:        c.settings.Enabled,
		Settings:       c.settings,
	}
	if c.lastReport != nil {
		s.LastOutcome = c.lastReport.Outcome()
		s.LastMessage = c.lastReport.Message()
	}
	c.mu.RUnlock()

	s.Phase = st.Phase.String()
	s.LastExecuted = st.LastExecuted
	s.Stats = c.dispatcher.Stats()
	s.Unconfirmed = c.dispatcher.Mirror().Unconfirmed()
	return s
}
