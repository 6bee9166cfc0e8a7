package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-gesture-home/pkg/command"
	"github.com/teslashibe/go-gesture-home/pkg/debug"
	"github.com/teslashibe/go-gesture-home/pkg/gesture"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
)

// Outcome is the reconciled result of delivering one intent.
type Outcome string

const (
	// Confirmed means the registry applied the intent; its state was adopted.
	Confirmed Outcome = "confirmed"
	// Fallback means the registry was unreachable and the intent was applied locally.
	Fallback Outcome = "fallback"
	// UnknownDevice means the registry rejected the target; nothing changed.
	UnknownDevice Outcome = "unknown_device"
	// Disabled means gesture control is off; nothing changed.
	Disabled Outcome = "disabled"
	// NotRecognized means the gesture has no mapping; nothing changed.
	NotRecognized Outcome = "not_recognized"
	// Ignored means the gesture was refused before mapping (low confidence,
	// malformed request); nothing changed.
	Ignored Outcome = "ignored"
)

// ErrRemoteUnavailable wraps registry failures that triggered a fallback.
var ErrRemoteUnavailable = errors.New("dispatch: registry unavailable")

// Result describes one delivered intent.
type Result struct {
	ID      string          `json:"id"`
	Outcome Outcome         `json:"outcome"`
	Intent  command.Intent  `json:"intent"`
	Devices []MirroredState `json:"devices,omitempty"`
	Message string          `json:"message"`
	Err     error           `json:"-"`
}

// Report is the result of dispatching one gesture event.
type Report struct {
	Event   gesture.Event `json:"event"`
	Results []Result      `json:"results"`
}

// Outcome returns the outcome of the last result.
func (r Report) Outcome() Outcome {
	if len(r.Results) == 0 {
		return NotRecognized
	}
	return r.Results[len(r.Results)-1].Outcome
}

// Message joins the result messages.
func (r Report) Message() string {
	msgs := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		msgs = append(msgs, res.Message)
	}
	return strings.Join(msgs, "; ")
}

// Dispatcher maps committed gestures and delivers them to the registry.
type Dispatcher struct {
	reg     Registry
	mapper  *command.Mapper
	mirror  *Mirror
	sink    Sink
	stats   Stats
	logger  *slog.Logger
	now     func() time.Time
	enabled func() bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMapper overrides the default finger-slot table.
func WithMapper(m *command.Mapper) Option {
	return func(d *Dispatcher) { d.mapper = m }
}

// WithSink sets the feedback sink.
func WithSink(s Sink) Option {
	return func(d *Dispatcher) { d.sink = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithEnabled installs a local enabled check consulted before every dispatch.
func WithEnabled(fn func() bool) Option {
	return func(d *Dispatcher) { d.enabled = fn }
}

// New creates a dispatcher. A nil mirror gets a fresh, unpersisted one.
func New(reg Registry, mirror *Mirror, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		reg:    reg,
		mirror: mirror,
		sink:   nopSink{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.mirror == nil {
		d.mirror = NewMirror(nil, d.logger)
	}
	if d.mapper == nil {
		d.mapper = command.NewMapper(command.DefaultSlots)
	}
	return d
}

// SetEnabledFunc installs the local enabled check, replacing any set by
// WithEnabled. Call it before the first dispatch.
func (d *Dispatcher) SetEnabledFunc(fn func() bool) { d.enabled = fn }

// Mirror returns the local device mirror.
func (d *Dispatcher) Mirror() *Mirror { return d.mirror }

// Stats returns dispatch counters.
func (d *Dispatcher) Stats() StatsSnapshot { return d.stats.Snapshot() }

// Sync adopts the registry's full device list into the mirror.
func (d *Dispatcher) Sync(ctx context.Context) error {
	devices, err := d.reg.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	n := d.mirror.ApplyAll(devices)
	d.logger.Info("mirror synced", "devices", len(devices), "changed", n)
	return nil
}

// Simulate dispatches a gesture at a fixed high confidence, bypassing
// classification and debounce. Pass either a finger count or a gesture name.
func (d *Dispatcher) Simulate(ctx context.Context, fingerCount int, gestureType string) Report {
	ev := gesture.Event{
		FingerCount: fingerCount,
		Gesture:     gesture.NormalizeNamed(gestureType),
		Confidence:  gesture.SimulatedConfidence,
		Timestamp:   d.now(),
	}
	return d.Dispatch(ctx, ev)
}

// Dispatch maps ev and delivers every resulting intent. It never returns
// an error: failures are reconciled into outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, ev gesture.Event) Report {
	report := Report{Event: ev}
	for _, intent := range d.mapper.Map(ev) {
		res := d.deliver(ctx, intent)
		d.stats.Record(ev.Confidence, d.now())
		d.emit(ev, res)
		report.Results = append(report.Results, res)

		if res.Outcome == Confirmed {
			d.recordMetadata(ctx, ev, intent)
		}
	}
	return report
}

func (d *Dispatcher) deliver(ctx context.Context, in command.Intent) Result {
	res := Result{ID: uuid.NewString(), Intent: in}

	if !in.Mutates() {
		res.Outcome = NotRecognized
		res.Message = fmt.Sprintf("Gesture %s not recognized", in.Target)
		return res
	}
	if d.enabled != nil && !d.enabled() {
		res.Outcome = Disabled
		res.Message = registry.MsgDisabled
		return res
	}

	log := d.logger.With("intent", in.Action, "target", in.Target, "gesture", in.Source.Label())
	debug.Log("📤 dispatch %s %s (gesture %s, conf %.2f)\n", in.Action, in.Target, in.Source.Label(), in.Confidence)

	var err error
	if in.Action == command.Toggle {
		var state registry.DeviceState
		state, err = d.reg.ToggleDevice(ctx, in.Target, nil, in.Source)
		if err == nil {
			d.mirror.ApplyConfirmed(state)
			cur, _ := d.mirror.Get(state.ID)
			res.Devices = []MirroredState{cur}
		}
	} else {
		status, _ := in.DesiredStatus()
		var states map[string]registry.DeviceState
		states, err = d.reg.BulkSet(ctx, targetIDs(in.Target), status, in.Source)
		if err == nil {
			for _, s := range states {
				d.mirror.ApplyConfirmed(s)
			}
			res.Devices = d.mirrored(registry.SortedIDs(states))
		}
	}

	switch {
	case err == nil:
		res.Outcome = Confirmed
		res.Message = voiceMessage(in, res.Devices)
		log.Info("dispatch confirmed", "devices", len(res.Devices))

	case errors.Is(err, registry.ErrNotFound):
		res.Outcome = UnknownDevice
		res.Message = fmt.Sprintf("Device %s not found", in.Target)
		res.Err = err
		log.Warn("dispatch target unknown", "error", err)

	case errors.Is(err, registry.ErrDisabled):
		res.Outcome = Disabled
		res.Message = registry.MsgDisabled
		res.Err = err
		log.Info("dispatch refused, gesture control disabled")

	default:
		res.Outcome = Fallback
		res.Err = fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		res.Devices = d.fallback(in)
		res.Message = voiceMessage(in, res.Devices) + " (offline)"
		log.Warn("registry unavailable, applied locally", "error", err)
	}
	return res
}

func (d *Dispatcher) fallback(in command.Intent) []MirroredState {
	if in.Action == command.Toggle {
		return []MirroredState{d.mirror.Toggle(in.Target)}
	}
	status, _ := in.DesiredStatus()
	return d.mirror.Set(targetIDs(in.Target), status)
}

func (d *Dispatcher) mirrored(ids []string) []MirroredState {
	out := make([]MirroredState, 0, len(ids))
	for _, id := range ids {
		if s, ok := d.mirror.Get(id); ok {
			out = append(out, s)
		}
	}
	return out
}

func (d *Dispatcher) recordMetadata(ctx context.Context, ev gesture.Event, in command.Intent) {
	deviceID := ""
	if in.Target != command.TargetAll {
		deviceID = in.Target
	}
	if err := d.reg.RecordGestureMetadata(ctx, registry.MetadataFor(ev, deviceID)); err != nil {
		d.logger.Debug("gesture metadata not recorded", "error", err)
	}
}

func (d *Dispatcher) emit(ev gesture.Event, res Result) {
	d.sink.Emit(Feedback{
		ID:         res.ID,
		Type:       feedbackType(res.Outcome),
		Outcome:    res.Outcome,
		Gesture:    ev.Label(),
		Confidence: ev.Confidence,
		Message:    res.Message,
		Devices:    res.Devices,
		Timestamp:  d.now(),
	})
}

func targetIDs(target string) []string {
	if target == command.TargetAll {
		return nil
	}
	return []string{target}
}

func voiceMessage(in command.Intent, devices []MirroredState) string {
	if in.Action == command.Toggle && len(devices) == 1 {
		return fmt.Sprintf("%s turned %s", displayName(devices[0]), devices[0].StatusWord())
	}
	status, _ := in.DesiredStatus()
	if status {
		return "All devices turned on"
	}
	return "All devices turned off"
}

func displayName(d MirroredState) string {
	if d.Name != "" {
		return d.Name
	}
	return "Device " + d.ID
}
