// Package debug provides global verbose-output flags.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

var (
	enabled atomic.Bool
	frames  atomic.Bool

	// Output receives debug lines. Tests may swap it.
	Output io.Writer = os.Stdout
)

// SetEnabled toggles general debug output.
func SetEnabled(v bool) { enabled.Store(v) }

// SetFrames toggles per-frame output (classifier and debounce traces).
// This is very noisy at camera frame rates.
func SetFrames(v bool) { frames.Store(v) }

// Enabled reports whether debug output is on.
func Enabled() bool { return enabled.Load() }

// Log prints a message only if debug mode is enabled
func Log(format string, args ...any) {
	if enabled.Load() {
		fmt.Fprintf(Output, format, args...)
	}
}

// FrameLog prints a message only if per-frame tracing is enabled
func FrameLog(format string, args ...any) {
	if frames.Load() {
		fmt.Fprintf(Output, format, args...)
	}
}
