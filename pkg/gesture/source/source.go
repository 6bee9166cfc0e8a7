// Package source provides hand-landmark producers for the gesture pipeline.
package source

import (
	"context"
	"errors"

	"github.com/teslashibe/go-gesture-home/pkg/gesture"
)

// ErrUnavailable is returned when no landmark input can be produced:
// the camera is missing, permission was denied, or the model failed to load.
var ErrUnavailable = errors.New("source: landmark input unavailable")

// Source is the interface for landmark backends.
type Source interface {
	// Next blocks until the next frame is available. A frame with no
	// hands is valid and means nothing was detected.
	Next(ctx context.Context) (gesture.Frame, error)

	// Close releases resources
	Close() error
}

// Unavailable is a Source that always reports ErrUnavailable.
// Used when the real source could not be opened.
type Unavailable struct {
	Reason error
}

// Next always fails.
func (u Unavailable) Next(ctx context.Context) (gesture.Frame, error) {
	if u.Reason != nil {
		return gesture.Frame{}, errors.Join(ErrUnavailable, u.Reason)
	}
	return gesture.Frame{}, ErrUnavailable
}

// Close is a no-op.
func (u Unavailable) Close() error { return nil }

var _ Source = Unavailable{}
