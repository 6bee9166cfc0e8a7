package source

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-gesture-home/pkg/gesture"
)

// MockSource replays scripted frames at a fixed interval.
// Once the script is exhausted Next blocks until the context ends,
// unless Loop is set.
type MockSource struct {
	mu       sync.Mutex
	frames   []gesture.Frame
	pos      int
	interval time.Duration
	closed   bool

	Loop bool
}

// NewMockSource creates a mock source. interval 0 returns frames immediately.
func NewMockSource(interval time.Duration, frames ...gesture.Frame) *MockSource {
	return &MockSource{frames: frames, interval: interval}
}

// Push appends frames to the script.
func (m *MockSource) Push(frames ...gesture.Frame) {
	m.mu.Lock()
	m.frames = append(m.frames, frames...)
	m.mu.Unlock()
}

// Next returns the next scripted frame, stamped with the current time
// when the script left the timestamp empty.
func (m *MockSource) Next(ctx context.Context) (gesture.Frame, error) {
	if m.interval > 0 {
		select {
		case <-ctx.Done():
			return gesture.Frame{}, ctx.Err()
		case <-time.After(m.interval):
		}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return gesture.Frame{}, ErrUnavailable
	}
	if m.pos >= len(m.frames) && m.Loop && len(m.frames) > 0 {
		m.pos = 0
	}
	if m.pos < len(m.frames) {
		f := m.frames[m.pos]
		m.pos++
		m.mu.Unlock()
		if f.Timestamp.IsZero() {
			f.Timestamp = time.Now()
		}
		return f, nil
	}
	m.mu.Unlock()

	<-ctx.Done()
	return gesture.Frame{}, ctx.Err()
}

// Remaining returns how many scripted frames have not been read.
func (m *MockSource) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames) - m.pos
}

// Close marks the source closed; later reads report ErrUnavailable.
func (m *MockSource) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

var _ Source = (*MockSource)(nil)

// SyntheticHand builds an in-frame hand with n fingers (index first)
// extended and the thumb folded. n is clamped to [0,4].
func SyntheticHand(n int) gesture.Hand {
	var h gesture.Hand
	for i := range h.Landmarks {
		h.Landmarks[i] = gesture.Point{X: 0.5, Y: 0.5}
	}
	h.Landmarks[gesture.Wrist] = gesture.Point{X: 0.5, Y: 0.9}
	h.Landmarks[gesture.ThumbIP] = gesture.Point{X: 0.4, Y: 0.6}
	h.Landmarks[gesture.ThumbTip] = gesture.Point{X: 0.5, Y: 0.6}

	fingers := [][2]int{
		{gesture.IndexTip, gesture.IndexPIP},
		{gesture.MiddleTip, gesture.MiddlePIP},
		{gesture.RingTip, gesture.RingPIP},
		{gesture.PinkyTip, gesture.PinkyPIP},
	}
	for i, f := range fingers {
		h.Landmarks[f[1]] = gesture.Point{X: 0.5, Y: 0.4}
		if i < n {
			h.Landmarks[f[0]] = gesture.Point{X: 0.5, Y: 0.2}
		} else {
			h.Landmarks[f[0]] = gesture.Point{X: 0.5, Y: 0.6}
		}
	}
	return h
}

// SyntheticFrame wraps SyntheticHand in a frame; n < 0 yields an empty frame.
func SyntheticFrame(n int) gesture.Frame {
	if n < 0 {
		return gesture.Frame{}
	}
	return gesture.Frame{Hands: []gesture.Hand{SyntheticHand(n)}}
}
