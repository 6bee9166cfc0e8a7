package dispatch

import (
	"sync"
	"time"
)

// StatsWindow is how many recent dispatches the rolling average covers.
const StatsWindow = 100

// Stats counts dispatch attempts and tracks a rolling average confidence.
type Stats struct {
	mu     sync.Mutex
	count  uint64
	window [StatsWindow]float64
	filled int
	next   int
	sum    float64
	last   time.Time
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	GestureCount      uint64    `json:"gestureCount"`
	AverageConfidence float64   `json:"averageConfidence"`
	LastDispatch      time.Time `json:"lastDispatch"`
}

// Record adds one attempt.
func (s *Stats) Record(confidence float64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.filled == StatsWindow {
		s.sum -= s.window[s.next]
	} else {
		s.filled++
	}
	s.window[s.next] = confidence
	s.sum += confidence
	s.next = (s.next + 1) % StatsWindow
	s.last = at
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{GestureCount: s.count, LastDispatch: s.last}
	if s.filled > 0 {
		snap.AverageConfidence = s.sum / float64(s.filled)
	}
	return snap
}
