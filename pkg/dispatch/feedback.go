package dispatch

import "time"

// FeedbackType classifies a feedback event for the UI/audio layer.
type FeedbackType string

const (
	FeedbackGestureDetected FeedbackType = "gesture_detected"
	FeedbackStatusChanged   FeedbackType = "status_changed"
	FeedbackError           FeedbackType = "error"
)

// Feedback is emitted once per dispatch attempt.
type Feedback struct {
	ID         string          `json:"id"`
	Type       FeedbackType    `json:"type"`
	Outcome    Outcome         `json:"outcome"`
	Gesture    string          `json:"gesture"`
	Confidence float64         `json:"confidence"`
	Message    string          `json:"message,omitempty"`
	Devices    []MirroredState `json:"devices,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Sink receives feedback. Emit must not block.
type Sink interface {
	Emit(Feedback)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Feedback)

// Emit calls f.
func (f SinkFunc) Emit(fb Feedback) { f(fb) }

type nopSink struct{}

func (nopSink) Emit(Feedback) {}

// MultiSink fans feedback out to several sinks.
type MultiSink []Sink

// Emit forwards to every sink.
func (ms MultiSink) Emit(fb Feedback) {
	for _, s := range ms {
		s.Emit(fb)
	}
}

func feedbackType(o Outcome) FeedbackType {
	switch o {
	case Confirmed, Fallback:
		return FeedbackStatusChanged
	case NotRecognized:
		return FeedbackGestureDetected
	default:
		return FeedbackError
	}
}
