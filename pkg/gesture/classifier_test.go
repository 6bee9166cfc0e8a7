package gesture

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

// makeHand builds an in-frame hand with the given fingers extended.
func makeHand(thumb bool, index, middle, ring, pinky bool) Hand {
	var h Hand
	for i := range h.Landmarks {
		h.Landmarks[i] = Point{X: 0.5, Y: 0.5}
	}
	h.Landmarks[Wrist] = Point{X: 0.5, Y: 0.9}

	h.Landmarks[ThumbIP] = Point{X: 0.4, Y: 0.6}
	if thumb {
		h.Landmarks[ThumbTip] = Point{X: 0.3, Y: 0.6}
	} else {
		h.Landmarks[ThumbTip] = Point{X: 0.5, Y: 0.6}
	}

	set := func(tip, pip int, extended bool) {
		h.Landmarks[pip] = Point{X: 0.5, Y: 0.4}
		if extended {
			h.Landmarks[tip] = Point{X: 0.5, Y: 0.2}
		} else {
			h.Landmarks[tip] = Point{X: 0.5, Y: 0.6}
		}
	}
	set(IndexTip, IndexPIP, index)
	set(MiddleTip, MiddlePIP, middle)
	set(RingTip, RingPIP, ring)
	set(PinkyTip, PinkyPIP, pinky)
	return h
}

func TestCountFingers(t *testing.T) {
	tests := []struct {
		name string
		hand Hand
		want int
	}{
		{"fist", makeHand(false, false, false, false, false), 0},
		{"index", makeHand(false, true, false, false, false), 1},
		{"peace", makeHand(false, true, true, false, false), 2},
		{"three", makeHand(false, true, true, true, false), 3},
		{"four", makeHand(false, true, true, true, true), 4},
		{"thumb only", makeHand(true, false, false, false, false), 1},
		{"open palm clamps to four", makeHand(true, true, true, true, true), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountFingers(tt.hand); got != tt.want {
				t.Errorf("CountFingers: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVisibilityConfidence(t *testing.T) {
	h := makeHand(false, true, false, false, false)
	if got := VisibilityConfidence(h); math.Abs(got-BaseConfidence) > 1e-9 {
		t.Errorf("fully visible: got %v, want %v", got, BaseConfidence)
	}

	// Three of six key points off-screen halves the score.
	h.Landmarks[Wrist] = Point{X: 1.2, Y: 0.5}
	h.Landmarks[PinkyTip] = Point{X: 0.5, Y: -0.1}
	h.Landmarks[RingTip] = Point{X: -0.3, Y: 0.5}
	if got := VisibilityConfidence(h); math.Abs(got-BaseConfidence/2) > 1e-9 {
		t.Errorf("half visible: got %v, want %v", got, BaseConfidence/2)
	}

	// Nothing visible clamps to the floor.
	for i := range h.Landmarks {
		h.Landmarks[i] = Point{X: 2, Y: 2}
	}
	if got := VisibilityConfidence(h); got != MinConfidence {
		t.Errorf("invisible: got %v, want %v", got, MinConfidence)
	}
}

func TestClassify_NoHand(t *testing.T) {
	c := NewClassifier()
	if _, ok := c.Classify(Frame{Timestamp: time.Now()}); ok {
		t.Error("expected no observation without a hand")
	}
}

func TestClassify_UsesFirstHand(t *testing.T) {
	c := NewClassifier()
	ts := time.Now()
	f := Frame{
		Hands: []Hand{
			makeHand(false, true, true, false, false),
			makeHand(false, true, true, true, true),
		},
		Timestamp: ts,
	}

	obs, ok := c.Classify(f)
	if !ok {
		t.Fatal("expected an observation")
	}
	if obs.FingerCount != 2 {
		t.Errorf("FingerCount: got %d, want 2 (first hand)", obs.FingerCount)
	}
	if !obs.Timestamp.Equal(ts) {
		t.Errorf("Timestamp: got %v, want %v", obs.Timestamp, ts)
	}
}

func TestClassify_OutputAlwaysInRange(t *testing.T) {
	c := NewClassifier()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		var h Hand
		for j := range h.Landmarks {
			h.Landmarks[j] = Point{X: rng.Float64()*1.6 - 0.3, Y: rng.Float64()*1.6 - 0.3}
		}
		obs, ok := c.Classify(Frame{Hands: []Hand{h}})
		if !ok {
			t.Fatal("expected an observation")
		}
		if obs.FingerCount < 0 || obs.FingerCount > MaxFingers {
			t.Fatalf("FingerCount out of range: %d", obs.FingerCount)
		}
		if obs.Confidence < 0 || obs.Confidence > 1 {
			t.Fatalf("Confidence out of range: %v", obs.Confidence)
		}
	}
}

func TestObservation_Qualifies(t *testing.T) {
	tests := []struct {
		obs  Observation
		sens float64
		want bool
	}{
		{Observation{FingerCount: 2, Confidence: 0.9}, 0.7, true},
		{Observation{FingerCount: 2, Confidence: 0.7}, 0.7, true},
		{Observation{FingerCount: 2, Confidence: 0.5}, 0.7, false},
		{Observation{FingerCount: 0, Confidence: 0.9}, 0.7, false},
		{Observation{FingerCount: 5, Confidence: 0.9}, 0.7, false},
	}
	for _, tt := range tests {
		if got := tt.obs.Qualifies(tt.sens); got != tt.want {
			t.Errorf("%+v.Qualifies(%v): got %v, want %v", tt.obs, tt.sens, got, tt.want)
		}
	}
}

func TestEventLabel(t *testing.T) {
	if got := (Event{FingerCount: 3}).Label(); got != "3_fingers" {
		t.Errorf("finger label: got %q", got)
	}
	if got := (Event{Gesture: WaveLeft}).Label(); got != "wave_left" {
		t.Errorf("named label: got %q", got)
	}
	if NormalizeNamed("  Wave_Right ") != WaveRight {
		t.Error("NormalizeNamed should trim and lower-case")
	}
}
