package hub

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/teslashibe/go-gesture-home/pkg/protocol"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// attach registers a client without a websocket so the fan-out can be observed.
func attach(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan []byte, buffer)}
	h.register <- c
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_Broadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := New("test", quietLogger())
	go h.Run(ctx)

	a := attach(h, 4)
	b := attach(h, 4)
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	msg, _ := protocol.NewMessage(protocol.TypeDeviceUpdate, nil)
	if err := h.Publish(msg); err != nil {
		t.Fatal(err)
	}

	for _, c := range []*Client{a, b} {
		select {
		case data := <-c.send:
			got, err := protocol.ParseMessage(data)
			if err != nil || got.ID != msg.ID {
				t.Errorf("received %s, %v", data, err)
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := New("test", quietLogger())
	go h.Run(ctx)

	slow := attach(h, 1)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.Broadcast([]byte(`{"type":"ping"}`))
	h.Broadcast([]byte(`{"type":"ping"}`))
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Error("slow client channel should be closed")
	}
}

func TestHub_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("test", quietLogger())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	c := attach(h, 1)
	waitFor(t, func() bool { return h.IsRunning() && h.ClientCount() == 1 })
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if _, ok := <-c.send; ok {
		t.Error("client channel should be closed on shutdown")
	}
	if h.IsRunning() {
		t.Error("hub still reports running")
	}
}

func TestClient_Queue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := New("test", quietLogger())
	go h.Run(ctx)

	c := attach(h, 1)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	if !c.Queue([]byte("snapshot")) {
		t.Fatal("first Queue should succeed")
	}
	if c.Queue([]byte("overflow")) {
		t.Error("Queue on a full client should fail")
	}
	if got := string(<-c.send); got != "snapshot" {
		t.Errorf("got %q, want snapshot", got)
	}

	cancel()
	waitFor(t, func() bool { return !h.IsRunning() })
	if c.Queue([]byte("late")) {
		t.Error("Queue after shutdown should fail")
	}
}

func TestHub_JoinAndLeaveAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("test", quietLogger())
	go h.Run(ctx)

	c := attach(h, 1)
	waitFor(t, func() bool { return h.ClientCount() == 1 })
	cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	// A reader exiting after shutdown must not block on unregister.
	left := make(chan struct{})
	go func() {
		h.leave(c)
		close(left)
	}()
	select {
	case <-left:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("leave blocked after hub stopped")
	}

	// Late upgrades are refused instead of hanging on register.
	joined := make(chan error, 1)
	go func() {
		_, err := NewClient(h, nil)
		joined <- err
	}()
	select {
	case err := <-joined:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("NewClient after stop: got %v, want ErrStopped", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("NewClient blocked after hub stopped")
	}
}
