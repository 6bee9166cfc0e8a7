// Package push keeps a local device mirror in step with the registry by
// subscribing to its /ws/devices feed.
package push

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-gesture-home/pkg/debug"
	"github.com/teslashibe/go-gesture-home/pkg/protocol"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
)

// Default timings.
const (
	DefaultRetryDelay = 3 * time.Second
	handshakeTimeout  = 10 * time.Second
	readTimeout       = 120 * time.Second
)

// Applier receives confirmed device states.
type Applier interface {
	ApplyConfirmed(d registry.DeviceState) bool
}

// Subscriber streams device updates into an Applier, reconnecting after
// a fixed delay until its context ends.
type Subscriber struct {
	url        string
	target     Applier
	dialer     *websocket.Dialer
	retryDelay time.Duration
	logger     *slog.Logger

	connected atomic.Bool
	updates   atomic.Uint64
}

// Option configures a Subscriber.
type Option func(*Subscriber)

// WithRetryDelay sets the reconnect delay.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Subscriber) { s.retryDelay = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Subscriber) { s.logger = l }
}

// DevicesURL derives the websocket feed URL from a registry base URL.
func DevicesURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse registry url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported registry url scheme %q", u.Scheme)
	}
	u.Path += "/ws/devices"
	return u.String(), nil
}

// New creates a subscriber for the feed at wsURL.
func New(wsURL string, target Applier, opts ...Option) *Subscriber {
	s := &Subscriber{
		url:        wsURL,
		target:     target,
		dialer:     &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		retryDelay: DefaultRetryDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "push")
	return s
}

// Connected reports whether the feed is currently connected.
func (s *Subscriber) Connected() bool { return s.connected.Load() }

// Updates returns how many pushes changed the mirror.
func (s *Subscriber) Updates() uint64 { return s.updates.Load() }

// Run connects and reconnects until ctx is done. It always returns ctx.Err().
func (s *Subscriber) Run(ctx context.Context) error {
	for {
		err := s.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("device feed lost, reconnecting", "error", err, "delay", s.retryDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
}

func (s *Subscriber) session(ctx context.Context) error {
	ws, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer ws.Close()

	s.connected.Store(true)
	defer s.connected.Store(false)
	s.logger.Info("device feed connected", "url", s.url)

	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	for {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		s.handle(data)
	}
}

func (s *Subscriber) handle(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Debug("ignoring malformed push", "error", err)
		return
	}
	if msg.Type != protocol.TypeDeviceUpdate {
		return
	}
	upd, err := msg.GetDeviceUpdate()
	if err != nil {
		s.logger.Debug("ignoring malformed device update", "error", err)
		return
	}
	if s.target.ApplyConfirmed(upd.Device.DeviceState()) {
		s.updates.Add(1)
		debug.Log("📥 push %s → %t\n", upd.Device.ID, upd.Device.Status)
	}
}
