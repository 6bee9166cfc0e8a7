// Package web serves the device registry API and the live websocket feeds.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/teslashibe/go-gesture-home/pkg/debug"
	"github.com/teslashibe/go-gesture-home/pkg/dispatch"
	"github.com/teslashibe/go-gesture-home/pkg/hub"
	"github.com/teslashibe/go-gesture-home/pkg/protocol"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
)

const shutdownTimeout = 5 * time.Second

// Server is the registry HTTP server
type Server struct {
	app    *fiber.App
	addr   string
	reg    *registry.Registry
	logger *slog.Logger

	// Hubs for websocket broadcast
	feedbackHub *hub.Hub
	deviceHub   *hub.Hub

	staticDir   string
	unsubscribe func()
}

// Option configures a Server.
type Option func(*Server)

// WithStaticDir serves dashboard files from dir at /.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server for reg listening on addr (":8080").
func NewServer(reg *registry.Registry, addr string, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		reg:    reg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web")
	s.feedbackHub = hub.New("feedback", s.logger)
	s.deviceHub = hub.New("devices", s.logger)

	app := fiber.New(fiber.Config{
		AppName:               "Gesture Home",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	if debug.Enabled() {
		app.Use(logger.New())
	}
	// CORS for the browser dashboard
	app.Use(cors.New())

	if s.staticDir != "" {
		app.Static("/", s.staticDir)
	}

	api := app.Group("/api")
	api.Get("/devices", s.handleDevices)
	api.Post("/devices/bulk", s.handleBulk)
	api.Post("/devices/:id/toggle", s.handleToggle)

	g := api.Group("/gesture")
	g.Post("/process", s.handleProcess)
	g.Post("/simulate", s.handleSimulate)
	g.Post("/reset", s.handleReset)
	g.Get("/health", s.handleHealth)
	g.Post("/settings", s.handleSettings)
	g.Post("/metadata", s.handleMetadata)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/feedback", websocket.New(s.handleFeedbackWS))
	app.Get("/ws/devices", websocket.New(s.handleDevicesWS))

	s.app = app
	s.unsubscribe = reg.Subscribe(s.publishDevice)
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs until ctx is done. Listen separately, or use Run.
func (s *Server) Start(ctx context.Context) {
	go s.feedbackHub.Run(ctx)
	go s.deviceHub.Run(ctx)
}

// Run starts the hubs and listens until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	s.Start(ctx)
	defer s.unsubscribe()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return err
		}
		return nil
	}
}

// Emit implements dispatch.Sink by pushing feedback to /ws/feedback clients.
func (s *Server) Emit(fb dispatch.Feedback) {
	msg, err := protocol.NewFeedbackMessage(fb)
	if err != nil {
		s.logger.Warn("feedback encode failed", "error", err)
		return
	}
	if err := s.feedbackHub.Publish(msg); err != nil {
		s.logger.Warn("feedback publish failed", "error", err)
	}
}

func (s *Server) publishDevice(d registry.DeviceState) {
	msg, err := protocol.NewDeviceUpdateMessage(d)
	if err != nil {
		s.logger.Warn("device update encode failed", "error", err)
		return
	}
	if err := s.deviceHub.Publish(msg); err != nil {
		s.logger.Warn("device update publish failed", "error", err)
	}
}

// handleError renders fiber errors in the API's JSON shape.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(registry.StatusResponse{Success: false, Error: err.Error()})
}

var _ dispatch.Sink = (*Server)(nil)
