package web

import (
	"errors"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/go-gesture-home/pkg/dispatch"
	"github.com/teslashibe/go-gesture-home/pkg/gesture"
	"github.com/teslashibe/go-gesture-home/pkg/hub"
	"github.com/teslashibe/go-gesture-home/pkg/protocol"
	"github.com/teslashibe/go-gesture-home/pkg/registry"
)

// parseOptional decodes a JSON body when one was sent.
func parseOptional(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

func fail(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(registry.StatusResponse{Success: false, Message: msg, Error: msg})
}

// handleDevices returns every device and the current settings
func (s *Server) handleDevices(c *fiber.Ctx) error {
	return c.JSON(registry.DevicesResponse{
		Success:  true,
		Devices:  s.reg.GetAll(),
		Settings: s.reg.Settings(),
	})
}

// handleToggle flips (or sets) one device
func (s *Server) handleToggle(c *fiber.Ctx) error {
	id := c.Params("id")

	var req registry.ToggleRequest
	if err := parseOptional(c, &req); err != nil {
		return err
	}
	if !s.reg.Enabled() {
		return fail(c, fiber.StatusConflict, registry.MsgDisabled)
	}

	d, previous, err := s.reg.ToggleByID(id, req.Status)
	if errors.Is(err, registry.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, registry.MsgNotFound)
	}
	if err != nil {
		return err
	}

	resp := registry.ToggleResponse{Success: true, Device: &d, PreviousStatus: previous}
	if req.FromGesture() {
		meta := registry.MetadataFor(req.Event(), id)
		resp.GestureInfo = &meta
	}
	return c.JSON(resp)
}

// handleBulk sets many devices to one status
func (s *Server) handleBulk(c *fiber.Ctx) error {
	var req registry.BulkRequest
	if err := parseOptional(c, &req); err != nil {
		return err
	}
	if !s.reg.Enabled() {
		return fail(c, fiber.StatusConflict, registry.MsgDisabled)
	}

	devices, err := s.reg.BulkSet(req.IDs, req.Status)
	if errors.Is(err, registry.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, registry.MsgNotFound)
	}
	if err != nil {
		return err
	}
	return c.JSON(registry.BulkResponse{Success: true, Devices: devices})
}

// handleProcess runs a gesture through server-side processing
func (s *Server) handleProcess(c *fiber.Ctx) error {
	var req registry.ProcessRequest
	if err := parseOptional(c, &req); err != nil {
		return err
	}
	if _, err := req.Event(); errors.Is(err, registry.ErrInvalidConfidence) {
		return fail(c, fiber.StatusBadRequest, registry.MsgBadConfidence)
	}
	res := s.reg.Process(req)
	s.emitResult(req, res)
	return c.JSON(res)
}

// handleSimulate is process at the fixed simulated confidence
func (s *Server) handleSimulate(c *fiber.Ctx) error {
	var req registry.ProcessRequest
	if err := parseOptional(c, &req); err != nil {
		return err
	}
	res := s.reg.Simulate(req)
	req.Confidence = gesture.SimulatedConfidence
	s.emitResult(req, res)
	return c.JSON(res)
}

// handleReset turns every device off
func (s *Server) handleReset(c *fiber.Ctx) error {
	devices := s.reg.Reset()
	return c.JSON(registry.BulkResponse{
		Success: true,
		Devices: devices,
		Message: registry.MsgResetComplete,
	})
}

// handleHealth returns the registry summary
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(s.reg.Health())
}

// handleSettings applies a validated partial settings update
func (s *Server) handleSettings(c *fiber.Ctx) error {
	var patch registry.SettingsPatch
	if err := parseOptional(c, &patch); err != nil {
		return err
	}
	settings, err := s.reg.UpdateSettings(patch)
	if errors.Is(err, registry.ErrInvalidSettings) {
		return c.Status(fiber.StatusBadRequest).JSON(registry.SettingsResponse{
			Success:  false,
			Settings: settings,
			Error:    err.Error(),
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(registry.SettingsResponse{Success: true, Settings: settings})
}

// handleMetadata records a gesture summary from a remote dispatcher
func (s *Server) handleMetadata(c *fiber.Ctx) error {
	var meta registry.GestureMetadata
	if err := c.BodyParser(&meta); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if meta.Label == "" {
		return fiber.NewError(fiber.StatusBadRequest, "label required")
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	s.reg.RecordGestureMetadata(meta)
	return c.JSON(registry.StatusResponse{Success: true})
}

// emitResult reports a server-side process result on the feedback feed.
func (s *Server) emitResult(req registry.ProcessRequest, res registry.ProcessResult) {
	ev, _ := req.Event()
	fb := dispatch.Feedback{
		ID:         uuid.NewString(),
		Gesture:    ev.Label(),
		Confidence: req.Confidence,
		Message:    res.Message,
		Timestamp:  time.Now(),
	}
	switch {
	case res.Success:
		fb.Type, fb.Outcome = dispatch.FeedbackStatusChanged, dispatch.Confirmed
		if res.VoiceMessage != "" {
			fb.Message = res.VoiceMessage
		}
	case len(res.Suggestions) > 0:
		fb.Type, fb.Outcome = dispatch.FeedbackGestureDetected, dispatch.NotRecognized
	case res.Message == registry.MsgDisabled:
		fb.Type, fb.Outcome = dispatch.FeedbackError, dispatch.Disabled
	case res.Message == registry.MsgNotFound:
		fb.Type, fb.Outcome = dispatch.FeedbackError, dispatch.UnknownDevice
	default:
		fb.Type, fb.Outcome = dispatch.FeedbackError, dispatch.Ignored
	}

	if res.Device != nil {
		fb.Devices = append(fb.Devices, dispatch.MirroredState{DeviceState: *res.Device, Confirmed: true})
	}
	for _, id := range registry.SortedIDs(res.Devices) {
		fb.Devices = append(fb.Devices, dispatch.MirroredState{DeviceState: res.Devices[id], Confirmed: true})
	}
	s.Emit(fb)
}

// handleFeedbackWS streams dispatch feedback
func (s *Server) handleFeedbackWS(c *websocket.Conn) {
	client, err := hub.NewClient(s.feedbackHub, c)
	if err != nil {
		s.rejectWS(c, err)
		return
	}
	client.Run()
}

// handleDevicesWS streams device updates, starting with a full snapshot
func (s *Server) handleDevicesWS(c *websocket.Conn) {
	client, err := hub.NewClient(s.deviceHub, c)
	if err != nil {
		s.rejectWS(c, err)
		return
	}
	for _, id := range s.reg.IDs() {
		d, err := s.reg.Get(id)
		if err != nil {
			continue
		}
		msg, err := protocol.NewDeviceUpdateMessage(d)
		if err != nil {
			continue
		}
		data, err := msg.Bytes()
		if err != nil {
			continue
		}
		if !client.Queue(data) {
			s.logger.Warn("device snapshot truncated", "id", id)
			break
		}
	}
	client.Run()
}

// rejectWS closes a connection that arrived after its hub stopped.
func (s *Server) rejectWS(c *websocket.Conn, err error) {
	s.logger.Debug("websocket rejected", "error", err)
	c.Close()
}
