package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/teslashibe/go-gesture-home/internal/httpc"
	"github.com/teslashibe/go-gesture-home/pkg/gesture"
)

// HTTPClient talks to a remote registry over its JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client for the registry at baseURL.
// A nil http client uses the shared httpc.Client.
func NewHTTPClient(baseURL string, client *http.Client) *HTTPClient {
	if client == nil {
		client = httpc.Client
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

// BaseURL returns the registry base URL.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := httpc.DoJSON(ctx, c.http, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("registry: %s %s: %w", method, path, err)
	}
	if !resp.OK() {
		var e StatusResponse
		_ = resp.Decode(&e)
		msg := e.Error
		if msg == "" {
			msg = e.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out != nil {
		return resp.Decode(out)
	}
	return nil
}

// gestureFields fills the gesture-origin fields of a request from ev.
func gestureFields(ev gesture.Event) (fingers *int, name string) {
	if ev.IsNamed() {
		return nil, string(ev.Gesture)
	}
	if ev.FingerCount > 0 {
		n := ev.FingerCount
		return &n, ""
	}
	return nil, ""
}

// ToggleDevice toggles a device, or sets it when desired is non-nil.
// A zero event sends a manual (non-gesture) toggle.
func (c *HTTPClient) ToggleDevice(ctx context.Context, id string, desired *bool, ev gesture.Event) (DeviceState, error) {
	req := ToggleRequest{Status: desired, Confidence: ev.Confidence}
	req.FingerCount, req.GestureType = gestureFields(ev)

	var resp ToggleResponse
	path := "/api/devices/" + url.PathEscape(id) + "/toggle"
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return DeviceState{}, err
	}
	if resp.Device == nil {
		return DeviceState{}, fmt.Errorf("registry: toggle %s: empty device in response", id)
	}
	return *resp.Device, nil
}

// BulkSet sets the listed devices (all when ids is empty) to status.
func (c *HTTPClient) BulkSet(ctx context.Context, ids []string, status bool, ev gesture.Event) (map[string]DeviceState, error) {
	req := BulkRequest{IDs: ids, Status: status, Confidence: ev.Confidence}
	req.FingerCount, req.GestureType = gestureFields(ev)

	var resp BulkResponse
	if err := c.do(ctx, http.MethodPost, "/api/devices/bulk", req, &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// GetAll returns every device.
func (c *HTTPClient) GetAll(ctx context.Context) (map[string]DeviceState, error) {
	var resp DevicesResponse
	if err := c.do(ctx, http.MethodGet, "/api/devices", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// GetSettings returns the registry's gesture settings.
func (c *HTTPClient) GetSettings(ctx context.Context) (Settings, error) {
	var resp DevicesResponse
	if err := c.do(ctx, http.MethodGet, "/api/devices", nil, &resp); err != nil {
		return Settings{}, err
	}
	return resp.Settings, nil
}

// RecordGestureMetadata posts a gesture summary.
func (c *HTTPClient) RecordGestureMetadata(ctx context.Context, meta GestureMetadata) error {
	return c.do(ctx, http.MethodPost, "/api/gesture/metadata", meta, nil)
}

// Process asks the registry to process a gesture server-side.
// A well-formed refusal (disabled, low confidence) is returned as a result, not an error.
func (c *HTTPClient) Process(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	return c.process(ctx, "/api/gesture/process", req)
}

// Simulate processes a gesture at the simulated confidence.
func (c *HTTPClient) Simulate(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	return c.process(ctx, "/api/gesture/simulate", req)
}

func (c *HTTPClient) process(ctx context.Context, path string, req ProcessRequest) (ProcessResult, error) {
	resp, err := httpc.DoJSON(ctx, c.http, http.MethodPost, c.baseURL+path, req)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("registry: POST %s: %w", path, err)
	}
	var result ProcessResult
	if err := resp.Decode(&result); err != nil {
		return ProcessResult{}, err
	}
	if !resp.OK() && result.Message == "" {
		return ProcessResult{}, &APIError{StatusCode: resp.StatusCode, Message: string(resp.Body)}
	}
	return result, nil
}

// Health returns the registry health summary.
func (c *HTTPClient) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/api/gesture/health", nil, &h)
	return h, err
}

// UpdateSettings applies a partial settings update.
func (c *HTTPClient) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	var resp SettingsResponse
	if err := c.do(ctx, http.MethodPost, "/api/gesture/settings", patch, &resp); err != nil {
		return Settings{}, err
	}
	return resp.Settings, nil
}

// ResetAll turns every device off.
func (c *HTTPClient) ResetAll(ctx context.Context) (map[string]DeviceState, error) {
	var resp BulkResponse
	if err := c.do(ctx, http.MethodPost, "/api/gesture/reset", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}
