package registry

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common conditions.
var (
	// ErrNotFound is returned when a device id is unknown.
	ErrNotFound = errors.New("registry: device not found")

	// ErrDisabled is returned when a device write arrives while gesture
	// control is disabled.
	ErrDisabled = errors.New("registry: gesture control is disabled")

	// ErrInvalidSettings is returned when a settings update fails validation.
	ErrInvalidSettings = errors.New("registry: invalid settings")
)

// APIError represents a non-success response from the registry API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error or message field from the response body.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("registry: API error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the device was not found (HTTP 404).
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsDisabled returns true if gesture control is disabled (HTTP 409).
func (e *APIError) IsDisabled() bool {
	return e.StatusCode == http.StatusConflict
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// Is lets errors.Is match the sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.IsNotFound()
	case ErrDisabled:
		return e.IsDisabled()
	case ErrInvalidSettings:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}
