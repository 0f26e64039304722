package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the gateway package.
var (
	// ErrSessionExpired indicates the backend rejected the session (401 on /ask).
	// Not recoverable locally; the caller must force re-authentication.
	ErrSessionExpired = errors.New("gateway: session expired")

	// ErrNotLoggedIn indicates /user/status reported no active session.
	ErrNotLoggedIn = errors.New("gateway: not logged in")

	// ErrUnrecognizedAudio indicates the backend could not transcribe a clip.
	ErrUnrecognizedAudio = errors.New("gateway: audio not recognized")

	// ErrInvalidCredentials indicates /user/login rejected the supplied
	// username or password (401).
	ErrInvalidCredentials = errors.New("gateway: invalid credentials")

	// ErrUserExists indicates /user/create found the username taken (409).
	ErrUserExists = errors.New("gateway: username already exists")
)

// APIError represents a non-2xx response from a backend endpoint.
type APIError struct {
	// Endpoint is the path that failed.
	Endpoint string

	// StatusCode is the HTTP status code (0 for transport failures).
	StatusCode int

	// Message is the error message from the backend, if any.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway: %s returned HTTP %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway: %s failed: %s", e.Endpoint, e.Message)
}

// IsUnauthorized returns true if this is an authentication failure (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsServerError returns true for server-side failures (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsSessionExpired reports whether err means the user must log in again.
func IsSessionExpired(err error) bool {
	if errors.Is(err, ErrSessionExpired) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsUnauthorized()
}
