package capture

import (
	"errors"
	"fmt"
)

// Sentinel errors for the capture package.
var (
	// ErrPermissionDenied indicates the user refused device access.
	ErrPermissionDenied = errors.New("capture: permission denied")

	// ErrDeviceUnavailable indicates no matching capture device exists.
	ErrDeviceUnavailable = errors.New("capture: device unavailable")

	// ErrStreamStopped indicates an operation on a stream that was already
	// stopped or pre-empted by a newer acquisition.
	ErrStreamStopped = errors.New("capture: stream stopped")

	// ErrRecordingCancelled indicates the recording was cancelled before
	// any audio was packaged.
	ErrRecordingCancelled = errors.New("capture: recording cancelled")
)

// DeviceError wraps a device failure with the kind that failed.
type DeviceError struct {
	Kind Kind
	Err  error
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("capture [%s]: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// IsPermissionDenied reports whether err is a permission refusal.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsDeviceUnavailable reports whether err means no device was found.
func IsDeviceUnavailable(err error) bool {
	return errors.Is(err, ErrDeviceUnavailable)
}
