// Package capture arbitrates exclusive ownership of microphone and camera
// streams across competing workflows.
//
// The physical devices live behind a Provider implemented by the host
// environment. This package layers the ownership discipline on top: at most
// one open stream per device kind, idempotent pre-emption on acquire, and
// guaranteed release on every exit path of a recording workflow.
package capture

import (
	"context"
	"time"
)

// Kind identifies a class of capture device.
type Kind string

const (
	Microphone Kind = "microphone"
	Camera     Kind = "camera"
)

// Constraints narrows device selection when opening a stream.
type Constraints struct {
	// DeviceID selects a specific device; empty means the default.
	DeviceID string

	// FacingMode is "user" or "environment" for cameras.
	FacingMode string

	// Width and Height request a capture resolution (cameras only).
	Width  int
	Height int
}

// DeviceInfo describes an enumerable capture device.
type DeviceInfo struct {
	ID    string
	Kind  Kind
	Label string
}

// Stream is an open capture stream. Stop is idempotent.
type Stream interface {
	// ID returns the stream's unique identifier.
	ID() string

	// Kind returns the device kind this stream captures from.
	Kind() Kind

	// Stop releases the underlying device. Safe to call more than once.
	Stop()

	// Stopped reports whether the stream has been stopped.
	Stopped() bool
}

// FrameSource is implemented by camera streams.
type FrameSource interface {
	// CaptureFrame grabs a single frame as a JPEG data URL.
	CaptureFrame(ctx context.Context) (string, error)
}

// Recorder is implemented by microphone streams.
type Recorder interface {
	// Record buffers audio until ctx is cancelled or max elapses, then
	// packages the buffered audio as a single payload. A cancellation
	// before any audio was captured returns ErrRecordingCancelled.
	Record(ctx context.Context, max time.Duration) ([]byte, error)
}

// Provider opens streams on physical devices. Implementations surface
// permission refusals as ErrPermissionDenied and missing hardware as
// ErrDeviceUnavailable, wrapped in a DeviceError.
type Provider interface {
	// Open acquires a device of the given kind.
	Open(ctx context.Context, kind Kind, c Constraints) (Stream, error)

	// Enumerate lists available devices. Requires a prior successful
	// permission grant on most platforms.
	Enumerate(ctx context.Context) ([]DeviceInfo, error)
}
