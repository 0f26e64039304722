package capture

import (
	"context"
	"sync"
	"time"
)

// Guard enforces single ownership of capture streams per device kind.
// Acquiring a kind that is already held stops the previous holder first,
// so concurrent owners of the same physical device cannot exist.
type Guard struct {
	provider Provider

	mu     sync.Mutex
	active map[Kind]Stream

	// Camera enumeration is cached after the first successful grant;
	// re-enumeration is not forced on every capture.
	cameras       []DeviceInfo
	camerasCached bool
	cameraIndex   int
}

// NewGuard creates a Guard over the given device provider.
func NewGuard(p Provider) *Guard {
	return &Guard{
		provider: p,
		active:   make(map[Kind]Stream),
	}
}

// Acquire opens a stream of the given kind, pre-empting any stream of the
// same kind that this guard still holds. The old stream is stopped before
// the new open resolves.
func (g *Guard) Acquire(ctx context.Context, kind Kind, c Constraints) (Stream, error) {
	g.mu.Lock()
	if prev, ok := g.active[kind]; ok {
		prev.Stop()
		delete(g.active, kind)
	}
	g.mu.Unlock()

	stream, err := g.provider.Open(ctx, kind, c)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	// An acquire that raced us in could have installed a stream while the
	// open was in flight; the newest acquisition wins.
	if prev, ok := g.active[kind]; ok {
		prev.Stop()
	}
	g.active[kind] = stream
	g.mu.Unlock()

	return stream, nil
}

// Release stops the stream and clears it from the guard if it is still the
// active holder of its kind. Releasing an already-released or pre-empted
// stream is a no-op.
func (g *Guard) Release(stream Stream) {
	if stream == nil {
		return
	}
	stream.Stop()

	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.active[stream.Kind()]; ok && cur.ID() == stream.ID() {
		delete(g.active, stream.Kind())
	}
}

// ReleaseAll stops every stream the guard holds.
func (g *Guard) ReleaseAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for kind, stream := range g.active {
		stream.Stop()
		delete(g.active, kind)
	}
}

// Holder returns the active stream of the given kind, if any.
func (g *Guard) Holder(kind Kind) (Stream, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.active[kind]
	return s, ok
}

// Cameras returns the available camera devices, enumerating at most once
// after the first successful permission grant.
func (g *Guard) Cameras(ctx context.Context) ([]DeviceInfo, error) {
	g.mu.Lock()
	if g.camerasCached {
		cached := g.cameras
		g.mu.Unlock()
		return cached, nil
	}
	g.mu.Unlock()

	devices, err := g.provider.Enumerate(ctx)
	if err != nil {
		return nil, err
	}

	var cameras []DeviceInfo
	for _, d := range devices {
		if d.Kind == Camera {
			cameras = append(cameras, d)
		}
	}

	g.mu.Lock()
	g.cameras = cameras
	g.camerasCached = true
	g.mu.Unlock()
	return cameras, nil
}

// NextCamera cycles to the next enumerated camera and returns its
// constraints, for the camera-flip interaction.
func (g *Guard) NextCamera(ctx context.Context) (Constraints, error) {
	cameras, err := g.Cameras(ctx)
	if err != nil {
		return Constraints{}, err
	}
	if len(cameras) == 0 {
		return Constraints{}, &DeviceError{Kind: Camera, Err: ErrDeviceUnavailable}
	}

	g.mu.Lock()
	g.cameraIndex = (g.cameraIndex + 1) % len(cameras)
	device := g.cameras[g.cameraIndex]
	g.mu.Unlock()

	return Constraints{DeviceID: device.ID}, nil
}

// RecordClip runs the uniform timed-recording workflow: acquire a
// microphone, record until the cap elapses or ctx is cancelled, and release
// the stream unconditionally, including when recording fails.
func (g *Guard) RecordClip(ctx context.Context, c Constraints, max time.Duration) ([]byte, error) {
	stream, err := g.Acquire(ctx, Microphone, c)
	if err != nil {
		return nil, err
	}
	defer g.Release(stream)

	rec, ok := stream.(Recorder)
	if !ok {
		return nil, &DeviceError{Kind: Microphone, Err: ErrDeviceUnavailable}
	}
	return rec.Record(ctx, max)
}
