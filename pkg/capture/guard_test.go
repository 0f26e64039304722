package capture

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGuardMutualExclusion(t *testing.T) {
	t.Run("second acquire pre-empts first", func(t *testing.T) {
		p := NewMockProvider()
		g := NewGuard(p)

		first, err := g.Acquire(context.Background(), Camera, Constraints{})
		if err != nil {
			t.Fatalf("acquire failed: %v", err)
		}
		second, err := g.Acquire(context.Background(), Camera, Constraints{})
		if err != nil {
			t.Fatalf("second acquire failed: %v", err)
		}

		if !first.Stopped() {
			t.Error("first stream should be stopped after pre-emption")
		}
		if second.Stopped() {
			t.Error("second stream should still be open")
		}
		if n := p.OpenStreamsOf(Camera); n != 1 {
			t.Errorf("expected exactly 1 open camera stream, got %d", n)
		}
	})

	t.Run("different kinds coexist", func(t *testing.T) {
		p := NewMockProvider()
		g := NewGuard(p)

		cam, _ := g.Acquire(context.Background(), Camera, Constraints{})
		mic, _ := g.Acquire(context.Background(), Microphone, Constraints{})

		if cam.Stopped() || mic.Stopped() {
			t.Error("camera and microphone should not pre-empt each other")
		}
	})

	t.Run("release is idempotent", func(t *testing.T) {
		p := NewMockProvider()
		g := NewGuard(p)

		s, _ := g.Acquire(context.Background(), Camera, Constraints{})
		g.Release(s)
		g.Release(s)

		if _, held := g.Holder(Camera); held {
			t.Error("guard should not hold a released stream")
		}
		if n := p.OpenStreams(); n != 0 {
			t.Errorf("expected 0 open streams, got %d", n)
		}
	})

	t.Run("releasing a pre-empted stream keeps the new holder", func(t *testing.T) {
		p := NewMockProvider()
		g := NewGuard(p)

		old, _ := g.Acquire(context.Background(), Camera, Constraints{})
		current, _ := g.Acquire(context.Background(), Camera, Constraints{})
		g.Release(old)

		holder, held := g.Holder(Camera)
		if !held || holder.ID() != current.ID() {
			t.Error("pre-empted release must not evict the current holder")
		}
	})

	t.Run("release all", func(t *testing.T) {
		p := NewMockProvider()
		g := NewGuard(p)

		g.Acquire(context.Background(), Camera, Constraints{})
		g.Acquire(context.Background(), Microphone, Constraints{})
		g.ReleaseAll()

		if n := p.OpenStreams(); n != 0 {
			t.Errorf("expected all streams stopped, got %d open", n)
		}
	})
}

func TestGuardErrors(t *testing.T) {
	t.Run("permission denied surfaces typed error", func(t *testing.T) {
		p := NewMockProvider()
		p.OpenErr[Microphone] = ErrPermissionDenied
		g := NewGuard(p)

		_, err := g.Acquire(context.Background(), Microphone, Constraints{})
		if !IsPermissionDenied(err) {
			t.Errorf("expected permission denied, got %v", err)
		}
		var devErr *DeviceError
		if !errors.As(err, &devErr) || devErr.Kind != Microphone {
			t.Errorf("expected microphone DeviceError, got %v", err)
		}
	})

	t.Run("failed acquire leaves no holder", func(t *testing.T) {
		p := NewMockProvider()
		p.OpenErr[Camera] = ErrDeviceUnavailable
		g := NewGuard(p)

		g.Acquire(context.Background(), Camera, Constraints{})
		if _, held := g.Holder(Camera); held {
			t.Error("guard must not hold a stream after a failed acquire")
		}
	})
}

func TestCameraEnumeration(t *testing.T) {
	t.Run("cached after first success", func(t *testing.T) {
		p := NewMockProvider()
		g := NewGuard(p)

		first, err := g.Cameras(context.Background())
		if err != nil {
			t.Fatalf("enumerate failed: %v", err)
		}
		second, _ := g.Cameras(context.Background())

		if p.EnumerateCalls != 1 {
			t.Errorf("expected 1 enumeration, got %d", p.EnumerateCalls)
		}
		if len(first) != 2 || len(second) != 2 {
			t.Errorf("expected 2 cameras, got %d then %d", len(first), len(second))
		}
	})

	t.Run("failure is retried lazily", func(t *testing.T) {
		p := NewMockProvider()
		p.EnumerateErr = ErrPermissionDenied
		g := NewGuard(p)

		if _, err := g.Cameras(context.Background()); err == nil {
			t.Fatal("expected enumeration failure")
		}
		p.EnumerateErr = nil
		if _, err := g.Cameras(context.Background()); err != nil {
			t.Errorf("expected lazy retry to succeed, got %v", err)
		}
		if p.EnumerateCalls != 2 {
			t.Errorf("expected 2 enumeration attempts, got %d", p.EnumerateCalls)
		}
	})

	t.Run("next camera cycles devices", func(t *testing.T) {
		p := NewMockProvider()
		g := NewGuard(p)

		c1, err := g.NextCamera(context.Background())
		if err != nil {
			t.Fatalf("flip failed: %v", err)
		}
		c2, _ := g.NextCamera(context.Background())
		c3, _ := g.NextCamera(context.Background())

		if c1.DeviceID == c2.DeviceID {
			t.Error("flip should select a different device")
		}
		if c3.DeviceID != c1.DeviceID {
			t.Error("flip should wrap around")
		}
	})
}

func TestRecordClip(t *testing.T) {
	t.Run("records and releases", func(t *testing.T) {
		p := NewMockProvider()
		g := NewGuard(p)

		clip, err := g.RecordClip(context.Background(), Constraints{}, 6*time.Second)
		if err != nil {
			t.Fatalf("record failed: %v", err)
		}
		if string(clip) != "clip" {
			t.Errorf("unexpected clip %q", clip)
		}
		if n := p.OpenStreams(); n != 0 {
			t.Errorf("stream must be released after recording, %d open", n)
		}
	})

	t.Run("releases on recording failure", func(t *testing.T) {
		p := NewMockProvider()
		p.RecordErr = errors.New("device wedged")
		g := NewGuard(p)

		if _, err := g.RecordClip(context.Background(), Constraints{}, time.Second); err == nil {
			t.Fatal("expected recording failure")
		}
		if n := p.OpenStreams(); n != 0 {
			t.Errorf("stream must be released on failure, %d open", n)
		}
	})

	t.Run("permission denial does not leak a stream", func(t *testing.T) {
		p := NewMockProvider()
		p.OpenErr[Microphone] = ErrPermissionDenied
		g := NewGuard(p)

		if _, err := g.RecordClip(context.Background(), Constraints{}, time.Second); !IsPermissionDenied(err) {
			t.Fatalf("expected permission denied, got %v", err)
		}
		if n := p.OpenStreams(); n != 0 {
			t.Errorf("expected no open streams, got %d", n)
		}
	})
}
