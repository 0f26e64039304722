package capture

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a Provider for testing. It records every open and lets
// tests inject failures per device kind.
type MockProvider struct {
	mu sync.Mutex

	// Configurable behavior
	OpenErr      map[Kind]error
	EnumerateErr error
	Devices      []DeviceInfo
	Frame        string // returned by camera CaptureFrame
	FrameErr     error
	Clip         []byte // returned by microphone Record
	RecordErr    error

	// Captured calls for assertions
	Opened         []Kind
	EnumerateCalls int
	streams        []*MockStream
}

// NewMockProvider creates a MockProvider with one camera and one microphone.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		OpenErr: make(map[Kind]error),
		Devices: []DeviceInfo{
			{ID: "cam-front", Kind: Camera, Label: "Front Camera"},
			{ID: "cam-back", Kind: Camera, Label: "Back Camera"},
			{ID: "mic-default", Kind: Microphone, Label: "Default Microphone"},
		},
		Frame: "data:image/jpeg;base64,ZnJhbWU=",
		Clip:  []byte("clip"),
	}
}

// Open implements Provider.
func (p *MockProvider) Open(ctx context.Context, kind Kind, c Constraints) (Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.OpenErr[kind]; err != nil {
		return nil, &DeviceError{Kind: kind, Err: err}
	}
	s := &MockStream{
		id:       uuid.NewString(),
		kind:     kind,
		provider: p,
	}
	p.Opened = append(p.Opened, kind)
	p.streams = append(p.streams, s)
	return s, nil
}

// Enumerate implements Provider.
func (p *MockProvider) Enumerate(ctx context.Context) ([]DeviceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.EnumerateCalls++
	if p.EnumerateErr != nil {
		return nil, p.EnumerateErr
	}
	return p.Devices, nil
}

// OpenStreams returns how many streams are currently open.
func (p *MockProvider) OpenStreams() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.streams {
		if !s.Stopped() {
			n++
		}
	}
	return n
}

// OpenStreamsOf returns how many streams of the given kind are open.
func (p *MockProvider) OpenStreamsOf(kind Kind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.streams {
		if s.kind == kind && !s.Stopped() {
			n++
		}
	}
	return n
}

// MockStream is the stream type produced by MockProvider.
type MockStream struct {
	id       string
	kind     Kind
	provider *MockProvider

	mu        sync.Mutex
	stopped   bool
	StopCalls int
}

// ID implements Stream.
func (s *MockStream) ID() string { return s.id }

// Kind implements Stream.
func (s *MockStream) Kind() Kind { return s.kind }

// Stop implements Stream.
func (s *MockStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopCalls++
	s.stopped = true
}

// Stopped implements Stream.
func (s *MockStream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// CaptureFrame implements FrameSource for camera streams.
func (s *MockStream) CaptureFrame(ctx context.Context) (string, error) {
	if s.Stopped() {
		return "", ErrStreamStopped
	}
	if s.provider.FrameErr != nil {
		return "", s.provider.FrameErr
	}
	return s.provider.Frame, nil
}

// Record implements Recorder for microphone streams.
func (s *MockStream) Record(ctx context.Context, max time.Duration) ([]byte, error) {
	if s.Stopped() {
		return nil, ErrStreamStopped
	}
	if s.provider.RecordErr != nil {
		return nil, s.provider.RecordErr
	}
	select {
	case <-ctx.Done():
		return nil, ErrRecordingCancelled
	default:
	}
	return s.provider.Clip, nil
}
