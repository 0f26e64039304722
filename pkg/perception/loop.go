// Package perception runs the proactive environment-watching loop: capture
// a camera frame, submit it for analysis, optionally comment on what was
// seen, and re-arm after a fixed delay measured from the end of the cycle.
//
// The loop is deliberately not a fixed-rate ticker. Scheduling the next
// cycle only after the previous one fully finished guarantees there is
// never more than one outstanding analysis request, no matter how slow the
// backend is.
package perception

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oni-labs/go-buddy/pkg/capture"
	"github.com/oni-labs/go-buddy/pkg/gateway"
)

// DefaultInterval is the pause between the end of one analysis cycle and
// the start of the next.
const DefaultInterval = 5 * time.Second

// Spoken lines owned by the loop.
const (
	msgActivated    = "Perception mode activated. I'll let you know if I see anything interesting."
	msgDeactivated  = "Perception mode off."
	msgCameraDenied = "I can't start watching without camera access."
)

// ErrAlreadyActive is returned by Start when the loop is running.
var ErrAlreadyActive = errors.New("perception: already active")

// Analyzer submits a frame for environment analysis.
type Analyzer interface {
	AnalyzeEnvironment(ctx context.Context, imageData string) (*gateway.AnalysisResult, error)
}

// Voice is the slice of the speech controller the loop needs.
type Voice interface {
	Speak(text string, withCaptions bool)
	IsSpeaking() bool
}

// Loop is the cancellable perception cycle. States are Idle and Active;
// all transitions run through Start and Stop.
type Loop struct {
	guard    *capture.Guard
	analyzer Analyzer
	voice    Voice
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	active  bool
	stream  capture.Stream
	pending *time.Timer // armed reschedule, cleared on stop
}

// New creates an idle perception loop.
func New(guard *capture.Guard, analyzer Analyzer, voice Voice) *Loop {
	return &Loop{
		guard:    guard,
		analyzer: analyzer,
		voice:    voice,
		interval: DefaultInterval,
		logger:   slog.Default().With("component", "perception"),
	}
}

// SetInterval overrides the between-cycle delay.
func (l *Loop) SetInterval(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.interval = d
}

// Active reports whether the loop is running.
func (l *Loop) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Start acquires the camera and begins the first cycle immediately.
// On camera-acquisition failure the loop stays idle, speaks a refusal,
// and returns the acquisition error; no cycle is scheduled.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.active {
		l.mu.Unlock()
		return ErrAlreadyActive
	}
	l.mu.Unlock()

	stream, err := l.guard.Acquire(ctx, capture.Camera, capture.Constraints{FacingMode: "user"})
	if err != nil {
		l.voice.Speak(msgCameraDenied, true)
		return err
	}

	l.mu.Lock()
	l.active = true
	l.stream = stream
	l.mu.Unlock()

	l.voice.Speak(msgActivated, true)
	go l.step(ctx)
	return nil
}

// Stop transitions to idle: any armed reschedule is cleared, the camera is
// released, and in-flight work is discarded when it resolves. When announce
// is true a confirmation is spoken; error-triggered stops pass false so the
// user is not alarmed repeatedly.
func (l *Loop) Stop(announce bool) {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return
	}
	l.active = false
	if l.pending != nil {
		l.pending.Stop()
		l.pending = nil
	}
	stream := l.stream
	l.stream = nil
	l.mu.Unlock()

	if stream != nil {
		l.guard.Release(stream)
	}
	if announce {
		l.voice.Speak(msgDeactivated, true)
	}
}

// step runs one capture→analyze→decide cycle and re-arms on success.
// Liveness is re-checked after every suspension point: a Stop that raced
// with the network round-trip discards the result and never re-arms.
func (l *Loop) step(ctx context.Context) {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return
	}
	stream := l.stream
	l.mu.Unlock()

	source, ok := stream.(capture.FrameSource)
	if !ok {
		l.logger.Error("camera stream cannot capture frames")
		l.Stop(false)
		return
	}

	frame, err := source.CaptureFrame(ctx)
	if err != nil {
		l.logger.Warn("perception halted: frame capture failed", "error", err)
		l.Stop(false)
		return
	}

	result, err := l.analyzer.AnalyzeEnvironment(ctx, frame)
	if err != nil {
		l.logger.Warn("perception halted: analysis failed", "error", err)
		l.Stop(false)
		return
	}

	l.mu.Lock()
	if !l.active {
		// Stop raced with the request; the camera is already released.
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	if result.Speak && !l.voice.IsSpeaking() {
		l.voice.Speak(result.Text, true)
	}

	l.mu.Lock()
	if l.active {
		l.pending = time.AfterFunc(l.interval, func() { l.step(ctx) })
	}
	l.mu.Unlock()
}
