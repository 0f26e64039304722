package perception

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oni-labs/go-buddy/pkg/capture"
	"github.com/oni-labs/go-buddy/pkg/gateway"
)

// fakeAnalyzer lets tests control when each analysis resolves.
type fakeAnalyzer struct {
	mu      sync.Mutex
	results []*gateway.AnalysisResult
	err     error
	calls   int
	block   chan struct{} // when set, Analyze waits until closed
}

func (f *fakeAnalyzer) AnalyzeEnvironment(ctx context.Context, imageData string) (*gateway.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return &gateway.AnalysisResult{Speak: false}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeVoice records spoken lines.
type fakeVoice struct {
	mu       sync.Mutex
	spoken   []string
	speaking bool
}

func (v *fakeVoice) Speak(text string, withCaptions bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.spoken = append(v.spoken, text)
}

func (v *fakeVoice) IsSpeaking() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.speaking
}

func (v *fakeVoice) lines() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.spoken...)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestLoopStart(t *testing.T) {
	t.Run("acquires camera and announces", func(t *testing.T) {
		p := capture.NewMockProvider()
		voice := &fakeVoice{}
		analyzer := &fakeAnalyzer{}
		l := New(capture.NewGuard(p), analyzer, voice)
		l.SetInterval(10 * time.Millisecond)

		if err := l.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		defer l.Stop(false)

		if !l.Active() {
			t.Error("loop should be active")
		}
		waitFor(t, func() bool { return analyzer.callCount() >= 1 }, "first cycle never ran")

		lines := voice.lines()
		if len(lines) == 0 || lines[0] != msgActivated {
			t.Errorf("expected activation message, got %v", lines)
		}
	})

	t.Run("camera denial stays idle and speaks refusal", func(t *testing.T) {
		p := capture.NewMockProvider()
		p.OpenErr[capture.Camera] = capture.ErrPermissionDenied
		voice := &fakeVoice{}
		l := New(capture.NewGuard(p), &fakeAnalyzer{}, voice)

		err := l.Start(context.Background())
		if !capture.IsPermissionDenied(err) {
			t.Fatalf("expected permission denied, got %v", err)
		}
		if l.Active() {
			t.Error("loop must stay idle on camera failure")
		}
		lines := voice.lines()
		if len(lines) != 1 || lines[0] != msgCameraDenied {
			t.Errorf("expected refusal line, got %v", lines)
		}
	})

	t.Run("double start is rejected", func(t *testing.T) {
		p := capture.NewMockProvider()
		l := New(capture.NewGuard(p), &fakeAnalyzer{}, &fakeVoice{})
		l.SetInterval(time.Hour)

		if err := l.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		defer l.Stop(false)
		if err := l.Start(context.Background()); !errors.Is(err, ErrAlreadyActive) {
			t.Errorf("expected ErrAlreadyActive, got %v", err)
		}
	})
}

func TestLoopReschedule(t *testing.T) {
	t.Run("quiet result reschedules without speech", func(t *testing.T) {
		p := capture.NewMockProvider()
		voice := &fakeVoice{}
		analyzer := &fakeAnalyzer{}
		l := New(capture.NewGuard(p), analyzer, voice)
		l.SetInterval(5 * time.Millisecond)

		l.Start(context.Background())
		defer l.Stop(false)

		waitFor(t, func() bool { return analyzer.callCount() >= 3 }, "loop did not reschedule")

		// Only the activation line should have been spoken.
		if lines := voice.lines(); len(lines) != 1 {
			t.Errorf("quiet cycles must not speak, got %v", lines)
		}
	})

	t.Run("noteworthy result is spoken", func(t *testing.T) {
		p := capture.NewMockProvider()
		voice := &fakeVoice{}
		analyzer := &fakeAnalyzer{results: []*gateway.AnalysisResult{{Speak: true, Text: "I see you drinking coffee."}}}
		l := New(capture.NewGuard(p), analyzer, voice)
		l.SetInterval(time.Hour)

		l.Start(context.Background())
		defer l.Stop(false)

		waitFor(t, func() bool {
			for _, line := range voice.lines() {
				if line == "I see you drinking coffee." {
					return true
				}
			}
			return false
		}, "observation never spoken")
	})

	t.Run("speech suppressed while an utterance plays", func(t *testing.T) {
		p := capture.NewMockProvider()
		voice := &fakeVoice{speaking: true}
		analyzer := &fakeAnalyzer{results: []*gateway.AnalysisResult{{Speak: true, Text: "busy"}}}
		l := New(capture.NewGuard(p), analyzer, voice)
		l.SetInterval(time.Hour)

		l.Start(context.Background())
		defer l.Stop(false)

		waitFor(t, func() bool { return analyzer.callCount() >= 1 }, "cycle never ran")
		time.Sleep(20 * time.Millisecond)
		for _, line := range voice.lines() {
			if line == "busy" {
				t.Error("observation must not pre-empt active speech")
			}
		}
	})
}

func TestLoopStop(t *testing.T) {
	t.Run("stop during in-flight analysis discards and never re-arms", func(t *testing.T) {
		p := capture.NewMockProvider()
		voice := &fakeVoice{}
		analyzer := &fakeAnalyzer{block: make(chan struct{})}
		guard := capture.NewGuard(p)
		l := New(guard, analyzer, voice)
		l.SetInterval(time.Millisecond)

		l.Start(context.Background())
		waitFor(t, func() bool { return analyzer.callCount() == 1 }, "analysis never started")

		// Toggle off while the request is in flight.
		l.Stop(false)
		if p.OpenStreamsOf(capture.Camera) != 0 {
			t.Error("camera must be released on stop")
		}

		close(analyzer.block)
		analyzer.block = nil
		time.Sleep(50 * time.Millisecond)

		if got := analyzer.callCount(); got != 1 {
			t.Errorf("stale cycle re-armed: %d analysis calls", got)
		}
		if l.Active() {
			t.Error("loop must stay idle")
		}
	})

	t.Run("double stop releases camera once", func(t *testing.T) {
		p := capture.NewMockProvider()
		guard := capture.NewGuard(p)
		voice := &fakeVoice{}
		l := New(guard, &fakeAnalyzer{}, voice)
		l.SetInterval(time.Hour)

		l.Start(context.Background())
		l.Stop(true)
		l.Stop(true)

		if p.OpenStreamsOf(capture.Camera) != 0 {
			t.Error("camera must be released")
		}
		var confirms int
		for _, line := range voice.lines() {
			if line == msgDeactivated {
				confirms++
			}
		}
		if confirms != 1 {
			t.Errorf("expected exactly one stop confirmation, got %d", confirms)
		}
	})

	t.Run("analysis error halts loop silently", func(t *testing.T) {
		p := capture.NewMockProvider()
		voice := &fakeVoice{}
		analyzer := &fakeAnalyzer{err: errors.New("backend down")}
		l := New(capture.NewGuard(p), analyzer, voice)
		l.SetInterval(time.Millisecond)

		l.Start(context.Background())
		waitFor(t, func() bool { return !l.Active() }, "loop did not halt on error")

		if p.OpenStreamsOf(capture.Camera) != 0 {
			t.Error("camera must be released after error halt")
		}
		// Activation line only, no error speech.
		if lines := voice.lines(); len(lines) != 1 || lines[0] != msgActivated {
			t.Errorf("error stop must be silent, got %v", lines)
		}
	})
}
