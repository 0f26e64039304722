package heartbeat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oni-labs/go-buddy/pkg/gateway"
)

type fakePulse struct {
	mu      sync.Mutex
	results []*gateway.PulseResult
	err     error
	calls   int
}

func (f *fakePulse) CheckPulse(_ context.Context) (*gateway.PulseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return &gateway.PulseResult{}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

func (f *fakePulse) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeVoice struct {
	mu     sync.Mutex
	spoken []string
}

func (f *fakeVoice) Speak(text string, _ bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
}

func (f *fakeVoice) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestPoller(t *testing.T) {
	t.Run("speaks found message with captions", func(t *testing.T) {
		pulse := &fakePulse{results: []*gateway.PulseResult{
			{Found: true, Message: "Your document is ready."},
		}}
		voice := &fakeVoice{}

		p := New(pulse, voice, func() bool { return false })
		p.SetInterval(5 * time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		waitFor(t, func() bool { return len(voice.lines()) > 0 }, "message never spoken")
		if got := voice.lines()[0]; got != "Your document is ready." {
			t.Errorf("spoke %q", got)
		}
	})

	t.Run("empty pulse stays silent", func(t *testing.T) {
		pulse := &fakePulse{}
		voice := &fakeVoice{}

		p := New(pulse, voice, func() bool { return false })
		p.SetInterval(5 * time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		waitFor(t, func() bool { return pulse.callCount() >= 3 }, "poller never ticked")
		if len(voice.lines()) != 0 {
			t.Errorf("spoke %v for empty pulse", voice.lines())
		}
	})

	t.Run("found without message stays silent", func(t *testing.T) {
		pulse := &fakePulse{results: []*gateway.PulseResult{{Found: true}}}
		voice := &fakeVoice{}

		p := New(pulse, voice, nil)
		p.SetInterval(5 * time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		waitFor(t, func() bool { return pulse.callCount() >= 2 }, "poller never ticked")
		if len(voice.lines()) != 0 {
			t.Errorf("spoke %v for message-less pulse", voice.lines())
		}
	})

	t.Run("gated tick skips the request entirely", func(t *testing.T) {
		pulse := &fakePulse{results: []*gateway.PulseResult{
			{Found: true, Message: "later"},
		}}
		voice := &fakeVoice{}

		var mu sync.Mutex
		busy := true
		p := New(pulse, voice, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return busy
		})
		p.SetInterval(5 * time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		time.Sleep(30 * time.Millisecond)
		if n := pulse.callCount(); n != 0 {
			t.Fatalf("gated poller made %d requests", n)
		}

		mu.Lock()
		busy = false
		mu.Unlock()

		waitFor(t, func() bool { return len(voice.lines()) > 0 }, "message never spoken after ungating")
	})

	t.Run("poll errors are silent", func(t *testing.T) {
		pulse := &fakePulse{err: errors.New("backend down")}
		voice := &fakeVoice{}

		p := New(pulse, voice, func() bool { return false })
		p.SetInterval(5 * time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		waitFor(t, func() bool { return pulse.callCount() >= 3 }, "poller halted on error")
		if len(voice.lines()) != 0 {
			t.Errorf("spoke %v despite errors", voice.lines())
		}
	})

	t.Run("cancellation stops polling", func(t *testing.T) {
		pulse := &fakePulse{}
		voice := &fakeVoice{}

		p := New(pulse, voice, nil)
		p.SetInterval(5 * time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		go p.Run(ctx)
		waitFor(t, func() bool { return pulse.callCount() >= 1 }, "poller never ticked")
		cancel()

		time.Sleep(20 * time.Millisecond)
		before := pulse.callCount()
		time.Sleep(30 * time.Millisecond)
		if after := pulse.callCount(); after != before {
			t.Errorf("poller kept ticking after cancel: %d -> %d", before, after)
		}
	})
}
