package overlay

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultTickInterval is the countdown cadence.
const DefaultTickInterval = time.Second

// alarm plays for a beat before the widget closes and the finish line
// is spoken.
const defaultAlarmGrace = time.Second

// ErrBadDuration reports an edit input that could not be parsed.
var ErrBadDuration = errors.New("overlay: unrecognized duration")

// ParseTimerInput parses a user-entered duration like "5m" or "30s".
// A bare number is taken as minutes.
func ParseTimerInput(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, ErrBadDuration
	}
	unit := 60
	if strings.Contains(s, "s") {
		unit = 1
	}
	digits := strings.TrimRight(s, "ms")
	n, err := strconv.Atoi(strings.TrimSpace(digits))
	if err != nil || n <= 0 {
		return 0, ErrBadDuration
	}
	return n * unit, nil
}

// Timer is a pausable countdown. It starts paused; Toggle starts and
// pauses the 1 Hz tick. When the countdown reaches zero the alarm
// callback fires, and after a short grace the expiry callback closes
// the widget.
type Timer struct {
	// Callbacks are set once after NewTimer, before any control call.
	OnDisplay func(remaining, total int, paused bool)
	OnAlarm   func()
	OnExpired func()

	mu        sync.Mutex
	total     int
	remaining int
	paused    bool
	done      bool
	stop      chan struct{}

	interval time.Duration
	grace    time.Duration
}

// NewTimer creates a paused countdown of the given length.
func NewTimer(seconds int) *Timer {
	return &Timer{
		total:     seconds,
		remaining: seconds,
		paused:    true,
		interval:  DefaultTickInterval,
		grace:     defaultAlarmGrace,
	}
}

// Show pushes the current state to the display callback.
func (t *Timer) Show() {
	t.mu.Lock()
	remaining, total, paused := t.remaining, t.total, t.paused
	t.mu.Unlock()
	t.display(remaining, total, paused)
}

// Toggle flips between running and paused.
func (t *Timer) Toggle() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.paused = !t.paused
	if t.paused {
		t.haltLocked()
	} else {
		t.stop = make(chan struct{})
		go t.loop(t.stop)
	}
	remaining, total, paused := t.remaining, t.total, t.paused
	t.mu.Unlock()
	t.display(remaining, total, paused)
}

// Reset pauses the countdown and restores the original length.
func (t *Timer) Reset() {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return
	}
	t.haltLocked()
	t.paused = true
	t.remaining = t.total
	remaining, total := t.remaining, t.total
	t.mu.Unlock()
	t.display(remaining, total, true)
}

// Edit pauses the countdown and replaces its length with the parsed
// input. An empty input restarts from the time remaining; an
// unparseable input restores the original length and reports
// ErrBadDuration.
func (t *Timer) Edit(input string) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return nil
	}
	t.haltLocked()
	t.paused = true

	var err error
	if strings.TrimSpace(input) == "" {
		t.total = t.remaining
	} else {
		var seconds int
		seconds, err = ParseTimerInput(input)
		if err == nil {
			t.total = seconds
		}
	}
	t.remaining = t.total
	remaining, total := t.remaining, t.total
	t.mu.Unlock()

	t.display(remaining, total, true)
	return err
}

// Stop halts the countdown for good. Idempotent; fires no callbacks.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.haltLocked()
	t.paused = true
	t.done = true
}

// Remaining reports the seconds left.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Paused reports whether the countdown is ticking.
func (t *Timer) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

func (t *Timer) haltLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Timer) loop(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !t.step() {
				return
			}
		}
	}
}

// step advances the countdown by one second. Returns false when the
// loop should exit.
func (t *Timer) step() bool {
	t.mu.Lock()
	if t.paused || t.done {
		t.mu.Unlock()
		return false
	}
	t.remaining--
	remaining, total := t.remaining, t.total
	expired := remaining <= 0
	if expired {
		t.haltLocked()
		t.paused = true
		t.done = true
	}
	grace := t.grace
	t.mu.Unlock()

	t.display(remaining, total, expired)
	if expired {
		if t.OnAlarm != nil {
			t.OnAlarm()
		}
		if t.OnExpired != nil {
			time.AfterFunc(grace, t.OnExpired)
		}
		return false
	}
	return true
}

func (t *Timer) display(remaining, total int, paused bool) {
	if t.OnDisplay != nil {
		t.OnDisplay(remaining, total, paused)
	}
}
