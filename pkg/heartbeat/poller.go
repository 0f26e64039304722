// Package heartbeat polls the backend for proactively available messages,
// such as a newly processed file, and voices them when the assistant is
// otherwise idle.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/oni-labs/go-buddy/pkg/gateway"
)

// DefaultInterval is the poll cadence.
const DefaultInterval = 5 * time.Second

// Pulse is the slice of the backend gateway the poller needs.
type Pulse interface {
	CheckPulse(ctx context.Context) (*gateway.PulseResult, error)
}

// Voice speaks a found message.
type Voice interface {
	Speak(text string, withCaptions bool)
}

// Poller is the fixed-interval background poll. Each tick is gated: when
// the gate reports the assistant is busy (speaking or recording a voice
// query) the tick is skipped entirely, with no request and no state change.
type Poller struct {
	pulse    Pulse
	voice    Voice
	gate     func() bool // true = skip this tick
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Poller. gate is checked at the start of every tick.
func New(pulse Pulse, voice Voice, gate func() bool) *Poller {
	return &Poller{
		pulse:    pulse,
		voice:    voice,
		gate:     gate,
		interval: DefaultInterval,
		logger:   slog.Default().With("component", "heartbeat"),
	}
}

// SetInterval overrides the poll cadence.
func (p *Poller) SetInterval(d time.Duration) {
	p.interval = d
}

// Run polls until ctx is cancelled. Poll failures are silent: the
// heartbeat is best-effort and must never alarm the user.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Debug("heartbeat started", "interval", p.interval)
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("heartbeat stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if p.gate != nil && p.gate() {
		return
	}

	result, err := p.pulse.CheckPulse(ctx)
	if err != nil {
		p.logger.Debug("pulse check failed", "error", err)
		return
	}

	if result.Found && result.Message != "" {
		p.logger.Info("proactive message found")
		p.voice.Speak(result.Message, true)
	}
}
