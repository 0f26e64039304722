package overlay

import (
	"log/slog"
	"sync"

	"github.com/oni-labs/go-buddy/pkg/avatar"
	"github.com/oni-labs/go-buddy/pkg/gateway"
)

const (
	msgTimerFinished  = "Time's up! Your timer has finished."
	msgTimerCancelled = "Okay, I've cancelled the timer."
	msgMovieClosed    = "Hope you enjoyed!!!"
)

// Stage owns the assistant's widget state and drives the Surface. At
// most one timer and one HUD card exist at a time; showing a new
// widget replaces the old one.
type Stage struct {
	mu      sync.Mutex
	surface Surface
	voice   Voice
	avatar  avatar.Renderer
	logger  *slog.Logger

	timer *Timer
	hud   *HUDCard
	movie bool
}

// NewStage creates a Stage rendering onto surface.
func NewStage(surface Surface, voice Voice, renderer avatar.Renderer) *Stage {
	return &Stage{
		surface: surface,
		voice:   voice,
		avatar:  renderer,
		logger:  slog.Default().With("component", "overlay"),
	}
}

// ShowTimer replaces any existing countdown with a fresh paused one.
// When the countdown expires the widget closes itself and the finish
// line is spoken.
func (s *Stage) ShowTimer(seconds int) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	t := NewTimer(seconds)
	t.OnDisplay = s.surface.ShowTimer
	t.OnAlarm = s.surface.PlayAlarm
	t.OnExpired = func() { s.timerExpired(t) }
	s.timer = t
	s.mu.Unlock()

	t.Show()
}

func (s *Stage) timerExpired(t *Timer) {
	s.mu.Lock()
	if s.timer != t {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	s.surface.HideTimer()
	s.voice.Speak(msgTimerFinished, true)
}

// Timer returns the active countdown, or nil.
func (s *Stage) Timer() *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer
}

// CloseTimer is the user's explicit close. It speaks a confirmation;
// silent teardown goes through ClearAll.
func (s *Stage) CloseTimer() {
	s.mu.Lock()
	t := s.timer
	s.timer = nil
	s.mu.Unlock()
	if t == nil {
		return
	}
	t.Stop()
	s.surface.HideTimer()
	s.voice.Speak(msgTimerCancelled, true)
}

// ShowHUD replaces any existing card with a collapsed one for data.
func (s *Stage) ShowHUD(data *gateway.ScreenData) {
	s.mu.Lock()
	card := newHUDCard(data, s.surface, s.voice, s.avatar)
	s.hud = card
	s.mu.Unlock()

	s.surface.ShowHUD(data, false)
}

// HUD returns the active card, or nil.
func (s *Stage) HUD() *HUDCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hud
}

// ShowMathSequence renders a step-by-step sequence. The accompanying
// narration is spoken elsewhere, without captions.
func (s *Stage) ShowMathSequence(elements []string) {
	s.surface.ShowMathSequence(elements)
}

// ShowHologram renders the rotating info display for a topic.
func (s *Stage) ShowHologram(cmd *gateway.Command) {
	s.surface.ShowHologram(cmd.ImageURL, cmd.KeyInfo)
}

// ShowComparison renders two entities side by side. Skipped when
// neither image resolved.
func (s *Stage) ShowComparison(cmd *gateway.Command) {
	if cmd.ImageURL1 == "" && cmd.ImageURL2 == "" {
		s.logger.Warn("comparison images missing")
		return
	}
	s.surface.ShowComparison(cmd.Entities, cmd.ImageURL1, cmd.ImageURL2)
}

// ShowCapturedPhoto displays a photo the user just took.
func (s *Stage) ShowCapturedPhoto(imageURL string) {
	s.surface.ShowCapturedPhoto(imageURL)
}

// ShowMovie opens the playback modal.
func (s *Stage) ShowMovie(title, url string) {
	s.mu.Lock()
	s.movie = true
	s.mu.Unlock()
	s.surface.ShowMovie(title, url)
}

// CloseMovie is the user's explicit close of the playback modal. It
// speaks a signoff; silent teardown goes through ClearAll.
func (s *Stage) CloseMovie() {
	s.mu.Lock()
	open := s.movie
	s.movie = false
	s.mu.Unlock()
	if !open {
		return
	}
	s.surface.HideMovie()
	s.voice.Speak(msgMovieClosed, true)
}

// ShowTopText shows the top banner, used for transient status lines.
func (s *Stage) ShowTopText(text string) {
	s.surface.ShowTopText(text)
}

// ClearTopText removes the top banner.
func (s *Stage) ClearTopText() {
	s.surface.ClearTopText()
}

// ClearAll silently removes every widget. Called before each new
// rendering branch so visuals never compound.
func (s *Stage) ClearAll() {
	s.mu.Lock()
	t, hud := s.timer, s.hud
	s.timer, s.hud = nil, nil
	s.movie = false
	s.mu.Unlock()

	if t != nil {
		t.Stop()
		s.surface.HideTimer()
	}
	if hud != nil {
		s.surface.HideHUD()
	}
	s.surface.ClearOverlays()
}

// StopAll is the global stop. Like ClearAll, but an active timer gets
// a spoken cancellation and the top banner is cleared too.
func (s *Stage) StopAll() {
	s.mu.Lock()
	hadTimer := s.timer != nil
	s.mu.Unlock()

	s.ClearAll()
	s.surface.ClearTopText()
	if hadTimer {
		s.voice.Speak(msgTimerCancelled, true)
	}
}
