package buddy

import (
	"context"
	"testing"

	"github.com/oni-labs/go-buddy/pkg/capture"
	"github.com/oni-labs/go-buddy/pkg/gateway"
)

func TestDispatcherRender(t *testing.T) {
	ctx := context.Background()

	t.Run("clears the slate before every command", func(t *testing.T) {
		h := newHarness()
		h.dispatcher.Render(ctx, &gateway.Command{Type: gateway.TypeSimpleText, SpokenText: "hi"})
		h.dispatcher.Render(ctx, &gateway.Command{Type: "weird_type"})
		if h.surface.OverlayClears != 2 {
			t.Errorf("expected 2 overlay clears, got %d", h.surface.OverlayClears)
		}
	})

	t.Run("unknown type is a silent no-op with controls re-enabled", func(t *testing.T) {
		h := newHarness()
		h.session.DisableControls()
		h.dispatcher.Render(ctx, &gateway.Command{Type: "weird_type"})
		if got := h.voice.lines(); len(got) != 0 {
			t.Errorf("expected silence, got %v", got)
		}
		if !h.session.ControlsEnabled() {
			t.Error("controls should be re-enabled after a silent command")
		}
	})

	t.Run("simple text speaks with captions and waits for speech end", func(t *testing.T) {
		h := newHarness()
		h.session.DisableControls()
		h.dispatcher.Render(ctx, &gateway.Command{Type: gateway.TypeSimpleText, SpokenText: "Hello there!"})
		if got := h.voice.lastLine(); got != "Hello there!" {
			t.Errorf("spoke %q", got)
		}
		if !h.voice.captions[0] {
			t.Error("simple text should be captioned")
		}
		if h.session.ControlsEnabled() {
			t.Error("controls must stay locked until speech ends")
		}
	})

	t.Run("set timer shows a paused widget and announces it", func(t *testing.T) {
		h := newHarness()
		h.dispatcher.Render(ctx, &gateway.Command{
			Type:       gateway.TypeSetTimer,
			Seconds:    300,
			SpokenText: "Timer set for 5 minutes.",
		})
		if h.stage.Timer() == nil {
			t.Fatal("no timer registered")
		}
		if len(h.surface.TimerFrames) != 1 {
			t.Fatalf("expected 1 timer frame, got %d", len(h.surface.TimerFrames))
		}
		frame := h.surface.TimerFrames[0]
		if frame.Remaining != 300 || frame.Total != 300 || !frame.Paused {
			t.Errorf("unexpected initial frame %+v", frame)
		}
		if got := h.voice.lastLine(); got != "Timer set for 5 minutes." {
			t.Errorf("spoke %q", got)
		}
	})

	t.Run("animation plays without generic speech", func(t *testing.T) {
		h := newHarness()
		h.session.DisableControls()
		h.dispatcher.Render(ctx, &gateway.Command{
			Type:          gateway.TypeAnimation,
			AnimationName: "wave",
			SpokenText:    "should be suppressed",
		})
		if len(h.renderer.Played) != 1 || h.renderer.Played[0] != "wave" {
			t.Errorf("played %v", h.renderer.Played)
		}
		if got := h.voice.lines(); len(got) != 0 {
			t.Errorf("animation command must not speak, got %v", got)
		}
		if !h.session.ControlsEnabled() {
			t.Error("controls should re-enable immediately for a silent branch")
		}
	})

	t.Run("math sequence speaks without captions", func(t *testing.T) {
		h := newHarness()
		h.dispatcher.Render(ctx, &gateway.Command{
			Type:       gateway.TypeMathSequence,
			Elements:   []string{"2", "4", "8", "16"},
			SpokenText: "Here is the pattern.",
		})
		if len(h.surface.MathSequences) != 1 {
			t.Fatalf("expected 1 sequence, got %d", len(h.surface.MathSequences))
		}
		if h.voice.captions[0] {
			t.Error("math sequence speech should be uncaptioned")
		}
	})

	t.Run("look at screen shows a collapsed HUD and speaks the summary uncaptioned", func(t *testing.T) {
		h := newHarness()
		h.dispatcher.Render(ctx, &gateway.Command{
			Type:       gateway.TypeLookAtScreen,
			SpokenText: "You are in a code editor.",
			ScreenData: &gateway.ScreenData{AppName: "editor", ShortSummary: "code"},
		})
		if len(h.surface.HUDStates) != 1 || h.surface.HUDStates[0] {
			t.Errorf("expected one collapsed HUD card, got %v", h.surface.HUDStates)
		}
		if h.voice.captions[0] {
			t.Error("screen summary should be uncaptioned")
		}
	})

	t.Run("toggle perception starts and stops the loop", func(t *testing.T) {
		h := newHarness()
		cmd := &gateway.Command{Type: gateway.TypeTogglePerception}
		h.dispatcher.Render(ctx, cmd)
		if h.perception.starts != 1 {
			t.Fatalf("expected 1 start, got %d", h.perception.starts)
		}
		h.dispatcher.Render(ctx, cmd)
		if h.perception.stops != 1 || !h.perception.announced[0] {
			t.Errorf("expected 1 announced stop, got stops=%d announced=%v", h.perception.stops, h.perception.announced)
		}
	})

	t.Run("change background travels and clears the banner", func(t *testing.T) {
		h := newHarness()
		h.dispatcher.Render(ctx, &gateway.Command{
			Type:       gateway.TypeChangeBackground,
			ImageURL:   "https://img.example/mars.jpg",
			SpokenText: "Welcome to Mars!",
		})
		if len(h.renderer.Backgrounds) != 1 || h.renderer.Backgrounds[0] != "https://img.example/mars.jpg" {
			t.Errorf("backgrounds %v", h.renderer.Backgrounds)
		}
		if len(h.surface.TopTexts) != 1 || h.surface.TopTexts[0] != "Traveling..." {
			t.Errorf("top texts %v", h.surface.TopTexts)
		}
		if h.surface.TopTextCleared != 1 {
			t.Errorf("expected banner cleared once, got %d", h.surface.TopTextCleared)
		}
	})

	t.Run("movie commands open the player", func(t *testing.T) {
		h := newHarness()
		h.dispatcher.Render(ctx, &gateway.Command{
			Type:       gateway.TypePlayYoutube,
			MovieTitle: "Moon landing",
			MovieURL:   "https://youtube.example/watch?v=1",
		})
		if len(h.surface.Movies) != 1 {
			t.Errorf("expected 1 movie, got %v", h.surface.Movies)
		}
	})

	t.Run("start trivia fires the callback", func(t *testing.T) {
		h := newHarness()
		opened := 0
		h.dispatcher.OnStartTrivia = func() { opened++ }
		h.dispatcher.Render(ctx, &gateway.Command{
			Type:       gateway.TypeStartTrivia,
			SpokenText: "Let's play!",
		})
		if opened != 1 {
			t.Errorf("trivia opened %d times", opened)
		}
		if got := h.voice.lastLine(); got != "Let's play!" {
			t.Errorf("spoke %q", got)
		}
	})

	t.Run("cancelled photo capture stays silent and re-enables controls", func(t *testing.T) {
		h := newHarness()
		h.shell.FilenameOK = false
		h.session.DisableControls()
		h.dispatcher.Render(ctx, &gateway.Command{Type: gateway.TypeOpenCamera})
		if got := h.voice.lines(); len(got) != 0 {
			t.Errorf("expected silence, got %v", got)
		}
		if !h.session.ControlsEnabled() {
			t.Error("controls should re-enable after a cancelled capture")
		}
		if n := h.provider.OpenStreamsOf(capture.Camera); n != 0 {
			t.Errorf("camera still open, %d streams", n)
		}
	})
}
