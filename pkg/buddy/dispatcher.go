package buddy

import (
	"context"
	"log/slog"

	"github.com/oni-labs/go-buddy/pkg/avatar"
	"github.com/oni-labs/go-buddy/pkg/gateway"
	"github.com/oni-labs/go-buddy/pkg/overlay"
)

// Perception controls the scene-watching loop.
type Perception interface {
	Active() bool
	Start(ctx context.Context) error
	Stop(announce bool)
}

// Dispatcher turns a backend command into the right combination of
// overlay, animation and speech. Exactly one branch runs per command,
// and every command starts from a clean overlay slate.
type Dispatcher struct {
	session    *Session
	stage      *overlay.Stage
	voice      Voice
	avatar     avatar.Renderer
	perception Perception
	workflows  *Workflows
	logger     *slog.Logger

	// OnStartTrivia opens the trivia modal.
	OnStartTrivia func()
}

// NewDispatcher wires the dispatcher.
func NewDispatcher(session *Session, stage *overlay.Stage, voice Voice, renderer avatar.Renderer, p Perception, workflows *Workflows) *Dispatcher {
	return &Dispatcher{
		session:    session,
		stage:      stage,
		voice:      voice,
		avatar:     renderer,
		perception: p,
		workflows:  workflows,
		logger:     slog.Default().With("component", "dispatcher"),
	}
}

// Render drives the command's branch. Input controls are re-enabled
// immediately when the branch ends without speech; speaking branches
// leave re-enabling to the end-of-utterance callback so controls never
// unlock while the assistant is mid-sentence.
func (d *Dispatcher) Render(ctx context.Context, cmd *gateway.Command) {
	d.stage.ClearAll()

	spoke := d.renderVisual(ctx, cmd)

	// Generic speech policy: most types announce spoken_text with
	// captions. math_sequence speaks uncaptioned (the sequence itself
	// shows the content), look_at_screen speaks its short summary
	// uncaptioned (detail is on the HUD card), and animation_command
	// and describe_object issue no generic speech at all.
	if cmd.SpokenText != "" {
		switch cmd.Type {
		case gateway.TypeAnimation, gateway.TypeDescribeObject:
		case gateway.TypeLookAtScreen, gateway.TypeMathSequence:
			d.voice.Speak(cmd.SpokenText, false)
			spoke = true
		default:
			d.voice.Speak(cmd.SpokenText, true)
			spoke = true
		}
	}

	if !spoke {
		d.session.EnableControls()
	}
}

// renderVisual runs the command's visual branch and reports whether the
// branch issued speech of its own.
func (d *Dispatcher) renderVisual(ctx context.Context, cmd *gateway.Command) bool {
	switch cmd.Type {
	case gateway.TypeSimpleText:
		// Speech only.

	case gateway.TypeLookAtScreen:
		if cmd.ScreenData != nil {
			d.stage.ShowHUD(cmd.ScreenData)
		}

	case gateway.TypeTogglePerception:
		if d.perception.Active() {
			d.perception.Stop(true)
		} else if err := d.perception.Start(ctx); err != nil {
			d.logger.Warn("perception start failed", "error", err)
		}
		// Both transitions announce themselves.
		return true

	case gateway.TypeOpenCamera:
		return d.workflows.CapturePhoto(ctx)

	case gateway.TypeDescribeObject:
		d.workflows.DescribeObject(ctx)
		return true

	case gateway.TypeIntroduceFriend:
		d.workflows.IntroduceFriend(ctx)
		return true

	case gateway.TypeSetTimer:
		d.stage.ShowTimer(cmd.Seconds)

	case gateway.TypeStartTrivia:
		if d.OnStartTrivia != nil {
			d.OnStartTrivia()
		}

	case gateway.TypeAnimation:
		if cmd.AnimationName != "" {
			d.avatar.PlayAnimation(cmd.AnimationName)
		}

	case gateway.TypeMathSequence:
		d.stage.ShowMathSequence(cmd.Elements)

	case gateway.TypeHologramTopic:
		d.stage.ShowHologram(cmd)

	case gateway.TypeComparisonTopic:
		d.stage.ShowComparison(cmd)

	case gateway.TypeChangeBackground:
		if cmd.ImageURL != "" {
			d.stage.ShowTopText("Traveling...")
			if err := d.avatar.ChangeSceneBackground(cmd.ImageURL); err != nil {
				d.logger.Warn("background change failed", "error", err)
			}
			d.stage.ClearTopText()
		}

	case gateway.TypePlayMovie, gateway.TypePlayYoutube:
		if cmd.MovieURL != "" {
			d.stage.ShowMovie(cmd.MovieTitle, cmd.MovieURL)
		}

	default:
		// Unknown types are a defined no-op, not an error. The slate
		// was still cleared above.
		d.logger.Debug("ignoring unknown command type", "type", cmd.Type)
	}
	return false
}
