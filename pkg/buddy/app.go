package buddy

import (
	"context"
	"fmt"
	"time"

	"github.com/oni-labs/go-buddy/internal/httpc"
	"github.com/oni-labs/go-buddy/internal/log"
	"github.com/oni-labs/go-buddy/pkg/avatar"
	"github.com/oni-labs/go-buddy/pkg/capture"
	"github.com/oni-labs/go-buddy/pkg/gateway"
	"github.com/oni-labs/go-buddy/pkg/heartbeat"
	"github.com/oni-labs/go-buddy/pkg/overlay"
	"github.com/oni-labs/go-buddy/pkg/perception"
	"github.com/oni-labs/go-buddy/pkg/speech"
	"github.com/oni-labs/go-buddy/pkg/trivia"
	"github.com/oni-labs/go-buddy/pkg/web"
)

// Spoken lines used by the top-level flows.
const (
	msgBrainTangled   = "Oh no, my brain circuits are tangled!"
	msgSessionExpired = "Your session has expired. Please log in again."
)

// Deps are the host-environment collaborators the assistant renders
// through: the devices, the 3D avatar, the speech engine, the overlay
// surface and the shell chrome. Any nil field defaults to the
// dashboard's stage bridge when the dashboard is enabled.
type Deps struct {
	Provider capture.Provider
	Renderer avatar.Renderer
	Engine   speech.Engine
	Surface  overlay.Surface
	Shell    Shell
}

// App is the main application orchestrator. It manages all components
// and their lifecycle.
type App struct {
	config Config

	backend *gateway.Client
	guard   *capture.Guard
	avatar  avatar.Renderer
	speaker *speech.Speaker
	voice   *sessionVoice
	shell   Shell

	session    *Session
	stage      *overlay.Stage
	dispatcher *Dispatcher
	workflows  *Workflows
	perception *perception.Loop
	heartbeat  *heartbeat.Poller
	trivia     *trivia.Game

	webServer *web.Server
}

// New creates the assistant with the given configuration and host
// collaborators.
func New(cfg Config, deps Deps) (*App, error) {
	cfg.LoadEnvConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{config: cfg}

	if cfg.DashboardEnabled {
		a.webServer = web.NewServer(cfg.DashboardPort)
		bridge := a.webServer.Bridge()
		if deps.Provider == nil {
			deps.Provider = bridge
		}
		if deps.Renderer == nil {
			deps.Renderer = bridge
		}
		if deps.Surface == nil {
			deps.Surface = bridge
		}
		if deps.Shell == nil {
			deps.Shell = bridge
		}
	}
	if deps.Provider == nil || deps.Renderer == nil || deps.Surface == nil || deps.Shell == nil {
		return nil, &ConfigError{Field: "deps", Message: "renderer, surface, shell and capture provider are required when the dashboard is disabled"}
	}
	if deps.Engine == nil {
		return nil, &ConfigError{Field: "deps", Message: "a speech engine is required"}
	}
	a.avatar = deps.Renderer
	a.shell = deps.Shell

	a.backend = gateway.NewClient(cfg.BackendURL,
		gateway.WithHTTPClient(httpc.NewClient(30*time.Second)))
	a.guard = capture.NewGuard(deps.Provider)
	a.session = NewSession()

	a.speaker = speech.NewSpeaker(deps.Engine, deps.Renderer)
	a.voice = &sessionVoice{speaker: a.speaker, session: a.session}
	a.speaker.OnSpeechEnd = a.speechEnded

	a.stage = overlay.NewStage(deps.Surface, a.voice, deps.Renderer)
	a.workflows = NewWorkflows(a.guard, a.backend, a.voice, a.stage, a.session, deps.Shell, cfg)

	a.perception = perception.New(a.guard, a.backend, a.voice)
	a.perception.SetInterval(cfg.PerceptionInterval)

	a.heartbeat = heartbeat.New(a.backend, a.voice, func() bool {
		return a.speaker.IsSpeaking() || a.session.Recording()
	})
	a.heartbeat.SetInterval(cfg.HeartbeatInterval)

	a.trivia = trivia.NewGame(a.backend)
	a.dispatcher = NewDispatcher(a.session, a.stage, a.voice, deps.Renderer, a.perception, a.workflows)

	a.wireDashboard()
	return a, nil
}

// Init runs the startup flow: reset the scene, check who is logged in,
// and either enroll a brand-new user's voice or welcome a returning
// one.
func (a *App) Init(ctx context.Context) error {
	a.avatar.ResetSceneBackground()
	a.stage.ClearAll()

	status, err := a.backend.UserStatus(ctx)
	if err != nil {
		return fmt.Errorf("user status: %w", err)
	}
	if !status.LoggedIn {
		// The backend opens the session server-side once a frame
		// matches an enrolled face.
		match, err := a.workflows.FaceLogin(ctx)
		if err != nil {
			return fmt.Errorf("face login: %w", err)
		}
		status = &gateway.UserStatus{LoggedIn: true, Username: match.Name, IsNewUser: match.IsNewUser}
	}

	log.Info("user session active", "username", status.Username, "new_user", status.IsNewUser)

	if status.IsNewUser {
		if err := a.workflows.EnrollNewUser(ctx, status.Username); err != nil {
			log.Warn("voice enrollment failed", "error", err)
		}
		return nil
	}

	if welcome, err := a.backend.WelcomeMessage(ctx); err == nil && welcome.SpokenText != "" {
		a.voice.Speak(welcome.SpokenText, true)
	} else {
		a.voice.Speak(fmt.Sprintf("Welcome back, %s!", status.Username), true)
	}
	return nil
}

// Run starts the background loops and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.heartbeat.Run(ctx)
	if a.webServer != nil {
		a.webServer.StartAsync()
		a.webServer.UpdateState(func(s *web.AssistantState) {
			s.BackendConnected = true
		})
		a.webServer.AddLog("info", "assistant started")
	}

	<-ctx.Done()
	return nil
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() {
	a.speaker.Cancel()
	a.perception.Stop(false)
	a.guard.ReleaseAll()
	if a.webServer != nil {
		if err := a.webServer.Shutdown(); err != nil {
			log.Warn("web server shutdown failed", "error", err)
		}
	}
}

// Ask sends a typed prompt to the backend and renders the response.
// Any in-flight utterance is pre-empted first, matching the behavior
// of typing over the assistant.
func (a *App) Ask(ctx context.Context, prompt string) error {
	if prompt == "" {
		return nil
	}

	a.voice.Cancel()
	a.stage.ClearAll()
	a.session.DisableControls()
	a.shell.SetChatInput("")
	a.logConversation("user", prompt)

	cmd, err := a.backend.Ask(ctx, prompt)
	if err != nil {
		if gateway.IsSessionExpired(err) {
			a.voice.Speak(msgSessionExpired, true)
		} else {
			log.Warn("ask failed", "error", err)
			a.voice.Speak(msgBrainTangled, true)
		}
		// Never leave the controls locked behind a failed request.
		a.session.EnableControls()
		return err
	}

	if cmd.SpokenText != "" {
		a.logConversation("buddy", cmd.SpokenText)
	}
	a.dispatcher.Render(ctx, cmd)
	return nil
}

// VoiceQuery records a spoken question and feeds the transcript into
// the same path as a typed prompt.
func (a *App) VoiceQuery(ctx context.Context) error {
	text, ok := a.workflows.VoiceQuery(ctx)
	if !ok {
		return nil
	}
	return a.Ask(ctx, text)
}

// Stop is the global stop: silence speech, halt perception, tear down
// every widget, return the avatar to idle, and unlock the controls.
func (a *App) Stop() {
	a.voice.Cancel()
	if a.perception.Active() {
		a.perception.Stop(true)
	}
	a.stage.StopAll()
	a.avatar.PlayAnimation(avatar.AnimIdle)
	a.avatar.ResetSceneBackground()
	a.session.EnableControls()
}

// Logout ends the backend session.
func (a *App) Logout(ctx context.Context) error {
	return a.backend.Logout(ctx)
}

// Trivia returns the quiz session for the trivia modal to drive.
func (a *App) Trivia() *trivia.Game {
	return a.trivia
}

// Dispatcher returns the command dispatcher.
func (a *App) Dispatcher() *Dispatcher {
	return a.dispatcher
}

// speechEnded runs once per finished utterance. Controls come back
// unless a HUD card is waiting for the user to interact with it.
func (a *App) speechEnded() {
	a.session.SetSpeaking(false)
	if a.stage.HUD() == nil {
		a.session.EnableControls()
	}
	if a.webServer != nil {
		a.webServer.UpdateState(func(s *web.AssistantState) {
			s.Speaking = false
		})
	}
}

func (a *App) wireDashboard() {
	a.session.OnControlsChanged = func(enabled bool) {
		if a.webServer != nil {
			a.webServer.UpdateState(func(s *web.AssistantState) {
				s.ControlsEnabled = enabled
			})
		}
	}

	if a.webServer == nil {
		return
	}

	a.webServer.Bridge().OnEvent = func(name string) {
		switch name {
		case "movie_closed":
			a.stage.CloseMovie()
		case "flip_camera":
			if err := a.workflows.FlipCamera(context.Background()); err != nil {
				log.Warn("camera flip failed", "error", err)
			}
		}
	}

	a.webServer.OnPrompt = func(prompt string) error {
		go func() {
			if err := a.Ask(context.Background(), prompt); err != nil {
				log.Warn("dashboard prompt failed", "error", err)
			}
		}()
		return nil
	}
	a.webServer.OnStop = a.Stop
}

func (a *App) logConversation(role, message string) {
	if a.webServer == nil {
		return
	}
	a.webServer.AddConversation(role, message)
	a.webServer.UpdateState(func(s *web.AssistantState) {
		if role == "user" {
			s.LastUserMessage = message
		} else {
			s.LastBuddyMessage = message
		}
	})
}

// sessionVoice mirrors speech activity into the session state so the
// heartbeat gate and dashboard see it.
type sessionVoice struct {
	speaker *speech.Speaker
	session *Session
}

func (v *sessionVoice) Speak(text string, withCaptions bool) {
	v.session.SetSpeaking(true)
	v.speaker.Speak(text, withCaptions)
}

func (v *sessionVoice) SpeakWait(ctx context.Context, text string, withCaptions bool) {
	v.session.SetSpeaking(true)
	v.speaker.SpeakWait(ctx, text, withCaptions)
}

func (v *sessionVoice) Cancel() {
	v.speaker.Cancel()
	v.session.SetSpeaking(false)
}

func (v *sessionVoice) IsSpeaking() bool {
	return v.speaker.IsSpeaking()
}
