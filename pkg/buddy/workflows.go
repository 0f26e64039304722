package buddy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oni-labs/go-buddy/pkg/capture"
	"github.com/oni-labs/go-buddy/pkg/gateway"
	"github.com/oni-labs/go-buddy/pkg/overlay"
)

// Spoken lines used by the capture workflows.
const (
	msgMicDenied       = "I cannot access the microphone."
	msgDidntCatch      = "I didn't catch that. Could you say it again?"
	msgEarsTrouble     = "My ears are having trouble connecting."
	msgListeningNow    = "I'm listening now."
	msgEnrollMicDenied = "I couldn't access your microphone. Please enable permissions and refresh the page."
	msgMaybeNextTime   = "Okay, maybe next time."
	msgIntroCamDenied  = "I can't access the camera. Please check your browser permissions."
	msgFriendNameBlank = "Please tell me your friend's name."
	msgShowMeObject    = "Okay, opening the camera now. Show me the object!"
	msgDescribeFailed  = "Sorry, I couldn't describe that image."
)

// Backend is the slice of the gateway the orchestrator needs.
type Backend interface {
	Ask(ctx context.Context, prompt string) (*gateway.Command, error)
	Listen(ctx context.Context, audio []byte) (*gateway.TranscriptResult, error)
	EnrollVoice(ctx context.Context, audio []byte) error
	RegisterFriend(ctx context.Context, name, imageData string) error
	DescribeObject(ctx context.Context, imageData string) (*gateway.Description, error)
	CreateUser(ctx context.Context, username, password string) (*gateway.SessionInfo, error)
	Login(ctx context.Context, username, password string) (*gateway.SessionInfo, error)
	RecognizeFace(ctx context.Context, imageData string) (*gateway.FaceMatch, error)
	RegisterFace(ctx context.Context, username, imageData string) (*gateway.FaceSample, error)
	TrainFaces(ctx context.Context) error
	UserStatus(ctx context.Context) (*gateway.UserStatus, error)
	WelcomeMessage(ctx context.Context) (*gateway.Command, error)
	Logout(ctx context.Context) error
}

// Voice drives speech output.
type Voice interface {
	Speak(text string, withCaptions bool)
	SpeakWait(ctx context.Context, text string, withCaptions bool)
	Cancel()
	IsSpeaking() bool
}

// Shell is the small UI surface the workflows drive directly: the chat
// input line and the modal prompts.
type Shell interface {
	// SetChatInput replaces the chat box contents, used for transient
	// feedback like "Listening...".
	SetChatInput(text string)

	// PromptFilename asks for a photo filename. ok is false when the
	// user closed the camera instead.
	PromptFilename(ctx context.Context) (name string, ok bool)

	// PromptFriendName asks for the name of the friend being
	// introduced. ok is false when the user cancelled.
	PromptFriendName(ctx context.Context) (name string, ok bool)
}

// Workflows are the capture-driven interactions: voice queries, voice
// enrollment, photo capture, object description and friend
// introduction. Every workflow releases its device on every exit path.
type Workflows struct {
	guard   *capture.Guard
	backend Backend
	voice   Voice
	stage   *overlay.Stage
	session *Session
	shell   Shell
	logger  *slog.Logger

	enrollCap   time.Duration
	queryCap    time.Duration
	faceSamples int
	sampleGap   time.Duration
	loginPoll   time.Duration
}

// NewWorkflows wires the capture workflows.
func NewWorkflows(guard *capture.Guard, backend Backend, voice Voice, stage *overlay.Stage, session *Session, shell Shell, cfg Config) *Workflows {
	return &Workflows{
		guard:       guard,
		backend:     backend,
		voice:       voice,
		stage:       stage,
		session:     session,
		shell:       shell,
		logger:      slog.Default().With("component", "workflows"),
		enrollCap:   time.Duration(cfg.EnrollSeconds) * time.Second,
		queryCap:    time.Duration(cfg.QuerySeconds) * time.Second,
		faceSamples: cfg.FaceSamples,
		sampleGap:   cfg.FaceSampleGap,
		loginPoll:   cfg.FaceLoginPoll,
	}
}

// VoiceQuery records a short voice query and transcribes it. Returns
// the transcript and true on success; on any failure the user has
// already been told what went wrong and ok is false.
func (w *Workflows) VoiceQuery(ctx context.Context) (string, bool) {
	if w.session.Recording() {
		return "", false
	}
	w.session.SetRecording(true)
	defer w.session.SetRecording(false)

	w.voice.Cancel()
	w.stage.ClearAll()
	w.shell.SetChatInput("Listening...")

	clip, err := w.guard.RecordClip(ctx, capture.Constraints{}, w.queryCap)
	if err != nil {
		w.shell.SetChatInput("")
		if errors.Is(err, capture.ErrRecordingCancelled) {
			return "", false
		}
		w.logger.Warn("voice query capture failed", "error", err)
		w.voice.Speak(msgMicDenied, true)
		return "", false
	}

	w.shell.SetChatInput("Thinking...")
	result, err := w.backend.Listen(ctx, clip)
	if err != nil {
		w.shell.SetChatInput("")
		if errors.Is(err, gateway.ErrUnrecognizedAudio) {
			w.voice.Speak(msgDidntCatch, true)
		} else {
			w.logger.Warn("transcription failed", "error", err)
			w.voice.Speak(msgEarsTrouble, true)
		}
		return "", false
	}

	w.shell.SetChatInput(result.Text)
	return result.Text, true
}

// EnrollNewUser greets a first-time user, records a voice sample, and
// uploads it as their voice profile. On success the backend's welcome
// message is spoken.
func (w *Workflows) EnrollNewUser(ctx context.Context, username string) error {
	w.session.DisableControls()
	w.stage.ShowTopText(fmt.Sprintf("Hello %s! Please prepare to speak.", username))
	greeting := fmt.Sprintf("Hello %s! My name is Buddy. Before we begin, please tell me something about yourself.", username)
	w.voice.SpeakWait(ctx, greeting, false)

	w.stage.ShowTopText(fmt.Sprintf("🔴 Recording... Please speak clearly for %d seconds.", int(w.enrollCap.Seconds())))
	w.voice.Speak(msgListeningNow, false)

	clip, err := w.guard.RecordClip(ctx, capture.Constraints{}, w.enrollCap)
	if err != nil {
		w.logger.Warn("enrollment capture failed", "error", err)
		w.stage.ClearTopText()
		w.voice.Speak(msgEnrollMicDenied, true)
		w.session.EnableControls()
		return err
	}

	w.stage.ShowTopText("Processing your voice profile...")
	if err := w.backend.EnrollVoice(ctx, clip); err != nil {
		w.stage.ClearTopText()
		w.voice.Speak(fmt.Sprintf("There was an issue: %v. Please refresh the page to try again.", err), true)
		return err
	}

	w.stage.ClearTopText()
	if welcome, err := w.backend.WelcomeMessage(ctx); err == nil && welcome.SpokenText != "" {
		w.voice.Speak(welcome.SpokenText, true)
	} else {
		w.voice.Speak(fmt.Sprintf("Welcome, %s!", username), true)
	}
	return nil
}

// CapturePhoto takes a photo, shows it, and greets it by the name the
// user gave it. A user cancel is silent; any other failure gets a
// gentle brush-off line. Reports whether anything was spoken.
func (w *Workflows) CapturePhoto(ctx context.Context) bool {
	stream, err := w.guard.Acquire(ctx, capture.Camera, capture.Constraints{})
	if err != nil {
		w.logger.Warn("photo capture failed", "error", err)
		w.voice.Speak(msgMaybeNextTime, true)
		return true
	}
	defer w.releaseCamera(stream)

	name, ok := w.shell.PromptFilename(ctx)
	if !ok {
		// Camera closed by user.
		return false
	}
	if name == "" {
		name = "avatar-photo"
	}

	// The preview may have been flipped to another device while the
	// prompt was open; the shot comes from whichever camera is live.
	if cur, held := w.guard.Holder(capture.Camera); held {
		stream = cur
	}
	frame, err := captureFrame(ctx, stream)
	if err != nil {
		w.logger.Warn("photo capture failed", "error", err)
		w.voice.Speak(msgMaybeNextTime, true)
		return true
	}

	w.stage.ShowCapturedPhoto(frame)
	w.voice.Speak(fmt.Sprintf("Hey %s, this is your image.", name), true)
	return true
}

// FlipCamera switches an open camera preview to the next enumerated
// device. The guard pre-empts the previous stream on acquire.
func (w *Workflows) FlipCamera(ctx context.Context) error {
	c, err := w.guard.NextCamera(ctx)
	if err != nil {
		return err
	}
	if _, err := w.guard.Acquire(ctx, capture.Camera, c); err != nil {
		return err
	}
	return nil
}

// releaseCamera releases whichever camera stream is live, falling back
// to the one the workflow originally acquired.
func (w *Workflows) releaseCamera(acquired capture.Stream) {
	if cur, held := w.guard.Holder(capture.Camera); held {
		w.guard.Release(cur)
		return
	}
	w.guard.Release(acquired)
}

// DescribeObject opens the camera on a held-up object and speaks the
// backend's description of it, without captions.
func (w *Workflows) DescribeObject(ctx context.Context) {
	w.voice.SpeakWait(ctx, msgShowMeObject, true)

	stream, err := w.guard.Acquire(ctx, capture.Camera, capture.Constraints{})
	if err != nil {
		w.logger.Warn("describe capture failed", "error", err)
		w.voice.Speak(msgMaybeNextTime, true)
		return
	}
	defer w.guard.Release(stream)

	frame, err := captureFrame(ctx, stream)
	if err != nil {
		w.logger.Warn("describe capture failed", "error", err)
		w.voice.Speak(msgDescribeFailed, false)
		return
	}

	desc, err := w.backend.DescribeObject(ctx, frame)
	if err != nil {
		w.logger.Warn("describe request failed", "error", err)
		w.voice.Speak(msgDescribeFailed, false)
		return
	}
	w.voice.Speak(desc.Description, false)
}

// IntroduceFriend captures a friend's face and registers it with the
// backend under the name the user provides.
func (w *Workflows) IntroduceFriend(ctx context.Context) {
	name, ok := w.shell.PromptFriendName(ctx)
	if !ok {
		w.voice.Speak(msgMaybeNextTime, true)
		return
	}
	if name == "" {
		w.voice.Speak(msgFriendNameBlank, true)
		return
	}

	stream, err := w.guard.Acquire(ctx, capture.Camera, capture.Constraints{})
	if err != nil {
		w.logger.Warn("introduction capture failed", "error", err)
		w.voice.Speak(msgIntroCamDenied, true)
		return
	}
	defer w.guard.Release(stream)

	frame, err := captureFrame(ctx, stream)
	if err != nil {
		w.logger.Warn("introduction capture failed", "error", err)
		w.voice.Speak(msgIntroCamDenied, true)
		return
	}

	w.stage.ShowTopText(fmt.Sprintf("Remembering %s...", name))
	defer w.stage.ClearTopText()

	if err := w.backend.RegisterFriend(ctx, name, frame); err != nil {
		w.logger.Warn("friend registration failed", "name", name, "error", err)
		w.voice.Speak(fmt.Sprintf("I had some trouble remembering that face. The error was: %v", err), true)
		return
	}
	w.voice.Speak(fmt.Sprintf("It's a pleasure to meet you, %s. I'll remember you now.", name), true)
}

// captureFrame grabs one frame from a camera stream.
func captureFrame(ctx context.Context, stream capture.Stream) (string, error) {
	fs, ok := stream.(capture.FrameSource)
	if !ok {
		return "", &capture.DeviceError{Kind: capture.Camera, Err: capture.ErrDeviceUnavailable}
	}
	return fs.CaptureFrame(ctx)
}
