package buddy

import (
	"context"
	"sync"

	"github.com/oni-labs/go-buddy/pkg/avatar"
	"github.com/oni-labs/go-buddy/pkg/capture"
	"github.com/oni-labs/go-buddy/pkg/gateway"
	"github.com/oni-labs/go-buddy/pkg/overlay"
)

// Shared test doubles for the orchestrator tests.

type fakeVoice struct {
	mu       sync.Mutex
	spoken   []string
	captions []bool
	cancels  int
	speaking bool
}

func (v *fakeVoice) Speak(text string, withCaptions bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.spoken = append(v.spoken, text)
	v.captions = append(v.captions, withCaptions)
}

func (v *fakeVoice) SpeakWait(_ context.Context, text string, withCaptions bool) {
	v.Speak(text, withCaptions)
}

func (v *fakeVoice) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancels++
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

func (v *fakeVoice) lastLine() string {
	lines := v.lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

type fakeShell struct {
	mu         sync.Mutex
	chatInputs []string

	Filename   string
	FilenameOK bool
	FriendName string
	FriendOK   bool

	// OnPromptFilename runs while the filename prompt is open,
	// standing in for user interaction with the camera modal.
	OnPromptFilename func()
}

func (s *fakeShell) SetChatInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatInputs = append(s.chatInputs, text)
}

func (s *fakeShell) PromptFilename(context.Context) (string, bool) {
	if s.OnPromptFilename != nil {
		s.OnPromptFilename()
	}
	return s.Filename, s.FilenameOK
}

func (s *fakeShell) PromptFriendName(context.Context) (string, bool) {
	return s.FriendName, s.FriendOK
}

func (s *fakeShell) inputs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.chatInputs...)
}

type fakeBackend struct {
	AskCmd      *gateway.Command
	AskErr      error
	Transcript  *gateway.TranscriptResult
	ListenErr   error
	EnrollErr   error
	RegisterErr error
	Describe    *gateway.Description
	DescribeErr error
	Status      *gateway.UserStatus
	StatusErr   error
	Welcome     *gateway.Command
	WelcomeErr  error

	CreateErr    error
	LoginErr     error
	RecognizeErr error
	SampleErr    error
	TrainErr     error

	// Matches and Samples are consumed in order; the last entry
	// repeats once the queue runs dry.
	Matches []*gateway.FaceMatch
	Samples []*gateway.FaceSample

	Enrolled     [][]byte
	Registered   []string
	Prompts      []string
	Created      []string
	Logins       []string
	FaceUploads  int
	Recognitions int
	Trainings    int
	Logouts      int
}

func (b *fakeBackend) Ask(_ context.Context, prompt string) (*gateway.Command, error) {
	b.Prompts = append(b.Prompts, prompt)
	if b.AskErr != nil {
		return nil, b.AskErr
	}
	return b.AskCmd, nil
}

func (b *fakeBackend) Listen(_ context.Context, _ []byte) (*gateway.TranscriptResult, error) {
	if b.ListenErr != nil {
		return nil, b.ListenErr
	}
	return b.Transcript, nil
}

func (b *fakeBackend) EnrollVoice(_ context.Context, audio []byte) error {
	if b.EnrollErr != nil {
		return b.EnrollErr
	}
	b.Enrolled = append(b.Enrolled, audio)
	return nil
}

func (b *fakeBackend) RegisterFriend(_ context.Context, name, _ string) error {
	if b.RegisterErr != nil {
		return b.RegisterErr
	}
	b.Registered = append(b.Registered, name)
	return nil
}

func (b *fakeBackend) DescribeObject(_ context.Context, _ string) (*gateway.Description, error) {
	if b.DescribeErr != nil {
		return nil, b.DescribeErr
	}
	return b.Describe, nil
}

func (b *fakeBackend) CreateUser(_ context.Context, username, _ string) (*gateway.SessionInfo, error) {
	if b.CreateErr != nil {
		return nil, b.CreateErr
	}
	b.Created = append(b.Created, username)
	return &gateway.SessionInfo{Message: "User created", Username: username, IsNewUser: true}, nil
}

func (b *fakeBackend) Login(_ context.Context, username, _ string) (*gateway.SessionInfo, error) {
	if b.LoginErr != nil {
		return nil, b.LoginErr
	}
	b.Logins = append(b.Logins, username)
	return &gateway.SessionInfo{Message: "Login successful", Username: username}, nil
}

func (b *fakeBackend) RecognizeFace(_ context.Context, _ string) (*gateway.FaceMatch, error) {
	b.Recognitions++
	if b.RecognizeErr != nil {
		return nil, b.RecognizeErr
	}
	if len(b.Matches) == 0 {
		return &gateway.FaceMatch{Name: "unrecognized", Status: "failure"}, nil
	}
	match := b.Matches[0]
	if len(b.Matches) > 1 {
		b.Matches = b.Matches[1:]
	}
	return match, nil
}

func (b *fakeBackend) RegisterFace(_ context.Context, _, _ string) (*gateway.FaceSample, error) {
	b.FaceUploads++
	if b.SampleErr != nil {
		return nil, b.SampleErr
	}
	if len(b.Samples) == 0 {
		return &gateway.FaceSample{Message: "Saved sample"}, nil
	}
	sample := b.Samples[0]
	if len(b.Samples) > 1 {
		b.Samples = b.Samples[1:]
	}
	return sample, nil
}

func (b *fakeBackend) TrainFaces(context.Context) error {
	if b.TrainErr != nil {
		return b.TrainErr
	}
	b.Trainings++
	return nil
}

func (b *fakeBackend) UserStatus(context.Context) (*gateway.UserStatus, error) {
	if b.StatusErr != nil {
		return nil, b.StatusErr
	}
	return b.Status, nil
}

func (b *fakeBackend) WelcomeMessage(context.Context) (*gateway.Command, error) {
	if b.WelcomeErr != nil {
		return nil, b.WelcomeErr
	}
	return b.Welcome, nil
}

func (b *fakeBackend) Logout(context.Context) error {
	b.Logouts++
	return nil
}

type fakePerception struct {
	mu        sync.Mutex
	active    bool
	StartErr  error
	starts    int
	stops     int
	announced []bool
}

func (p *fakePerception) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *fakePerception) Start(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts++
	if p.StartErr != nil {
		return p.StartErr
	}
	p.active = true
	return nil
}

func (p *fakePerception) Stop(announce bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	p.announced = append(p.announced, announce)
	p.active = false
}

// harness assembles a dispatcher over fakes and recording mocks.
type harness struct {
	provider   *capture.MockProvider
	guard      *capture.Guard
	voice      *fakeVoice
	surface    *overlay.MockSurface
	renderer   *avatar.Mock
	stage      *overlay.Stage
	session    *Session
	shell      *fakeShell
	backend    *fakeBackend
	workflows  *Workflows
	perception *fakePerception
	dispatcher *Dispatcher
}

func newHarness() *harness {
	h := &harness{
		provider: capture.NewMockProvider(),
		voice:    &fakeVoice{},
		surface:  &overlay.MockSurface{},
		renderer: avatar.NewMock(),
		shell: &fakeShell{
			Filename:   "sunset",
			FilenameOK: true,
			FriendName: "Maya",
			FriendOK:   true,
		},
		backend: &fakeBackend{
			Transcript: &gateway.TranscriptResult{Status: "success", Text: "turn on the lights"},
			Describe:   &gateway.Description{Description: "A blue coffee mug."},
		},
		perception: &fakePerception{},
	}
	h.guard = capture.NewGuard(h.provider)
	h.stage = overlay.NewStage(h.surface, h.voice, h.renderer)
	h.session = NewSession()
	h.workflows = NewWorkflows(h.guard, h.backend, h.voice, h.stage, h.session, h.shell, DefaultConfig())
	h.dispatcher = NewDispatcher(h.session, h.stage, h.voice, h.renderer, h.perception, h.workflows)
	return h
}
