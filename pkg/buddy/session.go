package buddy

import "sync"

// Session is the process-wide interaction state: whether an utterance
// is playing, whether a voice query is being recorded, and whether the
// input controls (chat box, voice button) accept input.
type Session struct {
	mu        sync.Mutex
	speaking  bool
	recording bool
	controls  bool

	// OnControlsChanged fires when the controls flip state, never on a
	// redundant enable or disable.
	OnControlsChanged func(enabled bool)
}

// NewSession creates a Session with controls enabled.
func NewSession() *Session {
	return &Session{controls: true}
}

// SetSpeaking records whether an utterance is playing.
func (s *Session) SetSpeaking(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speaking = v
}

// Speaking reports whether an utterance is playing.
func (s *Session) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// SetRecording records whether a voice query is being captured.
func (s *Session) SetRecording(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = v
}

// Recording reports whether a voice query is being captured.
func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Busy reports whether the assistant should defer background chatter.
// The heartbeat poller gates on this.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking || s.recording
}

// EnableControls re-enables the input controls. Idempotent.
func (s *Session) EnableControls() {
	s.setControls(true)
}

// DisableControls disables the input controls. Idempotent.
func (s *Session) DisableControls() {
	s.setControls(false)
}

// ControlsEnabled reports whether the input controls accept input.
func (s *Session) ControlsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controls
}

func (s *Session) setControls(enabled bool) {
	s.mu.Lock()
	changed := s.controls != enabled
	s.controls = enabled
	cb := s.OnControlsChanged
	s.mu.Unlock()

	if changed && cb != nil {
		cb(enabled)
	}
}
