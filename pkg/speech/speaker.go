package speech

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oni-labs/go-buddy/pkg/avatar"
)

// Speaker drives the avatar's voice. It serializes utterances (new requests
// pre-empt old ones), animates the avatar across the talk/idle transition,
// and reveals captions in sync with the engine's word-boundary events.
type Speaker struct {
	engine Engine
	avatar avatar.Renderer
	logger *slog.Logger

	mu       sync.Mutex
	speaking bool
	captions *CaptionTrack
	gen      int // utterance generation; events from older utterances are dropped
	done     chan struct{}

	// OnCaptions is called when a captioned utterance begins, with the
	// full (still hidden) token sequence.
	OnCaptions func(words []string)

	// OnCaptionWord is called as each token becomes visible.
	OnCaptionWord func(word string, index int)

	// OnSpeechEnd is called once per utterance after playback finishes.
	// The orchestrator uses it to re-enable input controls.
	OnSpeechEnd func()
}

// NewSpeaker creates a Speaker over the given engine and renderer.
func NewSpeaker(engine Engine, r avatar.Renderer) *Speaker {
	return &Speaker{
		engine: engine,
		avatar: r,
		logger: slog.Default().With("component", "speech"),
	}
}

// Speak pre-empts any in-flight utterance and speaks text. When
// withCaptions is true the text is split into word tokens revealed one per
// boundary event; an engine that fires no boundary events leaves the
// captions hidden, which is degraded but not an error.
func (s *Speaker) Speak(text string, withCaptions bool) {
	s.speak(text, withCaptions, nil)
}

// SpeakWait is Speak, blocking until the utterance finishes, is
// pre-empted, or ctx is cancelled. Workflows that must not overlap
// speech with a recording use it to sequence the two.
func (s *Speaker) SpeakWait(ctx context.Context, text string, withCaptions bool) {
	done := make(chan struct{})
	s.speak(text, withCaptions, done)
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (s *Speaker) speak(text string, withCaptions bool, done chan struct{}) {
	s.engine.Cancel()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.finishLocked()
	s.done = done
	if withCaptions {
		s.captions = NewCaptionTrack(text)
	} else {
		s.captions = nil
	}
	track := s.captions
	s.mu.Unlock()

	if withCaptions && s.OnCaptions != nil {
		s.OnCaptions(track.Words())
	}

	ev := Events{
		Start: func() {
			if !s.isCurrent(gen) {
				return
			}
			s.mu.Lock()
			s.speaking = true
			s.mu.Unlock()
			s.avatar.PlayAnimation(avatar.AnimTalk)
		},
		Boundary: func() {
			if !s.isCurrent(gen) || track == nil {
				return
			}
			s.mu.Lock()
			word, ok := track.Reveal()
			index := track.Revealed() - 1
			s.mu.Unlock()
			if ok && s.OnCaptionWord != nil {
				s.OnCaptionWord(word, index)
			}
		},
		End: func() {
			if !s.isCurrent(gen) {
				return
			}
			s.mu.Lock()
			s.speaking = false
			s.finishLocked()
			s.mu.Unlock()
			// Another branch may have switched the animation mid-utterance;
			// only revert our own talk state.
			if s.avatar.CurrentAnimation() == avatar.AnimTalk {
				s.avatar.PlayAnimation(avatar.AnimIdle)
			}
			if s.OnSpeechEnd != nil {
				s.OnSpeechEnd()
			}
		},
	}

	if err := s.engine.Speak(text, ev); err != nil {
		s.logger.Warn("speech engine refused utterance", "error", err)
		s.mu.Lock()
		s.speaking = false
		s.finishLocked()
		s.mu.Unlock()
		if s.OnSpeechEnd != nil {
			s.OnSpeechEnd()
		}
	}
}

// Cancel stops the in-flight utterance and invalidates its pending events.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	s.gen++
	s.speaking = false
	s.captions = nil
	s.finishLocked()
	s.mu.Unlock()
	s.engine.Cancel()
}

// finishLocked releases any waiter on the outgoing utterance.
func (s *Speaker) finishLocked() {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

// IsSpeaking reports whether an utterance is currently playing.
func (s *Speaker) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

func (s *Speaker) isCurrent(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}
