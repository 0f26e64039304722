// Package speech wraps the external text-to-speech engine and owns caption
// rendering. At most one utterance is active at a time; a new Speak call
// pre-empts the old utterance rather than queueing behind it.
package speech

import "errors"

// Sentinel errors for the speech package.
var (
	// ErrEngineClosed indicates the engine connection was closed.
	ErrEngineClosed = errors.New("speech: engine closed")

	// ErrNotConnected indicates the engine is not connected.
	ErrNotConnected = errors.New("speech: engine not connected")
)

// Events receives utterance lifecycle notifications from an Engine.
// An engine that never fires Boundary is a degraded but valid environment:
// captions simply never reveal tokens.
type Events struct {
	// Start fires when audio output begins.
	Start func()

	// Boundary fires at each word boundary during playback.
	Boundary func()

	// End fires when the utterance finishes or is cancelled.
	End func()
}

// Engine is the external text-to-speech backend.
type Engine interface {
	// Speak begins synthesizing text asynchronously, delivering lifecycle
	// events to ev. Implementations must cancel any in-flight utterance
	// before starting the new one.
	Speak(text string, ev Events) error

	// Cancel stops the in-flight utterance, if any. The utterance's End
	// event may or may not fire afterwards; callers must tolerate both.
	Cancel()

	// Close releases engine resources.
	Close() error
}
