// Package overlay tracks the assistant's on-screen widget state: the
// countdown timer, hologram, HUD card, comparison panel, captured photo
// and top banner text. Rendering is delegated to a Surface implemented
// by the embedding shell; this package owns the state machines behind
// the pixels.
package overlay

import "github.com/oni-labs/go-buddy/pkg/gateway"

// Surface is the rendering layer. Implementations draw widgets on
// screen; they hold no logic of their own.
type Surface interface {
	ShowTimer(remaining, total int, paused bool)
	HideTimer()
	PlayAlarm()

	ShowMathSequence(elements []string)
	ShowHologram(imageURL string, keyInfo []gateway.KeyValue)
	ShowHUD(data *gateway.ScreenData, expanded bool)
	HideHUD()
	ShowComparison(entities []gateway.Entity, leftURL, rightURL string)
	ShowCapturedPhoto(imageURL string)
	ShowMovie(title, url string)
	HideMovie()

	ShowTopText(text string)
	ClearTopText()

	// ClearOverlays removes everything from the shared visual output
	// area (math sequences, holograms, comparisons, photos).
	ClearOverlays()
}

// Voice is the slice of the speech controller the overlay needs.
type Voice interface {
	Speak(text string, withCaptions bool)
	Cancel()
}
