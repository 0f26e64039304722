package overlay

import (
	"sync"

	"github.com/oni-labs/go-buddy/pkg/avatar"
	"github.com/oni-labs/go-buddy/pkg/gateway"
)

const hudFallbackDetail = "Here are the details."

// HUDCard is the expandable screen-analysis card. It opens collapsed,
// showing the short summary; expanding reveals the detailed analysis
// and reads it aloud exactly once per card. Collapsing cuts the
// read-out short.
type HUDCard struct {
	mu           sync.Mutex
	data         *gateway.ScreenData
	expanded     bool
	spokenDetail bool

	surface Surface
	voice   Voice
	avatar  avatar.Renderer
}

func newHUDCard(data *gateway.ScreenData, surface Surface, voice Voice, renderer avatar.Renderer) *HUDCard {
	return &HUDCard{data: data, surface: surface, voice: voice, avatar: renderer}
}

// Toggle expands a collapsed card and collapses an expanded one.
func (h *HUDCard) Toggle() {
	h.mu.Lock()
	expanded := h.expanded
	h.mu.Unlock()
	if expanded {
		h.Collapse()
	} else {
		h.Expand()
	}
}

// Expand shows the detailed analysis. The detail is spoken without
// captions, and only the first time the card is expanded.
func (h *HUDCard) Expand() {
	h.mu.Lock()
	if h.expanded {
		h.mu.Unlock()
		return
	}
	h.expanded = true
	speak := !h.spokenDetail
	h.spokenDetail = true
	data := h.data
	h.mu.Unlock()

	h.surface.ShowHUD(data, true)
	if speak {
		text := data.DetailedAnalysis
		if text == "" {
			text = hudFallbackDetail
		}
		h.voice.Speak(text, false)
	}
}

// Collapse returns to the short summary and silences any in-flight
// detail read-out.
func (h *HUDCard) Collapse() {
	h.mu.Lock()
	if !h.expanded {
		h.mu.Unlock()
		return
	}
	h.expanded = false
	data := h.data
	h.mu.Unlock()

	h.surface.ShowHUD(data, false)
	h.voice.Cancel()
	h.avatar.PlayAnimation(avatar.AnimIdle)
}

// Expanded reports the card's current view.
func (h *HUDCard) Expanded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.expanded
}
