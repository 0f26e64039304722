package speech

import "strings"

// CaptionTrack is the word-token reveal sequence for one utterance.
// Tokens are revealed one per word-boundary event, in original order,
// never skipping or repeating. The track is finite and not restartable;
// a new utterance builds a fresh track.
type CaptionTrack struct {
	words    []string
	revealed int
}

// NewCaptionTrack splits text into word tokens.
func NewCaptionTrack(text string) *CaptionTrack {
	return &CaptionTrack{words: strings.Fields(text)}
}

// Reveal marks the next token visible and returns it.
// Once every token is visible, further boundary events are ignored.
func (t *CaptionTrack) Reveal() (string, bool) {
	if t.revealed >= len(t.words) {
		return "", false
	}
	word := t.words[t.revealed]
	t.revealed++
	return word, true
}

// Words returns all tokens in order.
func (t *CaptionTrack) Words() []string {
	return t.words
}

// Revealed returns how many tokens are visible.
func (t *CaptionTrack) Revealed() int {
	return t.revealed
}
