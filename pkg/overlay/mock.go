package overlay

import (
	"sync"

	"github.com/oni-labs/go-buddy/pkg/gateway"
)

// TimerFrame is one recorded timer display update.
type TimerFrame struct {
	Remaining int
	Total     int
	Paused    bool
}

// MockSurface records every rendering call for tests.
type MockSurface struct {
	mu sync.Mutex

	TimerFrames    []TimerFrame
	TimerHidden    int
	AlarmsPlayed   int
	MathSequences  [][]string
	Holograms      []string
	HUDStates      []bool
	HUDHidden      int
	Comparisons    [][2]string
	CapturedPhotos []string
	Movies         []string
	MoviesHidden   int
	TopTexts       []string
	TopTextCleared int
	OverlayClears  int
}

func (m *MockSurface) ShowTimer(remaining, total int, paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TimerFrames = append(m.TimerFrames, TimerFrame{remaining, total, paused})
}

func (m *MockSurface) HideTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TimerHidden++
}

func (m *MockSurface) PlayAlarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AlarmsPlayed++
}

func (m *MockSurface) ShowMathSequence(elements []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MathSequences = append(m.MathSequences, elements)
}

func (m *MockSurface) ShowHologram(imageURL string, _ []gateway.KeyValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Holograms = append(m.Holograms, imageURL)
}

func (m *MockSurface) ShowHUD(_ *gateway.ScreenData, expanded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HUDStates = append(m.HUDStates, expanded)
}

func (m *MockSurface) HideHUD() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HUDHidden++
}

func (m *MockSurface) ShowComparison(_ []gateway.Entity, leftURL, rightURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Comparisons = append(m.Comparisons, [2]string{leftURL, rightURL})
}

func (m *MockSurface) ShowCapturedPhoto(imageURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CapturedPhotos = append(m.CapturedPhotos, imageURL)
}

func (m *MockSurface) ShowMovie(title, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Movies = append(m.Movies, title)
}

func (m *MockSurface) HideMovie() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MoviesHidden++
}

func (m *MockSurface) ShowTopText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TopTexts = append(m.TopTexts, text)
}

func (m *MockSurface) ClearTopText() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TopTextCleared++
}

func (m *MockSurface) ClearOverlays() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OverlayClears++
}

// LastTimerFrame returns the most recent timer display update.
func (m *MockSurface) LastTimerFrame() (TimerFrame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.TimerFrames) == 0 {
		return TimerFrame{}, false
	}
	return m.TimerFrames[len(m.TimerFrames)-1], true
}

// MockVoice records spoken lines for tests.
type MockVoice struct {
	mu      sync.Mutex
	Spoken  []string
	Caption []bool
	Cancels int
}

func (m *MockVoice) Speak(text string, withCaptions bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Spoken = append(m.Spoken, text)
	m.Caption = append(m.Caption, withCaptions)
}

func (m *MockVoice) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancels++
}

// Lines returns a copy of everything spoken so far.
func (m *MockVoice) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Spoken...)
}
