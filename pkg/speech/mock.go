package speech

import "sync"

// MockEngine is an Engine for testing. By default it completes each
// utterance synchronously, firing Start, one Boundary per word token, and
// End. Set Manual to drive events by hand via the Fire helpers.
type MockEngine struct {
	mu sync.Mutex

	// Manual disables automatic completion.
	Manual bool

	// Boundaries overrides the number of boundary events fired in
	// automatic mode; -1 means one per word.
	Boundaries int

	// SpeakErr makes Speak fail.
	SpeakErr error

	// Captured calls for assertions
	Spoken      []string
	CancelCalls int

	current Events
	active  bool
}

// NewMockEngine creates a MockEngine in automatic mode.
func NewMockEngine() *MockEngine {
	return &MockEngine{Boundaries: -1}
}

// Speak implements Engine.
func (m *MockEngine) Speak(text string, ev Events) error {
	if m.SpeakErr != nil {
		return m.SpeakErr
	}
	m.mu.Lock()
	m.Spoken = append(m.Spoken, text)
	m.current = ev
	m.active = true
	manual := m.Manual
	boundaries := m.Boundaries
	m.mu.Unlock()

	if manual {
		return nil
	}

	if boundaries < 0 {
		boundaries = len(NewCaptionTrack(text).Words())
	}
	m.FireStart()
	for i := 0; i < boundaries; i++ {
		m.FireBoundary()
	}
	m.FireEnd()
	return nil
}

// Cancel implements Engine.
func (m *MockEngine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelCalls++
	m.active = false
}

// Close implements Engine.
func (m *MockEngine) Close() error { return nil }

// FireStart delivers the Start event of the active utterance.
func (m *MockEngine) FireStart() {
	if ev := m.events(); ev.Start != nil {
		ev.Start()
	}
}

// FireBoundary delivers a word-boundary event.
func (m *MockEngine) FireBoundary() {
	if ev := m.events(); ev.Boundary != nil {
		ev.Boundary()
	}
}

// FireEnd delivers the End event.
func (m *MockEngine) FireEnd() {
	m.mu.Lock()
	m.active = false
	ev := m.current
	m.mu.Unlock()
	if ev.End != nil {
		ev.End()
	}
}

// Active reports whether an utterance is in flight.
func (m *MockEngine) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *MockEngine) events() Events {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
