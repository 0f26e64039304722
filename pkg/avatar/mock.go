package avatar

import "sync"

// Mock is a recording implementation of Renderer for testing.
type Mock struct {
	mu sync.Mutex

	current    string
	background string

	// Configurable behavior
	ChangeBackgroundFunc func(url string) error

	// Captured calls for assertions
	Played      []string
	Backgrounds []string
	ResetCalls  int
}

// NewMock creates a new Mock renderer starting in the idle state.
func NewMock() *Mock {
	return &Mock{current: AnimIdle}
}

// PlayAnimation implements Renderer.
func (m *Mock) PlayAnimation(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = name
	m.Played = append(m.Played, name)
}

// CurrentAnimation implements Renderer.
func (m *Mock) CurrentAnimation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ChangeSceneBackground implements Renderer.
func (m *Mock) ChangeSceneBackground(url string) error {
	if m.ChangeBackgroundFunc != nil {
		return m.ChangeBackgroundFunc(url)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.background = url
	m.Backgrounds = append(m.Backgrounds, url)
	return nil
}

// ResetSceneBackground implements Renderer.
func (m *Mock) ResetSceneBackground() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.background = ""
	m.ResetCalls++
}

// Background returns the currently applied background URL.
func (m *Mock) Background() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.background
}
