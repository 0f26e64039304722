package speech

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsWriteTimeout     = 5 * time.Second
)

// WSEngine speaks through a local speech-synthesis daemon over WebSocket.
// The daemon plays the audio itself and streams utterance lifecycle events
// back: start, one boundary per spoken word, and end.
type WSEngine struct {
	url    string
	logger *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	utterance int // increments per Speak; stale daemon events are dropped
	events    Events

	// writeMu serializes frame writes. Speak and Cancel arrive from
	// independent goroutines and gorilla allows one writer at a time.
	writeMu sync.Mutex
}

// wsEvent is the daemon's event frame.
type wsEvent struct {
	Type      string `json:"type"` // "start", "boundary", "end", "error"
	Utterance int    `json:"utterance"`
	Message   string `json:"message,omitempty"`
}

// wsRequest is the frame sent to the daemon.
type wsRequest struct {
	Type      string `json:"type"` // "speak" or "cancel"
	Utterance int    `json:"utterance"`
	Text      string `json:"text,omitempty"`
}

// NewWSEngine creates an engine talking to the daemon at url
// (e.g. ws://127.0.0.1:7071/speak).
func NewWSEngine(url string) *WSEngine {
	return &WSEngine{
		url:    url,
		logger: slog.Default().With("component", "speech.ws"),
	}
}

// Connect dials the daemon and starts the event read loop.
func (e *WSEngine) Connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	conn, resp, err := dialer.Dial(e.url, http.Header{})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("speech: daemon dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("speech: daemon dial failed: %w", err)
	}

	e.mu.Lock()
	e.conn = conn
	e.connected = true
	e.mu.Unlock()

	go e.readLoop(conn)
	e.logger.Info("speech daemon connected", "url", e.url)
	return nil
}

// Speak implements Engine. The previous utterance is cancelled daemon-side
// before the new one starts.
func (e *WSEngine) Speak(text string, ev Events) error {
	e.mu.Lock()
	if !e.connected {
		e.mu.Unlock()
		return ErrNotConnected
	}
	e.utterance++
	id := e.utterance
	e.events = ev
	conn := e.conn
	e.mu.Unlock()

	return e.write(conn, wsRequest{Type: "speak", Utterance: id, Text: text})
}

// Cancel implements Engine.
func (e *WSEngine) Cancel() {
	e.mu.Lock()
	if !e.connected {
		e.mu.Unlock()
		return
	}
	e.utterance++ // invalidate pending events
	conn := e.conn
	e.mu.Unlock()

	if err := e.write(conn, wsRequest{Type: "cancel"}); err != nil {
		e.logger.Warn("cancel failed", "error", err)
	}
}

// Close implements Engine.
func (e *WSEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = false
	if e.conn != nil {
		return e.conn.Close()
	}
	return nil
}

func (e *WSEngine) write(conn *websocket.Conn, req wsRequest) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("speech: daemon write: %w", err)
	}
	return nil
}

// readLoop dispatches daemon events to the active utterance's callbacks.
// Events carrying a stale utterance id are dropped: the daemon may still
// flush events for an utterance that was pre-empted locally.
func (e *WSEngine) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			e.mu.Lock()
			e.connected = false
			e.mu.Unlock()
			e.logger.Warn("speech daemon disconnected", "error", err)
			return
		}

		var event wsEvent
		if err := json.Unmarshal(data, &event); err != nil {
			e.logger.Debug("unparseable daemon event", "error", err)
			continue
		}

		e.mu.Lock()
		current := event.Utterance == e.utterance
		ev := e.events
		e.mu.Unlock()
		if !current {
			continue
		}

		switch event.Type {
		case "start":
			if ev.Start != nil {
				ev.Start()
			}
		case "boundary":
			if ev.Boundary != nil {
				ev.Boundary()
			}
		case "end":
			if ev.End != nil {
				ev.End()
			}
		case "error":
			e.logger.Warn("speech daemon error", "message", event.Message)
			if ev.End != nil {
				ev.End()
			}
		}
	}
}
