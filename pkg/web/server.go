// Package web provides a real-time dashboard for the assistant.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/oni-labs/go-buddy/internal/log"
	"github.com/oni-labs/go-buddy/pkg/hub"
)

// AssistantState is the live view of the assistant for the dashboard.
type AssistantState struct {
	BackendConnected bool   `json:"backend_connected"`
	Speaking         bool   `json:"speaking"`
	Recording        bool   `json:"recording"`
	Perceiving       bool   `json:"perceiving"`
	ControlsEnabled  bool   `json:"controls_enabled"`
	ActiveTimer      string `json:"active_timer"`
	LastUserMessage  string `json:"last_user_message"`
	LastBuddyMessage string `json:"last_buddy_message"`
}

// LogEntry is a log line for the dashboard.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, speech, perception, error
	Message string `json:"message"`
}

// ConversationEntry is one message in the conversation view.
type ConversationEntry struct {
	Time    string `json:"time"`
	Role    string `json:"role"` // user, buddy
	Message string `json:"message"`
}

// Server is the dashboard server.
type Server struct {
	app  *fiber.App
	port string

	state   AssistantState
	stateMu sync.RWMutex

	// Log buffer (last 500 entries)
	logs   []LogEntry
	logsMu sync.RWMutex

	conversation   []ConversationEntry
	conversationMu sync.RWMutex

	statusHub *hub.Hub
	logHub    *hub.Hub
	stageHub  *hub.Hub
	bridge    *Bridge

	// OnPrompt handles a prompt typed into the dashboard, as if the
	// user had typed it into the assistant's chat box.
	OnPrompt func(prompt string) error

	// OnStop is the dashboard's global stop button.
	OnStop func()
}

// NewServer creates a dashboard server listening on port.
func NewServer(port string) *Server {
	s := &Server{
		port:         port,
		logs:         make([]LogEntry, 0, 500),
		conversation: make([]ConversationEntry, 0, 100),
		statusHub:    hub.New("status"),
		logHub:       hub.New("logs"),
		stageHub:     hub.New("stage"),
	}
	s.bridge = NewBridge(s.stageHub)
	s.state.ControlsEnabled = true

	app := fiber.New(fiber.Config{
		AppName:               "Buddy Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	app.Static("/", "./web")

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/ask", s.handleAsk)
	api.Post("/stop", s.handleStop)
	api.Get("/logs", s.handleGetLogs)
	api.Get("/conversation", s.handleGetConversation)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/stage", websocket.New(s.handleStageWS))

	s.app = app
	return s
}

// Start starts the web server. Blocks.
func (s *Server) Start() error {
	log.Info("web dashboard listening", "addr", "http://localhost:"+s.port)

	go s.statusHub.Run()
	go s.logHub.Run()
	go s.stageHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server failed", "error", err)
		}
	}()
}

// Bridge returns the stage bridge. It implements the renderer,
// overlay, shell and capture contracts over the stage websocket.
func (s *Server) Bridge() *Bridge {
	return s.bridge
}

// UpdateState applies update to the state and broadcasts the result.
func (s *Server) UpdateState(update func(*AssistantState)) {
	s.stateMu.Lock()
	update(&s.state)
	state := s.state
	s.stateMu.Unlock()

	s.statusHub.BroadcastJSON(state)
}

// AddLog appends a log entry and broadcasts it.
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > 500 {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

// AddConversation appends a conversation entry.
func (s *Server) AddConversation(role, message string) {
	entry := ConversationEntry{
		Time:    time.Now().Format("15:04:05"),
		Role:    role,
		Message: message,
	}

	s.conversationMu.Lock()
	s.conversation = append(s.conversation, entry)
	if len(s.conversation) > 100 {
		s.conversation = s.conversation[1:]
	}
	s.conversationMu.Unlock()
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
