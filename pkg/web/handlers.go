package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/oni-labs/go-buddy/pkg/hub"
)

// handleStatus returns the assistant's current state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return c.JSON(s.state)
}

// AskRequest is the request body for a dashboard prompt.
type AskRequest struct {
	Prompt string `json:"prompt"`
}

// handleAsk feeds a prompt into the assistant.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	var req AskRequest
	if err := c.BodyParser(&req); err != nil || req.Prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "prompt required",
		})
	}

	if s.OnPrompt == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "assistant not connected",
		})
	}

	if err := s.OnPrompt(req.Prompt); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "accepted"})
}

// handleStop is the dashboard's global stop button.
func (s *Server) handleStop(c *fiber.Ctx) error {
	if s.OnStop != nil {
		s.OnStop()
	}
	return c.JSON(fiber.Map{"status": "stopped"})
}

// handleGetLogs returns recent log entries.
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

// handleGetConversation returns the recent conversation.
func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	s.conversationMu.RLock()
	defer s.conversationMu.RUnlock()
	return c.JSON(s.conversation)
}

// handleLogsWS streams live log entries. New clients get the buffered
// backlog first.
func (s *Server) handleLogsWS(c *websocket.Conn) {
	s.logsMu.RLock()
	backlog := append([]LogEntry(nil), s.logs...)
	s.logsMu.RUnlock()
	for _, entry := range backlog {
		if err := c.WriteJSON(entry); err != nil {
			c.Close()
			return
		}
	}

	hub.NewClient(s.logHub, c).Run()
}

// handleStatusWS streams state updates. New clients get the current
// state first.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	s.stateMu.RLock()
	state := s.state
	s.stateMu.RUnlock()
	if err := c.WriteJSON(state); err != nil {
		c.Close()
		return
	}

	hub.NewClient(s.statusHub, c).Run()
}

// handleStageWS attaches the browser stage page. Outbound events fan
// out through the stage hub; replies route back to the bridge.
func (s *Server) handleStageWS(c *websocket.Conn) {
	client := hub.NewClient(s.stageHub, c)
	client.OnMessage = s.bridge.handleReply
	client.Run()
}
