package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/support-console/backend/internal/app"
	"github.com/support-console/backend/pkg/logger"
)

const sessionKey = "session"

type SessionHandler struct {
	sessions *app.Registry
}

func NewSessionHandler(sessions *app.Registry) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
	}
}

// RequireSession resolves the :id route param and stores the session
// in the request locals.
func (h *SessionHandler) RequireSession(c *fiber.Ctx) error {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}
	c.Locals(sessionKey, s)
	return c.Next()
}

func currentSession(c *fiber.Ctx) *app.Session {
	s, _ := c.Locals(sessionKey).(*app.Session)
	return s
}

func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	s := h.sessions.Create()
	logger.Debug("Session requested", zap.String("session_id", s.ID), zap.String("ip", c.IP()))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         s.ID,
		"created_at": s.CreatedAt,
	})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	return c.JSON(currentSession(c).Snapshot())
}

func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	if !h.sessions.Delete(c.Params("id")) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
