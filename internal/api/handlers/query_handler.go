package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/support-console/backend/internal/app"
	"github.com/support-console/backend/internal/tracker"
	"github.com/support-console/backend/pkg/logger"
)

// QueryHandler serves the two tabs that put free text to the assistant:
// Home quick help and Chat.
type QueryHandler struct{}

func NewQueryHandler() *QueryHandler {
	return &QueryHandler{}
}

func (h *QueryHandler) GetHome(c *fiber.Ctx) error {
	s := currentSession(c)
	return c.JSON(fiber.Map{
		"categories": app.HomeCatalogue(),
		"entries":    s.Home.List(),
	})
}

func (h *QueryHandler) AskHome(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	s := currentSession(c)
	outcome, entry, err := s.AskHome(c.UserContext(), req.Query)
	if errors.Is(err, tracker.ErrEmptyMessage) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"outcome": outcome,
		"entry":   entry,
	})
}

func (h *QueryHandler) GetChat(c *fiber.Ctx) error {
	return c.JSON(currentSession(c).Chat.State())
}

func (h *QueryHandler) SendChat(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	s := currentSession(c)
	msg, err := s.Chat.Submit(c.UserContext(), req.Text)
	if errors.Is(err, tracker.ErrEmptyMessage) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": msg,
		"chat":    s.Chat.State(),
	})
}
