package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/support-console/backend/internal/app"
	"github.com/support-console/backend/internal/filter"
	"github.com/support-console/backend/pkg/logger"
)

type TicketsHandler struct{}

func NewTicketsHandler() *TicketsHandler {
	return &TicketsHandler{}
}

func (h *TicketsHandler) GetTickets(c *fiber.Ctx) error {
	return c.JSON(currentSession(c).Tickets.View())
}

// Refresh reloads the ticket list. A failed load is still answered with
// the view, which carries the error text.
func (h *TicketsHandler) Refresh(c *fiber.Ctx) error {
	s := currentSession(c)
	if err := s.ActivateTickets(c.UserContext()); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": app.TicketsLoadError,
			"view":  s.Tickets.View(),
		})
	}
	return c.JSON(s.Tickets.View())
}

func (h *TicketsHandler) SetFilters(c *fiber.Ctx) error {
	var criteria filter.Criteria

	if err := c.BodyParser(&criteria); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	return c.JSON(currentSession(c).Tickets.SetCriteria(criteria))
}

// Search runs a search submit. An empty query goes back to filtering
// the loaded tickets locally.
func (h *TicketsHandler) Search(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	return c.JSON(currentSession(c).Tickets.Submit(c.UserContext(), req.Query))
}

func (h *TicketsHandler) GetStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"stats": currentSession(c).Meta().Stats,
	})
}

func (h *TicketsHandler) GetOptions(c *fiber.Ctx) error {
	return c.JSON(currentSession(c).Meta().Options)
}

func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	id, err := c.ParamsInt("ticketId")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid ticket id",
		})
	}

	s := currentSession(c)
	outcome, entry, err := s.ResolveTicket(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, app.ErrTicketNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Ticket not found",
			})
		}
		logger.Error("Failed to resolve ticket", zap.Int("ticket_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to resolve ticket",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"outcome": outcome,
		"entry":   entry,
	})
}
