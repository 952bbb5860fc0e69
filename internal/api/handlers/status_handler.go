package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/support-console/backend/internal/status"
	"github.com/support-console/backend/pkg/logger"
)

type StatusHandler struct {
	monitor *status.Monitor
	ready   func(ctx context.Context) error
}

func NewStatusHandler(monitor *status.Monitor, ready func(ctx context.Context) error) *StatusHandler {
	return &StatusHandler{
		monitor: monitor,
		ready:   ready,
	}
}

// GetStatus returns the last probe results; ?refresh=true probes now.
func (h *StatusHandler) GetStatus(c *fiber.Ctx) error {
	if c.QueryBool("refresh") {
		return c.JSON(h.monitor.Check(c.UserContext()))
	}
	return c.JSON(h.monitor.State())
}

func (h *StatusHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *StatusHandler) Ready(c *fiber.Ctx) error {
	if err := h.ready(c.UserContext()); err != nil {
		logger.Warn("Readiness check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not ready",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status": "ready",
	})
}
