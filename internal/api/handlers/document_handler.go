package handlers

import (
	"context"
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/support-console/backend/internal/knowledge"
	"github.com/support-console/backend/pkg/logger"
)

type DocumentHandler struct {
	base *knowledge.Base
	// onBuild runs after a successful build, e.g. to drop cached answers.
	onBuild func(ctx context.Context) error
}

func NewDocumentHandler(base *knowledge.Base, onBuild func(ctx context.Context) error) *DocumentHandler {
	return &DocumentHandler{
		base:    base,
		onBuild: onBuild,
	}
}

func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	docs, err := h.base.Documents()
	if err != nil {
		logger.Error("Failed to list documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}

	return c.JSON(fiber.Map{
		"documents": docs,
	})
}

func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Please select a PDF file",
		})
	}

	f, err := fh.Open()
	if err != nil {
		logger.Error("Failed to open upload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read upload",
		})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		logger.Error("Failed to read upload", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read upload",
		})
	}

	doc, err := h.base.Upload(fh.Filename, data)
	switch {
	case errors.Is(err, knowledge.ErrUnsupportedDocument):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Please select a PDF file",
		})
	case errors.Is(err, knowledge.ErrEmptyDocument):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "The selected file is empty",
		})
	case err != nil:
		logger.Error("Failed to store document", zap.String("name", fh.Filename), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store document",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (h *DocumentHandler) BuildKnowledgeBase(c *fiber.Ctx) error {
	stats, err := h.base.Build(c.UserContext())
	switch {
	case errors.Is(err, knowledge.ErrNoDocuments):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Upload at least one document before building",
		})
	case errors.Is(err, knowledge.ErrBuildInProgress):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A build is already running",
		})
	case err != nil:
		logger.Error("Failed to build knowledge base", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to build knowledge base",
		})
	}

	if h.onBuild != nil {
		if err := h.onBuild(c.UserContext()); err != nil {
			logger.Warn("Post-build hook failed", zap.Error(err))
		}
	}

	return c.JSON(stats)
}

func (h *DocumentHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.base.Stats()
	if err != nil {
		logger.Error("Failed to read knowledge stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read knowledge stats",
		})
	}
	return c.JSON(stats)
}
