package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"rirblocks/internal/model"
)

type AllocationService interface {
	AllBlocks(ctx context.Context, registry, family string) (map[string][]string, error)
	CountryBlocks(ctx context.Context, registry, family, country string) ([]string, error)
}

type Handler struct {
	service AllocationService
	logger  *zap.Logger
}

func NewHandler(service AllocationService, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/v1/blocks/:registry/:family", h.Blocks)
	app.Get("/api/v1/health", h.HealthCheck)
}

// Blocks serves the per-country mapping for a registry and family, or a
// single country's list when the country query parameter is set.
func (h *Handler) Blocks(c *fiber.Ctx) error {
	registry := c.Params("registry")
	family := c.Params("family")
	country := c.Query("country")

	var result interface{}
	var err error
	if country == "" {
		result, err = h.service.AllBlocks(c.Context(), registry, family)
	} else {
		result, err = h.service.CountryBlocks(c.Context(), registry, family, country)
	}

	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidArgument):
			return c.Status(fiber.StatusBadRequest).JSON(model.Error{
				Message: err.Error(),
			})
		case errors.Is(err, model.ErrFetchFailed):
			h.logger.Error("delegation feed unavailable",
				zap.String("registry", registry),
				zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(model.Error{
				Message: "Delegation feed unavailable and no cached data exists",
			})
		default:
			h.logger.Error("block lookup failed",
				zap.String("registry", registry),
				zap.String("family", family),
				zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(model.Error{
				Message: "Failed to look up allocation blocks",
			})
		}
	}

	return c.JSON(result)
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}
