package controller

import (
	"errors"
	"log/slog"
	"strconv"

	"carquote_backend/internal/service"

	"github.com/gofiber/fiber/v2"
)

// respondError maps service errors onto HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrInvalidTransition):
		status = fiber.StatusConflict
	case errors.Is(err, service.ErrUpstream):
		status = fiber.StatusBadGateway
	default:
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(status).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func parseID(c *fiber.Ctx, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
