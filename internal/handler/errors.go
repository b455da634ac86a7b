package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"realtime-canvas/internal/model"
)

// respondError maps domain error kinds to HTTP status codes.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, model.ErrTokenInvalid):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "token invalid"})
	case errors.Is(err, model.ErrMalformedRequest), errors.Is(err, model.ErrOwnershipViolation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, model.ErrRoomNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "room not found"})
	}

	log.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// roomID parses the :id route parameter. Anything that is not a positive
// integer cannot name a room.
func roomID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, model.ErrRoomNotFound
	}
	return int64(id), nil
}
