package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"realtime-canvas/internal/auth"
	"realtime-canvas/internal/model"
	"realtime-canvas/internal/service"
)

// StrokeHandler 획 제출 핸들러
type StrokeHandler struct {
	strokes *service.StrokeService
	log     *zap.Logger
}

// NewStrokeHandler StrokeHandler 생성
func NewStrokeHandler(strokes *service.StrokeService, log *zap.Logger) *StrokeHandler {
	return &StrokeHandler{strokes: strokes, log: log}
}

// Submit 획 제출
// POST /api/strokes/rooms/:id
func (h *StrokeHandler) Submit(c *fiber.Ctx) error {
	token, ok := auth.TokenFrom(c)
	if !ok {
		return respondError(c, h.log, model.ErrTokenInvalid)
	}

	id, err := roomID(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	var req service.SubmitStrokeRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, h.log, fmt.Errorf("%w: %v", model.ErrMalformedRequest, err))
	}

	stroke, err := h.strokes.Submit(c.UserContext(), id, token.ID, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"stroke": stroke})
}
