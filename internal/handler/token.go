package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"realtime-canvas/internal/service"
)

// TokenHandler 안티포저리 토큰 발급 핸들러
type TokenHandler struct {
	tokens *service.TokenService
	log    *zap.Logger
}

// NewTokenHandler TokenHandler 생성
func NewTokenHandler(tokens *service.TokenService, log *zap.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, log: log}
}

// Issue 새 토큰 발급
// POST /api/csrf_token
func (h *TokenHandler) Issue(c *fiber.Ctx) error {
	token, err := h.tokens.Issue(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"token": token.CSRFToken})
}
