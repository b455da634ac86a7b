package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"realtime-canvas/internal/model"
)

// HeaderCSRFToken 변경 요청에 사용하는 토큰 헤더
const HeaderCSRFToken = "X-CSRF-Token"

// localsToken Locals 키
const localsToken = "token"

// TokenChecker 토큰 검증기
type TokenChecker interface {
	Check(ctx context.Context, value string) (*model.Token, error)
}

// RequireToken 안티포저리 토큰 인증 미들웨어
func RequireToken(tokens TokenChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		value := strings.TrimSpace(c.Get(HeaderCSRFToken))

		token, err := tokens.Check(c.UserContext(), value)
		if err != nil {
			if errors.Is(err, model.ErrTokenInvalid) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "token invalid",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to check token",
			})
		}

		// 토큰을 컨텍스트에 저장
		c.Locals(localsToken, token)

		return c.Next()
	}
}

// TokenFrom RequireToken이 저장한 토큰 조회
func TokenFrom(c *fiber.Ctx) (*model.Token, bool) {
	token, ok := c.Locals(localsToken).(*model.Token)
	return token, ok && token != nil
}
