package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"realtime-canvas/internal/cache"
	"realtime-canvas/internal/database"
)

// ActiveStreams 열린 스트림 세션 수 제공자
type ActiveStreams interface {
	Active() int64
}

// HealthHandler 헬스체크 핸들러
type HealthHandler struct {
	db      *gorm.DB
	redis   *cache.RedisClient // nil = Redis 미사용
	streams ActiveStreams
}

// NewHealthHandler HealthHandler 생성
func NewHealthHandler(db *gorm.DB, redis *cache.RedisClient, streams ActiveStreams) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, streams: streams}
}

// ComponentCheck 컴포넌트 상태
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse 헬스체크 응답
type HealthResponse struct {
	Status        string                    `json:"status"`
	Timestamp     string                    `json:"timestamp"`
	ActiveStreams int64                     `json:"active_streams"`
	Checks        map[string]ComponentCheck `json:"checks"`
}

// Check 전체 상태 확인 (DB + Redis)
// GET /health/check
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]ComponentCheck),
	}
	if h.streams != nil {
		response.ActiveStreams = h.streams.Active()
	}

	// 1. Database 체크
	dbStart := time.Now()
	if err := database.Ping(ctx, h.db); err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{
			Status: "unhealthy",
			Error:  "database ping failed",
		}
	} else {
		response.Checks["database"] = ComponentCheck{
			Status:  "healthy",
			Latency: time.Since(dbStart).String(),
		}
	}

	// 2. Redis 체크 (presence / fanout 백엔드)
	if h.redis != nil {
		redisStart := time.Now()
		if err := h.redis.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Checks["redis"] = ComponentCheck{
				Status: "unhealthy",
				Error:  "redis ping failed",
			}
		} else {
			response.Checks["redis"] = ComponentCheck{
				Status:  "healthy",
				Latency: time.Since(redisStart).String(),
			}
		}
	} else {
		response.Checks["redis"] = ComponentCheck{
			Status: "not_configured",
		}
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(response)
}

// Liveness K8s liveness probe용 (단순 체크)
// GET /health
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// Readiness K8s readiness probe용 (DB + Redis 연결 체크)
// GET /health/ready
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, h.db); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	if h.redis != nil {
		if err := h.redis.Health(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
		}
	}
	return c.SendString("READY")
}
