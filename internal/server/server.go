package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"realtime-canvas/internal/auth"
	"realtime-canvas/internal/cache"
	"realtime-canvas/internal/config"
	"realtime-canvas/internal/fanout"
	"realtime-canvas/internal/handler"
	"realtime-canvas/internal/presence"
	"realtime-canvas/internal/service"
	"realtime-canvas/internal/store"
	"realtime-canvas/internal/stream"
)

// Server Fiber 서버 래퍼
type Server struct {
	app *fiber.App
	cfg *config.Config
	log *zap.Logger

	// 스트림 세션 루트 컨텍스트 (종료 시 취소)
	baseCtx    context.Context
	stopStream context.CancelFunc

	tokens        *service.TokenService
	streamer      *stream.Streamer
	tokenHandler  *handler.TokenHandler
	roomHandler   *handler.RoomHandler
	strokeHandler *handler.StrokeHandler
	streamHandler *handler.StreamHandler
	healthHandler *handler.HealthHandler
}

// New 새 서버 인스턴스 생성. redis는 두 백엔드 모두 로컬/DB일 때 nil 허용
func New(cfg *config.Config, db *gorm.DB, redis *cache.RedisClient, log *zap.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               "Realtime Canvas",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // WebSocket과 호환성 문제로 비활성화
		ReadBufferSize:        16384, // 16KB - 큰 헤더 허용
		WriteBufferSize:       16384,
		BodyLimit:             4 * 1024 * 1024,
		DisableStartupMessage: true,
	})

	clk := clock.New()

	tracker, err := newTracker(cfg.Presence, db, redis, clk)
	if err != nil {
		return nil, err
	}
	bus, err := newBus(cfg.Fanout, redis)
	if err != nil {
		return nil, err
	}

	st := store.New(db)
	tokens := service.NewTokenService(st, clk, cfg.Token.TTL)
	rooms := service.NewRoomService(st, tracker, cfg.Rooms.ListLimit)
	strokes := service.NewStrokeService(st, bus, log)
	streamer := stream.NewStreamer(tokens, st, tracker, bus, clk, stream.Options{
		Lifetime:       cfg.Stream.SessionLifetime,
		ResyncInterval: cfg.Stream.ResyncInterval,
		Retry:          cfg.Stream.Retry,
	}, log)

	baseCtx, stopStream := context.WithCancel(context.Background())

	log.Info("backends selected",
		zap.String("presence", cfg.Presence.Backend),
		zap.String("fanout", cfg.Fanout.Backend),
		zap.Duration("session_lifetime", cfg.Stream.SessionLifetime),
	)

	return &Server{
		app:           app,
		cfg:           cfg,
		log:           log,
		baseCtx:       baseCtx,
		stopStream:    stopStream,
		tokens:        tokens,
		streamer:      streamer,
		tokenHandler:  handler.NewTokenHandler(tokens, log),
		roomHandler:   handler.NewRoomHandler(rooms, log),
		strokeHandler: handler.NewStrokeHandler(strokes, log),
		streamHandler: handler.NewStreamHandler(baseCtx, streamer, log),
		healthHandler: handler.NewHealthHandler(db, redis, streamer),
	}, nil
}

func newTracker(cfg config.PresenceConfig, db *gorm.DB, redis *cache.RedisClient, clk clock.Clock) (presence.Tracker, error) {
	switch cfg.Backend {
	case config.PresenceBackendRedis:
		if redis == nil {
			return nil, errors.New("server: redis presence backend requires a redis client")
		}
		return presence.NewRedisTracker(redis.Client(), clk), nil
	case config.PresenceBackendDB:
		return presence.NewDBTracker(db, clk), nil
	default:
		return nil, fmt.Errorf("server: unknown presence backend %q", cfg.Backend)
	}
}

func newBus(cfg config.FanoutConfig, redis *cache.RedisClient) (fanout.Bus, error) {
	switch cfg.Backend {
	case config.FanoutBackendRedis:
		if redis == nil {
			return nil, errors.New("server: redis fanout backend requires a redis client")
		}
		return fanout.NewRedisBus(redis.Client()), nil
	case config.FanoutBackendLocal:
		return fanout.NewLocalBus(), nil
	default:
		return nil, fmt.Errorf("server: unknown fanout backend %q", cfg.Backend)
	}
}

// App 내부 fiber 앱 (테스트용)
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 접근 로그 (zap으로 출력)
	s.app.Use(logger.New(logger.Config{
		Format:     "${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
		Output:     zap.NewStdLog(s.log.Named("access")).Writer(),
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.CORS.AllowOrigins,
		AllowHeaders: s.cfg.CORS.AllowHeaders,
		AllowMethods: "GET, POST, OPTIONS",
	}))
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	// 헬스체크 엔드포인트
	s.app.Get("/health", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)
	s.app.Get("/health/check", s.healthHandler.Check)

	// Rate Limiter 설정 (토큰 발급 남용 방지)
	tokenLimiter := limiter.New(limiter.Config{
		Max:        s.cfg.Limiter.TokenMax,
		Expiration: s.cfg.Limiter.TokenExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() // IP 기반 제한
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})
	requireToken := auth.RequireToken(s.tokens)

	api := s.app.Group("/api")
	api.Post("/csrf_token", tokenLimiter, s.tokenHandler.Issue)

	// Room 라우트
	api.Get("/rooms", s.roomHandler.List)
	api.Post("/rooms", requireToken, s.roomHandler.Create)
	api.Get("/rooms/:id", s.roomHandler.Get)

	// Stroke 라우트 (토큰 필요)
	api.Post("/strokes/rooms/:id", requireToken, s.strokeHandler.Submit)

	// SSE 스트림 (토큰은 csrf_token 쿼리로 전달)
	api.Get("/stream/rooms/:id", s.streamHandler.SSE)

	// WebSocket 스트림
	s.app.Get("/ws/stream/rooms/:id", s.streamHandler.Upgrade, websocket.New(s.streamHandler.WebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.Stream.WSReadBuffer,
		WriteBufferSize: s.cfg.Stream.WSWriteBuffer,
	}))
}

// Start 서버 시작 (Graceful Shutdown 지원)
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("realtime canvas starting", zap.String("addr", s.cfg.Server.Port))
		errCh <- s.app.Listen(s.cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		s.stopStream()
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	return s.Shutdown()
}

// Shutdown 서버 종료. 열린 스트림을 먼저 닫아야 fasthttp가 대기하지 않음
func (s *Server) Shutdown() error {
	s.stopStream()
	if err := s.app.ShutdownWithTimeout(s.cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
