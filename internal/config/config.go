package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 백엔드 선택지
const (
	PresenceBackendDB    = "db"
	PresenceBackendRedis = "redis"

	FanoutBackendRedis = "redis"
	FanoutBackendLocal = "local"
)

// Config 애플리케이션 전체 설정
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Stream   StreamConfig
	Presence PresenceConfig
	Fanout   FanoutConfig
	Token    TokenConfig
	Rooms    RoomsConfig
	CORS     CORSConfig
	Limiter  LimiterConfig
	Log      LogConfig
}

// ServerConfig HTTP 서버 설정
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration // 0 = 무제한 (스트림 응답은 오래 유지됨)
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig PostgreSQL 설정
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	TimeZone        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	SlowThreshold   time.Duration
}

// DSN PostgreSQL DSN 생성
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.TimeZone,
	)
}

// RedisConfig Redis 설정
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// StreamConfig 스트림 세션 설정
type StreamConfig struct {
	SessionLifetime time.Duration // 0 = 세션 수명 제한 없음
	ResyncInterval  time.Duration // 0 = 주기적 재동기화 비활성화
	Retry           time.Duration
	WSReadBuffer    int
	WSWriteBuffer   int
}

// PresenceConfig 시청자 수 추적 설정
type PresenceConfig struct {
	Backend string
}

// FanoutConfig 알림 버스 설정
type FanoutConfig struct {
	Backend string
}

// TokenConfig CSRF 토큰 설정
type TokenConfig struct {
	TTL time.Duration
}

// RoomsConfig 방 목록 설정
type RoomsConfig struct {
	ListLimit int
}

// CORSConfig CORS 설정
type CORSConfig struct {
	AllowOrigins string
	AllowHeaders string
}

// LimiterConfig 토큰 발급 Rate Limit 설정
type LimiterConfig struct {
	TokenMax        int
	TokenExpiration time.Duration
}

// LogConfig 로깅 설정
type LogConfig struct {
	Level       string
	Development bool
}

// Load 환경 변수에서 설정 로드
func Load() *Config {
	// .env 파일 로드 (없어도 에러 무시)
	if err := godotenv.Load(); err != nil {
		log.Println("ℹ️ No .env file found, using environment variables")
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", ":8080"),
			ReadTimeout:     getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDuration("WRITE_TIMEOUT", 0),
			IdleTimeout:     getDuration("IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			DBName:          getEnv("DB_NAME", "isuketch"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			TimeZone:        getEnv("DB_TIMEZONE", "UTC"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: getDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
			SlowThreshold:   getDuration("DB_SLOW_THRESHOLD", 200*time.Millisecond),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			PoolSize: getInt("REDIS_POOL_SIZE", 10),
		},
		Stream: StreamConfig{
			SessionLifetime: getDuration("STREAM_SESSION_LIFETIME", 5*time.Second),
			ResyncInterval:  getDuration("STREAM_RESYNC_INTERVAL", time.Second),
			Retry:           getDuration("STREAM_RETRY", time.Second),
			WSReadBuffer:    getInt("STREAM_WS_READ_BUFFER", 4096),
			WSWriteBuffer:   getInt("STREAM_WS_WRITE_BUFFER", 4096),
		},
		Presence: PresenceConfig{
			Backend: getEnv("PRESENCE_BACKEND", PresenceBackendDB),
		},
		Fanout: FanoutConfig{
			Backend: getEnv("FANOUT_BACKEND", FanoutBackendRedis),
		},
		Token: TokenConfig{
			TTL: getDuration("TOKEN_TTL", 24*time.Hour),
		},
		Rooms: RoomsConfig{
			ListLimit: getInt("ROOM_LIST_LIMIT", 100),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			AllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin, Content-Type, Accept, X-CSRF-Token, Last-Event-ID"),
		},
		Limiter: LimiterConfig{
			TokenMax:        getInt("TOKEN_RATE_LIMIT", 60),
			TokenExpiration: getDuration("TOKEN_RATE_WINDOW", time.Minute),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getBool("LOG_DEVELOPMENT", false),
		},
	}
}

// Validate 설정값 검증
func (c *Config) Validate() error {
	switch c.Presence.Backend {
	case PresenceBackendDB, PresenceBackendRedis:
	default:
		return fmt.Errorf("config: unknown PRESENCE_BACKEND %q", c.Presence.Backend)
	}
	switch c.Fanout.Backend {
	case FanoutBackendRedis, FanoutBackendLocal:
	default:
		return fmt.Errorf("config: unknown FANOUT_BACKEND %q", c.Fanout.Backend)
	}
	if c.Stream.SessionLifetime < 0 || c.Stream.ResyncInterval < 0 || c.Stream.Retry < 0 {
		return fmt.Errorf("config: stream durations must not be negative")
	}
	// 무제한 세션은 주기적 쓰기로만 끊긴 SSE 연결을 감지할 수 있다
	if c.Stream.SessionLifetime == 0 && c.Stream.ResyncInterval == 0 {
		return fmt.Errorf("config: STREAM_RESYNC_INTERVAL must be set when STREAM_SESSION_LIFETIME is 0")
	}
	if c.Token.TTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be positive")
	}
	if c.Rooms.ListLimit <= 0 {
		return fmt.Errorf("config: ROOM_LIST_LIMIT must be positive")
	}
	// fasthttp는 스트림 응답 전체에 쓰기 데드라인을 건다
	if c.Server.WriteTimeout > 0 && c.Stream.SessionLifetime > 0 && c.Server.WriteTimeout <= c.Stream.SessionLifetime {
		return fmt.Errorf("config: WRITE_TIMEOUT (%s) must exceed STREAM_SESSION_LIFETIME (%s)", c.Server.WriteTimeout, c.Stream.SessionLifetime)
	}
	return nil
}

// getEnv 환경 변수 조회 (기본값 지원)
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getInt 정수형 환경 변수 조회
func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getBool 불리언 환경 변수 조회
func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration 시간 환경 변수 조회
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// 숫자만 있으면 초로 간주
		if !strings.ContainsAny(value, "smh") {
			if secs, err := strconv.Atoi(value); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
