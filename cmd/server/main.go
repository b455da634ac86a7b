package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"realtime-canvas/internal/cache"
	"realtime-canvas/internal/config"
	"realtime-canvas/internal/database"
	"realtime-canvas/internal/logger"
	"realtime-canvas/internal/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "canvas",
		Short:         "Realtime collaborative canvas server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP / SSE / WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return serve(migrate)
		},
	}
	serveCmd.Flags().Bool("migrate", true, "run schema migrations before serving")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the canvas schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(cfg *config.Config, db *gorm.DB, log *zap.Logger) error {
				if err := database.Migrate(db); err != nil {
					return err
				}
				log.Info("schema migrated")
				return nil
			})
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd)
	// 서브커맨드 없이 실행하면 serve
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

// withDB 설정 로드 + 로거 + DB 연결 후 fn 실행
func withDB(fn func(cfg *config.Config, db *gorm.DB, log *zap.Logger) error) error {
	// 설정 로드
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// 데이터베이스 연결
	db, err := database.ConnectDB(cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("close database", zap.Error(err))
		}
	}()

	return fn(cfg, db, log)
}

func serve(migrate bool) error {
	return withDB(func(cfg *config.Config, db *gorm.DB, log *zap.Logger) error {
		if migrate {
			if err := database.Migrate(db); err != nil {
				return err
			}
		}

		// Redis는 presence 또는 fanout 중 하나라도 사용할 때만 연결
		var redis *cache.RedisClient
		if cfg.Presence.Backend == config.PresenceBackendRedis || cfg.Fanout.Backend == config.FanoutBackendRedis {
			rc, err := cache.NewRedisClient(cfg.Redis, log)
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()
			redis = rc
		}

		// 서버 생성 및 설정
		srv, err := server.New(cfg, db, redis, log)
		if err != nil {
			return err
		}
		srv.SetupMiddleware()
		srv.SetupRoutes()

		// 서버 시작
		return srv.Start()
	})
}
