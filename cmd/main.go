package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/minisource/heartbeat/config"
	_ "github.com/minisource/heartbeat/docs"
	"github.com/minisource/heartbeat/internal/database"
	"github.com/minisource/heartbeat/internal/handler"
	"github.com/minisource/heartbeat/internal/repository"
	"github.com/minisource/heartbeat/internal/router"
	"github.com/minisource/heartbeat/internal/scheduler"
	"github.com/minisource/heartbeat/internal/service"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// @title Heartbeat Scheduler API
// @version 1.0
// @description Durable scheduler that periodically issues HTTP requests to registered targets and records every execution.
// @BasePath /
func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// Initialize database
	db, err := database.Open(&cfg.Database)
	if err != nil {
		sugar.Fatalw("failed to connect to database", "error", err)
	}

	// Auto-migrate models
	if err := database.AutoMigrate(db); err != nil {
		sugar.Fatalw("failed to auto-migrate", "error", err)
	}

	ctx := context.Background()

	// The guard is optional: without a Redis address this process trusts it
	// is the only engine pointed at the database.
	var guard *scheduler.InstanceGuard
	if cfg.Redis.Addr != "" {
		guard = scheduler.NewInstanceGuard(&cfg.Redis, sugar)
		if err := guard.Acquire(ctx); err != nil {
			sugar.Fatalw("failed to acquire instance lock", "error", err)
		}
	}

	// Initialize repositories
	targetRepo := repository.NewTargetRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	runRepo := repository.NewRunRepository(db)

	// Initialize scheduler
	sched, err := scheduler.NewScheduler(cfg, sugar, scheduleRepo, targetRepo, runRepo)
	if err != nil {
		sugar.Fatalw("failed to build scheduler", "error", err)
	}

	// Initialize services
	targetService := service.NewTargetService(targetRepo, scheduleRepo, sched, sugar)
	scheduleService := service.NewScheduleService(scheduleRepo, targetRepo, sched, sugar)
	runService := service.NewRunService(runRepo)
	metricsService := service.NewMetricsService(runRepo, scheduleRepo)

	// Initialize handlers
	handlers := &router.Handlers{
		Target:   handler.NewTargetHandler(targetService),
		Schedule: handler.NewScheduleHandler(scheduleService),
		Run:      handler.NewRunHandler(runService),
		Metrics:  handler.NewMetricsHandler(metricsService),
		Health:   handler.NewHealthHandler(db, sched),
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Minisource Heartbeat",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	})

	// Setup routes
	router.SetupRouter(app, handlers)

	// Start scheduler and restore timers for ACTIVE schedules
	sched.Start()
	if err := sched.Rehydrate(ctx); err != nil {
		sugar.Fatalw("failed to rehydrate schedules", "error", err)
	}

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		sugar.Infow("starting heartbeat service", "addr", addr)
		if err := app.Listen(addr); err != nil {
			sugar.Fatalw("failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Infow("shutting down heartbeat service")

	// Stop firing before the API goes away, then drop the lease and close
	// the store.
	sched.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		sugar.Errorw("server shutdown error", "error", err)
	}

	if guard != nil {
		if err := guard.Release(shutdownCtx); err != nil {
			sugar.Errorw("failed to release instance lock", "error", err)
		}
	}

	if err := database.Close(db); err != nil {
		sugar.Errorw("failed to close database", "error", err)
	}

	sugar.Infow("heartbeat service stopped")
}

// newLogger builds the process logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = zapcore.DebugLevel
	case "INFO":
		lvl = zapcore.InfoLevel
	case "WARN", "WARNING":
		lvl = zapcore.WarnLevel
	case "ERROR":
		lvl = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}
