package service

import (
	"testing"
	"time"

	"github.com/minisource/heartbeat/config"
	"github.com/minisource/heartbeat/internal/database"
	"github.com/minisource/heartbeat/internal/repository"
	"github.com/minisource/heartbeat/internal/scheduler"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type testEnv struct {
	db           *gorm.DB
	targets      *TargetService
	schedules    *ScheduleService
	runs         *RunService
	metrics      *MetricsService
	targetRepo   *repository.TargetRepository
	scheduleRepo *repository.ScheduleRepository
	runRepo      *repository.RunRepository
}

// newTestEnv wires the full service stack over a private in-memory store.
// The scheduler is real but never started: timers install without firing.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(&config.DatabaseConfig{URL: "sqlite://:memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	targetRepo := repository.NewTargetRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	runRepo := repository.NewRunRepository(db)

	cfg := &config.Config{
		Scheduler: config.SchedulerConfig{
			Timezone:          "UTC",
			MaxConcurrentJobs: 8,
			MisfireGrace:      time.Minute,
		},
		HTTP: config.HTTPClientConfig{
			DefaultTimeout: 5 * time.Second,
			ConnectTimeout: 2 * time.Second,
			MaxConns:       10,
			MaxIdleConns:   5,
		},
	}

	logger := zaptest.NewLogger(t).Sugar()
	sched, err := scheduler.NewScheduler(cfg, logger, scheduleRepo, targetRepo, runRepo)
	require.NoError(t, err)

	return &testEnv{
		db:           db,
		targets:      NewTargetService(targetRepo, scheduleRepo, sched, logger),
		schedules:    NewScheduleService(scheduleRepo, targetRepo, sched, logger),
		runs:         NewRunService(runRepo),
		metrics:      NewMetricsService(runRepo, scheduleRepo),
		targetRepo:   targetRepo,
		scheduleRepo: scheduleRepo,
		runRepo:      runRepo,
	}
}

func strptr(s string) *string { return &s }

func intptr(v int) *int { return &v }
