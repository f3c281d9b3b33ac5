package repository

import (
	"context"
	"testing"
	"time"

	"github.com/minisource/heartbeat/config"
	"github.com/minisource/heartbeat/internal/database"
	"github.com/minisource/heartbeat/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openTestDB opens a private in-memory store with the full schema. Each call
// gets its own database; closing the handle drops it.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(&config.DatabaseConfig{URL: "sqlite://:memory:"})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

func seedTarget(t *testing.T, db *gorm.DB, name string) *models.Target {
	t.Helper()

	target := &models.Target{
		Name:   name,
		URL:    "https://example.com/ping",
		Method: "GET",
	}
	require.NoError(t, NewTargetRepository(db).Create(context.Background(), target))
	return target
}

func seedSchedule(t *testing.T, db *gorm.DB, targetID uint, name string) *models.Schedule {
	t.Helper()

	schedule := &models.Schedule{
		Name:            name,
		TargetID:        targetID,
		ScheduleType:    models.ScheduleTypeInterval,
		IntervalSeconds: 60,
		Status:          models.ScheduleStatusActive,
	}
	require.NoError(t, NewScheduleRepository(db).Create(context.Background(), schedule))
	return schedule
}

func seedRun(t *testing.T, db *gorm.DB, scheduleID uint, status models.RunStatus, startedAt time.Time) *models.Run {
	t.Helper()

	run := &models.Run{
		ScheduleID:    scheduleID,
		Status:        status,
		StartedAt:     startedAt,
		RequestURL:    "https://example.com/ping",
		RequestMethod: "GET",
	}
	require.NoError(t, NewRunRepository(db).Create(context.Background(), run))
	return run
}
