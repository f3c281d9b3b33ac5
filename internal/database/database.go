package database

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/minisource/heartbeat/config"
	"github.com/minisource/heartbeat/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the store backend selected by the DSN scheme.
// sqlite+local:///./scheduler.db, sqlite://, sqlite3://, file: URIs and bare
// paths open SQLite; postgres:// and postgresql:// open PostgreSQL.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, isSQLite, err := dialectorFor(cfg.URL)
	if err != nil {
		return nil, err
	}

	// Configure logger
	logLevel := logger.Silent
	switch cfg.LogLevel {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	}

	gormConfig := &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logLevel,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
		// Constraint failures surface as gorm.ErrDuplicatedKey /
		// gorm.ErrForeignKeyViolated on both backends.
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying db: %w", err)
	}

	if isSQLite {
		// SQLite allows a single writer; one pooled connection avoids
		// lock contention between concurrent firings.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetimeMinutes) * time.Minute)
	}

	return db, nil
}

func dialectorFor(raw string) (gorm.Dialector, bool, error) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return postgres.Open(raw), false, nil
	case strings.HasPrefix(raw, "sqlite+local://"),
		strings.HasPrefix(raw, "sqlite3://"),
		strings.HasPrefix(raw, "sqlite://"):
		rest := raw[strings.Index(raw, "://")+3:]
		return sqlite.Open(sqliteDSN(rest)), true, nil
	case strings.Contains(raw, "://"):
		return nil, false, fmt.Errorf("unsupported database scheme %q", raw[:strings.Index(raw, "://")])
	default:
		// Bare file path or file: URI.
		return sqlite.Open(sqliteDSN(raw)), true, nil
	}
}

// sqliteDSN normalizes the path portion of a sqlite URL and appends the
// pragmas cascade deletes and concurrent access depend on. A single leading
// slash marks a relative path (sqlite:///x.db), two an absolute one
// (sqlite:////var/lib/x.db).
func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "/") {
		path = path[1:]
	}

	base, query, _ := strings.Cut(path, "?")
	params := make([]string, 0, 4)
	if query != "" {
		params = append(params, query)
	}
	if !strings.Contains(query, "_foreign_keys") {
		params = append(params, "_foreign_keys=on")
	}
	if !strings.Contains(query, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	inMemory := strings.Contains(base, ":memory:") || strings.Contains(query, "mode=memory")
	if !inMemory && !strings.Contains(query, "_journal_mode") {
		params = append(params, "_journal_mode=WAL")
	}

	return base + "?" + strings.Join(params, "&")
}

// AutoMigrate runs auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Target{},
		&models.Schedule{},
		&models.Run{},
		&models.Attempt{},
	)
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
