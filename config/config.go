package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	HTTP      HTTPClientConfig
	Redis     RedisConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects and tunes the store backend. URL accepts
// sqlite-style DSNs (sqlite+local:///./scheduler.db, sqlite://..., a bare
// file path) and postgres:// URLs.
type DatabaseConfig struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	MaxLifetimeMinutes int
	LogLevel           string
}

type SchedulerConfig struct {
	Timezone          string
	MaxConcurrentJobs int
	MisfireGrace      time.Duration
	MaxRetries        int // reserved: every firing performs exactly one attempt
}

type HTTPClientConfig struct {
	DefaultTimeout time.Duration
	ConnectTimeout time.Duration
	MaxConns       int
	MaxIdleConns   int
}

// RedisConfig configures the optional single-instance guard. An empty Addr
// disables the guard entirely.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type LogConfig struct {
	Level string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("SERVER_SHUTDOWN_TIMEOUT", 40*time.Second),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", "sqlite+local:///./scheduler.db"),
			MaxOpenConns:       getEnvInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DATABASE_MAX_IDLE_CONNS", 10),
			MaxLifetimeMinutes: getEnvInt("DATABASE_MAX_LIFETIME_MINS", 30),
			LogLevel:           getEnv("DATABASE_LOG_LEVEL", "warn"),
		},
		Scheduler: SchedulerConfig{
			Timezone:          getEnv("SCHEDULER_TIMEZONE", "UTC"),
			MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 100),
			MisfireGrace:      getSeconds("MISFIRE_GRACE", 60),
			MaxRetries:        getEnvInt("MAX_RETRIES", 0),
		},
		HTTP: HTTPClientConfig{
			DefaultTimeout: getSeconds("DEFAULT_TIMEOUT", 30),
			ConnectTimeout: getSeconds("HTTP_CONNECT_TIMEOUT", 10),
			MaxConns:       getEnvInt("HTTP_MAX_CONNS", 100),
			MaxIdleConns:   getEnvInt("HTTP_MAX_IDLE_CONNS", 20),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			LockTTL:  getSeconds("INSTANCE_LOCK_TTL", 30),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getSeconds reads an integer number of seconds.
func getSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
