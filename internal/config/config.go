package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	Env  string `validate:"required,oneof=dev prod"`
	HTTP struct {
		Addr string `validate:"required"`
	}
	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}
	History struct {
		Driver string `validate:"required,oneof=sqlite postgres"`
		// Path is the SQLite database file; used when Driver is sqlite.
		Path string
		// DSN is the PostgreSQL connection string; used when Driver is
		// postgres.
		DSN           string
		RetentionDays int `validate:"gte=1"`
	}
	Pool struct {
		Workers   int `validate:"gte=1"`
		QueueSize int `validate:"gte=1"`
	}
	Jobs struct {
		// HeartbeatSpec is a cron expression (with seconds field) for
		// the liveness log entry.
		HeartbeatSpec string `validate:"required"`
		// ProbeURL is polled with a GET; empty disables the probe job.
		ProbeURL  string
		ProbeSpec string `validate:"required"`
		// PruneSpec schedules history retention cleanup.
		PruneSpec string `validate:"required"`
	}
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	c.Env = getenv("ENV", "prod")
	c.HTTP.Addr = getenv("HTTP_ADDR", ":8080")
	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "data/logs/schedmon.log")
	c.History.Driver = strings.ToLower(getenv("HISTORY_DRIVER", "sqlite"))
	c.History.Path = getenv("HISTORY_SQLITE_PATH", "data/schedmon.db")
	c.History.DSN = os.Getenv("HISTORY_PG_DSN")
	c.Pool.Workers = getenvInt("POOL_WORKERS", 4)
	c.Pool.QueueSize = getenvInt("POOL_QUEUE_SIZE", 256)
	c.History.RetentionDays = getenvInt("HISTORY_RETENTION_DAYS", 14)
	c.Jobs.HeartbeatSpec = getenv("JOB_HEARTBEAT_SPEC", "0 * * * * *")
	c.Jobs.ProbeURL = os.Getenv("JOB_PROBE_URL")
	c.Jobs.ProbeSpec = getenv("JOB_PROBE_SPEC", "*/30 * * * * *")
	c.Jobs.PruneSpec = getenv("JOB_PRUNE_SPEC", "0 0 3 * * *")

	if err := validate.Struct(c); err != nil {
		return Config{}, err
	}
	if c.History.Driver == "postgres" && c.History.DSN == "" {
		return Config{}, errors.New("HISTORY_PG_DSN required when HISTORY_DRIVER is postgres")
	}
	if c.History.Driver == "sqlite" && c.History.Path == "" {
		return Config{}, errors.New("HISTORY_SQLITE_PATH required when HISTORY_DRIVER is sqlite")
	}
	return c, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
