package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddress       string
	DatabaseDSN       string
	LogLevel          string
	SyncOnStart       bool
	DBMaxOpenConns    int
	DBConnMaxIdleTime time.Duration
}

func Load() (Config, error) {
	// .env is optional; variables may come from the real environment.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddress: getEnv("FINBOOK_HTTP_ADDR", ":8080"),
		LogLevel:    getEnv("FINBOOK_LOG_LEVEL", "info"),
		SyncOnStart: !strings.EqualFold(os.Getenv("FINBOOK_SYNC_ON_START"), "false"),
	}
	cfg.DatabaseDSN = os.Getenv("FINBOOK_DB_DSN")

	maxConns, err := strconv.Atoi(getEnv("FINBOOK_DB_MAX_OPEN_CONNS", "5"))
	if err != nil {
		return Config{}, errors.New("FINBOOK_DB_MAX_OPEN_CONNS must be an integer")
	}
	cfg.DBMaxOpenConns = maxConns

	idle, err := time.ParseDuration(getEnv("FINBOOK_DB_CONN_MAX_IDLE", "5m"))
	if err != nil {
		return Config{}, errors.New("FINBOOK_DB_CONN_MAX_IDLE must be a duration like 5m")
	}
	cfg.DBConnMaxIdleTime = idle

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.DatabaseDSN == "" {
		return errors.New("FINBOOK_DB_DSN is required")
	}
	if c.DBMaxOpenConns < 1 {
		return errors.New("FINBOOK_DB_MAX_OPEN_CONNS must be at least 1")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
