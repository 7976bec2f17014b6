package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"finbook/internal/config"
)

// Open connects the MySQL pool used by every part of the application and
// verifies the connection with a short ping.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	dsn, err := mysql.ParseDSN(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	// Timestamp and date columns are scanned into time.Time throughout.
	dsn.ParseTime = true

	pool, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, err
	}
	pool.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)
	pool.SetMaxOpenConns(cfg.DBMaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return pool, nil
}
