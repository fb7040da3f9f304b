// Package database stores the console's activity log in PostgreSQL.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// The console only appends and lists audit entries, so a small pool is
// plenty even with several replicas sharing one Cloud SQL instance.
const (
	maxOpenConns    = 4
	maxIdleConns    = 1
	connMaxLifetime = 5 * time.Minute
	connectTimeout  = 10 * time.Second
)

// ErrActivityTableMissing means the database is reachable but migrations
// have not created the activity log table.
var ErrActivityTableMissing = errors.New("activity_logs table missing")

// Open connects to the activity log database at url and pings it.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// HealthCheck reports whether the activity log table can be reached.
func HealthCheck(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var present bool
	if err := db.QueryRowContext(ctx, `SELECT to_regclass('activity_logs') IS NOT NULL`).Scan(&present); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if !present {
		return ErrActivityTableMissing
	}
	return nil
}

// Stats summarises the pool for /api/info.
func Stats(db *sql.DB) map[string]any {
	stats := db.Stats()
	return map[string]any{
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"wait_count":       stats.WaitCount,
	}
}
