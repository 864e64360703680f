package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
	ConnMaxIdle  time.Duration
	// ConnectAttempts bounds the startup ping loop; values below 1 mean one try.
	ConnectAttempts int
	RetryInterval   time.Duration
}

// NewPostgresDB opens a pool and pings it until it answers or the attempts
// run out.
func NewPostgresDB(ctx context.Context, databaseURL string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresDB: open: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLife)
	db.SetConnMaxIdleTime(pool.ConnMaxIdle)

	if err := waitForPing(ctx, db, pool.ConnectAttempts, pool.RetryInterval); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewPostgresDB: %w", err)
	}
	return db, nil
}

type pingContexter interface {
	PingContext(ctx context.Context) error
}

func waitForPing(ctx context.Context, db pingContexter, attempts int, interval time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := range attempts {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		slog.Info("waiting for database", "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("ping: gave up after %d attempts: %w", attempts, err)
}
