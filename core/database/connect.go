package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/facilitybot/core/logger"
)

// Connect opens the database connection, configures the pool, and verifies connectivity.
// cfg must be normalized.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if cfg.Driver == DriverPostgres {
		if err := WaitForPostgres(ctx, cfg.ConnString(), 30*time.Second); err != nil {
			logger.Error(ctx, "db", "db.wait",
				slog.String("status", "fail"),
				slog.String("host", cfg.Host),
				slog.String("err", err.Error()),
			)
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.ConnString())
	took := logger.Took(start)
	if err != nil {
		logger.Error(ctx, "db", "db.connect",
			slog.String("status", "fail"),
			slog.String("driver", cfg.Driver),
			slog.String("db", target(cfg)),
			slog.Duration("duration_ms", took),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	logger.Debug(ctx, "db", "db.pool", slog.Int("pool_open", cfg.MaxConnections))

	logger.Info(ctx, "db", "db.connect",
		slog.String("status", "ok"),
		slog.String("driver", cfg.Driver),
		slog.String("host", cfg.Host),
		slog.String("db", target(cfg)),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration_ms", took),
	)
	return db, nil
}

func target(cfg Config) string {
	if cfg.Driver == DriverSQLite {
		return cfg.Path
	}
	return cfg.Name
}

// WaitForPostgres pings the database until it answers, the timeout passes,
// or ctx is cancelled.
func WaitForPostgres(ctx context.Context, dsn string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for {
		db, err := sql.Open(DriverPostgres, dsn)
		if err == nil {
			err = db.PingContext(ctx)
			_ = db.Close()
			if err == nil {
				return nil
			}
		}
		lastErr = err
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout reached waiting for database: %w", lastErr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}
