package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"thirdcoast.systems/browserutility/internal/config"
	"thirdcoast.systems/browserutility/internal/db"
)

var (
	dbOpenBackoffBase  = 1 * time.Second
	dbOpenBackoffScale = 1.618
)

// OpenDatabase opens the settings store named by conf.DatabaseDSN and runs
// its migrations.
func OpenDatabase(ctx context.Context, conf config.Config) (*db.DatabaseConnection, error) {
	var (
		dbc *db.DatabaseConnection
		err error
	)
	switch db.DialectFor(conf.DatabaseDSN) {
	case db.DialectPostgres:
		var pool *pgxpool.Pool
		pool, err = OpenDBPoolWithRetry(ctx, conf)
		if err != nil {
			return nil, err
		}
		dbc = db.NewPostgresConnection(pool)
	default:
		dbc, err = db.OpenSQLite(ctx, conf.DatabaseDSN)
		if err != nil {
			return nil, err
		}
	}

	if err := dbc.Migrate(ctx); err != nil {
		_ = dbc.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return dbc, nil
}

// OpenDBPoolWithRetry initializes a new PostgreSQL connection pool with retry logic.
func OpenDBPoolWithRetry(ctx context.Context, conf config.Config) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(conf.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	slog.Info("Connecting to database", "host", cfg.ConnConfig.Host)
	var lastErr error
	for i := 0; i < conf.DatabaseRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			slog.Info("Connected to database", "host", cfg.ConnConfig.Host)
			return pool, nil
		}
		lastErr = err

		backoff := time.Duration(float64(dbOpenBackoffBase) * math.Pow(dbOpenBackoffScale, float64(i)))
		slog.Warn("database ping failed", "error", err, "retry_in", backoff)
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	pool.Close()
	return nil, fmt.Errorf("failed to ping database after %d attempts: %w", conf.DatabaseRetries, lastErr)
}
