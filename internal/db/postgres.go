package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

// PoolOptions sizes the pool and controls how hard startup tries to reach
// Postgres. Zero values fall back to defaults.
type PoolOptions struct {
	DSN      string
	MaxConns int32
	Attempts int
	Backoff  time.Duration
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.MaxConns <= 0 {
		o.MaxConns = 20
	}
	if o.Attempts <= 0 {
		o.Attempts = 1
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	return o
}

// ConnectPostgres builds the pool and pings it, retrying up to opts.Attempts
// times. The caller treats a returned error as fatal.
func ConnectPostgres(ctx context.Context, opts PoolOptions, log *logger.Logger) (*pgxpool.Pool, error) {
	opts = opts.withDefaults()

	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	var pingErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pingErr = pool.Ping(pingCtx)
		cancel()
		if pingErr == nil {
			return pool, nil
		}
		if attempt == opts.Attempts {
			break
		}

		log.WithError(pingErr).
			WithField("attempt", attempt).
			WithField("max_attempts", opts.Attempts).
			Warn("postgres not reachable yet, retrying")

		select {
		case <-ctx.Done():
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", ctx.Err())
		case <-time.After(opts.Backoff * time.Duration(attempt)):
		}
	}

	pool.Close()
	return nil, fmt.Errorf("ping postgres after %d attempts: %w", opts.Attempts, pingErr)
}
