// Package db contains code for connecting to the database.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
)

const (
	defaultMaxOpenConns    = 10
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnectTimeout  = 10 * time.Second
	defaultConnectAttempts = 5
)

// Option tunes how the pool is established
type Option func(*options)

type options struct {
	attempts uint
	backOff  backoff.BackOff
}

// WithConnectAttempts bounds the number of connection attempts
func WithConnectAttempts(n uint) Option {
	return func(o *options) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// WithBackOff replaces the exponential backoff between connection attempts
func WithBackOff(b backoff.BackOff) Option {
	return func(o *options) {
		o.backOff = b
	}
}

// NewPool creates a pgx connection pool and verifies it with a ping.
// Connection failures are retried with exponential backoff; configuration
// errors are not.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig, opts ...Option) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	o := &options{attempts: defaultConnectAttempts, backOff: backoff.NewExponentialBackOff()}
	for _, opt := range opts {
		opt(o)
	}

	poolConfig, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	connect := func() (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create database connection pool: %w", err))
		}

		pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return pool, nil
	}

	pool, err := backoff.Retry(ctx, connect,
		backoff.WithBackOff(o.backOff),
		backoff.WithMaxTries(o.attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("Database not reachable, retrying", "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		return nil, err
	}

	slog.Info("Database connection established",
		"user", cfg.User, "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	return pool, nil
}

// PoolConfig builds the pgx pool configuration from the database settings
func PoolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("database host is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("database port is required")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("database user is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database name is required")
	}

	connStr, err := cfg.GetConnectionString()
	if err != nil {
		return nil, fmt.Errorf("failed to get database password: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	poolConfig.MaxConns = defaultMaxOpenConns
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}

	lifetime, err := cfg.GetConnMaxLifetime()
	if err != nil {
		return nil, fmt.Errorf("invalid connection max lifetime: %w", err)
	}
	if lifetime == 0 {
		lifetime = defaultConnMaxLifetime
	}
	poolConfig.MaxConnLifetime = lifetime
	poolConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	return poolConfig, nil
}
