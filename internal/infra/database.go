package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	applicationName = "timelock-escrow"
	// lockTimeout bounds how long an instruction waits on a contended vault row
	// before failing instead of queueing behind a stuck transaction.
	lockTimeout       = "5s"
	healthCheckPeriod = 30 * time.Second
)

// NewPostgresPool connects the pool that backs the ledger and escrow records
// and verifies it with a ping.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(url)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// poolConfig parses url and fills in session defaults the URL leaves unset.
func poolConfig(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	params := cfg.ConnConfig.RuntimeParams
	for name, value := range map[string]string{
		"application_name": applicationName,
		"lock_timeout":     lockTimeout,
	} {
		if _, ok := params[name]; !ok {
			params[name] = value
		}
	}
	cfg.HealthCheckPeriod = healthCheckPeriod
	return cfg, nil
}
