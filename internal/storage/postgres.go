package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/abduss/easyshare/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	defaultDBTimeout = 5 * time.Second
	connectAttempts  = 5
	maxPoolConns     = 10
)

// NewPostgresPool connects to PostgreSQL using pgx. The first ping is retried
// a few times so the server can start alongside its database.
func NewPostgresPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = maxPoolConns
	poolCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	backoff := 500 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err = ping(ctx, pool)
		if err == nil {
			return pool, nil
		}
		if attempt == connectAttempts || ctx.Err() != nil {
			break
		}
		zap.L().Warn("postgres not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	pool.Close()
	return nil, fmt.Errorf("ping postgres: %w", err)
}

func ping(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultDBTimeout)
	defer cancel()
	return pool.Ping(ctx)
}
