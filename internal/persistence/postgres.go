package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tickettally/ticket-engine/internal/config"
	"github.com/tickettally/ticket-engine/internal/repository"
	"github.com/tickettally/ticket-engine/internal/repository/memory"
)

// Postgres wraps access to a pgx connection pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres establishes a connection pool. An empty DSN yields a Postgres without a pool.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; skipping database connection")
		return &Postgres{}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("connected to postgres", zap.Int32("max_conns", poolCfg.MaxConns))
	return &Postgres{Pool: pool}, nil
}

// Enabled reports whether a pool is open.
func (p *Postgres) Enabled() bool {
	return p != nil && p.Pool != nil
}

// Ping verifies database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.Pool.Ping(ctx)
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p.Enabled() {
		p.Pool.Close()
	}
}

// OpenStore returns the ticket store for cfg: Postgres, migrated when RunMigrations is set, or an
// in-memory store when no DSN is configured. The returned Postgres must be closed by the caller.
func OpenStore(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (repository.Store, *Postgres, error) {
	pg, err := NewPostgres(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if !pg.Enabled() {
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), pg, nil
	}
	if cfg.RunMigrations {
		if err := RunMigrations(ctx, pg.Pool, logger); err != nil {
			pg.Close()
			return nil, nil, err
		}
	}
	return repository.NewPostgresStore(pg.Pool), pg, nil
}
