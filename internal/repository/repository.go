// Package repository persists events, share tokens, and import jobs in
// PostgreSQL through a shared pgx pool.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository owns the connection pool shared by the per-entity
// repositories in this package.
type Repository struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and verifies the connection. The pool is
// sized for the write pattern here: a handful of worker batch inserts
// plus read-side stats queries.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = 16
	poolCfg.MinConns = 2
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// Ping checks database connectivity for readiness probes.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}
