// Package postgres stores the lifecycle entities in PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrKriegler/insurance-lifecycle/internal/core"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxRetries     = 5
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Config holds PostgreSQL connection parameters.
type Config struct {
	DSN       string
	MaxConns  int32
	OpTimeout time.Duration
}

// DB is a connection pool together with the per-operation timeout its repos use.
type DB struct {
	Pool      *pgxpool.Pool
	opTimeout time.Duration
}

func (db *DB) Packages() *PackageRepo     { return NewPackageRepo(db.Pool, db.opTimeout) }
func (db *DB) Quotations() *QuotationRepo { return NewQuotationRepo(db.Pool, db.opTimeout) }
func (db *DB) Orders() *OrderRepo         { return NewOrderRepo(db.Pool, db.opTimeout) }
func (db *DB) Claims() *ClaimRepo         { return NewClaimRepo(db.Pool, db.opTimeout) }

// NewPool opens the pool and pings it with exponential backoff.
func NewPool(ctx context.Context, cfg Config, log *slog.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = 1 * time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if attempt == maxRetries {
			pool.Close()
			return nil, fmt.Errorf("postgres: ping failed after %d attempts: %w", maxRetries, err)
		}
		log.Warn("postgres ping failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"err", err)
		time.Sleep(backoff)
		backoff = min(backoff*2, maxBackoff)
	}

	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	return &DB{Pool: pool, opTimeout: opTimeout}, nil
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check: %w", err)
	}
	return nil
}

func (db *DB) Close() { db.Pool.Close() }

var (
	_ core.PackageRepo   = (*PackageRepo)(nil)
	_ core.QuotationRepo = (*QuotationRepo)(nil)
	_ core.OrderRepo     = (*OrderRepo)(nil)
	_ core.ClaimRepo     = (*ClaimRepo)(nil)
)
