// Package store implements the persistence contracts against PostgreSQL
// using pgx. One repository type per table, all sharing a pgxpool.Pool.
// Engagement record batches run inside a single transaction with a
// savepoint per row, so a constraint violation loses that row only.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/engagehub/submission/internal/core"
)

// DefaultConnectTimeout bounds the initial pool health check.
const DefaultConnectTimeout = 10 * time.Second

// PoolOptions bounds the connection pool. Zero values keep pgx defaults.
type PoolOptions struct {
	MaxConns int
	MinConns int
}

// Connect opens a pgx pool against the given DSN and verifies the
// connection before returning.
func Connect(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Stores bundles every repository over one pool.
type Stores struct {
	Uploads   *UploadRepository
	Records   *RecordRepository
	Templates *TemplateRepository
	Rules     *RuleRepository
	Audit     *AuditRepository
	Users     *UserRepository
}

// New constructs all repositories over the shared pool.
func New(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Uploads:   NewUploadRepository(pool),
		Records:   NewRecordRepository(pool),
		Templates: NewTemplateRepository(pool),
		Rules:     NewRuleRepository(pool),
		Audit:     NewAuditRepository(pool),
		Users:     NewUserRepository(pool),
	}
}

// derefString maps a NULL-able text column to the empty string.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Core adapts the repositories to the pipeline's store bundle. The blob
// store is provided separately since it is not Postgres-backed.
func (s *Stores) Core(blobs core.BlobStore) core.Stores {
	return core.Stores{
		Uploads:   s.Uploads,
		Records:   s.Records,
		Templates: s.Templates,
		Rules:     s.Rules,
		Audit:     s.Audit,
		Blobs:     blobs,
	}
}
