// Package postgres implements the dedup store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dshills/docindex/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS dedup_records (
    hash TEXT PRIMARY KEY,
    registered_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// DedupStore keeps registered hashes in a PostgreSQL table
type DedupStore struct {
	pool *pgxpool.Pool
}

var _ storage.DedupStore = (*DedupStore)(nil)

// New connects to dsn, verifies connectivity and creates the table if needed.
// maxConns bounds the pool; workers hold one connection each while checking a hash.
func New(ctx context.Context, dsn string, maxConns int32) (*DedupStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewFromPool(pool)
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewFromPool wraps an existing pool. The caller owns schema creation.
func NewFromPool(pool *pgxpool.Pool) *DedupStore {
	return &DedupStore{pool: pool}
}

func (s *DedupStore) migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create dedup table: %w", err)
	}
	return nil
}

type handle struct {
	conn *pgxpool.Conn
}

func (h *handle) Exists(ctx context.Context, hash string) (bool, error) {
	var one int
	err := h.conn.QueryRow(ctx, "SELECT 1 FROM dedup_records WHERE hash = $1", hash).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up hash: %w", err)
	}
	return true, nil
}

func (h *handle) Release() {
	h.conn.Release()
}

// Acquire checks a connection out of the pool for one task
func (s *DedupStore) Acquire(ctx context.Context) (storage.DedupHandle, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire postgres connection: %w", err)
	}
	return &handle{conn: conn}, nil
}

// RegisterBatch inserts all hashes in one statement
func (s *DedupStore) RegisterBatch(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dedup_records (hash)
		SELECT unnest($1::text[])
		ON CONFLICT (hash) DO NOTHING
	`, hashes)
	if err != nil {
		return fmt.Errorf("register hashes: %w", err)
	}
	return nil
}

func (s *DedupStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM dedup_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("count hashes: %w", err)
	}
	return n, nil
}

func (s *DedupStore) Close() error {
	s.pool.Close()
	return nil
}
