// Package valkey implements the dedup store as a Valkey set.
package valkey

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/dshills/docindex/internal/storage"
)

// Config selects the server and the set key holding registered hashes
type Config struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// DedupStore keeps registered hashes as members of one set
type DedupStore struct {
	client valkey.Client
	key    string
}

var _ storage.DedupStore = (*DedupStore)(nil)

// New connects and verifies connectivity with PING
func New(ctx context.Context, cfg Config) (*DedupStore, error) {
	opts := valkey.ClientOption{
		InitAddress: []string{cfg.Addr},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}

	// Verify connectivity
	resp := client.Do(ctx, client.B().Ping().Build())
	if err := resp.Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}

	return NewFromClient(client, cfg.Key), nil
}

// NewFromClient wraps an existing client
func NewFromClient(client valkey.Client, key string) *DedupStore {
	return &DedupStore{client: client, key: key}
}

type handle struct {
	client valkey.DedicatedClient
	cancel func()
	key    string
}

func (h *handle) Exists(ctx context.Context, hash string) (bool, error) {
	resp := h.client.Do(ctx, h.client.B().Sismember().Key(h.key).Member(hash).Build())
	n, err := resp.AsInt64()
	if err != nil {
		return false, fmt.Errorf("sismember: %w", err)
	}
	return n == 1, nil
}

func (h *handle) Release() {
	h.cancel()
}

// Acquire pins a dedicated connection for one task
func (s *DedupStore) Acquire(ctx context.Context) (storage.DedupHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, cancel := s.client.Dedicate()
	return &handle{client: client, cancel: cancel, key: s.key}, nil
}

// RegisterBatch adds all hashes with a single SADD
func (s *DedupStore) RegisterBatch(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	resp := s.client.Do(ctx, s.client.B().Sadd().Key(s.key).Member(hashes...).Build())
	if err := resp.Error(); err != nil {
		return fmt.Errorf("sadd: %w", err)
	}
	return nil
}

func (s *DedupStore) Count(ctx context.Context) (int64, error) {
	resp := s.client.Do(ctx, s.client.B().Scard().Key(s.key).Build())
	n, err := resp.AsInt64()
	if err != nil {
		return 0, fmt.Errorf("scard: %w", err)
	}
	return n, nil
}

func (s *DedupStore) Close() error {
	s.client.Close()
	return nil
}
