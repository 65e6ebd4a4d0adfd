// Package dedup answers "has this content already been fully indexed?" in
// front of any storage.DedupStore.
//
// Index keeps an LRU cache of hashes known to be registered. Only positive
// answers are cached: a hash that is not registered now may be registered by
// a flush a moment later, so a cached negative could go stale.
package dedup

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/docindex/internal/storage"
)

const defaultCacheSize = 10000

// Index is a caching DedupStore decorator. It is safe for concurrent use;
// the handles it returns are not.
type Index struct {
	store storage.DedupStore
	known *lru.Cache[string, struct{}]
}

var _ storage.DedupStore = (*Index)(nil)

// New wraps store with a cache of up to cacheSize registered hashes
func New(store storage.DedupStore, cacheSize int) *Index {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	// lru.New only fails for a non-positive size
	known, _ := lru.New[string, struct{}](cacheSize)
	return &Index{store: store, known: known}
}

type handle struct {
	inner storage.DedupHandle
	known *lru.Cache[string, struct{}]
}

func (h *handle) Exists(ctx context.Context, hash string) (bool, error) {
	if h.known.Contains(hash) {
		return true, nil
	}
	ok, err := h.inner.Exists(ctx, hash)
	if err != nil {
		return false, err
	}
	if ok {
		h.known.Add(hash, struct{}{})
	}
	return ok, nil
}

func (h *handle) Release() {
	h.inner.Release()
}

// Acquire returns a cached handle over a fresh store handle
func (i *Index) Acquire(ctx context.Context) (storage.DedupHandle, error) {
	inner, err := i.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &handle{inner: inner, known: i.known}, nil
}

// RegisterBatch registers hashes in the store, then remembers them
func (i *Index) RegisterBatch(ctx context.Context, hashes []string) error {
	if err := i.store.RegisterBatch(ctx, hashes); err != nil {
		return err
	}
	for _, h := range hashes {
		i.known.Add(h, struct{}{})
	}
	return nil
}

func (i *Index) Count(ctx context.Context) (int64, error) {
	return i.store.Count(ctx)
}

func (i *Index) Close() error {
	i.known.Purge()
	return i.store.Close()
}

// Cached returns how many hashes are currently cached
func (i *Index) Cached() int {
	return i.known.Len()
}
