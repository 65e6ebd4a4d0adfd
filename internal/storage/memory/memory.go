// Package memory provides in-process DedupStore and PageIndex implementations
// with failure injection, used by tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/docindex/internal/storage"
	"github.com/dshills/docindex/pkg/types"
)

// DedupStore is a mutex-guarded set of hashes
type DedupStore struct {
	mu     sync.Mutex
	hashes map[string]struct{}

	// ExistsHook runs before every lookup; a non-nil error is returned from Exists
	ExistsHook func(ctx context.Context, hash string) error
	// RegisterErr is returned by RegisterBatch when set
	RegisterErr error

	acquired int
	released int
	batches  [][]string
}

var _ storage.DedupStore = (*DedupStore)(nil)

// NewDedupStore returns a store pre-populated with hashes
func NewDedupStore(hashes ...string) *DedupStore {
	s := &DedupStore{hashes: make(map[string]struct{})}
	for _, h := range hashes {
		s.hashes[h] = struct{}{}
	}
	return s
}

type handle struct {
	store *DedupStore
	once  sync.Once
}

func (h *handle) Exists(ctx context.Context, hash string) (bool, error) {
	if hook := h.store.ExistsHook; hook != nil {
		if err := hook(ctx, hash); err != nil {
			return false, err
		}
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	_, ok := h.store.hashes[hash]
	return ok, nil
}

func (h *handle) Release() {
	h.once.Do(func() {
		h.store.mu.Lock()
		h.store.released++
		h.store.mu.Unlock()
	})
}

func (s *DedupStore) Acquire(ctx context.Context) (storage.DedupHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.acquired++
	s.mu.Unlock()
	return &handle{store: s}, nil
}

func (s *DedupStore) RegisterBatch(ctx context.Context, hashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RegisterErr != nil {
		return s.RegisterErr
	}
	batch := make([]string, len(hashes))
	copy(batch, hashes)
	s.batches = append(s.batches, batch)
	for _, h := range hashes {
		s.hashes[h] = struct{}{}
	}
	return nil
}

func (s *DedupStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.hashes)), nil
}

func (s *DedupStore) Close() error { return nil }

// Has reports whether hash is registered
func (s *DedupStore) Has(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.hashes[hash]
	return ok
}

// Batches returns every RegisterBatch call in order
func (s *DedupStore) Batches() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.batches))
	copy(out, s.batches)
	return out
}

// Handles returns how many handles were acquired and released
func (s *DedupStore) Handles() (acquired, released int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired, s.released
}

// PageIndex stores entries by id
type PageIndex struct {
	mu      sync.Mutex
	entries map[string]types.IndexEntry
	calls   [][]types.IndexEntry

	// PingErr is returned by the first PingFailures pings; a negative count fails forever
	PingErr      error
	PingFailures int
	// BulkErr is returned by BulkUpsert when set
	BulkErr error

	pings int
}

var (
	_ storage.PageIndex = (*PageIndex)(nil)
	_ storage.Searcher  = (*PageIndex)(nil)
)

func NewPageIndex() *PageIndex {
	return &PageIndex{entries: make(map[string]types.IndexEntry)}
}

func (p *PageIndex) Ping(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pings++
	if p.PingErr == nil || p.PingFailures == 0 {
		return nil
	}
	if p.PingFailures > 0 {
		p.PingFailures--
	}
	return p.PingErr
}

func (p *PageIndex) BulkUpsert(ctx context.Context, entries []types.IndexEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.BulkErr != nil {
		return p.BulkErr
	}
	call := make([]types.IndexEntry, len(entries))
	copy(call, entries)
	p.calls = append(p.calls, call)
	for _, e := range entries {
		p.entries[e.ID] = e
	}
	return nil
}

func (p *PageIndex) Close() error { return nil }

// Search returns entries whose content contains every query term, case-insensitively
func (p *PageIndex) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, storage.ErrEmptyQuery
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var results []types.SearchResult
	for _, id := range ids {
		e := p.entries[id]
		content := strings.ToLower(e.Content)
		match := true
		for _, t := range terms {
			if !strings.Contains(content, t) {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		results = append(results, types.SearchResult{
			EntryID:      e.ID,
			Rank:         len(results) + 1,
			DocumentName: e.DocumentName,
			OriginalPath: e.OriginalPath,
			PageNumber:   e.PageNumber,
			Snippet:      e.Content,
		})
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results, nil
}

// Entries returns a copy of all stored entries keyed by id
func (p *PageIndex) Entries() map[string]types.IndexEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]types.IndexEntry, len(p.entries))
	for k, v := range p.entries {
		out[k] = v
	}
	return out
}

// Calls returns the entries of every successful BulkUpsert in order
func (p *PageIndex) Calls() [][]types.IndexEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]types.IndexEntry, len(p.calls))
	copy(out, p.calls)
	return out
}

// Pings returns how many times Ping was called
func (p *PageIndex) Pings() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pings
}
