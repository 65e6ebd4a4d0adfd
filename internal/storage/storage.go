package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/docindex/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("store closed")
	// ErrEmptyQuery is returned by Search for blank queries
	ErrEmptyQuery = errors.New("empty search query")
)

// DedupStore is the persistent set of content hashes whose pages have all
// been written to the search index
type DedupStore interface {
	// Acquire returns a handle owned by one task. Callers must Release it.
	Acquire(ctx context.Context) (DedupHandle, error)

	// RegisterBatch records hashes as indexed. Already registered hashes are ignored.
	RegisterBatch(ctx context.Context, hashes []string) error

	// Count returns the number of registered hashes
	Count(ctx context.Context) (int64, error)

	Close() error
}

// DedupHandle is a task-scoped connection to a DedupStore. It is never
// shared between goroutines.
type DedupHandle interface {
	Exists(ctx context.Context, hash string) (bool, error)
	Release()
}

// PageIndex is the search index receiving page entries
type PageIndex interface {
	// Ping checks that the index is reachable
	Ping(ctx context.Context) error

	// BulkUpsert writes entries in one request. Entries with an existing ID are overwritten.
	BulkUpsert(ctx context.Context, entries []types.IndexEntry) error

	Close() error
}

// Initializer is implemented by indexes that must create their schema once
// the backend is reachable
type Initializer interface {
	EnsureIndex(ctx context.Context) error
}

// Searcher is implemented by indexes that can answer queries locally
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error)
}

// StatsProvider is implemented by stores that can describe their contents
type StatsProvider interface {
	Stats(ctx context.Context) (*Stats, error)
}

// RunRecorder persists finished run summaries
type RunRecorder interface {
	RecordRun(ctx context.Context, summary *types.RunSummary) error
	LastRun(ctx context.Context) (*types.RunSummary, error)
}

// Stats describes the contents of a store
type Stats struct {
	DedupRecords int64
	Pages        int64
	Documents    int64 // distinct hashes with at least one page
	SizeMB       float64
	LastIndexed  time.Time
	Health       HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible bool
	FTSIndexBuilt      bool
}
