// Package bulk accumulates page entries and flushes them to the search index
// in bounded batches, registering a document's hash only after all of its
// pages have been written.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dshills/docindex/internal/storage"
	"github.com/dshills/docindex/pkg/types"
)

// ErrFlushFailed wraps any index or dedup error raised during a flush
var ErrFlushFailed = errors.New("flush failed")

// Buffer holds entries waiting for the index and hashes waiting for the
// dedup store. It is used from a single goroutine.
type Buffer struct {
	index     storage.PageIndex
	dedup     storage.DedupStore
	threshold int
	logger    *slog.Logger

	entries []types.IndexEntry
	pending []string // hashes whose entries are all in entries or already flushed

	flushes       int
	entriesOut    int
	registeredOut int
}

// New creates a buffer that flushes when it holds threshold entries
func New(index storage.PageIndex, dedup storage.DedupStore, threshold int, logger *slog.Logger) *Buffer {
	if threshold < 1 {
		threshold = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Buffer{
		index:     index,
		dedup:     dedup,
		threshold: threshold,
		logger:    logger,
		entries:   make([]types.IndexEntry, 0, threshold),
	}
}

// AddDocument appends the entries of one document. Reaching the threshold
// before the last entry flushes what is buffered so far without this
// document's hash; the hash becomes pending together with its last entry.
func (b *Buffer) AddDocument(ctx context.Context, hash string, entries []types.IndexEntry) error {
	if len(entries) == 0 {
		b.pending = append(b.pending, hash)
		return nil
	}
	last := len(entries) - 1
	for i, e := range entries {
		b.entries = append(b.entries, e)
		if i == last {
			b.pending = append(b.pending, hash)
		}
		if len(b.entries) >= b.threshold {
			if err := b.Flush(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush writes buffered entries with one bulk request, then registers
// pending hashes with one batch. On an index error nothing is registered
// and the buffer keeps its contents.
func (b *Buffer) Flush(ctx context.Context) error {
	if len(b.entries) == 0 && len(b.pending) == 0 {
		return nil
	}

	if len(b.entries) > 0 {
		if err := b.index.BulkUpsert(ctx, b.entries); err != nil {
			return fmt.Errorf("%w: index %d entries: %w", ErrFlushFailed, len(b.entries), err)
		}
	}

	if len(b.pending) > 0 {
		if err := b.dedup.RegisterBatch(ctx, b.pending); err != nil {
			return fmt.Errorf("%w: register %d hashes: %w", ErrFlushFailed, len(b.pending), err)
		}
	}

	b.flushes++
	b.entriesOut += len(b.entries)
	b.registeredOut += len(b.pending)
	b.logger.Info("flushed batch",
		slog.Int("entries", len(b.entries)),
		slog.Int("documents", len(b.pending)),
		slog.Int("flush", b.flushes))

	b.entries = b.entries[:0]
	b.pending = b.pending[:0]
	return nil
}

// Flushes returns how many flushes completed
func (b *Buffer) Flushes() int {
	return b.flushes
}

// Buffered returns the number of entries and hashes not yet flushed
func (b *Buffer) Buffered() (entries, hashes int) {
	return len(b.entries), len(b.pending)
}

// Written returns how many entries and hashes were flushed in total
func (b *Buffer) Written() (entries, hashes int) {
	return b.entriesOut, b.registeredOut
}
