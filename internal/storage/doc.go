// Package storage defines the dedup and page index contracts and provides the
// SQLite implementation of both.
//
// The storage layer manages:
//   - Dedup records: content hashes whose pages are all in the index
//   - Pages: one row per indexed page, keyed by "<hash>_<page>"
//   - Full-text search over page content
//   - Run history
//
// Other backends live in subpackages: postgres and valkey implement
// DedupStore, opensearch implements PageIndex, memory implements both for tests.
//
// # Database Schema
//
// Tables:
//   - dedup_records: registered SHA-256 hashes
//   - pages: page entries with document name, original path and timestamp
//   - pages_fts: FTS5 external-content index over pages, kept in sync by triggers
//   - runs: finished run summaries as JSON
//
// # Dedup Handles
//
// Workers never share a handle. Each task acquires one, checks its hash and
// releases it:
//
//	h, err := store.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//
//	done, err := h.Exists(ctx, hash)
//
// For SQLite a handle is a prepared statement; the database keeps a single
// connection, so lookups from many handles are serialized by database/sql.
//
// # Ordering
//
// Hashes are registered only after BulkUpsert of their pages succeeded.
// A crash between the two leaves pages without a dedup record; the next run
// rewrites the same entry ids, which overwrites instead of duplicating.
//
// # Full-Text Search
//
// Query using BM25 ranking:
//
//	results, err := db.Search(ctx, "procuração advogado", 10)
//	for _, r := range results {
//	    fmt.Printf("%s p.%d: %s\n", r.DocumentName, r.PageNumber, r.Snippet)
//	}
//
// Every whitespace-separated term must match. Terms are quoted, so FTS5
// operators in the input are searched literally.
//
// # Build Tags
//
// Pure Go build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
//
// CGO build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires a C compiler and the fts5 tag
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo,fts5"
package storage
