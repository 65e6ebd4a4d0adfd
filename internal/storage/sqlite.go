package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dshills/docindex/pkg/types"
)

// SQLiteStorage keeps the dedup records and the page index in one SQLite
// database. It implements DedupStore, PageIndex, Searcher, StatsProvider and
// RunRecorder.
type SQLiteStorage struct {
	db *sql.DB

	closeOnce sync.Once
	closeErr  error
}

var (
	_ DedupStore    = (*SQLiteStorage)(nil)
	_ PageIndex     = (*SQLiteStorage)(nil)
	_ Searcher      = (*SQLiteStorage)(nil)
	_ StatsProvider = (*SQLiteStorage)(nil)
	_ RunRecorder   = (*SQLiteStorage)(nil)
)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection. It is safe to call more than once,
// which matters when the same database backs both dedup and index.
func (s *SQLiteStorage) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// withTx runs fn in a transaction, rolling back on error
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Dedup operations

// sqliteHandle owns a prepared lookup statement for the lifetime of one task
type sqliteHandle struct {
	stmt *sql.Stmt
}

func (h *sqliteHandle) Exists(ctx context.Context, hash string) (bool, error) {
	var one int
	err := h.stmt.QueryRowContext(ctx, hash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up hash: %w", err)
	}
	return true, nil
}

func (h *sqliteHandle) Release() {
	_ = h.stmt.Close()
}

// Acquire prepares a lookup statement owned by the caller
func (s *SQLiteStorage) Acquire(ctx context.Context) (DedupHandle, error) {
	stmt, err := s.db.PrepareContext(ctx, "SELECT 1 FROM dedup_records WHERE hash = ?")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dedup lookup: %w", err)
	}
	return &sqliteHandle{stmt: stmt}, nil
}

func (s *SQLiteStorage) RegisterBatch(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO dedup_records (hash, registered_at) VALUES (?, ?)
			ON CONFLICT(hash) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare register: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, h := range hashes {
			if _, err := stmt.ExecContext(ctx, h, now); err != nil {
				return fmt.Errorf("failed to register hash %s: %w", h, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dedup_records").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Page index operations

// Ping checks that the database answers queries
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BulkUpsert writes all entries in a single transaction
func (s *SQLiteStorage) BulkUpsert(ctx context.Context, entries []types.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO pages (id, hash, document_name, content, page_number, original_path, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				hash = excluded.hash,
				document_name = excluded.document_name,
				content = excluded.content,
				page_number = excluded.page_number,
				original_path = excluded.original_path,
				indexed_at = excluded.indexed_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare page upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, e := range entries {
			_, err := stmt.ExecContext(ctx, e.ID, e.Hash, e.DocumentName, e.Content,
				e.PageNumber, e.OriginalPath, e.Timestamp.UTC())
			if err != nil {
				return fmt.Errorf("failed to upsert page %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// GetPage returns one stored page by entry id
func (s *SQLiteStorage) GetPage(ctx context.Context, id string) (*types.IndexEntry, error) {
	query := `
		SELECT id, hash, document_name, content, page_number, original_path, indexed_at
		FROM pages
		WHERE id = ?
	`
	var e types.IndexEntry
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Hash, &e.DocumentName, &e.Content, &e.PageNumber, &e.OriginalPath, &e.Timestamp,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Search runs a BM25-ranked full-text query over page content and document names
func (s *SQLiteStorage) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	match := sanitizeFTSQuery(query)
	if match == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			p.id,
			p.document_name,
			p.original_path,
			p.page_number,
			snippet(pages_fts, 0, '[', ']', '...', 16) AS snippet,
			bm25(pages_fts) AS score
		FROM pages_fts
		INNER JOIN pages p ON p.seq = pages_fts.rowid
		WHERE pages_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]types.SearchResult, 0, limit)
	for rows.Next() {
		var r types.SearchResult
		if err := rows.Scan(&r.EntryID, &r.DocumentName, &r.OriginalPath, &r.PageNumber, &r.Snippet, &r.Score); err != nil {
			return nil, err
		}
		r.Rank = len(results) + 1
		results = append(results, r)
	}
	return results, rows.Err()
}

// sanitizeFTSQuery turns free text into an FTS5 query that matches every
// term, quoting each one so operators and punctuation are taken literally
func sanitizeFTSQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, `""`)
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " ")
}

// Stats counts dedup records and pages
func (s *SQLiteStorage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dedup_records").Scan(&stats.DedupRecords); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COUNT(DISTINCT hash) FROM pages").Scan(&stats.Pages, &stats.Documents); err != nil {
		return nil, err
	}

	// MAX() loses the column type, so read the newest row instead
	var last time.Time
	err := s.db.QueryRowContext(ctx, "SELECT indexed_at FROM pages ORDER BY indexed_at DESC LIMIT 1").Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	stats.LastIndexed = last

	// Calculate database size
	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	stats.Health = HealthStatus{
		DatabaseAccessible: true,
		FTSIndexBuilt:      true, // created with migrations
	}
	return stats, nil
}

// Run history

// RecordRun stores a finished summary. Recording the same run twice replaces it.
func (s *SQLiteStorage) RecordRun(ctx context.Context, summary *types.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, finished_at, new_documents, failed, fatal, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			new_documents = excluded.new_documents,
			failed = excluded.failed,
			fatal = excluded.fatal,
			summary = excluded.summary
	`, summary.RunID, summary.StartedAt.UTC(), summary.FinishedAt.UTC(),
		summary.NewDocuments, summary.Failed, summary.Fatal, string(data))
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// LastRun returns the most recently finished run
func (s *SQLiteStorage) LastRun(ctx context.Context) (*types.RunSummary, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT summary FROM runs ORDER BY finished_at DESC LIMIT 1").Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var summary types.RunSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, fmt.Errorf("failed to decode run summary: %w", err)
	}
	return &summary, nil
}
