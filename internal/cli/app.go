package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/dshills/docindex/internal/config"
	"github.com/dshills/docindex/internal/dedup"
	"github.com/dshills/docindex/internal/extractor"
	"github.com/dshills/docindex/internal/indexer"
	"github.com/dshills/docindex/internal/logging"
	"github.com/dshills/docindex/internal/pathmap"
	"github.com/dshills/docindex/internal/storage"
	"github.com/dshills/docindex/internal/storage/opensearch"
	"github.com/dshills/docindex/internal/storage/postgres"
	"github.com/dshills/docindex/internal/storage/valkey"
)

// ErrSearchUnsupported is returned by read-side commands when the index
// backend cannot answer queries locally
var ErrSearchUnsupported = errors.New("the configured index backend does not support local search; use the sqlite backend")

// stores holds the backends opened by one command. A SQLite database named
// by both the dedup and index settings is opened once and shared.
type stores struct {
	dedup *dedup.Index
	index storage.PageIndex

	// local is set when the index is a SQLite database
	local *storage.SQLiteStorage

	sqlite  map[string]*storage.SQLiteStorage
	closers []io.Closer
}

func newStores() *stores {
	return &stores{sqlite: make(map[string]*storage.SQLiteStorage)}
}

// openStores opens the dedup store and the page index
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := newStores()
	if err := s.openIndex(cfg); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.openDedup(ctx, cfg); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *stores) openSQLite(path string) (*storage.SQLiteStorage, error) {
	if db, ok := s.sqlite[path]; ok {
		return db, nil
	}
	db, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, err
	}
	s.sqlite[path] = db
	s.closers = append(s.closers, db)
	return db, nil
}

// openIndex opens the page index. OpenSearch is not contacted here; the
// indexer pings it under its retry policy.
func (s *stores) openIndex(cfg *config.Config) error {
	switch cfg.Index.Backend {
	case config.BackendSQLite:
		db, err := s.openSQLite(cfg.Index.SQLitePath)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		s.index = db
		s.local = db
	case config.BackendOpenSearch:
		idx, err := opensearch.New(opensearch.Config{
			Addresses:          []string{cfg.Index.OpenSearchURL},
			Username:           cfg.Index.OpenSearchUser,
			Password:           cfg.Index.OpenSearchPassword,
			Index:              cfg.Index.OpenSearchIndex,
			InsecureSkipVerify: cfg.Index.InsecureSkipVerify,
		})
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		s.index = idx
		s.closers = append(s.closers, idx)
	default:
		return fmt.Errorf("%w: index backend %q", config.ErrInvalidBackend, cfg.Index.Backend)
	}
	return nil
}

func (s *stores) openDedup(ctx context.Context, cfg *config.Config) error {
	var store storage.DedupStore
	switch cfg.Dedup.Backend {
	case config.BackendSQLite:
		db, err := s.openSQLite(cfg.Dedup.SQLitePath)
		if err != nil {
			return fmt.Errorf("open dedup store: %w", err)
		}
		store = db
	case config.BackendPostgres:
		pg, err := postgres.New(ctx, cfg.Dedup.PostgresDSN, cfg.Dedup.PostgresMaxConns)
		if err != nil {
			return fmt.Errorf("open dedup store: %w", err)
		}
		store = pg
		s.closers = append(s.closers, pg)
	case config.BackendValkey:
		vk, err := valkey.New(ctx, valkey.Config{
			Addr:     cfg.Dedup.ValkeyAddr,
			Password: cfg.Dedup.ValkeyPassword,
			DB:       cfg.Dedup.ValkeyDB,
			Key:      cfg.Dedup.ValkeyKey,
		})
		if err != nil {
			return fmt.Errorf("open dedup store: %w", err)
		}
		store = vk
		s.closers = append(s.closers, vk)
	default:
		return fmt.Errorf("%w: dedup backend %q", config.ErrInvalidBackend, cfg.Dedup.Backend)
	}
	s.dedup = dedup.New(store, cfg.Dedup.CacheSize)
	return nil
}

// Close closes every opened backend in reverse order
func (s *stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// checkTools verifies the poppler and tesseract binaries when PDFs are in scope
func checkTools(cfg *config.Config) error {
	if !slices.Contains(cfg.Scan.Extensions, ".pdf") {
		return nil
	}
	if err := extractor.CheckTools(cfg.Extract.OCREnabled); err != nil {
		return fmt.Errorf("%w\n\n%s", err, extractor.InstallInstructions())
	}
	return nil
}

func extractorOptions(cfg *config.Config) extractor.Options {
	return extractor.Options{
		DensityThreshold: cfg.Extract.DensityThreshold,
		OCREnabled:       cfg.Extract.OCREnabled,
		OCRDPI:           cfg.Extract.OCRDPI,
		OCRLanguage:      cfg.Extract.OCRLanguage,
	}
}

// newIndexer assembles one run over the opened stores. capture may be nil.
func newIndexer(cfg *config.Config, s *stores, logger *slog.Logger, capture *logging.Capture) *indexer.Indexer {
	opts := []indexer.Option{
		indexer.WithLogger(logger),
		indexer.WithPathMapper(pathmap.New(cfg.PathMap)),
	}
	if capture != nil {
		opts = append(opts, indexer.WithCapture(capture))
	}
	return indexer.New(
		indexer.ConfigFrom(cfg),
		extractor.NewDefault(extractorOptions(cfg), logger),
		s.dedup,
		s.index,
		opts...,
	)
}
