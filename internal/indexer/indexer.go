package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/docindex/internal/bulk"
	"github.com/dshills/docindex/internal/config"
	"github.com/dshills/docindex/internal/logging"
	"github.com/dshills/docindex/internal/pathmap"
	"github.com/dshills/docindex/internal/retry"
	"github.com/dshills/docindex/internal/scanner"
	"github.com/dshills/docindex/internal/storage"
	"github.com/dshills/docindex/internal/workerpool"
	"github.com/dshills/docindex/pkg/types"
)

// ErrIndexUnavailable is returned when the search index cannot be reached
// within the connection retry policy
var ErrIndexUnavailable = errors.New("search index unavailable")

// ErrInterrupted is returned when the caller cancels a run while it waits
// for the index or before every document was dispatched
var ErrInterrupted = errors.New("run interrupted")

// Processor turns one candidate file into an outcome using the caller's dedup handle
type Processor interface {
	Process(ctx context.Context, doc types.SourceDocument, dedup storage.DedupHandle) types.Outcome
}

// Config contains configuration for the indexer
type Config struct {
	Roots      []string
	Extensions []string
	Workers    int          // Number of concurrent extractions (default: 1)
	BatchSize  int          // Entries per bulk flush (default: 100)
	Connect    retry.Config // Policy for reaching the search index
}

// ConfigFrom extracts the indexer settings from the application configuration
func ConfigFrom(cfg *config.Config) Config {
	connect := retry.DefaultConfig()
	connect.MaxAttempts = cfg.Index.ConnectAttempts
	connect.BaseDelay = cfg.Index.ConnectBaseDelay
	connect.MaxDelay = cfg.Index.ConnectMaxDelay
	return Config{
		Roots:      cfg.Scan.Roots,
		Extensions: cfg.Scan.Extensions,
		Workers:    cfg.Extract.Workers,
		BatchSize:  cfg.Extract.BatchSize,
		Connect:    connect,
	}
}

// Indexer coordinates one pipeline run: connect -> scan -> extract -> flush
type Indexer struct {
	cfg       Config
	processor Processor
	dedup     storage.DedupStore
	index     storage.PageIndex

	scanner *scanner.Scanner
	paths   *pathmap.Mapper
	logger  *slog.Logger
	capture *logging.Capture
	now     func() time.Time
}

// Option customizes an Indexer
type Option func(*Indexer)

// WithLogger sets the logger used for progress and per-document errors
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Indexer) { idx.logger = logger }
}

// WithCapture copies captured log lines into the run summary
func WithCapture(c *logging.Capture) Option {
	return func(idx *Indexer) { idx.capture = c }
}

// WithPathMapper rewrites local paths before they are written to the index
func WithPathMapper(m *pathmap.Mapper) Option {
	return func(idx *Indexer) { idx.paths = m }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(idx *Indexer) { idx.now = now }
}

// New creates a new Indexer instance
func New(cfg Config, processor Processor, dedup storage.DedupStore, index storage.PageIndex, opts ...Option) *Indexer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	idx := &Indexer{
		cfg:       cfg,
		processor: processor,
		dedup:     dedup,
		index:     index,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.scanner = scanner.New(cfg.Extensions, idx.logger)
	return idx
}

// Run executes one batch run. The returned summary is always finalized,
// also when the run aborts; err is non-nil only for run-fatal conditions.
func (idx *Indexer) Run(ctx context.Context) (*types.RunSummary, error) {
	summary := types.NewRunSummary(uuid.NewString(), idx.now())
	idx.logger.Info("run started",
		slog.String("run_id", summary.RunID),
		slog.Int("workers", idx.cfg.Workers),
		slog.Int("batch_size", idx.cfg.BatchSize))

	err := idx.run(ctx, summary)
	if err != nil {
		summary.Fatal = err.Error()
		idx.logger.Error("run aborted", slog.String("error", err.Error()))
	}

	summary.Finalize(idx.now())
	idx.logger.Info("run finished",
		slog.String("run_id", summary.RunID),
		slog.Int("candidates", summary.Candidates),
		slog.Int("new_documents", summary.NewDocuments),
		slog.Int("pages", summary.PagesIndexed),
		slog.Int("pages_ocr", summary.PagesOCR),
		slog.Int("already_indexed", summary.AlreadyIndexed),
		slog.Int("no_content", summary.NoContent),
		slog.Int("duplicates", summary.Duplicates),
		slog.Int("failed", summary.Failed),
		slog.Duration("elapsed", summary.Elapsed))

	if idx.capture != nil {
		summary.LogLines = idx.capture.Lines()
	}

	if rec, ok := idx.index.(storage.RunRecorder); ok {
		if recErr := rec.RecordRun(context.WithoutCancel(ctx), summary); recErr != nil {
			idx.logger.Warn("failed to record run", slog.String("error", recErr.Error()))
		}
	}

	return summary, err
}

func (idx *Indexer) run(ctx context.Context, summary *types.RunSummary) error {
	if err := idx.connect(ctx); err != nil {
		return err
	}

	paths, folders := idx.scanner.Scan(idx.cfg.Roots)
	summary.Folders = folders
	summary.Candidates = len(paths)
	idx.logger.Info("scan complete", slog.Int("candidates", len(paths)))
	if len(paths) == 0 {
		idx.logger.Warn("no candidate documents found")
		return nil
	}

	buffer := bulk.New(idx.index, idx.dedup, idx.cfg.BatchSize, idx.logger)

	// Only what reached both stores counts as indexed
	defer func() {
		summary.PagesIndexed, summary.NewDocuments = buffer.Written()
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := workerpool.Run(runCtx, paths, idx.cfg.Workers, idx.processPath, idx.recovered)

	// Merge is single-threaded; the buffer and summary need no locking.
	// After a flush failure the remaining results are drained and discarded.
	// Flushes outlive the caller's context: work already extracted is kept.
	flushCtx := context.WithoutCancel(ctx)
	seen := make(map[string]struct{})
	var flushErr error
	for o := range results {
		if flushErr != nil {
			continue
		}
		if err := idx.merge(flushCtx, buffer, seen, summary, o); err != nil {
			flushErr = err
			cancel()
		}
	}
	if flushErr != nil {
		return flushErr
	}

	if err := buffer.Flush(flushCtx); err != nil {
		return err
	}

	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}
	return nil
}

// connect waits for the search index with exponential backoff
func (idx *Indexer) connect(ctx context.Context) error {
	policy := idx.cfg.Connect
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		idx.logger.Warn("search index not reachable, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
	}

	_, err := retry.Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
		if err := idx.index.Ping(ctx); err != nil {
			return struct{}{}, err
		}
		if init, ok := idx.index.(storage.Initializer); ok {
			return struct{}{}, init.EnsureIndex(ctx)
		}
		return struct{}{}, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		}
		return fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	return nil
}

// processPath is one worker task. The dedup handle lives exactly as long as the task.
func (idx *Indexer) processPath(ctx context.Context, path string) types.Outcome {
	doc := types.NewSourceDocument(path)

	handle, err := idx.dedup.Acquire(ctx)
	if err != nil {
		return types.Failed(doc, fmt.Errorf("acquire dedup handle: %w", err))
	}
	defer handle.Release()

	return idx.processor.Process(ctx, doc, handle)
}

func (idx *Indexer) recovered(path string, p any) types.Outcome {
	return types.Failed(types.NewSourceDocument(path), fmt.Errorf("panic during extraction: %v", p))
}

// merge folds one outcome into the summary and the buffer. Only flush
// errors are returned.
func (idx *Indexer) merge(ctx context.Context, buffer *bulk.Buffer, seen map[string]struct{}, summary *types.RunSummary, o types.Outcome) error {
	doc := o.Document

	switch o.Kind {
	case types.OutcomeIndexed:
		// Two workers can extract identical content concurrently; only the
		// first result to arrive is written.
		if _, dup := seen[doc.Hash]; dup {
			summary.Record(types.Skipped(doc, types.SkipDuplicateInRun))
			idx.logger.Info("duplicate content in run", slog.String("document", doc.Name))
			return nil
		}
		seen[doc.Hash] = struct{}{}

		doc.OriginalPath = idx.paths.Normalize(doc.Path)
		entries, err := types.NewIndexEntries(doc, o.Pages, idx.now())
		if err != nil {
			summary.AddError(doc.Name, doc.Path, err)
			return nil
		}

		summary.Record(o)
		idx.logger.Info("document extracted",
			slog.String("document", doc.Name),
			slog.Int("pages", len(o.Pages)),
			slog.Int("pages_ocr", o.PagesOCR))
		return buffer.AddDocument(ctx, doc.Hash, entries)

	case types.OutcomeSkipped:
		summary.Record(o)
		idx.logger.Debug("document skipped",
			slog.String("document", doc.Name),
			slog.String("reason", string(o.Reason)))

	case types.OutcomeFailed:
		summary.Record(o)
		idx.logger.Error("document failed",
			slog.String("document", doc.Name),
			slog.String("path", doc.Path),
			slog.String("error", o.Err.Error()))
	}
	return nil
}
