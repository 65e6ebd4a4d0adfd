package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/docindex/internal/logging"
	"github.com/dshills/docindex/internal/mcp"
	"github.com/dshills/docindex/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server on stdio.

Tools:
  index_documents  run one indexing batch over the configured roots
  search_pages     full-text search over indexed pages (sqlite index only)
  get_status       index statistics and the last recorded run

Logs go to stderr and the configured log file; stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := checkTools(cfg); err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := mcp.Options{
		// Runs share the process log; captured lines would accumulate across runs
		Run: func(ctx context.Context) (*types.RunSummary, error) {
			return newIndexer(cfg, st, logger.Logger, nil).Run(ctx)
		},
		Logger: logger.Logger,
	}
	if st.local != nil {
		opts.Searcher = st.local
		opts.Stats = st.local
		opts.Runs = st.local
	} else {
		logger.Info("search_pages and get_status statistics need the sqlite index",
			slog.String("index_backend", cfg.Index.Backend))
	}

	server, err := mcp.NewServer(opts)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}
