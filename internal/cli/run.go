package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dshills/docindex/internal/config"
	"github.com/dshills/docindex/internal/logging"
	"github.com/dshills/docindex/internal/report"
	"github.com/dshills/docindex/pkg/types"
)

// ErrRunFailed is returned by the run command when the run aborted
var ErrRunFailed = errors.New("indexing run failed")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Index new documents and send the run report",
	Long: `Runs one batch: scans the configured roots, indexes every document whose
content is not yet registered and publishes the run report (e-mail through
Resend and/or an archive in a MinIO bucket, when configured).

The exit status is non-zero when the run aborted, for example because the
search index was unreachable or a bulk write failed.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
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

	summary, runErr := executeRun(ctx, cfg, logger)

	publishReport(context.WithoutCancel(ctx), cfg, logger, summary)
	printSummary(cmd, summary)

	if runErr != nil {
		return fmt.Errorf("%w: %w", ErrRunFailed, runErr)
	}
	return nil
}

// executeRun opens the stores and performs the run. A store that cannot be
// opened still yields a finalized, failed summary so it can be reported.
func executeRun(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*types.RunSummary, error) {
	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Error("failed to open stores", slog.String("error", err.Error()))
		summary := types.NewRunSummary(uuid.NewString(), time.Now())
		summary.Fatal = err.Error()
		summary.Finalize(time.Now())
		summary.LogLines = logger.Capture.Lines()
		return summary, err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close stores", slog.String("error", err.Error()))
		}
	}()

	return newIndexer(cfg, st, logger.Logger, logger.Capture).Run(ctx)
}

// reportSinks builds the configured report destinations. A destination that
// cannot be set up is logged and left out.
func reportSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) []report.Sink {
	var sinks []report.Sink

	if cfg.Report.ResendAPIKey != "" {
		n, err := report.NewResendNotifier(cfg.Report.ResendAPIKey, cfg.Report.EmailFrom,
			cfg.Report.EmailTo, cfg.Report.EmailCc, logger)
		if err != nil {
			logger.Warn("e-mail report disabled", slog.String("error", err.Error()))
		} else {
			sinks = append(sinks, n)
		}
	}

	if cfg.Report.ArchiveEndpoint != "" {
		a, err := report.NewMinIOArchiver(report.ArchiveConfig{
			Endpoint:  cfg.Report.ArchiveEndpoint,
			AccessKey: cfg.Report.ArchiveAccessKey,
			SecretKey: cfg.Report.ArchiveSecretKey,
			Bucket:    cfg.Report.ArchiveBucket,
			UseSSL:    cfg.Report.ArchiveUseSSL,
		})
		if err == nil {
			err = a.EnsureBucket(ctx)
		}
		if err != nil {
			logger.Warn("report archive disabled", slog.String("error", err.Error()))
		} else {
			sinks = append(sinks, a)
		}
	}

	return sinks
}

func publishReport(ctx context.Context, cfg *config.Config, logger *logging.Logger, summary *types.RunSummary) {
	sinks := reportSinks(ctx, cfg, logger.Logger)
	if len(sinks) == 0 {
		logger.Debug("no report destinations configured")
		return
	}

	rep, err := report.Render(summary, cfg.Report.MaxInlineErrors, logger.File)
	if err != nil {
		logger.Error("failed to render report", slog.String("error", err.Error()))
		return
	}
	report.Publish(ctx, logger.Logger, report.Delivery{
		Report:  rep,
		Summary: summary,
		LogFile: logger.File,
	}, sinks...)
}

func printSummary(cmd *cobra.Command, s *types.RunSummary) {
	if s.Succeeded() {
		cmd.Printf("Run %s finished in %.2f minutes\n", s.RunID, s.Elapsed.Minutes())
	} else {
		cmd.Printf("Run %s failed after %.2f minutes: %s\n", s.RunID, s.Elapsed.Minutes(), s.Fatal)
	}

	for _, f := range s.Folders {
		if !f.Accessible {
			cmd.Printf("  %s: inaccessible\n", f.Root)
			continue
		}
		cmd.Printf("  %s: %d documents\n", f.Root, f.Count)
	}

	cmd.Printf("  New documents:   %d\n", s.NewDocuments)
	cmd.Printf("  Pages indexed:   %d (OCR: %d)\n", s.PagesIndexed, s.PagesOCR)
	cmd.Printf("  Already indexed: %d\n", s.AlreadyIndexed)
	cmd.Printf("  No content:      %d\n", s.NoContent)
	cmd.Printf("  Duplicates:      %d\n", s.Duplicates)
	cmd.Printf("  Failed:          %d\n", s.Failed)
}
