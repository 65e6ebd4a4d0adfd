package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/docindex/internal/storage"
	"github.com/dshills/docindex/pkg/types"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics and the last run",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

type statusOutput struct {
	Stats   *storage.Stats    `json:"stats"`
	LastRun *types.RunSummary `json:"last_run"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadStoreConfig()
	if err != nil {
		return err
	}

	st := newStores()
	defer st.Close()
	if err := st.openIndex(cfg); err != nil {
		return err
	}
	if st.local == nil {
		return ErrSearchUnsupported
	}

	ctx := cmd.Context()
	out := statusOutput{}

	out.Stats, err = st.local.Stats(ctx)
	if err != nil {
		return fmt.Errorf("read statistics: %w", err)
	}

	out.LastRun, err = st.local.LastRun(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("read last run: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printStatus(cmd, out)
	return nil
}

func printStatus(cmd *cobra.Command, out statusOutput) {
	s := out.Stats
	cmd.Println("Index:")
	cmd.Printf("  Documents:     %d\n", s.Documents)
	cmd.Printf("  Pages:         %d\n", s.Pages)
	cmd.Printf("  Registered:    %d\n", s.DedupRecords)
	cmd.Printf("  Size:          %.2f MB\n", s.SizeMB)
	if !s.LastIndexed.IsZero() {
		cmd.Printf("  Last indexed:  %s\n", s.LastIndexed.Format(time.RFC3339))
	}
	cmd.Printf("  FTS index:     %v\n", s.Health.FTSIndexBuilt)
	cmd.Println()

	r := out.LastRun
	if r == nil {
		cmd.Println("No runs recorded.")
		return
	}
	cmd.Println("Last run:")
	cmd.Printf("  ID:            %s\n", r.RunID)
	cmd.Printf("  Started:       %s\n", r.StartedAt.Format(time.RFC3339))
	cmd.Printf("  Elapsed:       %.2f minutes\n", r.Elapsed.Minutes())
	cmd.Printf("  New documents: %d\n", r.NewDocuments)
	cmd.Printf("  Failed:        %d\n", r.Failed)
	if r.Fatal != "" {
		cmd.Printf("  Aborted:       %s\n", r.Fatal)
	}
}
