package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/docindex/internal/storage"
)

var pageCmd = &cobra.Command{
	Use:   "page [entry-id]",
	Short: "Print the full text of one indexed page",
	Long: `Prints one page from the local SQLite index. Entry ids have the form
<content-hash>_<page-number> and are shown by the search command.`,
	Args: cobra.ExactArgs(1),
	RunE: runPage,
}

func init() {
	rootCmd.AddCommand(pageCmd)
}

func runPage(cmd *cobra.Command, args []string) error {
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

	page, err := st.local.GetPage(cmd.Context(), args[0])
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("page %s is not in the index", args[0])
	}
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}

	cmd.Printf("%s, page %d\n", page.DocumentName, page.PageNumber)
	cmd.Printf("%s\n", page.OriginalPath)
	cmd.Printf("indexed %s\n", page.Timestamp.Format(time.RFC3339))
	cmd.Println()
	cmd.Println(page.Content)
	return nil
}
