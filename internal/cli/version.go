package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/docindex/internal/storage"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("docindex version %s\n", version)
		cmd.Printf("build mode: %s, sqlite driver: %s\n", storage.BuildMode, storage.DriverName)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
