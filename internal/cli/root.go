// Package cli implements the docindex command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/docindex/internal/config"
)

// version is set from main, which receives it through -ldflags
var version = "dev"

var (
	configFile string
	envFile    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "docindex",
	Short: "Index document shares into a full-text search index",
	Long: `docindex scans document folders, skips files whose content was already
indexed, extracts text page by page (with OCR for scanned pages) and writes
the pages to a search index in batches.

Configuration is read from an optional TOML file, an optional .env file and
DOCINDEX_* environment variables, in that order.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion records the build version shown by the version command
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// loadConfig reads the full configuration needed for indexing
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)
	return cfg, nil
}

// loadStoreConfig reads only what the read-side commands need
func loadStoreConfig() (*config.Config, error) {
	cfg, err := config.LoadStores(configFile, envFile)
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)
	return cfg, nil
}

func applyFlags(cfg *config.Config) {
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
}
