// Package cli provides the command-line interface for specfetch.
package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/specfetch/specfetch/internal/config"
	"github.com/specfetch/specfetch/internal/fetch"
	"github.com/specfetch/specfetch/internal/history"
	"github.com/specfetch/specfetch/internal/metrics"
	"github.com/specfetch/specfetch/internal/pipeline"
	"github.com/specfetch/specfetch/internal/resolve"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and logger, set up once per invocation.
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "specfetch",
	Short: "Download and extract 3GPP specification documents",
	Long: `Specfetch resolves a 3GPP specification number and release to the
versioned archive published on the 3GPP specification server, downloads
it, and extracts the document files (pdf/doc/docx) it contains.

Version tokens in archive filenames are base-36: the first character
encodes the release, the remaining two the revision within it.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, closeLog = cfg.SetupLogger()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// newPipeline builds the resolution-and-download pipeline from the loaded
// config. The history store is optional; commands that only resolve pass
// withHistory=false and skip touching the database.
func newPipeline(withHistory bool) (*pipeline.Pipeline, func()) {
	client := &http.Client{Timeout: cfg.DownloadTimeout}

	p := &pipeline.Pipeline{
		Resolver: resolve.New(client, cfg.BaseURL, logger),
		Fetcher:  fetch.NewFetcher(client, logger),
		Metrics:  metrics.NewCollector(),
		Logger:   logger,
	}
	cleanup := func() {}

	if withHistory && cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			// History is bookkeeping, not a reason to refuse a download.
			logger.Warn("history store unavailable", "path", cfg.HistoryDB, "error", err)
		} else {
			p.History = store
			cleanup = func() {
				if err := store.Close(); err != nil {
					logger.Warn("failed to close history store", "error", err)
				}
			}
		}
	}
	return p, cleanup
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
