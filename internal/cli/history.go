package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/specfetch/specfetch/internal/history"
)

var (
	historyLimit int
	historyStats bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent downloads",
	Long: `Show the most recent downloads recorded in the history database,
newest first. With --stats, print aggregate counts instead.

Examples:
  specfetch history
  specfetch history --limit 50
  specfetch history --stats`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to show")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "show aggregate statistics")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.HistoryDB == "" {
		return fmt.Errorf("history is disabled (SPECFETCH_HISTORY_DB is empty)")
	}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	limit := historyLimit
	if historyStats {
		// Aggregate over a wide window, not just the display default.
		limit = 1000
	}

	records, err := store.Recent(limit)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No downloads recorded")
		return nil
	}

	if historyStats {
		printHistoryStats(records)
		return nil
	}

	fmt.Printf("%-20s %-8s %-8s %-10s %-6s %s\n", "SPEC", "RELEASE", "VERSION", "STATUS", "DOCS", "FINISHED")
	fmt.Println(strings.Repeat("-", 78))
	for _, rec := range records {
		fmt.Printf("%-20s %-8s %-8s %-10s %-6d %s\n",
			rec.Spec, rec.Release, rec.Token, rec.Status, rec.Extracted,
			rec.FinishedAt.Local().Format("2006-01-02 15:04"))
		if rec.Error != "" {
			fmt.Printf("  error: %s\n", rec.Error)
		}
	}
	return nil
}

func printHistoryStats(records []history.Record) {
	var completed, failed, docs int
	var totalDuration time.Duration
	for _, rec := range records {
		switch rec.Status {
		case "completed":
			completed++
			totalDuration += rec.FinishedAt.Sub(rec.StartedAt)
		case "failed":
			failed++
		}
		docs += rec.Extracted
	}

	fmt.Printf("Downloads:  %d\n", len(records))
	fmt.Printf("Completed:  %d\n", completed)
	fmt.Printf("Failed:     %d\n", failed)
	fmt.Printf("Documents:  %d\n", docs)
	if completed > 0 {
		fmt.Printf("Avg time:   %s\n", (totalDuration / time.Duration(completed)).Round(time.Second))
	}
}
