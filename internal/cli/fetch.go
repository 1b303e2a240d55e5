package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/specfetch/specfetch/internal/fetch"
	"github.com/specfetch/specfetch/internal/spec"
	"github.com/specfetch/specfetch/internal/task"
)

var (
	fetchOutputDir string
	fetchLatest    bool
	fetchPlain     bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <spec> [release]",
	Short: "Download a spec archive and extract its documents",
	Long: `Resolve a spec and release to the versioned archive on the 3GPP
server, download it, and extract the pdf/doc/docx files it contains.

Without a release the newest version across all releases is fetched.

Examples:
  specfetch fetch "TS 24.301" Rel-16
  specfetch fetch 24.301 --latest -o ./specs`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutputDir, "output", "o", "", "output directory (default from config)")
	fetchCmd.Flags().BoolVar(&fetchLatest, "latest", false, "fetch the newest version across all releases")
	fetchCmd.Flags().BoolVar(&fetchPlain, "plain", false, "plain progress output, no interactive UI")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	key, err := spec.ParseKey(args[0])
	if err != nil {
		return err
	}

	var rel spec.Release
	latest := fetchLatest || len(args) < 2
	if len(args) == 2 {
		if fetchLatest {
			return fmt.Errorf("cannot combine --latest with an explicit release")
		}
		rel, err = spec.ParseRelease(args[1])
		if err != nil {
			return err
		}
	}

	outDir := fetchOutputDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	p, cleanup := newPipeline(true)
	defer cleanup()

	resolved, err := p.Resolve(ctx, key, rel, latest)
	if err != nil {
		return err
	}
	fmt.Printf("Resolved %s %s -> %s\n", resolved.Key, resolved.Release, resolved.URL)

	// Interactive progress needs a terminal; pipes and CI get plain output.
	if !fetchPlain && term.IsTerminal(int(os.Stdout.Fd())) {
		mgr := task.NewManager(logger)
		t := mgr.Create(resolved, outDir)
		go p.RunTask(ctx, mgr, t)

		snap, err := runDownloadProgress(mgr, t.ID)
		if err != nil {
			return err
		}
		printFetchResult(snap.ArchivePath, snap.Extracted)
		return nil
	}

	result, err := p.Download(ctx, resolved, outDir, plainProgress())
	if err != nil {
		return err
	}
	printFetchResult(result.ArchivePath, result.Extracted)
	return nil
}

// plainProgress prints coarse download progress to stderr, one line per
// report so piped output stays readable.
func plainProgress() fetch.ProgressFunc {
	return func(pr fetch.Progress) {
		switch {
		case pr.Done:
			fmt.Fprintln(os.Stderr, "download complete")
		case pr.Total > 0:
			fmt.Fprintf(os.Stderr, "downloaded %3.0f%% (%d/%d bytes)\n", pr.Fraction()*100, pr.Bytes, pr.Total)
		default:
			fmt.Fprintf(os.Stderr, "downloaded %d bytes\n", pr.Bytes)
		}
	}
}

func printFetchResult(archivePath string, extracted []string) {
	fmt.Printf("Archive: %s\n", archivePath)
	if len(extracted) == 0 {
		fmt.Println("No document files found in archive")
		return
	}
	fmt.Printf("Extracted %d document(s):\n", len(extracted))
	for _, name := range extracted {
		fmt.Printf("  %s\n", name)
	}
}
