package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specfetch/specfetch/internal/spec"
)

var resolveLatest bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <spec> [release]",
	Short: "Resolve a spec and release to its archive URL without downloading",
	Long: `Resolve prints the archive URL and version token a fetch would use,
without touching the filesystem.

Examples:
  specfetch resolve "TS 24.301" Rel-16
  specfetch resolve 24.301 --latest`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveLatest, "latest", false, "resolve the newest version across all releases")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	key, err := spec.ParseKey(args[0])
	if err != nil {
		return err
	}

	var rel spec.Release
	latest := resolveLatest || len(args) < 2
	if len(args) == 2 {
		if resolveLatest {
			return fmt.Errorf("cannot combine --latest with an explicit release")
		}
		rel, err = spec.ParseRelease(args[1])
		if err != nil {
			return err
		}
	}

	p, cleanup := newPipeline(false)
	defer cleanup()

	resolved, err := p.Resolve(ctx, key, rel, latest)
	if err != nil {
		return err
	}

	fmt.Printf("Spec:    %s\n", resolved.Key)
	fmt.Printf("Release: %s\n", resolved.Release)
	fmt.Printf("Version: %s\n", resolved.Token)
	fmt.Printf("URL:     %s\n", resolved.URL)
	return nil
}
