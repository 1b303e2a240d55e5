package cli

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/specfetch/specfetch/internal/resolve"
	"github.com/specfetch/specfetch/internal/spec"
)

var releasesCmd = &cobra.Command{
	Use:   "releases [spec|series] [release]",
	Short: "List available releases and versions for a spec",
	Long: `List the version tokens the archive server holds for a spec,
grouped by release, with the newest version of each release marked.
An optional release restricts the listing to that release.

A bare series number lists the spec directories within that series;
without any argument the known series directories are enumerated.

Examples:
  specfetch releases "TS 24.301"
  specfetch releases 24.301 Rel-16
  specfetch releases 24
  specfetch releases`,
	Args: cobra.MaximumNArgs(2),
	RunE: runReleases,
}

func init() {
	rootCmd.AddCommand(releasesCmd)
}

func runReleases(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, cleanup := newPipeline(false)
	defer cleanup()

	if len(args) == 0 {
		return listSeries(ctx, p.Resolver)
	}
	if seriesArgExpr.MatchString(args[0]) {
		if len(args) == 2 {
			return fmt.Errorf("a release filter needs a full spec identifier, not a series")
		}
		return listSeriesSpecs(ctx, p.Resolver, args[0])
	}

	key, err := spec.ParseKey(args[0])
	if err != nil {
		return err
	}

	var only *spec.Release
	if len(args) == 2 {
		rel, err := spec.ParseRelease(args[1])
		if err != nil {
			return err
		}
		if _, err := rel.TokenPrefix(); err != nil {
			return err
		}
		only = &rel
	}

	cands, err := p.Resolver.Candidates(ctx, key)
	if err != nil {
		return err
	}
	if len(cands) == 0 {
		return fmt.Errorf("no archives found for %s", key)
	}

	newest, _ := resolve.SelectLatest(cands)

	groups := resolve.GroupByRelease(cands)
	numbers := make([]int, 0, len(groups))
	for n := range groups {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	fmt.Printf("%s: %d archive(s), newest %s\n\n", key, len(cands), newest.Filename)
	fmt.Printf("%-8s %-10s %s\n", "RELEASE", "LATEST", "VERSIONS")
	fmt.Println(strings.Repeat("-", 50))
	shown := 0
	for _, n := range numbers {
		if only != nil && n != only.Number {
			continue
		}
		tokens := groups[n]
		rel := spec.Release{Number: n}
		fmt.Printf("%-8s %-10s %s\n", rel, tokens[len(tokens)-1], strings.Join(tokens, " "))
		shown++
	}
	if only != nil && shown == 0 {
		return fmt.Errorf("no archives for %s %s", key, only)
	}
	return nil
}

var seriesArgExpr = regexp.MustCompile(`^\d{1,2}$`)

func listSeriesSpecs(ctx context.Context, r *resolve.Resolver, series string) error {
	specs, err := r.Series(ctx, series)
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("no spec directories in series %s", series)
	}

	fmt.Printf("Series %s: %d spec(s)\n", series, len(specs))
	for _, s := range specs {
		fmt.Printf("  %s\n", s)
	}
	return nil
}

func listSeries(ctx context.Context, r *resolve.Resolver) error {
	series, err := r.Families(ctx)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		fmt.Println("No series directories found")
		return nil
	}

	fmt.Printf("Known series (%d):\n", len(series))
	for _, s := range series {
		fmt.Printf("  %s\n", s)
	}
	return nil
}
