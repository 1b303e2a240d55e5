package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/specfetch/specfetch/internal/resolve"
	"github.com/specfetch/specfetch/internal/spec"
)

// ListReleasesInput defines the input schema for the list_releases tool.
type ListReleasesInput struct {
	Spec    string `json:"spec,omitempty" jsonschema:"Spec identifier like 'TS 24.301'; enumerates known series when omitted"`
	Release string `json:"release,omitempty" jsonschema:"Restrict the listing to one release like 'Rel-16'"`
	Series  string `json:"series,omitempty" jsonschema:"Series number like '24'; lists the spec directories within that series"`
}

// ReleaseVersions groups the version tokens available for one release.
type ReleaseVersions struct {
	Release  string   `json:"release"`
	Versions []string `json:"versions"`
	Latest   string   `json:"latest"`
}

// ListReleasesResult is the response from the list_releases tool.
type ListReleasesResult struct {
	Spec     string            `json:"spec,omitempty"`
	Releases []ReleaseVersions `json:"releases,omitempty"`
	Newest   string            `json:"newest,omitempty"`
	Series   []string          `json:"series,omitempty"`
	Specs    []string          `json:"specs,omitempty"`
}

var seriesArgExpr = regexp.MustCompile(`^\d{1,2}$`)

// NewListReleasesHandler creates the list_releases tool handler.
// With a spec it reports the per-release version groupings plus the newest
// archive overall; with a series number it lists the spec directories of
// that series; with neither it enumerates the series directories known to
// the archive server.
func NewListReleasesHandler(deps *Dependencies) mcp.ToolHandlerFor[ListReleasesInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListReleasesInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.Spec == "" && input.Series != "" {
			if !seriesArgExpr.MatchString(input.Series) {
				return ErrorResult(
					fmt.Sprintf("invalid series number: %q", input.Series),
					"Use a bare series number like '24'",
				), nil, nil
			}
			specs, err := deps.Pipeline.Resolver.Series(ctx, input.Series)
			if err != nil {
				return resolveErrorResult(err), nil, nil
			}
			if len(specs) == 0 {
				return ErrorResult(
					fmt.Sprintf("no spec directories in series %s", input.Series),
					"Use list_releases without arguments to see the known series",
				), nil, nil
			}
			out := ListReleasesResult{Series: []string{input.Series}, Specs: specs}
			jsonBytes, _ := json.MarshalIndent(out, "", "  ")
			return TextResult(string(jsonBytes)), nil, nil
		}

		if input.Spec == "" {
			series, err := deps.Pipeline.Resolver.Families(ctx)
			if err != nil {
				return resolveErrorResult(err), nil, nil
			}
			jsonBytes, _ := json.MarshalIndent(ListReleasesResult{Series: series}, "", "  ")
			return TextResult(string(jsonBytes)), nil, nil
		}

		key, err := spec.ParseKey(input.Spec)
		if err != nil {
			return resolveErrorResult(err), nil, nil
		}

		var only *spec.Release
		if input.Release != "" {
			rel, err := spec.ParseRelease(input.Release)
			if err != nil {
				return resolveErrorResult(err), nil, nil
			}
			if _, err := rel.TokenPrefix(); err != nil {
				return resolveErrorResult(err), nil, nil
			}
			only = &rel
		}

		cands, err := deps.Pipeline.Resolver.Candidates(ctx, key)
		if err != nil {
			return resolveErrorResult(err), nil, nil
		}
		if len(cands) == 0 {
			return resolveErrorResult(fmt.Errorf("%w: %s", resolve.ErrSpecUnknown, key)), nil, nil
		}

		out := ListReleasesResult{Spec: key.String()}
		if newest, ok := resolve.SelectLatest(cands); ok {
			out.Newest = newest.Filename
		}

		groups := resolve.GroupByRelease(cands)
		numbers := make([]int, 0, len(groups))
		for n := range groups {
			numbers = append(numbers, n)
		}
		sort.Ints(numbers)

		for _, n := range numbers {
			if only != nil && n != only.Number {
				continue
			}
			tokens := groups[n]
			out.Releases = append(out.Releases, ReleaseVersions{
				Release:  spec.Release{Number: n}.String(),
				Versions: tokens,
				Latest:   tokens[len(tokens)-1],
			})
		}
		if only != nil && len(out.Releases) == 0 {
			return resolveErrorResult(fmt.Errorf("%w: %s %s", resolve.ErrNoRelease, key, only)), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(out, "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}
