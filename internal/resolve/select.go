package resolve

import (
	"slices"

	"github.com/specfetch/specfetch/internal/spec"
)

// SelectForRelease returns the candidate with the highest token order value
// among those whose token starts with prefix. Ties keep the first
// occurrence in listing order, so selection is deterministic. The second
// return is false when no candidate matches; absence of a release is a
// valid outcome, not an error.
func SelectForRelease(cands []Candidate, prefix byte) (Candidate, bool) {
	var best Candidate
	bestVal := int64(-1)
	for _, c := range cands {
		if len(c.Token) == 0 || c.Token[0] != prefix {
			continue
		}
		if v := spec.TokenOrderValue(c.Token); v > bestVal {
			best, bestVal = c, v
		}
	}
	return best, bestVal >= 0
}

// SelectLatest returns the candidate with the highest token order value
// across all releases, with the same first-occurrence tie-break.
func SelectLatest(cands []Candidate) (Candidate, bool) {
	var best Candidate
	bestVal := int64(-1)
	for _, c := range cands {
		if v := spec.TokenOrderValue(c.Token); v > bestVal {
			best, bestVal = c, v
		}
	}
	return best, bestVal >= 0
}

// GroupByRelease buckets candidate tokens by the release their leading
// character maps to, each bucket sorted ascending by token order value.
// Tokens whose release cannot be derived are dropped; this grouping is a
// display heuristic, not a correctness-bearing operation.
func GroupByRelease(cands []Candidate) map[int][]string {
	groups := make(map[int][]string)
	for _, c := range cands {
		rel, ok := spec.TokenRelease(c.Token)
		if !ok {
			continue
		}
		groups[rel] = append(groups[rel], c.Token)
	}
	for rel := range groups {
		slices.SortFunc(groups[rel], func(a, b string) int {
			va, vb := spec.TokenOrderValue(a), spec.TokenOrderValue(b)
			switch {
			case va < vb:
				return -1
			case va > vb:
				return 1
			default:
				return 0
			}
		})
	}
	return groups
}
