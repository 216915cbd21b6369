package heuristics

import "github.com/gitrdm/goddo/pkg/ddo"

// MaxValueRanking breaks fringe ties in favor of the subproblem whose state,
// rendered structurally, compares greater lexicographically. Most problems
// supply something domain-specific (e.g. remaining-capacity-first for
// knapsack-shaped states); this is a deterministic, dependency-free default
// equivalent to ddo.NaturalRanking, kept here so callers that only import
// heuristics don't need a second import for the common case.
type MaxValueRanking struct{}

func (MaxValueRanking) Compare(a, b ddo.Any) ddo.Ordering {
	return ddo.NaturalRanking{}.Compare(a, b)
}
