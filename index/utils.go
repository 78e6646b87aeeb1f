package index

import (
	"cmp"
	"slices"
)

// SortByDistance sorts results ascending by distance, breaking ties by ID so
// the order is deterministic.
func SortByDistance(results []SearchResult) {
	slices.SortFunc(results, func(a, b SearchResult) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
