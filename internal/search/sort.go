package search

import "sort"

// SortResults sorts results by score (descending). Equal scores keep their input
// order, which is corpus order for freshly scored results.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// mergeResults concatenates lists, keeping the first occurrence of each identity,
// truncates to limit and renumbers ranks. It never re-ranks.
func mergeResults(limit int, lists ...[]Result) []Result {
	out := []Result{}
	seen := map[string]bool{}
	for _, list := range lists {
		for _, r := range list {
			if len(out) == limit {
				return out
			}
			k := r.Key()
			if seen[k] {
				continue
			}
			seen[k] = true
			r.Rank = len(out) + 1
			out = append(out, r)
		}
	}
	return out
}
