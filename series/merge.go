package series

import (
	"sort"

	"chartflow/models"
)

// Merge combines an existing series with freshly fetched bars into a single
// series with strictly ascending, unique timestamps. The sort is stable and
// fetched bars are appended after the existing ones, so on a timestamp
// collision the fetched bar replaces the cached one.
func Merge(existing, fetched []models.Bar) []models.Bar {
	merged := make([]models.Bar, 0, len(existing)+len(fetched))
	merged = append(merged, existing...)
	merged = append(merged, fetched...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})

	out := make([]models.Bar, 0, len(merged))
	for _, b := range merged {
		if n := len(out); n > 0 && out[n-1].Timestamp == b.Timestamp {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
