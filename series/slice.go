package series

import (
	"sort"

	"chartflow/models"
)

// SliceRange returns the contiguous sub-slice of a sorted, deduplicated
// series whose timestamps fall within [from, to] inclusive. The result
// aliases the input.
func SliceRange(bars []models.Bar, from, to int64) []models.Bar {
	left := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp >= from })
	right := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp > to })
	if left >= right {
		return nil
	}
	return bars[left:right]
}
