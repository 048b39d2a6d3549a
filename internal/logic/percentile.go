package logic

import "sort"

// Percentile returns the share of the region's ladder rated at or above
// rating, as 0..100. Lower is better. sorted must be ascending.
// An empty sample yields 100.
func Percentile(rating int, sorted []int) float64 {
	if len(sorted) == 0 {
		return 100.0
	}
	// rightmost insertion point
	rank := sort.Search(len(sorted), func(i int) bool { return sorted[i] > rating })
	return 100.0 * (1.0 - float64(rank)/float64(len(sorted)))
}
