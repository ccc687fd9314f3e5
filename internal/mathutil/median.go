// Package mathutil holds small numeric helpers shared by the candidate
// and confirm detectors — both need an exact order-statistic median over
// a bounded recent window of baseline samples.
package mathutil

import "sort"

// Median returns the exact order-statistic median of xs: for an odd
// count, the middle element; for an even count, the lower-middle
// element. Ties are broken by lower index rather than averaging, so
// this never interpolates between two values. xs is not mutated.
// Returns 0 for an empty slice.
func Median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)
	return sorted[(n-1)/2]
}
