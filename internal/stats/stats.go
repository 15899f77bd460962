// Package stats holds the small descriptive statistics used by timeline summaries.
package stats

import (
	"math"
	"sort"
)

// Sum returns the sum of values
func Sum(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum
}

// Mean returns the arithmetic mean, 0 for no values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// Percentiles calculates the p-th percentiles (0-100) of values with linear
// interpolation between closest ranks. values is not modified.
func Percentiles(values []float64, ps ...float64) []float64 {
	results := make([]float64, len(ps))
	if len(values) == 0 {
		return results
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	for i, p := range ps {
		p = math.Max(0, math.Min(100, p))
		index := p / 100 * float64(len(sorted)-1)
		lower := int(math.Floor(index))
		upper := int(math.Ceil(index))

		weight := index - float64(lower)
		results[i] = sorted[lower]*(1-weight) + sorted[upper]*weight
	}
	return results
}
