// Package metrics summarizes per-seed lift distributions.
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// computeMean calculates arithmetic mean; empty input is 0.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// Percentile returns the q-th percentile (0..100) with linear interpolation
// between closest ranks. values need not be sorted.
func Percentile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return computePercentile(sorted, q/100)
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC; p is a fraction (0.05 = 5th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeBelowFraction returns the share of values strictly below threshold.
func computeBelowFraction(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	below := 0
	for _, v := range values {
		if v < threshold {
			below++
		}
	}
	return float64(below) / float64(len(values))
}
