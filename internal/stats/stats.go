// Package stats provides descriptive statistics over metric value series:
// summary statistics, linear-interpolation percentiles, outlier detection,
// and linear trend estimation. All functions are pure and never mutate
// their inputs.
package stats

import (
	"math"
	"sort"
)

// DefaultPercentiles are the percentiles reported when the caller does not
// ask for a specific set.
var DefaultPercentiles = []float64{25, 50, 75, 90, 95, 99}

// Stats holds descriptive statistics for a series of values.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Sum    float64 `json:"sum"`
}

// Series is a named list of values, used where output order must follow
// the caller's order.
type Series struct {
	Name   string
	Values []float64
}

// NamedStats carries a series name alongside its statistics.
type NamedStats struct {
	Name string `json:"name"`
	Stats
}

// Compute returns descriptive statistics for values. An empty input yields
// a zero Stats with Count 0; it never fails.
func Compute(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	sorted := sortedCopy(values)
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	count := len(values)
	mean := sum / float64(count)

	return Stats{
		Count:  count,
		Mean:   mean,
		Median: medianOf(sorted),
		StdDev: sampleStdDev(values, mean),
		Min:    sorted[0],
		Max:    sorted[count-1],
		Sum:    sum,
	}
}

// Mean returns the arithmetic mean of values, or 0 for an empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation of values (n-1 divisor).
// Fewer than two values yield 0.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return sampleStdDev(values, Mean(values))
}

// Percentiles computes the requested percentiles of values using linear
// interpolation between the two nearest sorted elements. An empty input
// yields 0 for every requested percentile.
func Percentiles(values []float64, percentiles []float64) map[float64]float64 {
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}
	result := make(map[float64]float64, len(percentiles))
	if len(values) == 0 {
		for _, p := range percentiles {
			result[p] = 0
		}
		return result
	}

	sorted := sortedCopy(values)
	for _, p := range percentiles {
		result[p] = percentileOf(sorted, p)
	}
	return result
}

// Analyze computes statistics for each named series, preserving input order.
func Analyze(series []Series) []NamedStats {
	result := make([]NamedStats, 0, len(series))
	for _, s := range series {
		result = append(result, NamedStats{Name: s.Name, Stats: Compute(s.Values)})
	}
	return result
}

// percentileOf returns the p-th percentile of an ascending-sorted slice via
// linear interpolation at rank p/100*(n-1).
func percentileOf(sorted []float64, p float64) float64 {
	n := len(sorted)
	rank := p / 100.0 * float64(n-1)
	if rank <= 0 {
		return sorted[0]
	}
	if rank >= float64(n-1) {
		return sorted[n-1]
	}

	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func medianOf(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// sampleStdDev divides by n-1; a single value has no spread by definition.
func sampleStdDev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}
