package stats

import (
	"errors"
	"fmt"
	"math"
)

// Outlier detection methods.
const (
	MethodIQR    = "iqr"
	MethodZScore = "zscore"
)

// DefaultOutlierThreshold is used when the caller passes a non-positive
// threshold.
const DefaultOutlierThreshold = 1.5

// ErrUnknownMethod is returned by DetectOutliers for an unrecognized method.
var ErrUnknownMethod = errors.New("unknown outlier method")

// DetectOutliers returns the indices of outlying elements in ascending order.
//
// With MethodIQR, bounds are [Q1-t*IQR, Q3+t*IQR] and values strictly outside
// are outliers. With MethodZScore, values whose |v-mean|/stddev exceeds t are
// outliers; a zero standard deviation marks nothing.
func DetectOutliers(values []float64, method string, threshold float64) ([]int, error) {
	if threshold <= 0 {
		threshold = DefaultOutlierThreshold
	}

	switch method {
	case MethodIQR:
		return iqrOutliers(values, threshold), nil
	case MethodZScore:
		return zscoreOutliers(values, threshold), nil
	default:
		return nil, fmt.Errorf("%w: %q (use %q or %q)", ErrUnknownMethod, method, MethodIQR, MethodZScore)
	}
}

func iqrOutliers(values []float64, threshold float64) []int {
	if len(values) == 0 {
		return nil
	}

	sorted := sortedCopy(values)
	q1 := percentileOf(sorted, 25)
	q3 := percentileOf(sorted, 75)
	iqr := q3 - q1
	lowerBound := q1 - threshold*iqr
	upperBound := q3 + threshold*iqr

	var indices []int
	for i, v := range values {
		if v < lowerBound || v > upperBound {
			indices = append(indices, i)
		}
	}
	return indices
}

func zscoreOutliers(values []float64, threshold float64) []int {
	if len(values) == 0 {
		return nil
	}

	mean := Mean(values)
	stdDev := sampleStdDev(values, mean)
	if stdDev == 0 {
		return nil
	}

	var indices []int
	for i, v := range values {
		if math.Abs(v-mean)/stdDev > threshold {
			indices = append(indices, i)
		}
	}
	return indices
}
