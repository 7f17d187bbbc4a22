package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/promptgauge/promptgauge/internal/metrics"
	"github.com/promptgauge/promptgauge/internal/stats"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "latency_ms", "cost", "quality_score", "failures", "calls"
	Aggregate string  // e.g., "p95", "avg", "median", "max", "rate", "count"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against a batch of observations.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the records. elapsed feeds the
// calls:rate aggregate; pass 0 when wall time is not meaningful.
func (e *Evaluator) Evaluate(records []metrics.Record, elapsed time.Duration) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, records, elapsed))
	}
	return results
}

// AnyFailed reports whether at least one threshold did not pass.
func AnyFailed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return true
		}
	}
	return false
}

func evaluateOne(t Threshold, records []metrics.Record, elapsed time.Duration) Result {
	actual, err := extractValue(t, records, elapsed)
	if err != nil {
		return Result{
			Threshold: t,
			Actual:    0,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	message := fmt.Sprintf("%s %s: %.4f %s %.4f", status, t.Raw, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
//   - "latency_ms:p95 < 500"       (latency percentile in ms)
//   - "latency_ms:avg < 200"       (average latency in ms)
//   - "cost:sum < 1.50"            (total spend)
//   - "quality_score:min >= 0.7"   (worst-case quality)
//   - "failures:rate < 0.01"       (failure fraction)
//   - "failures:count == 0"        (failure count)
//   - "calls:count >= 30"          (sample size)
//
// The metric may be any record field or custom metric name; "calls" and
// "failures" address the batch itself.
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	// Pattern: metric:aggregate operator value
	// e.g., "latency_ms:p95 < 500"
	pattern := regexp.MustCompile(`^([a-z][a-z0-9_]*):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)
	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'latency_ms:p95 < 500')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	if !isValidAggregate(metric, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for metric %q (value metrics support p1-p99, avg, median, min, max, sum, stddev, count; calls/failures support count and rate)", aggregate, metric)
	}

	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}

	return result, nil
}

var percentilePattern = regexp.MustCompile(`^p([1-9][0-9]?)$`)

func isValidAggregate(metric, aggregate string) bool {
	switch metric {
	case "calls", "failures":
		return aggregate == "count" || aggregate == "rate"
	}
	switch aggregate {
	case "avg", "mean", "median", "min", "max", "sum", "stddev", "count":
		return true
	}
	return percentilePattern.MatchString(aggregate)
}

func isValidOperator(operator string) bool {
	valid := []string{"<", "<=", ">", ">=", "=="}
	for _, v := range valid {
		if operator == v {
			return true
		}
	}
	return false
}

func extractValue(t Threshold, records []metrics.Record, elapsed time.Duration) (float64, error) {
	switch t.Metric {
	case "calls":
		return extractCallsValue(t.Aggregate, records, elapsed)
	case "failures":
		return extractFailuresValue(t.Aggregate, records)
	default:
		return extractMetricValue(t, records)
	}
}

func extractCallsValue(aggregate string, records []metrics.Record, elapsed time.Duration) (float64, error) {
	switch aggregate {
	case "count":
		return float64(len(records)), nil
	case "rate":
		if elapsed <= 0 {
			return 0, nil
		}
		return float64(len(records)) / elapsed.Seconds(), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for calls (use 'count' or 'rate')", aggregate)
	}
}

func extractFailuresValue(aggregate string, records []metrics.Record) (float64, error) {
	failures := 0
	for _, r := range records {
		if !r.Success {
			failures++
		}
	}
	switch aggregate {
	case "count":
		return float64(failures), nil
	case "rate":
		if len(records) == 0 {
			return 0, nil
		}
		return float64(failures) / float64(len(records)), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for failures (use 'count' or 'rate')", aggregate)
	}
}

// extractMetricValue aggregates a value metric over the records carrying
// it. No observations degenerate to zero, matching the statistics engine.
func extractMetricValue(t Threshold, records []metrics.Record) (float64, error) {
	values := metrics.MetricValues(records, t.Metric)

	if m := percentilePattern.FindStringSubmatch(t.Aggregate); m != nil {
		p, _ := strconv.ParseFloat(m[1], 64)
		return stats.Percentiles(values, []float64{p})[p], nil
	}

	s := stats.Compute(values)
	switch t.Aggregate {
	case "avg", "mean":
		return s.Mean, nil
	case "median":
		return s.Median, nil
	case "min":
		return s.Min, nil
	case "max":
		return s.Max, nil
	case "sum":
		return s.Sum, nil
	case "stddev":
		return s.StdDev, nil
	case "count":
		return float64(s.Count), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for metric %q", t.Aggregate, t.Metric)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
