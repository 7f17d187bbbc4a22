package threshold

import (
	"math"
	"testing"
	"time"

	"github.com/promptgauge/promptgauge/internal/metrics"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError bool
	}{
		{
			name:  "valid p95 latency threshold",
			input: "latency_ms:p95 < 500",
			want: Threshold{
				Metric:    "latency_ms",
				Aggregate: "p95",
				Operator:  "<",
				Value:     500,
				Raw:       "latency_ms:p95 < 500",
			},
		},
		{
			name:  "valid failure rate threshold",
			input: "failures:rate < 0.01",
			want: Threshold{
				Metric:    "failures",
				Aggregate: "rate",
				Operator:  "<",
				Value:     0.01,
				Raw:       "failures:rate < 0.01",
			},
		},
		{
			name:  "valid cost sum with <=",
			input: "cost:sum <= 1.50",
			want: Threshold{
				Metric:    "cost",
				Aggregate: "sum",
				Operator:  "<=",
				Value:     1.5,
				Raw:       "cost:sum <= 1.50",
			},
		},
		{
			name:  "valid quality floor with >=",
			input: "quality_score:min >= 0.7",
			want: Threshold{
				Metric:    "quality_score",
				Aggregate: "min",
				Operator:  ">=",
				Value:     0.7,
				Raw:       "quality_score:min >= 0.7",
			},
		},
		{
			name:  "valid sample size",
			input: "calls:count >= 30",
			want: Threshold{
				Metric:    "calls",
				Aggregate: "count",
				Operator:  ">=",
				Value:     30,
				Raw:       "calls:count >= 30",
			},
		},
		{
			name:  "custom metric percentile",
			input: "relevance:p90 > 0.8",
			want: Threshold{
				Metric:    "relevance",
				Aggregate: "p90",
				Operator:  ">",
				Value:     0.8,
				Raw:       "relevance:p90 > 0.8",
			},
		},
		{
			name:      "empty string",
			input:     "",
			wantError: true,
		},
		{
			name:      "missing operator",
			input:     "latency_ms:p95 500",
			wantError: true,
		},
		{
			name:      "percentile out of range",
			input:     "latency_ms:p100 < 500",
			wantError: true,
		},
		{
			name:      "invalid operator",
			input:     "latency_ms:p95 << 500",
			wantError: true,
		},
		{
			name:      "value not a number",
			input:     "latency_ms:p95 < abc",
			wantError: true,
		},
		{
			name:      "percentile on failures",
			input:     "failures:p95 < 5",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("Parse() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if !tt.wantError && got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseMultiple(t *testing.T) {
	tests := []struct {
		name      string
		input     []string
		wantCount int
		wantError bool
	}{
		{
			name: "multiple valid thresholds",
			input: []string{
				"latency_ms:p95 < 500",
				"failures:rate < 0.01",
				"cost:sum < 2",
			},
			wantCount: 3,
		},
		{
			name:      "empty slice",
			input:     []string{},
			wantCount: 0,
		},
		{
			name: "one valid, one invalid",
			input: []string{
				"latency_ms:p95 < 500",
				"invalid threshold",
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMultiple(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("ParseMultiple() error = %v, wantError %v", err, tt.wantError)
				return
			}
			if !tt.wantError && len(got) != tt.wantCount {
				t.Errorf("ParseMultiple() returned %d thresholds, want %d", len(got), tt.wantCount)
			}
		})
	}
}

// batchRecords builds 10 records: latencies 100..1000ms, costs 0.01..0.10,
// quality 0.5..0.95, with the last record failed.
func batchRecords() []metrics.Record {
	records := make([]metrics.Record, 0, 10)
	for i := 0; i < 10; i++ {
		rec := metrics.NewRecord()
		rec.LatencyMS = metrics.Float(float64(i+1) * 100)
		rec.Cost = metrics.Float(float64(i+1) * 0.01)
		rec.QualityScore = metrics.Float(0.5 + float64(i)*0.05)
		rec.Success = i != 9
		records = append(records, rec)
	}
	return records
}

func TestEvaluator(t *testing.T) {
	records := batchRecords()

	tests := []struct {
		name       string
		thresholds []string
		wantPass   []bool
	}{
		{
			name: "all thresholds pass",
			thresholds: []string{
				"latency_ms:max <= 1000",
				"failures:rate <= 0.1",
				"calls:count >= 10",
			},
			wantPass: []bool{true, true, true},
		},
		{
			name: "some thresholds fail",
			thresholds: []string{
				"latency_ms:avg < 500",
				"failures:count == 0",
				"cost:sum < 1",
			},
			wantPass: []bool{false, false, true},
		},
		{
			name: "percentiles interpolate",
			thresholds: []string{
				"latency_ms:p50 <= 550",
				"latency_ms:p95 <= 955",
			},
			wantPass: []bool{true, true},
		},
		{
			name: "quality floor",
			thresholds: []string{
				"quality_score:min >= 0.5",
				"quality_score:min >= 0.6",
			},
			wantPass: []bool{true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thresholds, err := ParseMultiple(tt.thresholds)
			if err != nil {
				t.Fatalf("ParseMultiple() error = %v", err)
			}

			results := NewEvaluator(thresholds).Evaluate(records, 10*time.Second)
			if len(results) != len(tt.wantPass) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.wantPass))
			}
			for i, result := range results {
				if result.Pass != tt.wantPass[i] {
					t.Errorf("threshold[%d] %q: got pass=%v, want %v (actual=%.4f)",
						i, result.Threshold.Raw, result.Pass, tt.wantPass[i], result.Actual)
				}
			}
		})
	}
}

func TestEvaluatorCallsRate(t *testing.T) {
	records := batchRecords()
	thresholds, err := ParseMultiple([]string{"calls:rate >= 2"})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}

	results := NewEvaluator(thresholds).Evaluate(records, 5*time.Second)
	if !results[0].Pass {
		t.Errorf("10 calls in 5s should pass rate >= 2, actual %.2f", results[0].Actual)
	}
	if math.Abs(results[0].Actual-2) > 1e-9 {
		t.Errorf("calls:rate = %.4f, want 2", results[0].Actual)
	}

	// Zero elapsed degenerates the rate to 0 rather than dividing by zero.
	results = NewEvaluator(thresholds).Evaluate(records, 0)
	if results[0].Actual != 0 {
		t.Errorf("calls:rate with zero elapsed = %.4f, want 0", results[0].Actual)
	}
}

func TestEvaluatorMissingMetricIsZero(t *testing.T) {
	records := batchRecords()
	thresholds, err := ParseMultiple([]string{"accuracy:avg >= 0.5"})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}
	results := NewEvaluator(thresholds).Evaluate(records, time.Second)
	if results[0].Pass {
		t.Error("a metric with no observations should evaluate to 0 and fail the floor")
	}
	if results[0].Actual != 0 {
		t.Errorf("actual = %.4f, want 0", results[0].Actual)
	}
}

func TestEvaluatorCustomMetadataMetric(t *testing.T) {
	records := batchRecords()
	for i := range records {
		records[i].Metadata = map[string]any{"relevance": 0.9}
	}
	thresholds, err := ParseMultiple([]string{"relevance:avg >= 0.85"})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}
	results := NewEvaluator(thresholds).Evaluate(records, time.Second)
	if !results[0].Pass {
		t.Errorf("relevance:avg should pass, actual %.4f", results[0].Actual)
	}
}

func TestAnyFailed(t *testing.T) {
	if AnyFailed(nil) {
		t.Error("no results should not count as failed")
	}
	if AnyFailed([]Result{{Pass: true}, {Pass: true}}) {
		t.Error("all passing should not count as failed")
	}
	if !AnyFailed([]Result{{Pass: true}, {Pass: false}}) {
		t.Error("one failing result should count as failed")
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name     string
		actual   float64
		operator string
		expected float64
		want     bool
	}{
		{"less than true", 50, "<", 100, true},
		{"less than false", 100, "<", 50, false},
		{"less than equal", 100, "<", 100, false},
		{"less than or equal true", 50, "<=", 100, true},
		{"less than or equal equal", 100, "<=", 100, true},
		{"less than or equal false", 150, "<=", 100, false},
		{"greater than true", 150, ">", 100, true},
		{"greater than false", 50, ">", 100, false},
		{"greater than or equal equal", 100, ">=", 100, true},
		{"equal true", 100, "==", 100, true},
		{"equal false", 100, "==", 101, false},
		{"equal with floating point precision", 100.0000000001, "==", 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compareValues(tt.actual, tt.operator, tt.expected)
			if got != tt.want {
				t.Errorf("compareValues(%.2f, %s, %.2f) = %v, want %v",
					tt.actual, tt.operator, tt.expected, got, tt.want)
			}
		})
	}
}
