package metrics

import "github.com/promptgauge/promptgauge/internal/stats"

// Summary condenses a batch of records into headline numbers. Averages and
// extremes only consider records where the field was observed; with no
// observations every number is zero.
type Summary struct {
	CallCount    int     `json:"call_count"`
	SuccessCount int     `json:"success_count"`
	FailureCount int     `json:"failure_count"`
	SuccessRate  float64 `json:"success_rate"`

	TotalTokens     int     `json:"total_tokens"`
	AvgInputTokens  float64 `json:"avg_input_tokens"`
	AvgOutputTokens float64 `json:"avg_output_tokens"`
	AvgTotalTokens  float64 `json:"avg_total_tokens"`

	TotalCost float64 `json:"total_cost"`
	AvgCost   float64 `json:"avg_cost"`
	MinCost   float64 `json:"min_cost"`
	MaxCost   float64 `json:"max_cost"`

	AvgLatencyMS    float64 `json:"avg_latency_ms"`
	MinLatencyMS    float64 `json:"min_latency_ms"`
	MaxLatencyMS    float64 `json:"max_latency_ms"`
	MedianLatencyMS float64 `json:"median_latency_ms"`

	AvgQuality  float64 `json:"avg_quality"`
	AvgAccuracy float64 `json:"avg_accuracy"`

	ModelsUsed   []string `json:"models_used,omitempty"`
	PrimaryModel string   `json:"primary_model,omitempty"`
}

// ModelSummary pairs a model identifier with the summary of its records.
type ModelSummary struct {
	Model string `json:"model"`
	Summary
}

// Summarize computes a Summary over records in a single pass per field.
func Summarize(records []Record) Summary {
	s := Summary{CallCount: len(records)}
	if len(records) == 0 {
		return s
	}

	for _, r := range records {
		if r.Success {
			s.SuccessCount++
		} else {
			s.FailureCount++
		}
	}
	s.SuccessRate = float64(s.SuccessCount) / float64(s.CallCount)

	input := MetricValues(records, MetricInputTokens)
	output := MetricValues(records, MetricOutputTokens)
	total := MetricValues(records, MetricTotalTokens)
	s.AvgInputTokens = stats.Mean(input)
	s.AvgOutputTokens = stats.Mean(output)
	s.AvgTotalTokens = stats.Mean(total)
	for _, v := range total {
		s.TotalTokens += int(v)
	}

	if costs := MetricValues(records, MetricCost); len(costs) > 0 {
		cs := stats.Compute(costs)
		s.TotalCost = cs.Sum
		s.AvgCost = cs.Mean
		s.MinCost = cs.Min
		s.MaxCost = cs.Max
	}

	if latencies := MetricValues(records, MetricLatency); len(latencies) > 0 {
		ls := stats.Compute(latencies)
		s.AvgLatencyMS = ls.Mean
		s.MinLatencyMS = ls.Min
		s.MaxLatencyMS = ls.Max
		s.MedianLatencyMS = ls.Median
	}

	s.AvgQuality = stats.Mean(MetricValues(records, MetricQuality))
	s.AvgAccuracy = stats.Mean(MetricValues(records, MetricAccuracy))

	s.ModelsUsed, s.PrimaryModel = modelUsage(records)
	return s
}

// modelUsage returns the distinct models in first-seen order and the most
// frequent one. Frequency ties keep the model that appeared first.
func modelUsage(records []Record) ([]string, string) {
	var order []string
	counts := make(map[string]int)
	for _, r := range records {
		if r.Model == "" {
			continue
		}
		if _, seen := counts[r.Model]; !seen {
			order = append(order, r.Model)
		}
		counts[r.Model]++
	}
	primary := ""
	best := 0
	for _, model := range order {
		if counts[model] > best {
			primary = model
			best = counts[model]
		}
	}
	return order, primary
}
