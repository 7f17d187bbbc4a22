// Package output renders analysis results as aligned text, JSON, progress
// lines, and HTML reports.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/promptgauge/promptgauge/internal/compare"
	"github.com/promptgauge/promptgauge/internal/experiment"
	"github.com/promptgauge/promptgauge/internal/harness"
	"github.com/promptgauge/promptgauge/internal/metrics"
	"github.com/promptgauge/promptgauge/internal/stats"
	"github.com/promptgauge/promptgauge/internal/threshold"
)

// PrintSummary outputs a human-readable version summary.
func PrintSummary(w io.Writer, label string, s metrics.Summary) {
	fmt.Fprintf(w, "\n--- Summary: %s ---\n", label)
	fmt.Fprintf(w, "Calls:             %d\n", s.CallCount)
	fmt.Fprintf(w, "Successful:        %d\n", s.SuccessCount)
	fmt.Fprintf(w, "Failed:            %d\n", s.FailureCount)
	fmt.Fprintf(w, "Success Rate:      %.1f%%\n", s.SuccessRate*100)
	if s.TotalTokens > 0 {
		fmt.Fprintln(w, "\nTokens:")
		fmt.Fprintf(w, "  Total:           %d\n", s.TotalTokens)
		fmt.Fprintf(w, "  Avg Input:       %.1f\n", s.AvgInputTokens)
		fmt.Fprintf(w, "  Avg Output:      %.1f\n", s.AvgOutputTokens)
	}
	if s.TotalCost > 0 {
		fmt.Fprintln(w, "\nCost (EUR):")
		fmt.Fprintf(w, "  Total:           %.4f\n", s.TotalCost)
		fmt.Fprintf(w, "  Avg:             %.6f\n", s.AvgCost)
		fmt.Fprintf(w, "  Min:             %.6f\n", s.MinCost)
		fmt.Fprintf(w, "  Max:             %.6f\n", s.MaxCost)
	}
	if s.AvgLatencyMS > 0 {
		fmt.Fprintln(w, "\nLatency (ms):")
		fmt.Fprintf(w, "  Avg:             %.1f\n", s.AvgLatencyMS)
		fmt.Fprintf(w, "  Median:          %.1f\n", s.MedianLatencyMS)
		fmt.Fprintf(w, "  Min:             %.1f\n", s.MinLatencyMS)
		fmt.Fprintf(w, "  Max:             %.1f\n", s.MaxLatencyMS)
	}
	if s.AvgQuality > 0 {
		fmt.Fprintf(w, "\nAvg Quality:       %.2f\n", s.AvgQuality)
	}
	if s.AvgAccuracy > 0 {
		fmt.Fprintf(w, "Avg Accuracy:      %.2f\n", s.AvgAccuracy)
	}
	if s.PrimaryModel != "" {
		fmt.Fprintf(w, "Primary Model:     %s\n", s.PrimaryModel)
	}
}

// PrintModelSummaries outputs one summary block per model.
func PrintModelSummaries(w io.Writer, summaries []metrics.ModelSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}
	fmt.Fprintln(w, "\n--- Per-Model Breakdown ---")
	for _, ms := range summaries {
		fmt.Fprintf(w, "%s: calls=%d success=%.1f%% avg_latency=%.1fms avg_cost=%.6f\n",
			ms.Model, ms.CallCount, ms.SuccessRate*100, ms.AvgLatencyMS, ms.AvgCost)
	}
}

// PrintStats outputs descriptive statistics per metric, in input order.
func PrintStats(w io.Writer, named []stats.NamedStats) {
	if len(named) == 0 {
		fmt.Fprintln(w, "No metric values.")
		return
	}
	fmt.Fprintf(w, "%-16s %6s %10s %10s %10s %10s %10s\n",
		"METRIC", "COUNT", "MEAN", "MEDIAN", "STDDEV", "MIN", "MAX")
	for _, ns := range named {
		fmt.Fprintf(w, "%-16s %6d %10.3f %10.3f %10.3f %10.3f %10.3f\n",
			ns.Name, ns.Count, ns.Mean, ns.Median, ns.StdDev, ns.Min, ns.Max)
	}
}

// PrintComparison outputs a metric-by-metric comparison, the detected
// regressions, and the weighted improvement score.
func PrintComparison(w io.Writer, results []compare.Result, regressions []compare.Result, score float64) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No shared metrics to compare.")
		return
	}
	fmt.Fprintln(w, "\n--- Comparison (candidate vs baseline) ---")
	fmt.Fprintf(w, "%-16s %12s %12s %9s %9s  %s\n",
		"METRIC", "BASELINE", "CANDIDATE", "DIFF", "CHANGE", "VERDICT")
	for _, r := range results {
		verdict := "worse"
		if r.Improved {
			verdict = "better"
		} else if r.MeanDiff == 0 {
			verdict = "same"
		}
		fmt.Fprintf(w, "%-16s %12.3f %12.3f %+9.3f %+8.1f%%  %s\n",
			r.Metric, r.Baseline.Mean, r.Candidate.Mean, r.MeanDiff, r.MeanPctChange, verdict)
	}
	if len(regressions) > 0 {
		fmt.Fprintln(w, "\nRegressions:")
		for _, r := range regressions {
			fmt.Fprintf(w, "  %s: %+.1f%% (%s is worse)\n", r.Metric, r.MeanPctChange, r.Metric)
		}
	} else {
		fmt.Fprintln(w, "\nNo regressions detected.")
	}
	fmt.Fprintf(w, "Improvement Score: %+.1f (range -100..+100)\n", score)
}

// PrintRanking outputs versions ordered best-first for one metric.
func PrintRanking(w io.Writer, ranks []compare.Rank, metric string, higherBetter bool) {
	if len(ranks) == 0 {
		fmt.Fprintln(w, "No versions to rank.")
		return
	}
	direction := "lower is better"
	if higherBetter {
		direction = "higher is better"
	}
	fmt.Fprintf(w, "\n--- Ranking by %s (%s) ---\n", metric, direction)
	for i, r := range ranks {
		fmt.Fprintf(w, "%2d. %-20s %12.4f\n", i+1, r.Version, r.Mean)
	}
}

// PrintExperiment outputs a two-arm experiment result.
func PrintExperiment(w io.Writer, r experiment.Result) {
	fmt.Fprintf(w, "\n--- Experiment: %s ---\n", r.Metric)
	labelA, labelB := "A", "B"
	if r.VersionA != "" {
		labelA = fmt.Sprintf("A (%s)", r.VersionA)
	}
	if r.VersionB != "" {
		labelB = fmt.Sprintf("B (%s)", r.VersionB)
	}
	fmt.Fprintf(w, "%-16s mean=%.4f samples=%d\n", labelA, r.MeanA, r.SamplesA)
	fmt.Fprintf(w, "%-16s mean=%.4f samples=%d\n", labelB, r.MeanB, r.SamplesB)
	winner := r.Winner
	if r.WinnerVersion != "" {
		winner = fmt.Sprintf("%s (%s)", r.Winner, r.WinnerVersion)
	}
	fmt.Fprintf(w, "Winner:          %s\n", winner)
	fmt.Fprintf(w, "Improvement:     %+.1f%%\n", r.Improvement)
	fmt.Fprintf(w, "Confidence:      %.0f%%\n", r.Confidence*100)
}

// PrintTrend outputs the linear tendency of a metric over time.
func PrintTrend(w io.Writer, metric string, t stats.Trend) {
	fmt.Fprintf(w, "\n--- Trend: %s ---\n", metric)
	fmt.Fprintf(w, "Trend:             %s\n", t.Trend)
	if t.Direction != "" {
		fmt.Fprintf(w, "Direction:         %s\n", t.Direction)
	}
	fmt.Fprintf(w, "Slope:             %+.4f per observation\n", t.Slope)
	fmt.Fprintf(w, "Start -> End:      %.3f -> %.3f (%+.1f%%)\n", t.StartValue, t.EndValue, t.PctChange)
}

// PrintOutliers outputs the outlier positions and values for a metric.
func PrintOutliers(w io.Writer, metric string, values []float64, indices []int) {
	fmt.Fprintf(w, "\n--- Outliers: %s ---\n", metric)
	if len(indices) == 0 {
		fmt.Fprintf(w, "No outliers in %d values.\n", len(values))
		return
	}
	fmt.Fprintf(w, "%d of %d values:\n", len(indices), len(values))
	for _, idx := range indices {
		if idx >= 0 && idx < len(values) {
			fmt.Fprintf(w, "  [%d] %.3f\n", idx, values[idx])
		}
	}
}

// PrintThresholds outputs pass/fail per threshold and an overall verdict.
func PrintThresholds(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(w, "\n--- Thresholds ---")
	for _, r := range results {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(w, "[%s] %s (actual: %.4f)\n", status, r.Threshold.Raw, r.Actual)
	}
	if threshold.AnyFailed(results) {
		fmt.Fprintln(w, "Thresholds: FAILED")
	} else {
		fmt.Fprintln(w, "Thresholds: PASSED")
	}
}

// PrintRun outputs the headline numbers of a batch run.
func PrintRun(w io.Writer, s harness.RunSummary) {
	fmt.Fprintln(w, "\n--- Run Results ---")
	fmt.Fprintf(w, "Cases:             %d\n", s.Total)
	fmt.Fprintf(w, "Passed:            %d\n", s.Passed)
	fmt.Fprintf(w, "Failed:            %d\n", s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "Skipped:           %d\n", s.Skipped)
	}
	fmt.Fprintf(w, "Pass Rate:         %.1f%%\n", s.PassRate*100)
	fmt.Fprintf(w, "Duration:          %.0fms\n", s.DurationMs)
	if len(s.Metrics) > 0 {
		fmt.Fprintln(w)
		PrintStats(w, s.Metrics)
	}
}

// PrintJSON outputs any value as two-space-indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
