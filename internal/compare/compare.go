// Package compare evaluates one prompt version's metrics against another's
// and ranks versions by a chosen metric.
package compare

import (
	"math"
	"sort"

	"github.com/promptgauge/promptgauge/internal/metrics"
	"github.com/promptgauge/promptgauge/internal/stats"
)

// Metric direction labels.
const (
	HigherIsBetter = "higher_is_better"
	LowerIsBetter  = "lower_is_better"
	Neutral        = "neutral"
)

// DefaultRegressionThreshold is the relative change treated as a regression
// when callers do not choose one (5%).
const DefaultRegressionThreshold = 0.05

// directions maps metric names to which way improvement points. Metrics not
// listed here are neutral: they never count as improved on their own.
var directions = map[string]string{
	metrics.MetricQuality:     HigherIsBetter,
	metrics.MetricAccuracy:    HigherIsBetter,
	metrics.MetricSuccessRate: HigherIsBetter,

	metrics.MetricLatency:      LowerIsBetter,
	metrics.MetricCost:         LowerIsBetter,
	metrics.MetricErrorRate:    LowerIsBetter,
	metrics.MetricInputTokens:  LowerIsBetter,
	metrics.MetricOutputTokens: LowerIsBetter,
	metrics.MetricTotalTokens:  LowerIsBetter,
}

// Direction reports whether higher or lower values of the named metric are
// better, or Neutral when the metric is not in the table.
func Direction(metric string) string {
	if d, ok := directions[metric]; ok {
		return d
	}
	return Neutral
}

// Result compares one metric between a baseline and a candidate batch.
type Result struct {
	Metric        string      `json:"metric"`
	Direction     string      `json:"direction"`
	Baseline      stats.Stats `json:"baseline"`
	Candidate     stats.Stats `json:"new"`
	MeanDiff      float64     `json:"mean_diff"`
	MeanPctChange float64     `json:"mean_pct_change"`
	Improved      bool        `json:"improved"`
}

// Metrics compares every metric present in both maps. Each side's samples
// are summarized independently; the mean difference and percent change are
// candidate relative to baseline, and improved follows the direction table.
// Results come back sorted by metric name so output is deterministic.
func Metrics(baseline, candidate map[string][]float64) []Result {
	var names []string
	for name := range baseline {
		if _, ok := candidate[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	results := make([]Result, 0, len(names))
	for _, name := range names {
		baseStats := stats.Compute(baseline[name])
		candStats := stats.Compute(candidate[name])
		diff := candStats.Mean - baseStats.Mean

		pct := 0.0
		if baseStats.Mean != 0 {
			pct = diff / baseStats.Mean * 100
		}

		dir := Direction(name)
		improved := false
		switch dir {
		case HigherIsBetter:
			improved = diff > 0
		case LowerIsBetter:
			improved = diff < 0
		}

		results = append(results, Result{
			Metric:        name,
			Direction:     dir,
			Baseline:      baseStats,
			Candidate:     candStats,
			MeanDiff:      diff,
			MeanPctChange: pct,
			Improved:      improved,
		})
	}
	return results
}

// Regressions filters comparisons down to the ones that moved the wrong way
// by at least threshold (a fraction; 0.05 means 5%).
func Regressions(comparisons []Result, threshold float64) []Result {
	var regressed []Result
	for _, c := range comparisons {
		if !c.Improved && math.Abs(c.MeanPctChange) >= threshold*100 {
			regressed = append(regressed, c)
		}
	}
	return regressed
}

// VersionMetrics carries one version's samples grouped by metric name.
// Slices of these keep the caller's ordering, which decides ties.
type VersionMetrics struct {
	Version string               `json:"version"`
	Metrics map[string][]float64 `json:"metrics"`
}

// Rank is one version's position after ranking by a metric's mean.
type Rank struct {
	Version string  `json:"version"`
	Mean    float64 `json:"mean"`
}

// BestVersion returns the version whose mean for the metric is extremal,
// along with that mean. Ties keep the earliest version in the input. A
// version with no samples for the metric contributes a zero mean. Empty
// input yields an empty version name.
func BestVersion(versions []VersionMetrics, metric string, higherBetter bool) (string, float64) {
	best := ""
	bestMean := 0.0
	for i, v := range versions {
		mean := stats.Mean(v.Metrics[metric])
		if i == 0 || better(mean, bestMean, higherBetter) {
			best = v.Version
			bestMean = mean
		}
	}
	return best, bestMean
}

// RankVersions orders versions by the metric's mean, best first. The sort is
// stable: versions with equal means keep their input order.
func RankVersions(versions []VersionMetrics, metric string, higherBetter bool) []Rank {
	ranks := make([]Rank, 0, len(versions))
	for _, v := range versions {
		ranks = append(ranks, Rank{Version: v.Version, Mean: stats.Mean(v.Metrics[metric])})
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return better(ranks[i].Mean, ranks[j].Mean, higherBetter)
	})
	return ranks
}

func better(a, b float64, higherBetter bool) bool {
	if higherBetter {
		return a > b
	}
	return a < b
}

// ImprovementScore folds comparisons into one number in [-100, 100]. Each
// percent change is sign-adjusted so positive always means improvement
// (flipped for lower-is-better metrics; neutral metrics keep their raw
// sign), weighted by the metric's entry in weights (1.0 when absent), then
// averaged over the weights used.
func ImprovementScore(comparisons []Result, weights map[string]float64) float64 {
	var sum, weightTotal float64
	for _, c := range comparisons {
		weight := 1.0
		if w, ok := weights[c.Metric]; ok {
			weight = w
		}
		signed := c.MeanPctChange
		if Direction(c.Metric) == LowerIsBetter {
			signed = -signed
		}
		sum += signed * weight
		weightTotal += weight
	}
	if weightTotal == 0 {
		return 0
	}
	score := sum / weightTotal
	if score > 100 {
		return 100
	}
	if score < -100 {
		return -100
	}
	return score
}
