package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptgauge/promptgauge/internal/compare"
	"github.com/promptgauge/promptgauge/internal/metrics"
	"github.com/promptgauge/promptgauge/internal/output"
)

func newCompareCmd(a *app) *cobra.Command {
	var regressionThreshold float64
	var weightFlags []string

	cmd := &cobra.Command{
		Use:   "compare <prompt> <baseline-version> <candidate-version>",
		Short: "Compare two versions across their shared metrics",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			weights, err := parseWeights(weightFlags)
			if err != nil {
				return err
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			_, baseRecords, err := a.loadRecords(cmd, s, args[0], args[1])
			if err != nil {
				return err
			}
			_, candRecords, err := a.loadRecords(cmd, s, args[0], args[2])
			if err != nil {
				return err
			}

			results := compare.Metrics(metricSeries(baseRecords), metricSeries(candRecords))
			regressions := compare.Regressions(results, regressionThreshold)
			score := compare.ImprovementScore(results, weights)

			if a.cfg.Output.JSON {
				return output.PrintJSON(a.stdout, struct {
					Baseline    string           `json:"baseline"`
					Candidate   string           `json:"candidate"`
					Comparisons []compare.Result `json:"comparisons"`
					Regressions []compare.Result `json:"regressions"`
					Score       float64          `json:"improvement_score"`
				}{args[1], args[2], results, regressions, score})
			}
			output.PrintComparison(a.stdout, results, regressions, score)
			return nil
		},
	}
	cmd.Flags().Float64Var(&regressionThreshold, "regression-threshold", compare.DefaultRegressionThreshold,
		"relative change treated as a regression (0.05 = 5%)")
	cmd.Flags().StringArrayVar(&weightFlags, "weight", nil, "metric weight as name=value (repeatable)")
	return cmd
}

// versionSeries loads every version of a prompt with its metric series, in
// the store's listing order (newest first). That order also breaks ties.
func (a *app) versionSeries(cmd *cobra.Command, prompt string) ([]compare.VersionMetrics, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	entries, err := s.ListVersions(cmd.Context(), prompt)
	if err != nil {
		return nil, err
	}
	versions := make([]compare.VersionMetrics, 0, len(entries))
	for _, entry := range entries {
		records, err := s.Records(cmd.Context(), prompt, entry.Version)
		if err != nil {
			return nil, err
		}
		versions = append(versions, compare.VersionMetrics{
			Version: entry.Version,
			Metrics: metricSeries(records),
		})
	}
	return versions, nil
}

// metricHigherBetter derives the ranking direction: explicit flag first,
// then the direction table, defaulting to higher-is-better for unknown
// metrics so ranking output reads naturally.
func metricHigherBetter(cmd *cobra.Command, metric string) bool {
	if cmd.Flags().Changed("lower-is-better") {
		lower, _ := cmd.Flags().GetBool("lower-is-better")
		return !lower
	}
	return compare.Direction(metric) != compare.LowerIsBetter
}

func newRankCmd(a *app) *cobra.Command {
	var metric string

	cmd := &cobra.Command{
		Use:   "rank <prompt>",
		Short: "Rank a prompt's versions by one metric's mean",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := a.versionSeries(cmd, args[0])
			if err != nil {
				return err
			}
			higherBetter := metricHigherBetter(cmd, metric)
			ranks := compare.RankVersions(versions, metric, higherBetter)

			if a.cfg.Output.JSON {
				return output.PrintJSON(a.stdout, struct {
					Metric         string         `json:"metric"`
					HigherIsBetter bool           `json:"higher_is_better"`
					Ranking        []compare.Rank `json:"ranking"`
				}{metric, higherBetter, ranks})
			}
			output.PrintRanking(a.stdout, ranks, metric, higherBetter)
			return nil
		},
	}
	cmd.Flags().StringVar(&metric, "metric", metrics.MetricQuality, "metric to rank by")
	cmd.Flags().Bool("lower-is-better", false, "treat lower means as better (default from the direction table)")
	return cmd
}

func newBestCmd(a *app) *cobra.Command {
	var metric string

	cmd := &cobra.Command{
		Use:   "best <prompt>",
		Short: "Pick the best version of a prompt for one metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := a.versionSeries(cmd, args[0])
			if err != nil {
				return err
			}
			if len(versions) == 0 {
				return fmt.Errorf("prompt %s has no versions", args[0])
			}
			higherBetter := metricHigherBetter(cmd, metric)
			best, mean := compare.BestVersion(versions, metric, higherBetter)

			if a.cfg.Output.JSON {
				return output.PrintJSON(a.stdout, struct {
					Metric  string  `json:"metric"`
					Version string  `json:"version"`
					Mean    float64 `json:"mean"`
				}{metric, best, mean})
			}
			fmt.Fprintf(a.stdout, "Best version by %s: %s (mean %.4f)\n", metric, best, mean)
			return nil
		},
	}
	cmd.Flags().StringVar(&metric, "metric", metrics.MetricQuality, "metric to judge by")
	cmd.Flags().Bool("lower-is-better", false, "treat lower means as better (default from the direction table)")
	return cmd
}
