package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptgauge/promptgauge/internal/metrics"
	"github.com/promptgauge/promptgauge/internal/output"
	"github.com/promptgauge/promptgauge/internal/stats"
	"github.com/promptgauge/promptgauge/internal/store"
)

// loadRecords fetches a version's records oldest-first.
func (a *app) loadRecords(cmd *cobra.Command, s *store.Store, prompt, ver string) (store.VersionEntry, []metrics.Record, error) {
	entry, err := a.resolveVersion(cmd, s, prompt, ver)
	if err != nil {
		return store.VersionEntry{}, nil, err
	}
	records, err := s.Records(cmd.Context(), entry.Name, entry.Version)
	return entry, records, err
}

func newSummaryCmd(a *app) *cobra.Command {
	var byModel bool

	cmd := &cobra.Command{
		Use:   "summary <prompt> [version]",
		Short: "Summarize a version's recorded metrics",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ver := ""
			if len(args) == 2 {
				ver = args[1]
			}
			entry, records, err := a.loadRecords(cmd, s, args[0], ver)
			if err != nil {
				return err
			}

			agg := metrics.NewAggregator()
			agg.AddBatch(records)

			if byModel {
				summaries := agg.SummaryByModel()
				if a.cfg.Output.JSON {
					return output.PrintJSON(a.stdout, summaries)
				}
				output.PrintModelSummaries(a.stdout, summaries)
				return nil
			}

			summary := agg.Summary()
			if a.cfg.Output.JSON {
				return output.PrintJSON(a.stdout, summary)
			}
			output.PrintSummary(a.stdout, fmt.Sprintf("%s@%s", entry.Name, entry.Version), summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&byModel, "by-model", false, "break the summary down per model")
	return cmd
}

// percentileRow pairs a percentile with its value for ordered output.
type percentileRow struct {
	Percentile float64 `json:"percentile"`
	Value      float64 `json:"value"`
}

func newStatsCmd(a *app) *cobra.Command {
	var metric string
	var percentiles []float64

	cmd := &cobra.Command{
		Use:   "stats <prompt> [version]",
		Short: "Descriptive statistics and percentiles for one metric",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ver := ""
			if len(args) == 2 {
				ver = args[1]
			}
			_, records, err := a.loadRecords(cmd, s, args[0], ver)
			if err != nil {
				return err
			}

			values := metrics.MetricValues(records, metric)
			computed := stats.Compute(values)

			ps := percentiles
			if len(ps) == 0 {
				ps = stats.DefaultPercentiles
			}
			byPercentile := stats.Percentiles(values, ps)
			rows := make([]percentileRow, 0, len(ps))
			for _, p := range ps {
				rows = append(rows, percentileRow{Percentile: p, Value: byPercentile[p]})
			}

			if a.cfg.Output.JSON {
				return output.PrintJSON(a.stdout, struct {
					Metric      string          `json:"metric"`
					Stats       stats.Stats     `json:"stats"`
					Percentiles []percentileRow `json:"percentiles"`
				}{metric, computed, rows})
			}

			output.PrintStats(a.stdout, []stats.NamedStats{{Name: metric, Stats: computed}})
			fmt.Fprintln(a.stdout, "\nPercentiles:")
			for _, row := range rows {
				fmt.Fprintf(a.stdout, "  p%-4g %12.3f\n", row.Percentile, row.Value)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&metric, "metric", metrics.MetricLatency, "metric to analyze")
	cmd.Flags().Float64SliceVar(&percentiles, "percentiles", nil, "percentiles to report (default 25,50,75,90,95,99)")
	return cmd
}

func newOutliersCmd(a *app) *cobra.Command {
	var metric, method string
	var threshold float64

	cmd := &cobra.Command{
		Use:   "outliers <prompt> [version]",
		Short: "Find outlying observations of one metric",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ver := ""
			if len(args) == 2 {
				ver = args[1]
			}
			_, records, err := a.loadRecords(cmd, s, args[0], ver)
			if err != nil {
				return err
			}

			values := metrics.MetricValues(records, metric)
			indices, err := stats.DetectOutliers(values, method, threshold)
			if err != nil {
				return err
			}

			if a.cfg.Output.JSON {
				return output.PrintJSON(a.stdout, struct {
					Metric  string    `json:"metric"`
					Method  string    `json:"method"`
					Count   int       `json:"count"`
					Indices []int     `json:"indices"`
					Values  []float64 `json:"values"`
				}{metric, method, len(values), indices, values})
			}
			output.PrintOutliers(a.stdout, metric, values, indices)
			return nil
		},
	}
	cmd.Flags().StringVar(&metric, "metric", metrics.MetricLatency, "metric to analyze")
	cmd.Flags().StringVar(&method, "method", stats.MethodIQR, "detection method: iqr or zscore")
	cmd.Flags().Float64Var(&threshold, "threshold", stats.DefaultOutlierThreshold, "detection threshold")
	return cmd
}

func newTrendCmd(a *app) *cobra.Command {
	var metric string

	cmd := &cobra.Command{
		Use:   "trend <prompt> [version]",
		Short: "Linear tendency of one metric over recorded history",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ver := ""
			if len(args) == 2 {
				ver = args[1]
			}
			_, records, err := a.loadRecords(cmd, s, args[0], ver)
			if err != nil {
				return err
			}

			// Records come back oldest-first, so indexes track chronology.
			trend := stats.CalculateTrend(metrics.MetricValues(records, metric))

			if a.cfg.Output.JSON {
				return output.PrintJSON(a.stdout, struct {
					Metric string      `json:"metric"`
					Trend  stats.Trend `json:"trend"`
				}{metric, trend})
			}
			output.PrintTrend(a.stdout, metric, trend)
			return nil
		},
	}
	cmd.Flags().StringVar(&metric, "metric", metrics.MetricLatency, "metric to analyze")
	return cmd
}
