package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptgauge/promptgauge/internal/metrics"
)

// newRecordCmd appends one observation to a stored version from flags.
func newRecordCmd(a *app) *cobra.Command {
	var meta []string

	cmd := &cobra.Command{
		Use:   "record <prompt> <version>",
		Short: "Append a metric record to a version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := map[string]any{}
			capture := func(name, field string) {
				if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
					fields[field] = f.Value.String()
				}
			}
			capture("model", "model")
			capture("input-tokens", "input_tokens")
			capture("output-tokens", "output_tokens")
			capture("total-tokens", "total_tokens")
			capture("cost", "cost")
			capture("latency-ms", "latency_ms")
			capture("quality", "quality_score")
			capture("accuracy", "accuracy")
			capture("temperature", "temperature")
			capture("top-p", "top_p")
			capture("error", "error_message")

			if failed, _ := cmd.Flags().GetBool("failed"); failed {
				fields["success"] = false
			}

			extra, err := parseKeyValues(meta)
			if err != nil {
				return err
			}
			for key, value := range extra {
				fields[key] = value
			}

			rec, err := metrics.FromMap(fields)
			if err != nil {
				return fmt.Errorf("build record: %w", err)
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entry, err := a.resolveVersion(cmd, s, args[0], args[1])
			if err != nil {
				return err
			}
			if err := s.AppendRecord(cmd.Context(), entry.Name, entry.Version, rec); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Recorded observation for %s@%s\n", entry.Name, entry.Version)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.String("model", "", "model identifier")
	fs.Int("input-tokens", 0, "input token count")
	fs.Int("output-tokens", 0, "output token count")
	fs.Int("total-tokens", 0, "total token count (default input+output)")
	fs.Float64("cost", 0, "call cost in EUR")
	fs.Float64("latency-ms", 0, "call latency in milliseconds")
	fs.Float64("quality", 0, "quality score (conventionally 0..1)")
	fs.Float64("accuracy", 0, "accuracy (conventionally 0..1)")
	fs.Float64("temperature", 0, "generation temperature")
	fs.Float64("top-p", 0, "generation top_p")
	fs.Bool("failed", false, "mark the call as failed")
	fs.String("error", "", "error message for a failed call")
	fs.StringArrayVar(&meta, "meta", nil, "extra metadata as key=value (repeatable)")
	return cmd
}
