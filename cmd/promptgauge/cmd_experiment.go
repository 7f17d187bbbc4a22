package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/promptgauge/promptgauge/internal/cases"
	"github.com/promptgauge/promptgauge/internal/dashboard"
	"github.com/promptgauge/promptgauge/internal/experiment"
	"github.com/promptgauge/promptgauge/internal/harness"
	"github.com/promptgauge/promptgauge/internal/metrics"
	"github.com/promptgauge/promptgauge/internal/output"
	"github.com/promptgauge/promptgauge/internal/store"
	"github.com/promptgauge/promptgauge/internal/tracing"
)

// armRecorder feeds each case's observed metric into one experiment arm as
// the batch runs, so live views see the arms fill up.
type armRecorder struct {
	inner  harness.Executor
	exp    *experiment.Runner
	arm    string
	metric string
}

func (r *armRecorder) Execute(ctx context.Context, c harness.Case) (harness.Outcome, error) {
	out, err := r.inner.Execute(ctx, c)
	if v, ok := out.Record.MetricValue(r.metric); ok {
		_ = r.exp.Log(r.arm, v)
	}
	return out, err
}

func newExperimentCmd(a *app) *cobra.Command {
	var casesPath string
	var noStore bool

	cmd := &cobra.Command{
		Use:   "experiment <prompt> <version-a> <version-b>",
		Short: "A/B test two versions of a prompt",
		Long: `A/B test two versions of a prompt on one metric.

With --cases, every case is executed against both versions and the arms
fill live. Without --cases, the versions' stored records are compared.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, verA, verB := args[0], args[1], args[2]
			metric := a.cfg.Experiment.Metric

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entryA, err := a.resolveVersion(cmd, s, prompt, verA)
			if err != nil {
				return err
			}
			entryB, err := a.resolveVersion(cmd, s, prompt, verB)
			if err != nil {
				return err
			}
			if entryA.Version == entryB.Version {
				return fmt.Errorf("experiment needs two distinct versions, got %s twice", entryA.Version)
			}

			exp := experiment.NewLabeled(metric, entryA.Version, entryB.Version)

			if casesPath != "" {
				if err := a.runExperimentArms(cmd, s, exp, entryA, entryB, casesPath, noStore); err != nil {
					return err
				}
			} else {
				if err := a.logStoredArms(cmd, s, exp, prompt, entryA.Version, entryB.Version, metric); err != nil {
					return err
				}
			}

			result, err := exp.Result()
			if err != nil {
				return err
			}

			if a.cfg.Output.JSON {
				return output.PrintJSON(a.stdout, result)
			}
			output.PrintExperiment(a.stdout, result)
			if !exp.Ready(a.cfg.Experiment.MinSamples) {
				fmt.Fprintf(a.stdout, "Note: below %d samples per arm; confidence is reduced.\n",
					a.cfg.Experiment.MinSamples)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&casesPath, "cases", "", "cases file to execute against both versions")
	fs.BoolVar(&noStore, "no-store", false, "do not append the arms' records to the store")
	fs.String("metric", "", "metric to compare (default quality_score)")
	fs.Int("min-samples", 0, "samples per arm for full confidence")
	addTargetFlags(fs)
	addHarnessFlags(fs)
	fs.Bool("dashboard", false, "show a live terminal dashboard")
	fs.Bool("trace", false, "enable OpenTelemetry tracing")
	return cmd
}

// logStoredArms fills the arms from records already in the store.
func (a *app) logStoredArms(cmd *cobra.Command, s *store.Store, exp *experiment.Runner, prompt, verA, verB, metric string) error {
	recordsA, err := s.Records(cmd.Context(), prompt, verA)
	if err != nil {
		return err
	}
	recordsB, err := s.Records(cmd.Context(), prompt, verB)
	if err != nil {
		return err
	}
	if err := exp.LogBatch(experiment.ArmA, metrics.MetricValues(recordsA, metric)); err != nil {
		return err
	}
	return exp.LogBatch(experiment.ArmB, metrics.MetricValues(recordsB, metric))
}

// runExperimentArms executes the cases file against both versions, arm A
// first, sharing one collector so progress spans the whole experiment.
func (a *app) runExperimentArms(cmd *cobra.Command, s *store.Store, exp *experiment.Runner, entryA, entryB store.VersionEntry, casesPath string, noStore bool) error {
	cs, err := cases.Load(casesPath)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, a.cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = provider.Shutdown(shutdownCtx)
	}()

	collector := harness.NewCollector()

	var dash *dashboard.Dashboard
	var progress *output.ProgressReporter
	switch {
	case a.cfg.Output.Dashboard:
		dash, err = dashboard.New(collector, dashboard.RunConfig{
			Prompt:     entryA.Name,
			Model:      a.cfg.Target.Model,
			Total:      len(cs),
			Workers:    a.cfg.Harness.Workers,
			Rate:       a.cfg.Harness.Rate,
			Timeout:    a.cfg.Harness.Timeout,
			ConfigFile: a.cfg.ConfigFile,
		}, exp, cancel)
		if err != nil {
			return err
		}
		dash.Start()
		defer dash.Stop()
	case !a.cfg.Output.JSON:
		progress = output.NewProgressReporter(collector, 2*len(cs), progressInterval, a.stderr)
		progress.Start()
		defer progress.Stop()
	}

	arms := []struct {
		arm   string
		entry store.VersionEntry
	}{
		{experiment.ArmA, entryA},
		{experiment.ArmB, entryB},
	}
	for _, armRun := range arms {
		exec := &armRecorder{
			inner:  a.newTarget(armRun.entry, provider.Tracer()),
			exp:    exp,
			arm:    armRun.arm,
			metric: exp.Metric(),
		}
		runner := harness.New(exec, a.harnessOptions(collector))
		if _, err := runner.Run(ctx, cs); err != nil {
			return err
		}
		if !noStore {
			records := runner.Aggregator().Records()
			if len(records) > 0 {
				if err := s.AppendRecords(cmd.Context(), armRun.entry.Name, armRun.entry.Version, records); err != nil {
					return fmt.Errorf("store arm %s records: %w", armRun.arm, err)
				}
			}
		}
	}
	return nil
}
