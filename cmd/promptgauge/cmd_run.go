package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/promptgauge/promptgauge/internal/cases"
	"github.com/promptgauge/promptgauge/internal/dashboard"
	"github.com/promptgauge/promptgauge/internal/harness"
	"github.com/promptgauge/promptgauge/internal/output"
	"github.com/promptgauge/promptgauge/internal/store"
	"github.com/promptgauge/promptgauge/internal/target"
	"github.com/promptgauge/promptgauge/internal/threshold"
	"github.com/promptgauge/promptgauge/internal/tracing"
)

const progressInterval = time.Second

// newTarget builds the chat executor for one stored version.
func (a *app) newTarget(entry store.VersionEntry, tracer trace.Tracer) *target.Chat {
	return target.New(target.Options{
		BaseURL:      a.cfg.Target.BaseURL,
		APIKey:       os.Getenv(a.cfg.Target.APIKeyEnv),
		Model:        a.cfg.Target.Model,
		Temperature:  a.cfg.Target.Temperature,
		TopP:         a.cfg.Target.TopP,
		MaxTokens:    a.cfg.Target.MaxTokens,
		SystemPrompt: entry.SystemPrompt,
		UserPrompt:   entry.UserPrompt,
		Rules:        a.extractRules(),
		Prices:       a.priceTable(),
		Tracer:       tracer,
		Logger:       a.logger,
	})
}

func (a *app) harnessOptions(collector *harness.Collector) harness.Options {
	return harness.Options{
		Workers:       a.cfg.Harness.Workers,
		Timeout:       a.cfg.Harness.Timeout,
		RatePerSecond: a.cfg.Harness.Rate,
		Retry:         harness.RetryPolicy{MaxAttempts: a.cfg.Harness.Retries + 1, Delay: 500 * time.Millisecond},
		Logger:        a.logger,
		Collector:     collector,
	}
}

func newRunCmd(a *app) *cobra.Command {
	var casesPath string
	var noStore bool

	cmd := &cobra.Command{
		Use:   "run <prompt> [version]",
		Short: "Run a cases file against a version and record the results",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := cases.Load(casesPath)
			if err != nil {
				return err
			}

			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ver := ""
			if len(args) == 2 {
				ver = args[1]
			}
			entry, err := a.resolveVersion(cmd, s, args[0], ver)
			if err != nil {
				return err
			}

			thresholds, err := threshold.ParseMultiple(a.cfg.Thresholds)
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
			exec := a.newTarget(entry, provider.Tracer())
			runner := harness.New(exec, a.harnessOptions(collector))

			runCtx, runSpan := tracing.StartRunSpan(ctx, provider.Tracer(), entry.Name, entry.Version, len(cs))

			var dash *dashboard.Dashboard
			var progress *output.ProgressReporter
			switch {
			case a.cfg.Output.Dashboard:
				dash, err = dashboard.New(collector, dashboard.RunConfig{
					Prompt:     entry.Name,
					Version:    entry.Version,
					Model:      a.cfg.Target.Model,
					Total:      len(cs),
					Workers:    a.cfg.Harness.Workers,
					Rate:       a.cfg.Harness.Rate,
					Timeout:    a.cfg.Harness.Timeout,
					ConfigFile: a.cfg.ConfigFile,
				}, nil, cancel)
				if err != nil {
					return err
				}
				dash.Start()
			case !a.cfg.Output.JSON:
				progress = output.NewProgressReporter(collector, len(cs), progressInterval, a.stderr)
				progress.Start()
			}

			start := time.Now()
			results, runErr := runner.Run(runCtx, cs)
			elapsed := time.Since(start)

			if progress != nil {
				progress.Stop()
			}
			if dash != nil {
				dash.Stop()
			}

			summary := harness.Summarize(results, elapsed)
			records := runner.Aggregator().Records()

			evaluator := threshold.NewEvaluator(thresholds)
			thresholdResults := evaluator.Evaluate(records, elapsed)

			tracing.EndSpan(runSpan, runErr)

			if !noStore && len(records) > 0 {
				if err := s.AppendRecords(cmd.Context(), entry.Name, entry.Version, records); err != nil {
					return fmt.Errorf("store run records: %w", err)
				}
			}

			if a.cfg.Output.JSON {
				if err := output.PrintJSON(a.stdout, struct {
					Prompt     string             `json:"prompt"`
					Version    string             `json:"version"`
					Run        harness.RunSummary `json:"run"`
					Thresholds []threshold.Result `json:"thresholds,omitempty"`
				}{entry.Name, entry.Version, summary, thresholdResults}); err != nil {
					return err
				}
			} else {
				output.PrintRun(a.stdout, summary)
				output.PrintThresholds(a.stdout, thresholdResults)
			}

			if a.cfg.Output.HTML != "" {
				data := output.HTMLReportData{
					Prompt:           entry.Name,
					Version:          entry.Version,
					Model:            a.cfg.Target.Model,
					Run:              summary,
					ThresholdResults: thresholdResults,
				}
				if err := output.WriteHTMLReport(a.cfg.Output.HTML, data); err != nil {
					return err
				}
				if !a.cfg.Output.JSON {
					fmt.Fprintf(a.stdout, "HTML report written to %s\n", a.cfg.Output.HTML)
				}
			}

			if runErr != nil {
				return runErr
			}
			if threshold.AnyFailed(thresholdResults) {
				return errThresholdsFailed
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&casesPath, "cases", "", "path to a CSV or JSON cases file (required)")
	fs.BoolVar(&noStore, "no-store", false, "do not append the run's records to the store")
	addTargetFlags(fs)
	addHarnessFlags(fs)
	fs.StringArray("threshold", nil, "threshold expression, e.g. 'latency_ms:p95 < 500' (repeatable)")
	fs.String("html", "", "write an HTML report to this path")
	fs.Bool("dashboard", false, "show a live terminal dashboard")
	fs.Bool("trace", false, "enable OpenTelemetry tracing")
	_ = cmd.MarkFlagRequired("cases")
	return cmd
}
