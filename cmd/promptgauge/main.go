// Command promptgauge records, analyzes, and compares per-call performance
// samples for versions of a prompt.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/promptgauge/promptgauge/internal/config"
	"github.com/promptgauge/promptgauge/internal/logging"
	"github.com/promptgauge/promptgauge/internal/store"
)

// errThresholdsFailed marks a run whose thresholds did not pass; main turns
// it into exit code 2 so CI can tell gate failures from hard errors.
var errThresholdsFailed = errors.New("thresholds failed")

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		if errors.Is(err, errThresholdsFailed) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the loaded configuration and shared sinks into command
// implementations.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "promptgauge",
		Short:         "Measure, compare, and A/B test prompt versions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := config.ApplyFlagOverrides(cfg, cmd.Flags()); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger, err = logging.New(cfg.Output.Verbose, cfg.Output.LogJSON)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "path to a YAML or JSON config file")
	pf.String("data-dir", "", "data directory (default $PROMPTGAUGE_DATA_DIR or ~/.promptgauge)")
	pf.Bool("json", false, "emit results as JSON")
	pf.Bool("verbose", false, "enable debug logging")
	pf.Bool("log-json", false, "emit logs as JSON")

	root.AddCommand(
		newRecordCmd(a),
		newSummaryCmd(a),
		newStatsCmd(a),
		newOutliersCmd(a),
		newTrendCmd(a),
		newCompareCmd(a),
		newRankCmd(a),
		newBestCmd(a),
		newRunCmd(a),
		newExperimentCmd(a),
		newVersionCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newPricingCmd(a),
	)
	return root
}

// openStore opens the configured data directory. Badger diagnostics only
// flow to the log in verbose mode; they are noisy at production level.
func (a *app) openStore() (*store.Store, error) {
	var logger *zap.Logger
	if a.cfg.Output.Verbose {
		logger = a.logger
	}
	return store.Open(a.cfg.DataDir, store.Options{Logger: logger})
}

// resolveVersion maps the pseudo-version "latest" (or an empty string) to
// the prompt's highest stored version.
func (a *app) resolveVersion(cmd *cobra.Command, s *store.Store, prompt, ver string) (store.VersionEntry, error) {
	if ver == "" || ver == "latest" {
		return s.LatestVersion(cmd.Context(), prompt)
	}
	return s.GetVersion(cmd.Context(), prompt, ver)
}
