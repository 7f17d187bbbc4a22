package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/promptgauge/promptgauge/internal/config"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Harness.Workers != 4 {
		t.Errorf("default workers = %d, want 4", cfg.Harness.Workers)
	}
	if cfg.Harness.Timeout != 60*time.Second {
		t.Errorf("default timeout = %s, want 60s", cfg.Harness.Timeout)
	}
	if cfg.Experiment.Metric != "quality_score" {
		t.Errorf("default metric = %q, want quality_score", cfg.Experiment.Metric)
	}
	if cfg.Target.APIKeyEnv != "PROMPTGAUGE_API_KEY" {
		t.Errorf("default api_key_env = %q", cfg.Target.APIKeyEnv)
	}
	if cfg.DataDir == "" {
		t.Error("default data dir is empty")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeConfigFile(t, "promptgauge.yaml", `
data_dir: /tmp/pg-data
target:
  base_url: http://localhost:8080/v1
  model: mistral-nemo
  temperature: 0.3
  max_tokens: 512
harness:
  workers: 8
  timeout: 45s
  rate: 2
experiment:
  metric: latency_ms
  min_samples: 10
  version_a: 1.0.0
  version_b: 1.1.0
thresholds:
  - "latency_ms:p95 < 800"
  - "failures:rate < 0.05"
extractors:
  - json_path: $.scores.quality
    metric: quality_score
  - regex: "score=([0-9.]+)"
    metric: rubric
pricing:
  local-llama:
    input: 0.10
    output: 0.20
tracing:
  enable: true
  endpoint: localhost:4317
  sample_rate: 0.5
output:
  json: true
  verbose: true
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/tmp/pg-data" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.Target.Model != "mistral-nemo" || cfg.Target.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("Target = %+v", cfg.Target)
	}
	if cfg.Target.Temperature == nil || *cfg.Target.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", cfg.Target.Temperature)
	}
	if cfg.Target.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want 512", cfg.Target.MaxTokens)
	}
	if cfg.Harness.Workers != 8 || cfg.Harness.Timeout != 45*time.Second || cfg.Harness.Rate != 2 {
		t.Errorf("Harness = %+v", cfg.Harness)
	}
	if cfg.Experiment.Metric != "latency_ms" || cfg.Experiment.MinSamples != 10 {
		t.Errorf("Experiment = %+v", cfg.Experiment)
	}
	if cfg.Experiment.VersionA != "1.0.0" || cfg.Experiment.VersionB != "1.1.0" {
		t.Errorf("Experiment arms = %+v", cfg.Experiment)
	}
	if len(cfg.Thresholds) != 2 {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
	if len(cfg.Extractors) != 2 || cfg.Extractors[0].JSONPath != "$.scores.quality" || cfg.Extractors[1].Regex == "" {
		t.Errorf("Extractors = %+v", cfg.Extractors)
	}
	if p, ok := cfg.Pricing["local-llama"]; !ok || p.Input != 0.10 || p.Output != 0.20 {
		t.Errorf("Pricing = %+v", cfg.Pricing)
	}
	if !cfg.Tracing.Enable || cfg.Tracing.Endpoint != "localhost:4317" || cfg.Tracing.SampleRate != 0.5 {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if !cfg.Output.JSON || !cfg.Output.Verbose {
		t.Errorf("Output = %+v", cfg.Output)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate on loaded config: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load("/nonexistent/promptgauge.yaml"); err == nil {
		t.Error("Load of missing file returned nil error")
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	path := writeConfigFile(t, "base.yaml", `
target:
  model: gpt-4o
harness:
  workers: 8
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("model", "", "")
	fs.Int("workers", 4, "")
	fs.Duration("timeout", 0, "")
	fs.Float64("temperature", 0, "")
	fs.Bool("json", false, "")
	fs.StringSlice("threshold", nil, "")
	if err := fs.Parse([]string{
		"--model=mistral-nemo",
		"--temperature=0.7",
		"--json",
		"--threshold=latency_ms:p95 < 300",
		"--threshold=failures:count == 0",
	}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if err := config.ApplyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("ApplyFlagOverrides: %v", err)
	}

	if cfg.Target.Model != "mistral-nemo" {
		t.Errorf("Model = %q, want flag override", cfg.Target.Model)
	}
	if cfg.Target.Temperature == nil || *cfg.Target.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.Target.Temperature)
	}
	// Unchanged flags leave the file values alone.
	if cfg.Harness.Workers != 8 {
		t.Errorf("Workers = %d, want file value 8", cfg.Harness.Workers)
	}
	if !cfg.Output.JSON {
		t.Error("JSON flag not applied")
	}
	if len(cfg.Thresholds) != 2 {
		t.Errorf("Thresholds = %v, want the two flag values", cfg.Thresholds)
	}
}
