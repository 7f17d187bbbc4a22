package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/promptgauge/promptgauge/internal/threshold"
)

// Config is the full promptgauge configuration: where the store lives, how
// the target model is called, how batches run, and how results come out.
type Config struct {
	DataDir    string                   `mapstructure:"data_dir"`
	Target     TargetConfig             `mapstructure:"target"`
	Harness    HarnessConfig            `mapstructure:"harness"`
	Experiment ExperimentConfig         `mapstructure:"experiment"`
	Thresholds []string                 `mapstructure:"thresholds"`
	Extractors []ExtractorRule          `mapstructure:"extractors"`
	Pricing    map[string]PriceOverride `mapstructure:"pricing"`
	Tracing    TracingConfig            `mapstructure:"tracing"`
	Output     OutputConfig             `mapstructure:"output"`
	ConfigFile string                   `mapstructure:"-"`
}

// TargetConfig describes the model endpoint cases are executed against.
type TargetConfig struct {
	BaseURL     string   `mapstructure:"base_url"`
	Model       string   `mapstructure:"model"`
	APIKeyEnv   string   `mapstructure:"api_key_env"`
	Temperature *float64 `mapstructure:"temperature"`
	TopP        *float64 `mapstructure:"top_p"`
	MaxTokens   int      `mapstructure:"max_tokens"`
}

// HarnessConfig controls batch execution.
type HarnessConfig struct {
	Workers int           `mapstructure:"workers"`
	Timeout time.Duration `mapstructure:"timeout"`
	Rate    int           `mapstructure:"rate"` // cases per second, 0 = unlimited
	Retries int           `mapstructure:"retries"`
}

// ExperimentConfig controls A/B comparisons.
type ExperimentConfig struct {
	Metric     string `mapstructure:"metric"`
	MinSamples int    `mapstructure:"min_samples"`
	VersionA   string `mapstructure:"version_a"`
	VersionB   string `mapstructure:"version_b"`
}

// ExtractorRule configures one response-body metric extraction.
type ExtractorRule struct {
	JSONPath string `mapstructure:"json_path"`
	Regex    string `mapstructure:"regex"`
	Metric   string `mapstructure:"metric"`
}

// PriceOverride sets or overrides a model's EUR-per-1M-token prices.
type PriceOverride struct {
	Input  float64 `mapstructure:"input"`
	Output float64 `mapstructure:"output"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enable      bool    `mapstructure:"enable"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Enabled reports whether spans should be produced at all.
func (t TracingConfig) Enabled() bool {
	return t.Enable
}

// OutputConfig controls how results are presented.
type OutputConfig struct {
	JSON      bool   `mapstructure:"json"`
	HTML      string `mapstructure:"html"`
	Dashboard bool   `mapstructure:"dashboard"`
	Verbose   bool   `mapstructure:"verbose"`
	LogJSON   bool   `mapstructure:"log_json"`
}

// ValidationError accumulates every problem found in a config so users fix
// them in one pass.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.DataDir) == "" {
		issues = append(issues, "data_dir is required")
	}

	issues = append(issues, validateTarget(c.Target)...)
	issues = append(issues, validateHarness(c.Harness)...)
	issues = append(issues, validateExperiment(c.Experiment)...)
	issues = append(issues, validateThresholds(c.Thresholds)...)
	issues = append(issues, validateExtractors(c.Extractors)...)
	issues = append(issues, validatePricing(c.Pricing)...)
	issues = append(issues, validateTracing(c.Tracing)...)

	if c.Output.Dashboard && c.Output.JSON {
		issues = append(issues, "output: dashboard and json are mutually exclusive")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTarget(t TargetConfig) []string {
	var issues []string
	if t.Temperature != nil && (*t.Temperature < 0 || *t.Temperature > 2) {
		issues = append(issues, fmt.Sprintf("target: temperature must be between 0 and 2, got %g", *t.Temperature))
	}
	if t.TopP != nil && (*t.TopP < 0 || *t.TopP > 1) {
		issues = append(issues, fmt.Sprintf("target: top_p must be between 0 and 1, got %g", *t.TopP))
	}
	if t.MaxTokens < 0 {
		issues = append(issues, "target: max_tokens must be >= 0")
	}
	return issues
}

func validateHarness(h HarnessConfig) []string {
	var issues []string
	if h.Workers < 1 {
		issues = append(issues, "harness: workers must be >= 1")
	}
	if h.Timeout < 0 {
		issues = append(issues, "harness: timeout must be >= 0")
	}
	if h.Rate < 0 {
		issues = append(issues, "harness: rate must be >= 0")
	}
	if h.Retries < 0 {
		issues = append(issues, "harness: retries must be >= 0")
	}
	return issues
}

func validateExperiment(e ExperimentConfig) []string {
	var issues []string
	if e.MinSamples < 0 {
		issues = append(issues, "experiment: min_samples must be >= 0")
	}
	return issues
}

func validateThresholds(specs []string) []string {
	var issues []string
	for idx, raw := range specs {
		if _, err := threshold.Parse(raw); err != nil {
			issues = append(issues, fmt.Sprintf("thresholds[%d]: %v", idx, err))
		}
	}
	return issues
}

func validateExtractors(rules []ExtractorRule) []string {
	var issues []string
	for idx, rule := range rules {
		if strings.TrimSpace(rule.Metric) == "" {
			issues = append(issues, fmt.Sprintf("extractors[%d]: metric is required", idx))
		}
		hasPath := strings.TrimSpace(rule.JSONPath) != ""
		hasRegex := strings.TrimSpace(rule.Regex) != ""
		if hasPath == hasRegex {
			issues = append(issues, fmt.Sprintf("extractors[%d]: exactly one of json_path or regex is required", idx))
		}
	}
	return issues
}

func validatePricing(overrides map[string]PriceOverride) []string {
	var issues []string
	for model, price := range overrides {
		if price.Input < 0 || price.Output < 0 {
			issues = append(issues, fmt.Sprintf("pricing[%s]: prices must be >= 0", model))
		}
	}
	return issues
}

func validateTracing(t TracingConfig) []string {
	var issues []string
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be \"grpc\" or \"http\", got %q", t.Protocol))
	}
	return issues
}
