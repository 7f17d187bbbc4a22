package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DataDirEnv overrides the default data directory location.
const DataDirEnv = "PROMPTGAUGE_DATA_DIR"

// Default returns a config with the built-in defaults applied. The data
// directory falls back to ~/.promptgauge when neither the environment nor
// a config file names one.
func Default() *Config {
	dataDir := os.Getenv(DataDirEnv)
	if dataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataDir = filepath.Join(home, ".promptgauge")
		} else {
			dataDir = ".promptgauge"
		}
	}
	return &Config{
		DataDir: dataDir,
		Target: TargetConfig{
			APIKeyEnv: "PROMPTGAUGE_API_KEY",
		},
		Harness: HarnessConfig{
			Workers: 4,
			Timeout: 60 * time.Second,
		},
		Experiment: ExperimentConfig{
			Metric:     "quality_score",
			MinSamples: 30,
		},
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1,
		},
	}
}

// Load builds a config from the defaults plus an optional config file. Flag
// overrides are applied separately with ApplyFlagOverrides so each command
// layers only the flags it registered.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	cfg.ConfigFile = configPath

	if configPath == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := applyConfigSettings(cfg, v.AllSettings()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyConfigSettings merges file settings over the defaults, section by
// section.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "datadir", "data_dir", "data-dir"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("data_dir: %w", err)
		}
		if strings.TrimSpace(val) != "" {
			cfg.DataDir = strings.TrimSpace(val)
		}
	}

	if raw, ok := lookupSetting(settings, "target"); ok {
		section, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		if err := applyTargetSettings(&cfg.Target, section); err != nil {
			return err
		}
	}

	if raw, ok := lookupSetting(settings, "harness"); ok {
		section, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("harness: %w", err)
		}
		if err := applyHarnessSettings(&cfg.Harness, section); err != nil {
			return err
		}
	}

	if raw, ok := lookupSetting(settings, "experiment"); ok {
		section, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("experiment: %w", err)
		}
		if err := applyExperimentSettings(&cfg.Experiment, section); err != nil {
			return err
		}
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		specs, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = specs
	}

	if raw, ok := lookupSetting(settings, "extractors"); ok {
		rules, err := parseExtractors(raw)
		if err != nil {
			return err
		}
		cfg.Extractors = rules
	}

	if raw, ok := lookupSetting(settings, "pricing"); ok {
		overrides, err := parsePricing(raw)
		if err != nil {
			return err
		}
		cfg.Pricing = overrides
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		section, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		if err := applyTracingSettings(&cfg.Tracing, section); err != nil {
			return err
		}
	}

	if raw, ok := lookupSetting(settings, "output"); ok {
		section, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		if err := applyOutputSettings(&cfg.Output, section); err != nil {
			return err
		}
	}

	return nil
}

func applyTargetSettings(t *TargetConfig, section map[string]interface{}) error {
	if raw, ok := lookupSetting(section, "baseurl", "base_url", "base-url"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target.base_url: %w", err)
		}
		t.BaseURL = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(section, "model"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target.model: %w", err)
		}
		t.Model = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(section, "apikeyenv", "api_key_env", "api-key-env"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target.api_key_env: %w", err)
		}
		if strings.TrimSpace(val) != "" {
			t.APIKeyEnv = strings.TrimSpace(val)
		}
	}
	if raw, ok := lookupSetting(section, "temperature"); ok && raw != nil {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("target.temperature: %w", err)
		}
		t.Temperature = &val
	}
	if raw, ok := lookupSetting(section, "topp", "top_p", "top-p"); ok && raw != nil {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("target.top_p: %w", err)
		}
		t.TopP = &val
	}
	if raw, ok := lookupSetting(section, "maxtokens", "max_tokens", "max-tokens"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("target.max_tokens: %w", err)
		}
		t.MaxTokens = val
	}
	return nil
}

func applyHarnessSettings(h *HarnessConfig, section map[string]interface{}) error {
	if raw, ok := lookupSetting(section, "workers"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("harness.workers: %w", err)
		}
		h.Workers = val
	}
	if raw, ok := lookupSetting(section, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("harness.timeout: %w", err)
		}
		h.Timeout = dur
	}
	if raw, ok := lookupSetting(section, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("harness.rate: %w", err)
		}
		h.Rate = val
	}
	if raw, ok := lookupSetting(section, "retries"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("harness.retries: %w", err)
		}
		h.Retries = val
	}
	return nil
}

func applyExperimentSettings(e *ExperimentConfig, section map[string]interface{}) error {
	if raw, ok := lookupSetting(section, "metric"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("experiment.metric: %w", err)
		}
		if strings.TrimSpace(val) != "" {
			e.Metric = strings.TrimSpace(val)
		}
	}
	if raw, ok := lookupSetting(section, "minsamples", "min_samples", "min-samples"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("experiment.min_samples: %w", err)
		}
		e.MinSamples = val
	}
	if raw, ok := lookupSetting(section, "versiona", "version_a", "version-a"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("experiment.version_a: %w", err)
		}
		e.VersionA = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(section, "versionb", "version_b", "version-b"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("experiment.version_b: %w", err)
		}
		e.VersionB = strings.TrimSpace(val)
	}
	return nil
}

func parseExtractors(raw interface{}) ([]ExtractorRule, error) {
	items, err := toInterfaceSlice(raw)
	if err != nil {
		return nil, fmt.Errorf("extractors: %w", err)
	}
	rules := make([]ExtractorRule, 0, len(items))
	for idx, item := range items {
		section, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("extractors[%d]: %w", idx, err)
		}
		var rule ExtractorRule
		if v, ok := lookupSetting(section, "jsonpath", "json_path", "json-path"); ok {
			rule.JSONPath, err = asString(v)
			if err != nil {
				return nil, fmt.Errorf("extractors[%d].json_path: %w", idx, err)
			}
		}
		if v, ok := lookupSetting(section, "regex"); ok {
			rule.Regex, err = asString(v)
			if err != nil {
				return nil, fmt.Errorf("extractors[%d].regex: %w", idx, err)
			}
		}
		if v, ok := lookupSetting(section, "metric"); ok {
			rule.Metric, err = asString(v)
			if err != nil {
				return nil, fmt.Errorf("extractors[%d].metric: %w", idx, err)
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func parsePricing(raw interface{}) (map[string]PriceOverride, error) {
	section, err := toStringKeyMap(raw)
	if err != nil {
		return nil, fmt.Errorf("pricing: %w", err)
	}
	overrides := make(map[string]PriceOverride, len(section))
	for model, entry := range section {
		prices, err := toStringKeyMap(entry)
		if err != nil {
			return nil, fmt.Errorf("pricing[%s]: %w", model, err)
		}
		var p PriceOverride
		if v, ok := lookupSetting(prices, "input"); ok {
			p.Input, err = asFloat64(v)
			if err != nil {
				return nil, fmt.Errorf("pricing[%s].input: %w", model, err)
			}
		}
		if v, ok := lookupSetting(prices, "output"); ok {
			p.Output, err = asFloat64(v)
			if err != nil {
				return nil, fmt.Errorf("pricing[%s].output: %w", model, err)
			}
		}
		overrides[model] = p
	}
	return overrides, nil
}

func applyTracingSettings(t *TracingConfig, section map[string]interface{}) error {
	if raw, ok := lookupSetting(section, "enable", "enabled"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("tracing.enable: %w", err)
		}
		t.Enable = val
	}
	if raw, ok := lookupSetting(section, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("tracing.service_name: %w", err)
		}
		t.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(section, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("tracing.endpoint: %w", err)
		}
		t.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(section, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("tracing.protocol: %w", err)
		}
		if strings.TrimSpace(val) != "" {
			t.Protocol = strings.ToLower(strings.TrimSpace(val))
		}
	}
	if raw, ok := lookupSetting(section, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("tracing.sample_rate: %w", err)
		}
		t.SampleRate = val
	}
	if raw, ok := lookupSetting(section, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("tracing.insecure: %w", err)
		}
		t.Insecure = val
	}
	return nil
}

func applyOutputSettings(o *OutputConfig, section map[string]interface{}) error {
	if raw, ok := lookupSetting(section, "json"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("output.json: %w", err)
		}
		o.JSON = val
	}
	if raw, ok := lookupSetting(section, "html"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output.html: %w", err)
		}
		o.HTML = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(section, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("output.dashboard: %w", err)
		}
		o.Dashboard = val
	}
	if raw, ok := lookupSetting(section, "verbose"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("output.verbose: %w", err)
		}
		o.Verbose = val
	}
	if raw, ok := lookupSetting(section, "logjson", "log_json", "log-json"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("output.log_json: %w", err)
		}
		o.LogJSON = val
	}
	return nil
}

// ApplyFlagOverrides layers explicitly-set flags over the config. Only
// flags the command registered and the user changed are considered, so a
// config file value survives unless overridden on the command line.
func ApplyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	override := func(name string, apply func(f *pflag.Flag) error) error {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			return nil
		}
		return apply(f)
	}

	stringFlag := func(name string, dst *string) error {
		return override(name, func(f *pflag.Flag) error {
			*dst = f.Value.String()
			return nil
		})
	}
	intFlag := func(name string, dst *int) error {
		return override(name, func(f *pflag.Flag) error {
			val, err := asInt(f.Value.String())
			if err != nil {
				return fmt.Errorf("--%s: %w", name, err)
			}
			*dst = val
			return nil
		})
	}
	boolFlag := func(name string, dst *bool) error {
		return override(name, func(f *pflag.Flag) error {
			val, err := asBool(f.Value.String())
			if err != nil {
				return fmt.Errorf("--%s: %w", name, err)
			}
			*dst = val
			return nil
		})
	}
	floatPtrFlag := func(name string, dst **float64) error {
		return override(name, func(f *pflag.Flag) error {
			val, err := asFloat64(f.Value.String())
			if err != nil {
				return fmt.Errorf("--%s: %w", name, err)
			}
			*dst = &val
			return nil
		})
	}
	durationFlag := func(name string, dst *time.Duration) error {
		return override(name, func(f *pflag.Flag) error {
			val, err := asDuration(f.Value.String())
			if err != nil {
				return fmt.Errorf("--%s: %w", name, err)
			}
			*dst = val
			return nil
		})
	}

	steps := []func() error{
		func() error { return stringFlag("data-dir", &cfg.DataDir) },
		func() error { return stringFlag("base-url", &cfg.Target.BaseURL) },
		func() error { return stringFlag("model", &cfg.Target.Model) },
		func() error { return stringFlag("api-key-env", &cfg.Target.APIKeyEnv) },
		func() error { return floatPtrFlag("temperature", &cfg.Target.Temperature) },
		func() error { return floatPtrFlag("top-p", &cfg.Target.TopP) },
		func() error { return intFlag("max-tokens", &cfg.Target.MaxTokens) },
		func() error { return intFlag("workers", &cfg.Harness.Workers) },
		func() error { return durationFlag("timeout", &cfg.Harness.Timeout) },
		func() error { return intFlag("rate", &cfg.Harness.Rate) },
		func() error { return intFlag("retries", &cfg.Harness.Retries) },
		func() error { return stringFlag("metric", &cfg.Experiment.Metric) },
		func() error { return intFlag("min-samples", &cfg.Experiment.MinSamples) },
		func() error { return boolFlag("json", &cfg.Output.JSON) },
		func() error { return stringFlag("html", &cfg.Output.HTML) },
		func() error { return boolFlag("dashboard", &cfg.Output.Dashboard) },
		func() error { return boolFlag("verbose", &cfg.Output.Verbose) },
		func() error { return boolFlag("log-json", &cfg.Output.LogJSON) },
		func() error { return boolFlag("trace", &cfg.Tracing.Enable) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	// Repeatable threshold flags replace the configured list entirely.
	if f := fs.Lookup("threshold"); f != nil && f.Changed {
		if slice, ok := f.Value.(pflag.SliceValue); ok {
			cfg.Thresholds = slice.GetSlice()
		} else {
			cfg.Thresholds = []string{f.Value.String()}
		}
	}

	return nil
}
