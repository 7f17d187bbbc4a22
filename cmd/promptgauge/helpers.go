package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/promptgauge/promptgauge/internal/extract"
	"github.com/promptgauge/promptgauge/internal/metrics"
	"github.com/promptgauge/promptgauge/internal/pricing"
)

// addTargetFlags registers the model-endpoint overrides commands that call
// the target share. Values flow into the config via ApplyFlagOverrides.
func addTargetFlags(fs *pflag.FlagSet) {
	fs.String("base-url", "", "OpenAI-compatible endpoint base URL")
	fs.String("model", "", "model to call")
	fs.String("api-key-env", "", "environment variable holding the API key")
	fs.Float64("temperature", 0, "generation temperature")
	fs.Float64("top-p", 0, "generation top_p")
	fs.Int("max-tokens", 0, "response token cap (0 = provider default)")
}

// addHarnessFlags registers the batch-execution overrides.
func addHarnessFlags(fs *pflag.FlagSet) {
	fs.Int("workers", 0, "concurrent workers")
	fs.Duration("timeout", 0*time.Second, "per-case timeout")
	fs.Int("rate", 0, "case starts per second (0 = unlimited)")
	fs.Int("retries", 0, "retries per case on call errors")
}

// parseKeyValues splits repeatable key=value flags into a map.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	result := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid key=value pair: %q", pair)
		}
		result[key] = value
	}
	return result, nil
}

// parseWeights parses key=value flags whose values must be numbers.
func parseWeights(pairs []string) (map[string]float64, error) {
	raw, err := parseKeyValues(pairs)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	weights := make(map[string]float64, len(raw))
	for key, value := range raw {
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %s: %w", key, err)
		}
		weights[key] = w
	}
	return weights, nil
}

// standardMetrics is the order built-in record fields appear in series maps
// and comparisons.
var standardMetrics = []string{
	metrics.MetricLatency,
	metrics.MetricCost,
	metrics.MetricInputTokens,
	metrics.MetricOutputTokens,
	metrics.MetricTotalTokens,
	metrics.MetricQuality,
	metrics.MetricAccuracy,
}

// metricSeries groups the records' observed values by metric name: the
// built-in fields plus any custom metrics found in record metadata.
func metricSeries(records []metrics.Record) map[string][]float64 {
	series := make(map[string][]float64)
	for _, name := range standardMetrics {
		if values := metrics.MetricValues(records, name); len(values) > 0 {
			series[name] = values
		}
	}
	for _, r := range records {
		for name := range r.Metadata {
			if _, done := series[name]; done {
				continue
			}
			if values := metrics.MetricValues(records, name); len(values) > 0 {
				series[name] = values
			}
		}
	}
	return series
}

// priceTable builds the pricing table with the config's overrides applied.
func (a *app) priceTable() *pricing.Table {
	table := pricing.NewTable()
	for model, override := range a.cfg.Pricing {
		table.Register(model, override.Input, override.Output)
	}
	return table
}

// extractRules converts the configured extractor rules.
func (a *app) extractRules() []extract.Rule {
	if len(a.cfg.Extractors) == 0 {
		return nil
	}
	rules := make([]extract.Rule, 0, len(a.cfg.Extractors))
	for _, r := range a.cfg.Extractors {
		rules = append(rules, extract.Rule{
			JSONPath: r.JSONPath,
			Regex:    r.Regex,
			Metric:   r.Metric,
		})
	}
	return rules
}
