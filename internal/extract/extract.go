// Package extract pulls numeric metrics out of model response bodies using
// JSON path expressions or regex capture groups.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Rule describes one extraction. Exactly one of JSONPath or Regex should be
// set; Metric names the resulting metric.
type Rule struct {
	// JSONPath is a path expression (e.g. "$.scores.quality", "scores.quality")
	JSONPath string

	// Regex is a pattern whose first capture group (or full match) holds
	// the value
	Regex string

	// Metric is the metric name the extracted value is stored under
	Metric string
}

// Apply runs every rule against the body and returns the metrics that
// extracted cleanly. Rules that miss or produce a non-numeric value are
// skipped; the logger (may be nil) records them at debug level.
func Apply(body []byte, rules []Rule, logger *zap.Logger) map[string]float64 {
	if len(rules) == 0 {
		return nil
	}

	values := make(map[string]float64)
	for _, rule := range rules {
		var raw string
		var ok bool

		switch {
		case rule.JSONPath != "":
			raw, ok = jsonPathValue(body, rule.JSONPath)
		case rule.Regex != "":
			raw, ok = regexValue(body, rule.Regex, logger)
		}
		if !ok {
			debugf(logger, "extraction missed", rule)
			continue
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			debugf(logger, "extracted value not numeric", rule)
			continue
		}
		values[rule.Metric] = v
	}
	return values
}

// jsonPathValue resolves a gjson path, accepting the $.field spelling as
// well as bare field paths. A bare "$" selects the whole document.
func jsonPathValue(body []byte, path string) (string, bool) {
	if strings.HasPrefix(path, "$.") {
		path = path[2:]
	} else if path == "$" {
		path = "@this"
	}

	result := gjson.GetBytes(body, path)
	if !result.Exists() {
		return "", false
	}
	return result.String(), true
}

// regexValue returns the first capture group of the pattern, or the full
// match when the pattern has no groups.
func regexValue(body []byte, pattern string, logger *zap.Logger) (string, bool) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		if logger != nil {
			logger.Debug("invalid extraction pattern", zap.String("pattern", pattern), zap.Error(err))
		}
		return "", false
	}

	match := re.FindSubmatch(body)
	if match == nil {
		return "", false
	}
	if len(match) > 1 {
		return string(match[1]), true
	}
	return string(match[0]), true
}

func debugf(logger *zap.Logger, msg string, rule Rule) {
	if logger == nil {
		return
	}
	logger.Debug(msg,
		zap.String("metric", rule.Metric),
		zap.String("json_path", rule.JSONPath),
		zap.String("regex", rule.Regex),
	)
}
