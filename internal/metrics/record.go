package metrics

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Metric names shared across summaries, comparisons, and thresholds.
const (
	MetricLatency      = "latency_ms"
	MetricCost         = "cost"
	MetricQuality      = "quality_score"
	MetricAccuracy     = "accuracy"
	MetricInputTokens  = "input_tokens"
	MetricOutputTokens = "output_tokens"
	MetricTotalTokens  = "total_tokens"
	MetricSuccessRate  = "success_rate"
	MetricErrorRate    = "error_rate"
)

// Record is one observed call's performance and quality data. All numeric
// fields are optional; a nil pointer means the field was not observed.
// A failed call may still carry partial token or latency data.
type Record struct {
	Model        string         `json:"model,omitempty"`
	InputTokens  *int           `json:"input_tokens,omitempty"`
	OutputTokens *int           `json:"output_tokens,omitempty"`
	TotalTokens  *int           `json:"total_tokens,omitempty"`
	Cost         *float64       `json:"cost,omitempty"`
	LatencyMS    *float64       `json:"latency_ms,omitempty"`
	QualityScore *float64       `json:"quality_score,omitempty"`
	Accuracy     *float64       `json:"accuracy,omitempty"`
	Temperature  *float64       `json:"temperature,omitempty"`
	MaxTokens    *int           `json:"max_tokens,omitempty"`
	TopP         *float64       `json:"top_p,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// NewRecord returns a Record with builder defaults applied: Success true and
// the timestamp set.
func NewRecord() Record {
	return Record{Success: true, Timestamp: time.Now().UTC()}
}

// Int returns a pointer to v, for optional integer fields.
func Int(v int) *int { return &v }

// Float returns a pointer to v, for optional float fields.
func Float(v float64) *float64 { return &v }

// finalize fills derived defaults: total tokens from input+output when both
// are present and total is absent, and a timestamp when unset.
func (r Record) finalize() Record {
	if r.TotalTokens == nil && r.InputTokens != nil && r.OutputTokens != nil {
		r.TotalTokens = Int(*r.InputTokens + *r.OutputTokens)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	return r
}

// clone returns a deep copy so stored records stay immutable even if the
// caller keeps references to the original's pointers or metadata map.
func (r Record) clone() Record {
	c := r
	c.InputTokens = cloneInt(r.InputTokens)
	c.OutputTokens = cloneInt(r.OutputTokens)
	c.TotalTokens = cloneInt(r.TotalTokens)
	c.MaxTokens = cloneInt(r.MaxTokens)
	c.Cost = cloneFloat(r.Cost)
	c.LatencyMS = cloneFloat(r.LatencyMS)
	c.QualityScore = cloneFloat(r.QualityScore)
	c.Accuracy = cloneFloat(r.Accuracy)
	c.Temperature = cloneFloat(r.Temperature)
	c.TopP = cloneFloat(r.TopP)
	if r.Metadata != nil {
		c.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// FromMap builds a Record from named fields. Known field names are validated
// and coerced; unrecognized keys are routed into Metadata.
func FromMap(fields map[string]any) (Record, error) {
	r := NewRecord()
	for key, raw := range fields {
		if err := applyField(&r, strings.ToLower(strings.TrimSpace(key)), raw); err != nil {
			return Record{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	return r.finalize(), nil
}

func applyField(r *Record, key string, raw any) error {
	switch key {
	case "model":
		val, err := asString(raw)
		if err != nil {
			return err
		}
		r.Model = val
	case "input_tokens":
		return setInt(&r.InputTokens, raw)
	case "output_tokens":
		return setInt(&r.OutputTokens, raw)
	case "total_tokens":
		return setInt(&r.TotalTokens, raw)
	case "max_tokens":
		return setInt(&r.MaxTokens, raw)
	case "cost":
		return setFloat(&r.Cost, raw)
	case "latency_ms":
		return setFloat(&r.LatencyMS, raw)
	case "quality_score":
		return setFloat(&r.QualityScore, raw)
	case "accuracy":
		return setFloat(&r.Accuracy, raw)
	case "temperature":
		return setFloat(&r.Temperature, raw)
	case "top_p":
		return setFloat(&r.TopP, raw)
	case "success":
		val, err := asBool(raw)
		if err != nil {
			return err
		}
		r.Success = val
	case "error_message":
		val, err := asString(raw)
		if err != nil {
			return err
		}
		r.ErrorMessage = val
	case "timestamp":
		ts, err := asTime(raw)
		if err != nil {
			return err
		}
		if !ts.IsZero() {
			r.Timestamp = ts
		}
	case "metadata":
		meta, err := asMetadata(raw)
		if err != nil {
			return err
		}
		for k, v := range meta {
			if r.Metadata == nil {
				r.Metadata = make(map[string]any)
			}
			r.Metadata[k] = v
		}
	default:
		if r.Metadata == nil {
			r.Metadata = make(map[string]any)
		}
		r.Metadata[key] = raw
	}
	return nil
}

// ToMap projects a record into a plain map, omitting absent fields. The
// result round-trips through FromMap.
func (r Record) ToMap() map[string]any {
	m := map[string]any{
		"success":   r.Success,
		"timestamp": r.Timestamp,
	}
	if r.Model != "" {
		m["model"] = r.Model
	}
	putInt(m, "input_tokens", r.InputTokens)
	putInt(m, "output_tokens", r.OutputTokens)
	putInt(m, "total_tokens", r.TotalTokens)
	putInt(m, "max_tokens", r.MaxTokens)
	putFloat(m, "cost", r.Cost)
	putFloat(m, "latency_ms", r.LatencyMS)
	putFloat(m, "quality_score", r.QualityScore)
	putFloat(m, "accuracy", r.Accuracy)
	putFloat(m, "temperature", r.Temperature)
	putFloat(m, "top_p", r.TopP)
	if r.ErrorMessage != "" {
		m["error_message"] = r.ErrorMessage
	}
	if len(r.Metadata) > 0 {
		meta := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			meta[k] = v
		}
		m["metadata"] = meta
	}
	return m
}

// MetricValue returns the named metric's value for this record, if present.
// Unknown names are looked up in the metadata map.
func (r Record) MetricValue(metric string) (float64, bool) {
	switch metric {
	case MetricLatency:
		return deref(r.LatencyMS)
	case MetricCost:
		return deref(r.Cost)
	case MetricQuality:
		return deref(r.QualityScore)
	case MetricAccuracy:
		return deref(r.Accuracy)
	case MetricInputTokens:
		return derefInt(r.InputTokens)
	case MetricOutputTokens:
		return derefInt(r.OutputTokens)
	case MetricTotalTokens:
		return derefInt(r.TotalTokens)
	default:
		if raw, ok := r.Metadata[metric]; ok {
			if v, err := asFloat(raw); err == nil {
				return v, true
			}
		}
		return 0, false
	}
}

// MetricValues collects the present values of the named metric across
// records, preserving record order.
func MetricValues(records []Record, metric string) []float64 {
	var values []float64
	for _, r := range records {
		if v, ok := r.MetricValue(metric); ok {
			values = append(values, v)
		}
	}
	return values
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func derefInt(p *int) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return float64(*p), true
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func putInt(m map[string]any, key string, p *int) {
	if p != nil {
		m[key] = *p
	}
}

func putFloat(m map[string]any, key string, p *float64) {
	if p != nil {
		m[key] = *p
	}
}

func setInt(dst **int, raw any) error {
	if raw == nil {
		return nil
	}
	val, err := asInt(raw)
	if err != nil {
		return err
	}
	*dst = &val
	return nil
}

func setFloat(dst **float64, raw any) error {
	if raw == nil {
		return nil
	}
	val, err := asFloat(raw)
	if err != nil {
		return err
	}
	*dst = &val
	return nil
}

func asString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func asInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float32:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, nil
		}
		return strconv.Atoi(trimmed)
	default:
		return 0, fmt.Errorf("unsupported integer type %T", value)
	}
}

func asFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, nil
		}
		return strconv.ParseFloat(trimmed, 64)
	default:
		return 0, fmt.Errorf("unsupported float type %T", value)
	}
}

func asBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, nil
		}
		return strconv.ParseBool(trimmed)
	default:
		return false, fmt.Errorf("unsupported boolean type %T", value)
	}
}

func asTime(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return time.Time{}, nil
		}
		return time.Parse(time.RFC3339, trimmed)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", value)
	}
}

func asMetadata(value any) (map[string]any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported metadata type %T", value)
	}
}
