// Package target executes evaluation cases against an OpenAI-compatible
// chat completions endpoint, turning each call into a metric record.
package target

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/promptgauge/promptgauge/internal/cases"
	"github.com/promptgauge/promptgauge/internal/extract"
	"github.com/promptgauge/promptgauge/internal/harness"
	"github.com/promptgauge/promptgauge/internal/metrics"
	"github.com/promptgauge/promptgauge/internal/pricing"
	"github.com/promptgauge/promptgauge/internal/tracing"
)

// Options configure a Chat target. SystemPrompt and UserPrompt are templates
// whose {{key}} placeholders are filled from each case's inputs.
type Options struct {
	BaseURL      string // empty means the OpenAI default
	APIKey       string
	Model        string
	Temperature  *float64
	TopP         *float64
	MaxTokens    int // 0 leaves the limit to the endpoint
	SystemPrompt string
	UserPrompt   string

	// Rules extract extra metrics from the raw response text. A rule
	// naming quality_score or accuracy fills the record field; any other
	// metric lands in the record's metadata.
	Rules []extract.Rule

	// Prices computes call cost and backstops token counts when the
	// endpoint reports no usage. Nil disables both.
	Prices *pricing.Table

	Tracer trace.Tracer // nil disables per-case spans
	Logger *zap.Logger  // nil disables diagnostics
}

// Chat is a harness.Executor backed by a chat completions API.
type Chat struct {
	opt    Options
	client *openai.Client
	logger *zap.Logger
}

// New builds a Chat target.
func New(opt Options) *Chat {
	cfg := openai.DefaultConfig(opt.APIKey)
	if opt.BaseURL != "" {
		cfg.BaseURL = opt.BaseURL
	}
	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chat{opt: opt, client: openai.NewClientWithConfig(cfg), logger: logger}
}

// Model returns the model identifier calls are made with.
func (t *Chat) Model() string {
	return t.opt.Model
}

// Execute implements harness.Executor. The returned record carries the call's
// generation parameters and latency even when the call fails, so failures
// still contribute partial observations.
func (t *Chat) Execute(ctx context.Context, c harness.Case) (harness.Outcome, error) {
	system := cases.Render(t.opt.SystemPrompt, c.Inputs)
	user := cases.Render(t.opt.UserPrompt, c.Inputs)

	var span trace.Span
	if t.opt.Tracer != nil {
		ctx, span = tracing.StartCaseSpan(ctx, t.opt.Tracer, c.Name, t.opt.Model)
	}

	req := openai.ChatCompletionRequest{Model: t.opt.Model}
	if system != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: system,
		})
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: user,
	})
	if t.opt.Temperature != nil {
		req.Temperature = float32(*t.opt.Temperature)
	}
	if t.opt.TopP != nil {
		req.TopP = float32(*t.opt.TopP)
	}
	if t.opt.MaxTokens > 0 {
		req.MaxTokens = t.opt.MaxTokens
	}

	rec := metrics.NewRecord()
	rec.Model = t.opt.Model
	rec.Temperature = t.opt.Temperature
	rec.TopP = t.opt.TopP
	if t.opt.MaxTokens > 0 {
		rec.MaxTokens = metrics.Int(t.opt.MaxTokens)
	}

	start := time.Now()
	resp, err := t.client.CreateChatCompletion(ctx, req)
	elapsed := time.Since(start)
	rec.LatencyMS = metrics.Float(float64(elapsed) / float64(time.Millisecond))

	if err != nil {
		if span != nil {
			tracing.EndSpan(span, err)
		}
		t.logger.Debug("chat completion failed",
			zap.String("case", c.Name),
			zap.String("model", t.opt.Model),
			zap.Error(err))
		return harness.Outcome{Record: rec}, fmt.Errorf("chat completion: %w", err)
	}

	output := ""
	if len(resp.Choices) > 0 {
		output = resp.Choices[0].Message.Content
	}

	t.fillTokens(&rec, resp.Usage, system+user, output)
	if t.opt.Prices != nil && rec.InputTokens != nil && rec.OutputTokens != nil {
		rec.Cost = metrics.Float(t.opt.Prices.Cost(t.opt.Model, *rec.InputTokens, *rec.OutputTokens))
	}
	if c.Expected != "" {
		accuracy := 0.0
		if output == c.Expected {
			accuracy = 1.0
		}
		rec.Accuracy = metrics.Float(accuracy)
	}
	t.applyRules(&rec, output)

	if span != nil {
		attrs := []attribute.KeyValue{
			attribute.Float64("promptgauge.latency_ms", *rec.LatencyMS),
		}
		if rec.TotalTokens != nil {
			attrs = append(attrs, attribute.Int("promptgauge.total_tokens", *rec.TotalTokens))
		}
		tracing.EndSpan(span, nil, attrs...)
	}
	return harness.Outcome{Output: output, Record: rec}, nil
}

// fillTokens takes the endpoint's usage numbers when present and estimates
// them from the text otherwise.
func (t *Chat) fillTokens(rec *metrics.Record, usage openai.Usage, prompt, output string) {
	switch {
	case usage.TotalTokens > 0 || usage.PromptTokens > 0 || usage.CompletionTokens > 0:
		rec.InputTokens = metrics.Int(usage.PromptTokens)
		rec.OutputTokens = metrics.Int(usage.CompletionTokens)
		if usage.TotalTokens > 0 {
			rec.TotalTokens = metrics.Int(usage.TotalTokens)
		}
	case t.opt.Prices != nil:
		rec.InputTokens = metrics.Int(pricing.EstimateTokens(t.opt.Model, prompt))
		rec.OutputTokens = metrics.Int(pricing.EstimateTokens(t.opt.Model, output))
	}
}

// applyRules extracts configured metrics from the response text. The
// quality_score and accuracy metrics address record fields; everything else
// goes to metadata where summaries and comparisons pick it up by name.
func (t *Chat) applyRules(rec *metrics.Record, output string) {
	if len(t.opt.Rules) == 0 {
		return
	}
	for name, value := range extract.Apply([]byte(output), t.opt.Rules, t.logger) {
		switch name {
		case metrics.MetricQuality:
			rec.QualityScore = metrics.Float(value)
		case metrics.MetricAccuracy:
			rec.Accuracy = metrics.Float(value)
		default:
			if rec.Metadata == nil {
				rec.Metadata = make(map[string]any)
			}
			rec.Metadata[name] = value
		}
	}
}
