package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartRunSpan starts a span covering a whole batch run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, prompt, version string, caseCount int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "batch run",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.String("promptgauge.prompt", prompt),
		attribute.Int("promptgauge.cases", caseCount),
	)
	if version != "" {
		span.SetAttributes(attribute.String("promptgauge.version", version))
	}
	return ctx, span
}

// StartCaseSpan starts a span for one case execution against the model.
func StartCaseSpan(ctx context.Context, tracer trace.Tracer, caseName, model string) (context.Context, trace.Span) {
	spanName := "case"
	if caseName != "" {
		spanName = "case " + caseName
	}
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	if model != "" {
		span.SetAttributes(attribute.String("promptgauge.model", model))
	}
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
