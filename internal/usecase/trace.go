package usecase

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var pipelineTracer = otel.Tracer("soccer-registry/internal/usecase")
var pipelineNoopSpan = trace.SpanFromContext(context.Background())

// startUsecaseSpan opens a child span only under a sampled parent, so batch
// loops called without tracing do not allocate spans per record.
func startUsecaseSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if strings.TrimSpace(name) == "" {
		return ctx, pipelineNoopSpan
	}
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() {
		return ctx, pipelineNoopSpan
	}
	return pipelineTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// markSpanError records err on span and flags the span as failed.
func markSpanError(span trace.Span, err error) {
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
