package ai

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/mindscape-app/ai"

func tracer() trace.Tracer { return otel.Tracer(tracerName) }

func endSpanWithError(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	if k := KindOf(err); k != "" {
		span.SetAttributes(attribute.String("ai.error.kind", string(k)))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
