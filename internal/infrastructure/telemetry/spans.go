package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer of spans started by this service
const TracerName = "github.com/retailpos/backoffice"

// StartSpan starts an internal span on the global tracer provider. The
// caller ends it, usually through EndSpan.
//
//	ctx, span := telemetry.StartSpan(ctx, "salesdb.GetSaleSnapshot",
//	    attribute.String("sale.id", id.String()))
//	defer func() { telemetry.EndSpan(span, err) }()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err on the span, if any, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
