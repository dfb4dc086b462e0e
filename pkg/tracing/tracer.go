// Package tracing reports the SDK's request spans to OpenTelemetry.
package tracing

import (
	"context"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/couchbase/docs-sdk-go/pkg/tracing"

// RequestTracer implements gocb.RequestTracer on top of an OpenTelemetry
// TracerProvider. The span context handed back to the SDK is a
// context.Context carrying the OpenTelemetry span, so spans created for
// nested SDK operations become its children.
type RequestTracer struct {
	tracer trace.Tracer
}

var _ gocb.RequestTracer = (*RequestTracer)(nil)

func NewRequestTracer(provider trace.TracerProvider) *RequestTracer {
	return &RequestTracer{tracer: provider.Tracer(instrumentationName)}
}

// RequestSpan implements gocb.RequestTracer.
func (t *RequestTracer) RequestSpan(parentContext gocb.RequestSpanContext, operationName string) gocb.RequestSpan {
	ctx, ok := parentContext.(context.Context)
	if !ok || ctx == nil {
		ctx = context.Background()
	}

	ctx, span := t.tracer.Start(ctx, operationName, trace.WithSpanKind(trace.SpanKindClient))
	return &requestSpan{ctx: ctx, span: span}
}

// ParentSpan wraps the span in ctx so it can be passed as the ParentSpan
// option of an SDK operation. The SDK never ends a parent span; the caller
// still owns it.
func ParentSpan(ctx context.Context) gocb.RequestSpan {
	return &requestSpan{ctx: ctx, span: trace.SpanFromContext(ctx)}
}

type requestSpan struct {
	ctx  context.Context
	span trace.Span
}

func (s *requestSpan) End() {
	s.span.End()
}

func (s *requestSpan) Context() gocb.RequestSpanContext {
	return s.ctx
}

func (s *requestSpan) AddEvent(name string, timestamp time.Time) {
	s.span.AddEvent(name, trace.WithTimestamp(timestamp))
}

func (s *requestSpan) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(attributeOf(key, value))
}

func attributeOf(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int32:
		return attribute.Int64(key, int64(v))
	case int64:
		return attribute.Int64(key, v)
	case uint16:
		return attribute.Int64(key, int64(v))
	case uint32:
		return attribute.Int64(key, int64(v))
	case uint64:
		return attribute.Int64(key, int64(v))
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
