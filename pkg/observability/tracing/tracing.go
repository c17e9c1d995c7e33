package tracing

import (
    "context"
    "io"
    "os"
    "sync/atomic"

    "go.opentelemetry.io/otel"
    "go.opentelemetry.io/otel/attribute"
    "go.opentelemetry.io/otel/codes"
    "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
    sdktrace "go.opentelemetry.io/otel/sdk/trace"
    "go.opentelemetry.io/otel/trace"
)

const tracerName = "vault-check"

var enabled atomic.Bool

// Setup configures a global tracer provider exporting to w (stderr when nil)
// when enable=true. It returns a shutdown function which flushes pending
// spans and should be deferred.
func Setup(enable bool, w io.Writer) (func(context.Context) error, error) {
    enabled.Store(enable)
    if !enable {
        return func(context.Context) error { return nil }, nil
    }
    if w == nil { w = os.Stderr }
    exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
    if err != nil {
        enabled.Store(false)
        return nil, err
    }
    tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
    otel.SetTracerProvider(tp)
    return func(ctx context.Context) error {
        enabled.Store(false)
        return tp.Shutdown(ctx)
    }, nil
}

// Span wraps an OpenTelemetry span; the zero value is a no-op.
type Span struct {
    span trace.Span
}

// End finishes the span.
func (s Span) End() {
    if s.span != nil { s.span.End() }
}

// Fail records err on the span and marks it as errored.
func (s Span) Fail(err error) {
    if s.span == nil || err == nil { return }
    s.span.RecordError(err)
    s.span.SetStatus(codes.Error, err.Error())
}

// Set attaches attributes to the span.
func (s Span) Set(attrs ...attribute.KeyValue) {
    if s.span != nil { s.span.SetAttributes(attrs...) }
}

// StartSpan starts a tracing span if tracing is enabled.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span) {
    if !enabled.Load() {
        return ctx, Span{}
    }
    ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
    return ctx, Span{span: span}
}
