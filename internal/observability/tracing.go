package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the process-wide tracer. It starts as a no-op tracer;
// InitTracing replaces it with one bound to the configured provider.
var Tracer trace.Tracer = otel.Tracer("blogicum-api")

// TracingConfig selects the exporter and sampling behavior for InitTracing.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	Exporter       string // "stdout" (default) or "otlp"
	OTLPEndpoint   string
	SamplerRatio   float64 // fraction of root traces kept; >= 1.0 keeps all
}

// InitTracing installs the OpenTelemetry provider and W3C propagators, and
// returns the provider's shutdown hook. When tracing is disabled the hook is
// a no-op and every span stays a no-op too.
func InitTracing(cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		Tracer = otel.Tracer(cfg.ServiceName)
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newSpanExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}

	res, err := newTraceResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplerRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	Tracer = tp.Tracer(cfg.ServiceName)
	return tp.Shutdown, nil
}

func newTraceResource(cfg TracingConfig) (*resource.Resource, error) {
	return resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
}

// newSpanExporter picks the exporter backend. Anything other than "otlp",
// including the empty string, falls back to pretty-printed stdout, which is
// what development profiles run with.
func newSpanExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	if cfg.Exporter == "otlp" {
		return otlptracehttp.New(context.Background(),
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(), // collector is assumed in-network
		)
	}
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}

// newSampler keeps the configured fraction of root traces and follows the
// parent's decision for everything below them.
func newSampler(ratio float64) sdktrace.Sampler {
	if ratio >= 1.0 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// Span wraps a started span so call sites get nil-safe helpers instead of
// the raw OpenTelemetry API. The zero value is inert.
type Span struct {
	span trace.Span
}

// NewSpan opens a child span under whatever span ctx already carries and
// returns the wrapper together with the span-bearing context.
func NewSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (*Span, context.Context) {
	ctx, span := Tracer.Start(ctx, name, opts...)
	return &Span{span: span}, ctx
}

// AddAttributes attaches attributes to the span.
func (s *Span) AddAttributes(attrs ...attribute.KeyValue) {
	if s.span == nil {
		return
	}
	s.span.SetAttributes(attrs...)
}

// SetError marks the span failed and records err on it.
func (s *Span) SetError(err error) {
	if s.span == nil || err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// End closes the span.
func (s *Span) End() {
	if s.span == nil {
		return
	}
	s.span.End()
}

// RecordErrorInContext records err on the span already active in ctx, for
// call sites that did not open the span themselves.
func RecordErrorInContext(ctx context.Context, err error) {
	if span := trace.SpanFromContext(ctx); span != nil {
		span.RecordError(err)
	}
}
