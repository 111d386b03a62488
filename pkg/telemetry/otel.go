package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/itsneelabh/agrimarket"

// Recorder is the telemetry surface the domain services use
type Recorder interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
	RecordOperation(ctx context.Context, operation string, duration time.Duration, err error)
}

// Options configures the OpenTelemetry setup
type Options struct {
	Enabled     bool
	Endpoint    string // OTLP gRPC endpoint; empty falls back to stdout in development
	ServiceName string
	Version     string
	Environment string
	Insecure    bool
	SampleRate  float64
	Development bool
	Writer      io.Writer // stdout exporter destination, defaults to os.Stderr
}

// Provider owns the tracer provider and the operation instruments
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	operations     metric.Int64Counter
	durations      metric.Float64Histogram
}

// New sets up tracing according to opts and installs the providers globally.
// A disabled configuration yields a no-op Provider.
func New(ctx context.Context, opts Options) (*Provider, error) {
	if !opts.Enabled || os.Getenv("OTEL_SDK_DISABLED") == "true" {
		return Noop(), nil
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(opts.ServiceName),
		semconv.ServiceVersionKey.String(opts.Version),
		semconv.DeploymentEnvironmentKey.String(environment(opts)),
		semconv.HostNameKey.String(hostname()),
	)

	exporter, err := newExporter(ctx, opts)
	if err != nil {
		return nil, err
	}

	sampler := sdktrace.AlwaysSample()
	if opts.SampleRate > 0 && opts.SampleRate < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRate))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return newProvider(tp, otel.GetMeterProvider().Meter(instrumentationName)), nil
}

func newExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	if opts.Endpoint != "" {
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
		if opts.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		return exporter, nil
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}
	return exporter, nil
}

func newProvider(tp *sdktrace.TracerProvider, meter metric.Meter) *Provider {
	p := &Provider{tracerProvider: tp, tracer: tp.Tracer(instrumentationName)}
	p.initInstruments(meter)
	return p
}

// Noop returns a Provider that records nothing
func Noop() *Provider {
	p := &Provider{tracer: noop.NewTracerProvider().Tracer(instrumentationName)}
	p.initInstruments(otel.GetMeterProvider().Meter(instrumentationName))
	return p
}

func (p *Provider) initInstruments(meter metric.Meter) {
	if counter, err := meter.Int64Counter(
		"agrimarket_operations_total",
		metric.WithDescription("Total domain operations by name and status"),
	); err == nil {
		p.operations = counter
	}
	if histogram, err := meter.Float64Histogram(
		"agrimarket_operation_duration_seconds",
		metric.WithDescription("Domain operation duration"),
		metric.WithUnit("s"),
	); err == nil {
		p.durations = histogram
	}
}

// StartSpan starts a span named name
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordOperation counts an operation and records its duration
func (p *Provider) RecordOperation(ctx context.Context, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	if p.operations != nil {
		p.operations.Add(ctx, 1, attrs)
	}
	if p.durations != nil {
		p.durations.Record(ctx, duration.Seconds(), attrs)
	}
}

// Shutdown flushes and stops the tracer provider
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		return p.tracerProvider.Shutdown(ctx)
	}
	return nil
}

// EndSpan records err on span, if any, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func environment(opts Options) string {
	if opts.Environment != "" {
		return opts.Environment
	}
	if env := os.Getenv("DEPLOYMENT_ENVIRONMENT"); env != "" {
		return env
	}
	if opts.Development {
		return "development"
	}
	return "production"
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
