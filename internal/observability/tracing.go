package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/amasuba/uraics-revenue-assurance/internal/config"
	"github.com/amasuba/uraics-revenue-assurance/internal/types"
	"github.com/amasuba/uraics-revenue-assurance/pkg/version"
)

const (
	defaultBatchTimeout = 5 * time.Second
	defaultServiceName  = "tatis"

	// TracerName is the instrumentation scope for spans emitted by TATIS.
	TracerName = "github.com/amasuba/uraics-revenue-assurance"
)

// TracingOption is a functional option for configuring tracing initialization.
type TracingOption func(*tracingOptions)

type tracingOptions struct {
	exporter     sdktrace.SpanExporter
	batchTimeout time.Duration
}

// WithExporter replaces the OTLP exporter. Tests pass an in-memory exporter.
func WithExporter(exp sdktrace.SpanExporter) TracingOption {
	return func(o *tracingOptions) {
		o.exporter = exp
	}
}

// WithBatchTimeout sets the maximum time between batch exports.
func WithBatchTimeout(timeout time.Duration) TracingOption {
	return func(o *tracingOptions) {
		o.batchTimeout = timeout
	}
}

// InitTracing builds the tracer provider and installs it globally.
//
// Disabled tracing yields a provider that never samples. Enabled tracing
// without an endpoint samples every span but exports nothing, which still
// puts trace_id/span_id on log lines. With an endpoint, spans are batched
// to an OTLP gRPC collector.
func InitTracing(ctx context.Context, cfg config.TracingConfig, opts ...TracingOption) (*sdktrace.TracerProvider, error) {
	if !cfg.Enabled {
		return sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample())), nil
	}

	options := &tracingOptions{batchTimeout: defaultBatchTimeout}
	for _, opt := range opts {
		opt(options)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version.Version),
		),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, types.WrapError(ErrExporterConnection, "failed to create resource", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
	}

	exporter := options.exporter
	if exporter == nil && cfg.Endpoint != "" {
		otlpOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			otlpOpts = append(otlpOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, otlpOpts...)
		if err != nil {
			return nil, types.WrapError(ErrExporterConnection, "failed to create otlp exporter for "+cfg.Endpoint, err)
		}
	}
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(options.batchTimeout)))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// ShutdownTracing flushes pending spans and stops the provider.
func ShutdownTracing(ctx context.Context, provider *sdktrace.TracerProvider) error {
	if provider == nil {
		return nil
	}
	if err := provider.Shutdown(ctx); err != nil {
		return types.WrapError(ErrShutdownTimeout, "failed to shutdown tracer provider", err)
	}
	return nil
}
