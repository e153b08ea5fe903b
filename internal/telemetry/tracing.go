package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// TracerExporter selects which span exporter the trace provider uses.
type TracerExporter string

const (
	// ExporterConsole writes spans to stdout, for local development.
	ExporterConsole TracerExporter = "console"

	// ExporterOTLP ships spans to an OTLP/HTTP collector endpoint.
	ExporterOTLP TracerExporter = "otlp"
)

// TracerProvider aggregates the SDK trace provider with its shutdown hook.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// NewTracerProvider creates a trace provider with the chosen exporter and
// registers it as the global otel tracer provider.
func NewTracerProvider(ctx context.Context, serviceName string, exporter TracerExporter, endpoint string) (*TracerProvider, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)

	switch exporter {
	case ExporterOTLP:
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		}
		exp, err = otlptracehttp.New(ctx, opts...)
	default:
		exp, err = stdouttrace.New(stdouttrace.WithWriter(os.Stderr))
	}
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			semconv.ServiceNameKey.String(serviceName),
		)),
	)

	otel.SetTracerProvider(provider)

	return &TracerProvider{provider: provider}, nil
}

// Shutdown flushes pending spans.
func (t *TracerProvider) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}
