// Package telemetry wires OpenTelemetry metrics and tracing for the simulator.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// MeterProvider aggregates the SDK meter provider with its shutdown hook.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	server   *http.Server
}

// NewMeterProvider creates a meter provider backed by a Prometheus exporter
// and registers it as the global otel meter provider.
func NewMeterProvider(serviceName string) (*MeterProvider, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(resource.NewSchemaless(
			semconv.ServiceNameKey.String(serviceName),
		)),
	)

	otel.SetMeterProvider(provider)

	return &MeterProvider{provider: provider}, nil
}

// ServeMetrics exposes /metrics on the given port. Non-blocking.
func (m *MeterProvider) ServeMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Metrics endpoint is optional; the simulator keeps running.
		}
	}()
}

// Shutdown flushes pending metrics and stops the metrics server.
func (m *MeterProvider) Shutdown(ctx context.Context) error {
	if m.server != nil {
		_ = m.server.Shutdown(ctx)
	}
	return m.provider.Shutdown(ctx)
}
