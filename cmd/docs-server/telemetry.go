package main

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/felixgeelhaar/mcp-docs/config"
	"github.com/felixgeelhaar/mcp-docs/middleware"
)

type telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	serviceName    string
}

// setupTelemetry installs a global tracer provider. Spans are exported over
// OTLP/gRPC when an endpoint is configured and dropped otherwise.
func setupTelemetry(ctx context.Context, cfg config.TelemetryConfig, version string) (*telemetry, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", version),
	)

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if cfg.OTLPEndpoint != "" {
		exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}

		dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		exporter, err := otlptracegrpc.New(dialCtx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	return &telemetry{tracerProvider: tp, serviceName: cfg.ServiceName}, nil
}

// Options returns the middleware options recording into the installed
// provider.
func (t *telemetry) Options() []middleware.OTelOption {
	return []middleware.OTelOption{
		middleware.WithTracerProvider(t.tracerProvider),
		middleware.WithOTelServiceName(t.serviceName),
	}
}

// Shutdown flushes pending spans.
func (t *telemetry) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return t.tracerProvider.Shutdown(ctx)
}
