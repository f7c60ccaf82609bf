package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

const instrumentationName = "github.com/felixgeelhaar/mcp-docs"

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*otelConfig)

type otelConfig struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	serviceName    string
	skipMethods    map[string]bool
}

// WithTracerProvider sets a custom tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *otelConfig) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
func WithMeterProvider(mp metric.MeterProvider) OTelOption {
	return func(c *otelConfig) {
		c.meterProvider = mp
	}
}

// WithOTelServiceName sets the service name recorded on spans and metrics.
func WithOTelServiceName(name string) OTelOption {
	return func(c *otelConfig) {
		c.serviceName = name
	}
}

// WithOTelSkipMethods specifies methods that are not traced.
func WithOTelSkipMethods(methods ...string) OTelOption {
	return func(c *otelConfig) {
		for _, m := range methods {
			c.skipMethods[m] = true
		}
	}
}

// OTel returns middleware that opens a server span per request and records
// request count, latency and errors. Spans carry the addressed capability
// and, on failure, the protocol error code and its classification.
func OTel(opts ...OTelOption) Middleware {
	cfg := &otelConfig{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		serviceName:    "mcp-docs",
		skipMethods:    map[string]bool{protocol.MethodPing: true},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	tracer := cfg.tracerProvider.Tracer(instrumentationName)
	meter := cfg.meterProvider.Meter(instrumentationName)

	// Instrument creation only fails on invalid names; these are constant.
	requestCounter, _ := meter.Int64Counter(
		"mcp.server.requests",
		metric.WithDescription("Total number of MCP requests"),
		metric.WithUnit("{request}"),
	)
	requestDuration, _ := meter.Float64Histogram(
		"mcp.server.request.duration",
		metric.WithDescription("Duration of MCP requests"),
		metric.WithUnit("ms"),
	)
	errorCounter, _ := meter.Int64Counter(
		"mcp.server.errors",
		metric.WithDescription("Total number of failed MCP requests"),
		metric.WithUnit("{error}"),
	)

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if cfg.skipMethods[req.Method] {
				return next(ctx, req)
			}

			attrs := []attribute.KeyValue{
				attribute.String("mcp.method", req.Method),
				attribute.String("service.name", cfg.serviceName),
			}

			spanAttrs := attrs
			if target := Target(req); target != "" {
				spanAttrs = append(spanAttrs, attribute.String("mcp.target", target))
			}

			ctx, span := tracer.Start(ctx, "mcp."+req.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(spanAttrs...),
			)
			defer span.End()

			if reqID := RequestIDFromContext(ctx); reqID != "" {
				span.SetAttributes(attribute.String("mcp.request_id", reqID))
			}

			requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
			start := time.Now()

			resp, err := next(ctx, req)

			requestDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, metric.WithAttributes(attrs...))

			failure := err
			if failure == nil && resp != nil && resp.Error != nil {
				failure = resp.Error
			}
			if failure == nil {
				span.SetStatus(codes.Ok, "")
				return resp, err
			}

			kind := protocol.KindOf(failure)
			errAttrs := append(attrs, attribute.String("mcp.error_kind", kind.String()))

			var protoErr *protocol.Error
			if errors.As(failure, &protoErr) {
				errAttrs = append(errAttrs, attribute.Int("mcp.error_code", protoErr.Code))
				span.SetAttributes(attribute.Int("mcp.error_code", protoErr.Code))
			}
			span.SetAttributes(attribute.String("mcp.error_kind", kind.String()))
			span.RecordError(failure)
			span.SetStatus(codes.Error, failure.Error())
			errorCounter.Add(ctx, 1, metric.WithAttributes(errAttrs...))

			return resp, err
		}
	}
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
