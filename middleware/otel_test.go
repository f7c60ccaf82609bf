package middleware

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

func spanAttr(span tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOTel_Span(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	handler := Chain(
		RequestIDWithGenerator(func() string { return "req-7" }),
		OTel(WithTracerProvider(tp), WithOTelServiceName("docs-test")),
	)(okHandler)

	if _, err := handler(context.Background(), toolCall(1, "read_doc_contents")); err != nil {
		t.Fatal(err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "mcp.tools/call" {
		t.Errorf("span name = %q", span.Name)
	}
	if span.Status.Code != codes.Ok {
		t.Errorf("status = %v, want Ok", span.Status.Code)
	}
	for key, want := range map[string]string{
		"mcp.method":     "tools/call",
		"mcp.target":     "read_doc_contents",
		"mcp.request_id": "req-7",
		"service.name":   "docs-test",
	} {
		if v, ok := spanAttr(span, key); !ok || v.AsString() != want {
			t.Errorf("%s = %v, want %s", key, v.AsString(), want)
		}
	}
}

func TestOTel_ErrorResponse(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	notFound := func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		return protocol.NewErrorResponse(req.ID, protocol.NewNotFound("tool not found: nope")), nil
	}

	if _, err := OTel(WithTracerProvider(tp))(notFound)(context.Background(), toolCall(1, "nope")); err != nil {
		t.Fatal(err)
	}

	span := exporter.GetSpans()[0]
	if span.Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", span.Status.Code)
	}
	if v, _ := spanAttr(span, "mcp.error_kind"); v.AsString() != "capability_not_found" {
		t.Errorf("mcp.error_kind = %q", v.AsString())
	}
	if v, _ := spanAttr(span, "mcp.error_code"); v.AsInt64() != protocol.CodeNotFound {
		t.Errorf("mcp.error_code = %d", v.AsInt64())
	}
}

func TestOTel_SkipsPing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ping, _ := protocol.NewRequest(1, protocol.MethodPing, nil)
	handler := OTel(WithTracerProvider(tp), WithOTelSkipMethods(protocol.MethodToolsList))(okHandler)
	list, _ := protocol.NewRequest(2, protocol.MethodToolsList, nil)

	for _, req := range []*protocol.Request{ping, list} {
		if _, err := handler(context.Background(), req); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(exporter.GetSpans()); n != 0 {
		t.Errorf("expected no spans, got %d", n)
	}
}

func TestOTel_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	fault := func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		return nil, protocol.NewHandlerFault("boom")
	}
	ok := OTel(WithMeterProvider(mp))(okHandler)
	bad := OTel(WithMeterProvider(mp))(fault)

	_, _ = ok(context.Background(), toolCall(1, "a"))
	_, _ = ok(context.Background(), toolCall(2, "a"))
	_, _ = bad(context.Background(), toolCall(3, "a"))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	sums := map[string]int64{}
	var sawHistogram bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				sawHistogram = m.Name == "mcp.server.request.duration"
			}
		}
	}

	if sums["mcp.server.requests"] != 3 {
		t.Errorf("requests = %d, want 3", sums["mcp.server.requests"])
	}
	if sums["mcp.server.errors"] != 1 {
		t.Errorf("errors = %d, want 1", sums["mcp.server.errors"])
	}
	if !sawHistogram {
		t.Error("expected a duration histogram")
	}
}

func TestAddSpanEvent(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	h := func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		AddSpanEvent(ctx, "mcp.cancelled", attribute.String("reason", "client gave up"))
		return okHandler(ctx, req)
	}
	if _, err := OTel(WithTracerProvider(tp))(h)(context.Background(), toolCall(1, "a")); err != nil {
		t.Fatal(err)
	}

	events := exporter.GetSpans()[0].Events
	if len(events) != 1 || events[0].Name != "mcp.cancelled" {
		t.Errorf("events = %+v", events)
	}
}
