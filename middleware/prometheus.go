package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// Metrics holds the Prometheus collectors for the dispatch path.
//
// Labels are bounded: method is a protocol method and kind one of the
// protocol.Kind names. Resource URIs are never used as labels.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	toolErrorsTotal *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on a private
// registry under the given namespace.
func NewMetrics(namespace string) (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of JSON-RPC requests by method and outcome",
			},
			[]string{"method", "kind"},
		),
		toolErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_errors_total",
				Help:      "Tool calls that completed with a reported failure",
			},
			[]string{"tool"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request latency by method",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"method"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Requests currently being handled",
		}),
	}

	for _, c := range []prometheus.Collector{m.requestsTotal, m.toolErrorsTotal, m.requestDuration, m.inFlight} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware returns middleware that records every request.
func (m *Metrics) Middleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			m.inFlight.Inc()
			defer m.inFlight.Dec()
			start := time.Now()

			resp, err := next(ctx, req)

			m.requestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

			failure := err
			if failure == nil && resp != nil && resp.Error != nil {
				failure = resp.Error
			}
			m.requestsTotal.WithLabelValues(req.Method, protocol.KindOf(failure).String()).Inc()

			if failure == nil && req.Method == protocol.MethodToolsCall && resp != nil && toolReportedError(resp) {
				m.toolErrorsTotal.WithLabelValues(Target(req)).Inc()
			}

			return resp, err
		}
	}
}

// toolReportedError reports whether a tools/call result has isError set.
func toolReportedError(resp *protocol.Response) bool {
	var result struct {
		IsError bool `json:"isError"`
	}
	if err := resp.DecodeResult(&result); err != nil {
		return false
	}
	return result.IsError
}
