// Package middleware provides request middleware for the JSON-RPC handler
// that fronts the dispatch engine.
//
// Each middleware wraps the next handler in the chain, so it sees the
// request before dispatch and the response after it:
//
//	chain := middleware.Chain(
//	    middleware.Recover(),
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	)
//	handler := chain(baseHandler)
//
// # Available Middleware
//
//   - Recover: converts panics to internal errors
//   - RequestID: tags the context with a unique request ID
//   - Logging: logs each request with its target and error classification
//   - Timeout: bounds each request with a deadline
//   - RateLimit, RateLimitByTarget: token bucket limiting via fortify
//   - SizeLimit: rejects oversized params
//   - OTel: OpenTelemetry spans and metrics
//   - Metrics.Middleware: Prometheus collectors
//
// # Stacks
//
// NewStack assembles the middleware selected by a StackConfig in a fixed
// order, with Recover outermost:
//
//	stack := middleware.NewStack(middleware.StackConfig{
//	    Logger:  middleware.NewSlogLogger(slog.Default()),
//	    Timeout: 30 * time.Second,
//	    Rate:    50,
//	})
//
// DefaultStack is the Recover, RequestID and Logging subset.
package middleware
