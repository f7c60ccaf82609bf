package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// RateLimitOption configures the rate limiter.
type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	keyFunc func(*protocol.Request) string
	logger  Logger
	exempt  map[string]bool
}

// WithRateLimitKeyFunc sets a function to extract a rate limit key from requests.
func WithRateLimitKeyFunc(fn func(*protocol.Request) string) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.keyFunc = fn
	}
}

// WithRateLimitLogger sets the logger for rate limit events.
func WithRateLimitLogger(l Logger) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.logger = l
	}
}

// WithRateLimitExempt lets the given methods through without taking a
// token.
func WithRateLimitExempt(methods ...string) RateLimitOption {
	return func(o *rateLimitConfig) {
		for _, m := range methods {
			o.exempt[m] = true
		}
	}
}

// RateLimit returns middleware that limits request rate using a token
// bucket refilled at rate tokens per second and holding at most burst.
// Requests over the limit fail with protocol.CodeRateLimited. The
// initialize handshake, ping and notifications are exempt by default.
func RateLimit(rate int, burst int, opts ...RateLimitOption) Middleware {
	cfg := &rateLimitConfig{
		keyFunc: func(_ *protocol.Request) string { return "global" },
		exempt: map[string]bool{
			protocol.MethodInitialize: true,
			protocol.MethodPing:       true,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Rate:     rate,
		Burst:    burst,
		Interval: time.Second,
	})

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if cfg.exempt[req.Method] || req.IsNotification() {
				return next(ctx, req)
			}

			key := cfg.keyFunc(req)
			if !limiter.Allow(ctx, key) {
				if cfg.logger != nil {
					cfg.logger.Warn("rate limit exceeded",
						F("method", req.Method),
						F("key", key),
					)
				}
				return nil, &protocol.Error{
					Code:    protocol.CodeRateLimited,
					Message: "rate limit exceeded",
				}
			}

			return next(ctx, req)
		}
	}
}

// RateLimitByTarget returns rate limiting middleware with a separate bucket
// per tool, prompt or resource, so a busy capability cannot starve the
// others.
func RateLimitByTarget(rate int, burst int, opts ...RateLimitOption) Middleware {
	allOpts := append([]RateLimitOption{
		WithRateLimitKeyFunc(func(req *protocol.Request) string {
			if t := Target(req); t != "" {
				return req.Method + ":" + t
			}
			return req.Method
		}),
	}, opts...)
	return RateLimit(rate, burst, allOpts...)
}
