package middleware

import "time"

// StackConfig selects the middleware NewStack assembles. Zero values turn
// the corresponding middleware off.
type StackConfig struct {
	Logger Logger

	// Timeout bounds each request.
	Timeout time.Duration

	// Rate is the allowed requests per second; Burst the bucket size.
	Rate  int
	Burst int

	// MaxRequestBytes bounds the size of request params.
	MaxRequestBytes int64

	// Metrics records Prometheus metrics when set.
	Metrics *Metrics

	// OTel enables tracing and OpenTelemetry metrics with these options.
	OTel    bool
	OTelOpt []OTelOption
}

// DefaultStack returns the recommended production middleware stack:
// panic recovery, request ID injection and logging.
func DefaultStack(logger Logger) []Middleware {
	return NewStack(StackConfig{Logger: logger})
}

// NewStack returns the middleware selected by cfg in execution order.
// Recovery runs outermost, so a panic anywhere below becomes an internal
// error.
func NewStack(cfg StackConfig) []Middleware {
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger{}
	}

	stack := []Middleware{
		Recover(WithRecoverLogger(logger)),
		RequestID(),
		Logging(logger),
	}
	if cfg.Metrics != nil {
		stack = append(stack, cfg.Metrics.Middleware())
	}
	if cfg.OTel {
		stack = append(stack, OTel(cfg.OTelOpt...))
	}
	if cfg.MaxRequestBytes > 0 {
		stack = append(stack, SizeLimit(cfg.MaxRequestBytes, WithSizeLimitLogger(logger)))
	}
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.Rate
		}
		stack = append(stack, RateLimit(cfg.Rate, burst, WithRateLimitLogger(logger)))
	}
	if cfg.Timeout > 0 {
		stack = append(stack, Timeout(cfg.Timeout))
	}
	return stack
}
