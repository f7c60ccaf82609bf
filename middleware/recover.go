package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// PanicHandler is called when a panic is recovered.
type PanicHandler func(ctx context.Context, req *protocol.Request, panicVal any) (*protocol.Response, error)

// RecoverOption configures Recover.
type RecoverOption func(*recoverConfig)

type recoverConfig struct {
	handler PanicHandler
	logger  Logger
}

// WithPanicHandler replaces the default conversion of a panic into an
// internal error.
func WithPanicHandler(h PanicHandler) RecoverOption {
	return func(c *recoverConfig) {
		c.handler = h
	}
}

// WithRecoverLogger logs recovered panics with their stack.
func WithRecoverLogger(l Logger) RecoverOption {
	return func(c *recoverConfig) {
		c.logger = l
	}
}

// Recover returns middleware that catches panics in later handlers.
// By default the panic becomes a protocol internal error whose message
// carries the panic value.
func Recover(opts ...RecoverOption) Middleware {
	cfg := &recoverConfig{handler: defaultPanicHandler}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (resp *protocol.Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					if cfg.logger != nil {
						cfg.logger.Error("panic recovered",
							F("method", req.Method),
							F("panic", fmt.Sprint(r)),
							F("stack", string(debug.Stack())),
						)
					}
					resp, err = cfg.handler(ctx, req, r)
				}
			}()
			return next(ctx, req)
		}
	}
}

func defaultPanicHandler(_ context.Context, _ *protocol.Request, panicVal any) (*protocol.Response, error) {
	return nil, protocol.NewInternalError(fmt.Sprintf("panic: %v", panicVal))
}
