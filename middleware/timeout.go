package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// Timeout returns middleware that bounds each request by d. The request's
// context is cancelled when the deadline passes; the dispatch engine then
// abandons the request and returns context.DeadlineExceeded. Notifications
// and a non-positive d are not bounded.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if req.IsNotification() {
				return next(ctx, req)
			}
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}
