package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// Logger is the interface for structured logging.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logging returns middleware that logs each request once it completes.
//
// Successful requests are logged at info level. Requests rejected before a
// handler ran (unknown capability, bad arguments) are logged at warn level;
// handler faults and internal errors at error level.
func Logging(logger Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			start := time.Now()

			resp, err := next(ctx, req)

			fields := []Field{
				F("method", req.Method),
				F("duration", time.Since(start)),
			}
			if target := Target(req); target != "" {
				fields = append(fields, F("target", target))
			}
			if requestID := RequestIDFromContext(ctx); requestID != "" {
				fields = append(fields, F("request_id", requestID))
			}

			if err == nil && resp != nil && resp.Error != nil {
				err = resp.Error
			}
			if err == nil {
				if req.IsNotification() {
					logger.Debug("notification handled", fields...)
				} else {
					logger.Info("request completed", fields...)
				}
				return resp, nil
			}

			kind := protocol.KindOf(err)
			fields = append(fields, F("kind", kind.String()), F("error", err.Error()))
			switch kind {
			case protocol.KindCapabilityNotFound, protocol.KindInvalidArguments:
				logger.Warn("request rejected", fields...)
			default:
				logger.Error("request failed", fields...)
			}

			if resp != nil && resp.Error != nil {
				return resp, nil
			}
			return resp, err
		}
	}
}

// NopLogger is a logger that discards all log entries.
type NopLogger struct{}

func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
