// Package transport provides MCP transport implementations.
package transport

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// Handler processes incoming MCP requests.
type Handler interface {
	HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
}

// HandlerFunc is an adapter to allow ordinary functions as handlers.
type HandlerFunc func(ctx context.Context, req *protocol.Request) (*protocol.Response, error)

// HandleRequest calls f(ctx, req).
func (f HandlerFunc) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return f(ctx, req)
}

// Transport defines the communication layer interface.
type Transport interface {
	// Serve starts the transport, blocking until ctx is canceled or an error occurs.
	Serve(ctx context.Context, handler Handler) error

	// Addr returns the transport's address description.
	Addr() string
}

// NotificationSender can send JSON-RPC notifications to clients.
type NotificationSender interface {
	SendNotification(method string, params any) error
}

// notificationSenderKey is the context key for the notification sender.
type notificationSenderKey struct{}

// ContextWithNotificationSender returns a context with the notification sender attached.
func ContextWithNotificationSender(ctx context.Context, sender NotificationSender) context.Context {
	return context.WithValue(ctx, notificationSenderKey{}, sender)
}

// NotificationSenderFromContext returns the notification sender from context, or nil if none.
func NotificationSenderFromContext(ctx context.Context) NotificationSender {
	sender, _ := ctx.Value(notificationSenderKey{}).(NotificationSender)
	return sender
}

type sessionKey struct{}

// ContextWithSession tags ctx with the session a request arrived on.
// Request IDs are only unique within a session.
func ContextWithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFromContext returns the session ID, or "" for transports that
// carry a single session.
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// Notification represents a JSON-RPC notification (no ID, no response expected).
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewNotification builds a notification with marshaled params.
func NewNotification(method string, params any) (*Notification, error) {
	n := &Notification{JSONRPC: protocol.JSONRPCVersion, Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		n.Params = data
	}
	return n, nil
}

// handle runs req through handler and returns the response to write back.
// Handler errors become JSON-RPC error responses; errors that are not
// protocol errors are reported as internal errors. The result is nil for
// notifications.
func handle(ctx context.Context, handler Handler, req *protocol.Request) *protocol.Response {
	resp, err := handler.HandleRequest(ctx, req)
	if req.IsNotification() {
		return nil
	}

	if err != nil {
		var mcpErr *protocol.Error
		if errors.As(err, &mcpErr) {
			return protocol.NewErrorResponse(req.ID, mcpErr)
		}
		return protocol.NewErrorResponse(req.ID, protocol.NewInternalError(err.Error()))
	}
	return resp
}

// decodeRequest parses a single JSON-RPC request frame. A frame that is not
// valid JSON yields a parse error response; a frame without a method an
// invalid request response.
func decodeRequest(data []byte) (*protocol.Request, *protocol.Response) {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, protocol.NewErrorResponse(nil, protocol.NewParseError(err.Error()))
	}
	if req.Method == "" {
		return nil, protocol.NewErrorResponse(req.ID, protocol.NewInvalidRequest("missing method"))
	}
	return &req, nil
}
