// Package mcp serves document capabilities over the Model Context Protocol.
//
// A Server holds tools, resources and prompts; this package adapts it to
// JSON-RPC and runs it on one of the transports:
//
//	srv, _, err := docs.NewServer(mcp.ServerInfo{
//	    Name:    "DocumentMCP",
//	    Version: "1.0.0",
//	})
//	if err != nil {
//	    return err
//	}
//
//	mcp.ServeStdio(ctx, srv, mcp.WithLogger(logger))
//
// Capabilities can also be registered directly with typed handlers:
//
//	type ReadInput struct {
//	    DocID string `json:"doc_id" jsonschema:"required"`
//	}
//
//	srv.Tool("read").
//	    Description("Read a document").
//	    Handler(func(ctx context.Context, in ReadInput) (string, error) {
//	        return store.Get(in.DocID)
//	    })
package mcp

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/mcp-docs/middleware"
	"github.com/felixgeelhaar/mcp-docs/protocol"
	"github.com/felixgeelhaar/mcp-docs/server"
	"github.com/felixgeelhaar/mcp-docs/transport"
)

// Re-export core types for convenience

// ServerInfo contains server metadata exposed to clients.
type ServerInfo = server.Info

// Capabilities declares what features the server supports.
type Capabilities = server.Capabilities

// Server is the MCP server instance.
type Server = server.Server

// Option configures a Server.
type Option = server.Option

// Result types
type ToolResult = server.ToolResult
type ResourceResult = server.ResourceResult
type ResourceContent = server.ResourceContent
type PromptResult = server.PromptResult
type PromptMessage = server.PromptMessage
type TextContent = server.TextContent

// Discovery types
type ToolInfo = server.ToolInfo
type ResourceInfo = server.ResourceInfo
type PromptInfo = server.PromptInfo
type PromptArgument = server.PromptArgument

// Middleware types
type Middleware = middleware.Middleware
type MiddlewareHandlerFunc = middleware.HandlerFunc
type Logger = middleware.Logger
type LogField = middleware.Field

// Implementation names a client or server in the handshake.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the result of the initialize handshake.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ServerInfo      Implementation `json:"serverInfo"`
	Capabilities    map[string]any `json:"capabilities"`
}

// ListToolsResult is the result of tools/list.
type ListToolsResult struct {
	Tools []ToolInfo `json:"tools"`
}

// ListResourcesResult is the result of resources/list.
type ListResourcesResult struct {
	Resources []ResourceInfo `json:"resources"`
}

// ListPromptsResult is the result of prompts/list.
type ListPromptsResult struct {
	Prompts []PromptInfo `json:"prompts"`
}

// CallToolParams are the params of tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ReadResourceParams are the params of resources/read.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// GetPromptParams are the params of prompts/get.
type GetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// HTTPOption configures the HTTP transport.
type HTTPOption = transport.HTTPOption

// WebSocketOption configures the WebSocket transport.
type WebSocketOption = transport.WebSocketOption

// ServeOption configures how the server is run.
type ServeOption func(*serveOptions)

type serveOptions struct {
	middleware []Middleware
	logger     Logger
}

// WithMiddleware adds middleware to the request handling chain.
func WithMiddleware(m ...Middleware) ServeOption {
	return func(o *serveOptions) {
		o.middleware = append(o.middleware, m...)
	}
}

// WithLogger sets the logger for the default middleware stack. It has no
// effect when middleware is given with WithMiddleware.
func WithLogger(l Logger) ServeOption {
	return func(o *serveOptions) {
		o.logger = l
	}
}

// NewServer creates a new MCP server with the given info and options.
func NewServer(info ServerInfo, opts ...Option) *Server {
	return server.New(info, opts...)
}

// ServeStdio runs srv on stdin and stdout until stdin is closed or ctx is
// cancelled.
func ServeStdio(ctx context.Context, srv *Server, opts ...ServeOption) error {
	return ServeTransport(ctx, transport.NewStdio(), srv, opts...)
}

// ServeHTTP runs srv over HTTP with an SSE notification stream until ctx is
// cancelled.
func ServeHTTP(ctx context.Context, srv *Server, addr string, httpOpts []HTTPOption, opts ...ServeOption) error {
	return ServeTransport(ctx, transport.NewHTTP(addr, httpOpts...), srv, opts...)
}

// ServeWebSocket runs srv over WebSocket until ctx is cancelled.
func ServeWebSocket(ctx context.Context, srv *Server, addr string, wsOpts []WebSocketOption, opts ...ServeOption) error {
	return ServeTransport(ctx, transport.NewWebSocket(addr, wsOpts...), srv, opts...)
}

// ServeTransport runs srv on t.
func ServeTransport(ctx context.Context, t transport.Transport, srv *Server, opts ...ServeOption) error {
	return t.Serve(ctx, NewHandler(srv, opts...))
}

// requestHandler adapts Server to transport.Handler
type requestHandler struct {
	srv        *Server
	handleFunc middleware.HandlerFunc
}

// NewHandler returns the JSON-RPC handler for srv wrapped in the configured
// middleware. Transports call it once per frame.
func NewHandler(srv *Server, opts ...ServeOption) transport.Handler {
	options := &serveOptions{}
	for _, opt := range opts {
		opt(options)
	}

	h := &requestHandler{srv: srv}
	baseHandler := middleware.HandlerFunc(h.handle)

	chain := options.middleware
	if len(chain) == 0 && options.logger != nil {
		chain = middleware.DefaultStack(options.logger)
	}

	if len(chain) > 0 {
		h.handleFunc = middleware.Chain(chain...)(baseHandler)
	} else {
		h.handleFunc = baseHandler
	}

	return h
}

func (h *requestHandler) HandleRequest(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return h.handleFunc(ctx, req)
}

func (h *requestHandler) handle(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	switch req.Method {
	case protocol.MethodInitialize:
		return h.handleInitialize(req)
	case protocol.MethodInitialized:
		return nil, nil
	case protocol.MethodCancelled:
		return h.handleCancelled(ctx, req)
	case protocol.MethodPing:
		return protocol.NewResponse(req.ID, map[string]any{}), nil
	case protocol.MethodToolsList:
		return protocol.NewResponse(req.ID, ListToolsResult{Tools: h.srv.ListTools()}), nil
	case protocol.MethodResourcesList:
		return protocol.NewResponse(req.ID, ListResourcesResult{Resources: h.srv.ListResources()}), nil
	case protocol.MethodPromptsList:
		return protocol.NewResponse(req.ID, ListPromptsResult{Prompts: h.srv.ListPrompts()}), nil
	case protocol.MethodToolsCall:
		var params CallToolParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return h.dispatch(ctx, req, func(ctx context.Context) (any, error) {
			return h.srv.CallTool(ctx, params.Name, params.Arguments)
		})
	case protocol.MethodResourcesRead:
		var params ReadResourceParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return h.dispatch(ctx, req, func(ctx context.Context) (any, error) {
			return h.srv.ReadResource(ctx, params.URI)
		})
	case protocol.MethodPromptsGet:
		var params GetPromptParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		return h.dispatch(ctx, req, func(ctx context.Context) (any, error) {
			return h.srv.GetPrompt(ctx, params.Name, params.Arguments)
		})
	default:
		return nil, protocol.NewMethodNotFound(req.Method)
	}
}

func (h *requestHandler) handleInitialize(req *protocol.Request) (*protocol.Response, error) {
	manifest := h.srv.Manifest()

	// Build capabilities based on what's registered
	capabilities := make(map[string]any)
	if manifest.Capabilities.Tools {
		capabilities["tools"] = map[string]any{}
	}
	if manifest.Capabilities.Resources {
		capabilities["resources"] = map[string]any{}
	}
	if manifest.Capabilities.Prompts {
		capabilities["prompts"] = map[string]any{}
	}

	return protocol.NewResponse(req.ID, InitializeResult{
		ProtocolVersion: manifest.ProtocolVersion,
		ServerInfo:      Implementation{Name: manifest.Name, Version: manifest.Version},
		Capabilities:    capabilities,
	}), nil
}

func (h *requestHandler) handleCancelled(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if _, err := h.srv.Cancellations().HandleNotification(transport.SessionFromContext(ctx), req.Params); err != nil {
		return nil, protocol.NewInvalidParams(err.Error())
	}
	return nil, nil
}

// dispatch runs call with a context the client can cancel by request ID
// within its session.
// Handlers get a notifier bound to the transport the request arrived on.
// A request the client cancelled gets no response: the late result is
// dropped.
func (h *requestHandler) dispatch(ctx context.Context, req *protocol.Request, call func(context.Context) (any, error)) (*protocol.Response, error) {
	parent := ctx
	if sender := transport.NotificationSenderFromContext(ctx); sender != nil {
		ctx = server.ContextWithNotifier(ctx, sender)
	}

	if !req.IsNotification() {
		var done context.CancelFunc
		ctx, done = h.srv.Cancellations().Track(ctx, transport.SessionFromContext(ctx), server.RequestKey(req.ID))
		defer done()
	}

	result, err := call(ctx)

	if ctx.Err() != nil && parent.Err() == nil {
		middleware.AddSpanEvent(ctx, "mcp.cancelled", attribute.String("mcp.request_id", server.RequestKey(req.ID)))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return protocol.NewResponse(req.ID, result), nil
}

func decodeParams(req *protocol.Request, v any) error {
	if len(req.Params) == 0 {
		return protocol.NewInvalidParams("missing params")
	}
	if err := json.Unmarshal(req.Params, v); err != nil {
		return protocol.NewInvalidParams(err.Error())
	}
	return nil
}
