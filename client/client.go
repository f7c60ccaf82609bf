// Package client provides an MCP client for connecting to MCP servers.
//
// A Client is a half-duplex session: it has at most one request
// outstanding, and every call holds the session for its full round trip.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/mcp-docs/protocol"
	"github.com/felixgeelhaar/mcp-docs/schema"
)

// Transport defines the interface for client-side transport.
type Transport interface {
	// Send sends a request and waits for its response.
	Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error)
	// Notify sends a notification.
	Notify(ctx context.Context, n *protocol.Request) error
	// Close closes the transport connection.
	Close() error
}

// Client is an MCP client that communicates with an MCP server.
type Client struct {
	transport Transport
	opts      clientOptions

	// session is a one-slot semaphore held for a full round trip.
	session   chan struct{}
	requestID atomic.Int64

	mu         sync.RWMutex
	serverInfo *ServerInfo

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// ServerInfo contains information about the connected server.
type ServerInfo struct {
	Name            string
	Version         string
	ProtocolVersion string
	Capabilities    Capabilities
}

// Capabilities describes what features the server supports.
type Capabilities struct {
	Tools     bool
	Resources bool
	Prompts   bool
}

// Tool represents a tool exposed by the server.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema *schema.Schema `json:"inputSchema"`
}

// ToolResult is the result of calling a tool. IsError is set when the tool
// ran and reported a failure; the message is in Content.
type ToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError"`
}

// Text returns the concatenated text of the result's content items.
func (r *ToolResult) Text() string {
	var b strings.Builder
	for _, c := range r.Content {
		b.WriteString(c.Text)
	}
	return b.String()
}

// ContentItem represents a content item in a tool result.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Resource represents a resource exposed by the server. URI may be a
// template such as docs://content/{doc_id}.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceContent is the content of a resource.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// Prompt represents a prompt exposed by the server.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument describes an argument for a prompt.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// PromptResult is the payload a prompt builds for a language model.
type PromptResult struct {
	Description string          `json:"description,omitempty"`
	System      string          `json:"system"`
	Model       string          `json:"model"`
	Messages    []PromptMessage `json:"messages"`
}

// PromptMessage is a message in a prompt result.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	timeout     time.Duration
	clientName  string
	clientVer   string
	protocolVer string
}

// WithTimeout sets the default timeout for requests. Zero disables it;
// calls then wait as long as their context allows.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithClientInfo sets the client name and version for initialization.
func WithClientInfo(name, version string) Option {
	return func(o *clientOptions) {
		o.clientName = name
		o.clientVer = version
	}
}

// WithProtocolVersion sets the protocol version to use.
func WithProtocolVersion(version string) Option {
	return func(o *clientOptions) {
		o.protocolVer = version
	}
}

// New creates a new MCP client with the given transport. No traffic is
// sent until Connect.
func New(transport Transport, opts ...Option) *Client {
	options := clientOptions{
		timeout:     30 * time.Second,
		clientName:  "mcp-docs-client",
		clientVer:   "1.0.0",
		protocolVer: protocol.MCPVersion,
	}

	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		transport: transport,
		opts:      options,
		session:   make(chan struct{}, 1),
	}
}

type initializeResult struct {
	ProtocolVersion string `json:"protocolVersion"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
	Capabilities map[string]json.RawMessage `json:"capabilities"`
}

// Connect performs the initialize handshake. Capabilities are not
// discovered until asked for.
func (c *Client) Connect(ctx context.Context) (*ServerInfo, error) {
	params := map[string]any{
		"protocolVersion": c.opts.protocolVer,
		"clientInfo": map[string]any{
			"name":    c.opts.clientName,
			"version": c.opts.clientVer,
		},
		"capabilities": map[string]any{},
	}

	var result initializeResult
	if err := c.call(ctx, protocol.MethodInitialize, params, &result); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	if err := c.notify(ctx, protocol.MethodInitialized, nil); err != nil {
		return nil, fmt.Errorf("initialized: %w", err)
	}

	info := &ServerInfo{
		Name:            result.ServerInfo.Name,
		Version:         result.ServerInfo.Version,
		ProtocolVersion: result.ProtocolVersion,
	}
	_, info.Capabilities.Tools = result.Capabilities["tools"]
	_, info.Capabilities.Resources = result.Capabilities["resources"]
	_, info.Capabilities.Prompts = result.Capabilities["prompts"]

	c.mu.Lock()
	c.serverInfo = info
	c.mu.Unlock()

	return info, nil
}

// ListTools returns the list of tools available on the server.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var result struct {
		Tools []Tool `json:"tools"`
	}
	if err := c.call(ctx, protocol.MethodToolsList, nil, &result); err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return result.Tools, nil
}

// CallTool calls a tool on the server with the given arguments.
// A failure the tool reports is a result with IsError set, not an error.
func (c *Client) CallTool(ctx context.Context, name string, arguments any) (*ToolResult, error) {
	params := map[string]any{
		"name": name,
	}
	if arguments != nil {
		params["arguments"] = arguments
	}

	var result ToolResult
	if err := c.call(ctx, protocol.MethodToolsCall, params, &result); err != nil {
		return nil, fmt.Errorf("call tool %q: %w", name, err)
	}
	return &result, nil
}

// ListResources returns the list of resources available on the server.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	var result struct {
		Resources []Resource `json:"resources"`
	}
	if err := c.call(ctx, protocol.MethodResourcesList, nil, &result); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return result.Resources, nil
}

// ReadResource reads a resource from the server.
func (c *Client) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	var result struct {
		Contents []ResourceContent `json:"contents"`
	}
	if err := c.call(ctx, protocol.MethodResourcesRead, map[string]any{"uri": uri}, &result); err != nil {
		return nil, fmt.Errorf("read resource %q: %w", uri, err)
	}
	if len(result.Contents) == 0 {
		return nil, fmt.Errorf("read resource %q: %w", uri, &TransportError{Op: "decode", Err: errors.New("no content")})
	}
	return &result.Contents[0], nil
}

// ListPrompts returns the list of prompts available on the server.
func (c *Client) ListPrompts(ctx context.Context) ([]Prompt, error) {
	var result struct {
		Prompts []Prompt `json:"prompts"`
	}
	if err := c.call(ctx, protocol.MethodPromptsList, nil, &result); err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	return result.Prompts, nil
}

// GetPrompt gets a prompt with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*PromptResult, error) {
	params := map[string]any{
		"name": name,
	}
	if arguments != nil {
		params["arguments"] = arguments
	}

	var result PromptResult
	if err := c.call(ctx, protocol.MethodPromptsGet, params, &result); err != nil {
		return nil, fmt.Errorf("get prompt %q: %w", name, err)
	}
	return &result, nil
}

// Ping sends a ping to the server.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.call(ctx, protocol.MethodPing, nil, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ServerInfo returns the cached server info from Connect, or nil before it.
func (c *Client) ServerInfo() *ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// Close closes the client connection. It may be called more than once and
// before Connect.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.transport.Close()
	})
	return c.closeErr
}

// acquire takes the session, giving up when ctx ends.
func (c *Client) acquire(ctx context.Context) error {
	select {
	case c.session <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() {
	<-c.session
}

// call makes a JSON-RPC call to the server and decodes its result into
// result. Server errors are returned as *protocol.Error. If ctx ends first
// the server is told to cancel the request, the context error is returned
// and the late response is ignored.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	if c.closed.Load() {
		return &TransportError{Op: "send", Err: ErrClosed}
	}

	if c.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.timeout)
		defer cancel()
	}

	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	req, err := protocol.NewRequest(c.requestID.Add(1), method, params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			c.cancelRequest(req, ctxErr)
		}
		return err
	}

	if resp.Error != nil {
		return resp.Error
	}

	if result != nil {
		if err := resp.DecodeResult(result); err != nil {
			return &TransportError{Op: "decode", Err: err}
		}
	}
	return nil
}

// cancelRequest tells the server to stop working on req. Failure to deliver
// the notice is ignored; the request is abandoned either way.
func (c *Client) cancelRequest(req *protocol.Request, reason error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	params, _ := json.Marshal(map[string]any{
		"requestId": req.ID,
		"reason":    reason.Error(),
	})
	_ = c.transport.Notify(ctx, &protocol.Request{
		JSONRPC: protocol.JSONRPCVersion,
		Method:  protocol.MethodCancelled,
		Params:  params,
	})
}

func (c *Client) notify(ctx context.Context, method string, params any) error {
	if c.closed.Load() {
		return &TransportError{Op: "send", Err: ErrClosed}
	}
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	n := &protocol.Request{JSONRPC: protocol.JSONRPCVersion, Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		n.Params = data
	}
	return c.transport.Notify(ctx, n)
}
