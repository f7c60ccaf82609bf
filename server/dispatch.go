package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// ToolResult is the outcome of a tool call. A handler fault is reported
// here with IsError set rather than as a protocol error.
type ToolResult struct {
	Content []TextContent `json:"content"`
	IsError bool          `json:"isError"`
}

// Text returns the concatenated text of all content items.
func (r *ToolResult) Text() string {
	var sb strings.Builder
	for _, c := range r.Content {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// ResourceResult is the outcome of a resource read.
type ResourceResult struct {
	Contents []ResourceContent `json:"contents"`
}

// ListTools returns every registered tool in registration order.
func (s *Server) ListTools() []ToolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := s.tools.values()
	out := make([]ToolInfo, 0, len(tools))
	for _, t := range tools {
		out = append(out, t.Info())
	}
	return out
}

// ListResources returns every registered resource in registration order.
func (s *Server) ListResources() []ResourceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resources := s.resources.values()
	out := make([]ResourceInfo, 0, len(resources))
	for _, r := range resources {
		out = append(out, r.Info())
	}
	return out
}

// ListPrompts returns every registered prompt in registration order.
func (s *Server) ListPrompts() []PromptInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prompts := s.prompts.values()
	out := make([]PromptInfo, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, p.Info())
	}
	return out
}

// ResolveTool returns the tool registered under name.
func (s *Server) ResolveTool(name string) (*Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tools.get(name)
	if !ok {
		return nil, protocol.NewNotFound("tool not found: " + name)
	}
	return t, nil
}

// ResolvePrompt returns the prompt registered under name.
func (s *Server) ResolvePrompt(name string) (*Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prompts.get(name)
	if !ok {
		return nil, protocol.NewNotFound("prompt not found: " + name)
	}
	return p, nil
}

// ResolveResource finds the first registered resource whose template
// matches uri and returns it with the bound parameters.
func (s *Server) ResolveResource(uri string) (*Resource, map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.resources.values() {
		if params, ok := r.Match(uri); ok {
			return r, params, nil
		}
	}
	return nil, nil, protocol.NewNotFound("resource not found: " + uri)
}

// CallTool resolves, validates and runs a tool.
//
// Unknown tools and malformed arguments are returned as errors and the
// handler is not run. An error returned by the handler is reported in the
// result with IsError set, unless it is a *protocol.Error or a context
// error, which are returned as is.
func (s *Server) CallTool(ctx context.Context, name string, args json.RawMessage) (*ToolResult, error) {
	tool, err := s.ResolveTool(name)
	if err != nil {
		return nil, err
	}

	input, err := tool.validate(args)
	if err != nil {
		return nil, err
	}

	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	result, err := func() (any, error) {
		defer s.release()
		return tool.invoke(ctx, input)
	}()

	if err != nil {
		var protoErr *protocol.Error
		if errors.As(err, &protoErr) {
			return nil, protoErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		return &ToolResult{
			Content: []TextContent{NewTextContent(err.Error())},
			IsError: true,
		}, nil
	}

	text, err := formatToolResult(result)
	if err != nil {
		return nil, protocol.NewInternalError(fmt.Sprintf("tool %s: encode result: %v", name, err))
	}
	return &ToolResult{Content: []TextContent{NewTextContent(text)}}, nil
}

// ReadResource resolves uri against the registered templates and runs the
// matching handler. Handler errors are returned as handler faults.
func (s *Server) ReadResource(ctx context.Context, uri string) (*ResourceResult, error) {
	resource, params, err := s.ResolveResource(uri)
	if err != nil {
		return nil, err
	}

	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	content, err := func() (*ResourceContent, error) {
		defer s.release()
		return resource.handler(ctx, uri, params)
	}()
	if err != nil {
		return nil, handlerFault(ctx, err)
	}
	if content == nil {
		return nil, protocol.NewHandlerFault(fmt.Sprintf("resource %s returned no content", uri))
	}

	if content.URI == "" {
		content.URI = uri
	}
	if content.MimeType == "" {
		content.MimeType = resource.mimeType
	}
	return &ResourceResult{Contents: []ResourceContent{*content}}, nil
}

// GetPrompt resolves, validates and runs a prompt. Handler errors are
// returned as handler faults.
func (s *Server) GetPrompt(ctx context.Context, name string, args map[string]string) (*PromptResult, error) {
	prompt, err := s.ResolvePrompt(name)
	if err != nil {
		return nil, err
	}

	if err := prompt.validate(args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]string{}
	}

	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	result, err := func() (*PromptResult, error) {
		defer s.release()
		return prompt.handler(ctx, args)
	}()
	if err != nil {
		return nil, handlerFault(ctx, err)
	}
	if result == nil {
		return nil, protocol.NewHandlerFault(fmt.Sprintf("prompt %s returned no result", name))
	}
	return result, nil
}

// handlerFault classifies an error returned by a resource or prompt handler.
func handlerFault(ctx context.Context, err error) error {
	var protoErr *protocol.Error
	if errors.As(err, &protoErr) {
		return protoErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	return protocol.NewHandlerFault(err.Error())
}

// formatToolResult renders a handler result as text. Strings pass through
// unchanged; anything else is JSON encoded.
func formatToolResult(v any) (string, error) {
	switch r := v.(type) {
	case nil:
		return "", nil
	case string:
		return r, nil
	case json.RawMessage:
		return string(r), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
