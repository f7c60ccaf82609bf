package server

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/felixgeelhaar/mcp-docs/protocol"
	"github.com/felixgeelhaar/mcp-docs/schema"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Tool represents a callable operation.
type Tool struct {
	name        string
	description string
	inputType   reflect.Type
	inputSchema *schema.Schema
	handler     reflect.Value
	hasContext  bool
}

// ToolInfo is the discovery view of a tool.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema *schema.Schema `json:"inputSchema"`
}

// Name returns the tool name.
func (t *Tool) Name() string { return t.name }

// Info returns the discovery view of the tool.
func (t *Tool) Info() ToolInfo {
	return ToolInfo{
		Name:        t.name,
		Description: t.description,
		InputSchema: t.inputSchema,
	}
}

// ToolBuilder provides a fluent API for building tools.
type ToolBuilder struct {
	tool   *Tool
	server *Server
	err    error
}

// Description sets the tool description.
func (b *ToolBuilder) Description(desc string) *ToolBuilder {
	if b.err != nil {
		return b
	}
	b.tool.description = desc
	return b
}

// Handler sets the tool handler function and registers the tool.
// Handler signature must be one of:
//   - func(input T) (R, error)
//   - func(ctx context.Context, input T) (R, error)
//
// T must be a struct; its fields, json tags and jsonschema tags define the
// tool's parameters.
func (b *ToolBuilder) Handler(fn any) *ToolBuilder {
	if b.err != nil {
		return b
	}

	if err := b.bindHandler(fn); err != nil {
		b.err = fmt.Errorf("tool %q: %w", b.tool.name, err)
		return b
	}

	b.server.registerTool(b.tool)
	return b
}

// Err returns the first error encountered while building, if any.
// A tool with a builder error is not registered.
func (b *ToolBuilder) Err() error {
	return b.err
}

func (b *ToolBuilder) bindHandler(fn any) error {
	if fn == nil {
		return fmt.Errorf("handler must be a function, got nil")
	}
	fnType := reflect.TypeOf(fn)
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("handler must be a function, got %s", fnType.Kind())
	}

	numIn := fnType.NumIn()
	if numIn < 1 || numIn > 2 {
		return fmt.Errorf("handler must have 1 or 2 parameters, got %d", numIn)
	}

	inputIdx := 0
	if numIn == 2 {
		if !fnType.In(0).Implements(contextType) {
			return fmt.Errorf("first parameter must be context.Context when using 2 parameters")
		}
		b.tool.hasContext = true
		inputIdx = 1
	}

	inputType := fnType.In(inputIdx)
	if inputType.Kind() == reflect.Ptr {
		return fmt.Errorf("input parameter must be a struct value, got %s", inputType)
	}
	if inputType.Kind() != reflect.Struct {
		return fmt.Errorf("input parameter must be a struct, got %s", inputType.Kind())
	}
	b.tool.inputType = inputType

	inputSchema, err := schema.GenerateFromType(inputType)
	if err != nil {
		return fmt.Errorf("failed to generate input schema: %w", err)
	}
	b.tool.inputSchema = inputSchema

	if fnType.NumOut() != 2 {
		return fmt.Errorf("handler must return (result, error), got %d return values", fnType.NumOut())
	}
	if !fnType.Out(1).Implements(errorType) {
		return fmt.Errorf("second return value must be error")
	}

	b.tool.handler = reflect.ValueOf(fn)
	return nil
}

// validate checks raw arguments against the tool's schema and decodes them
// into a fresh input value.
func (t *Tool) validate(args json.RawMessage) (reflect.Value, error) {
	if err := t.inputSchema.Validate(args); err != nil {
		return reflect.Value{}, protocol.NewInvalidParams(fmt.Sprintf("invalid arguments for tool %s: %v", t.name, err))
	}

	input := reflect.New(t.inputType)
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, input.Interface()); err != nil {
			return reflect.Value{}, protocol.NewInvalidParams(fmt.Sprintf("invalid arguments for tool %s: %v", t.name, err))
		}
	}
	return input.Elem(), nil
}

// invoke calls the handler with already validated input.
func (t *Tool) invoke(ctx context.Context, input reflect.Value) (any, error) {
	var args []reflect.Value
	if t.hasContext {
		args = append(args, reflect.ValueOf(ctx))
	}
	args = append(args, input)

	results := t.handler.Call(args)

	if errVal := results[1].Interface(); errVal != nil {
		return nil, errVal.(error)
	}
	return results[0].Interface(), nil
}
