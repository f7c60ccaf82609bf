package server

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-docs/protocol"
	"github.com/felixgeelhaar/mcp-docs/schema"
)

// TextContent is a single text item in a tool result.
type TextContent struct {
	Type string `json:"type"` // Always "text"
	Text string `json:"text"`
}

// NewTextContent returns a text content item.
func NewTextContent(text string) TextContent {
	return TextContent{Type: "text", Text: text}
}

// PromptMessage is one message in an assembled prompt.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptResult is the message payload a prompt assembles. It is handed to
// the caller as is; nothing here runs a model.
type PromptResult struct {
	Description string          `json:"description,omitempty"`
	System      string          `json:"system"`
	Model       string          `json:"model"`
	Messages    []PromptMessage `json:"messages"`
}

// PromptArgument describes an argument for a prompt.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// PromptHandler is the function signature for prompt handlers.
type PromptHandler func(ctx context.Context, args map[string]string) (*PromptResult, error)

// Prompt represents a named message template.
type Prompt struct {
	name        string
	description string
	arguments   []PromptArgument
	argSchema   *schema.Schema
	handler     PromptHandler
}

// PromptInfo is the discovery view of a prompt.
type PromptInfo struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments"`
}

// Name returns the prompt name.
func (p *Prompt) Name() string { return p.name }

// Info returns the discovery view of the prompt.
func (p *Prompt) Info() PromptInfo {
	args := make([]PromptArgument, len(p.arguments))
	copy(args, p.arguments)
	return PromptInfo{
		Name:        p.name,
		Description: p.description,
		Arguments:   args,
	}
}

// PromptBuilder provides a fluent API for building prompts.
type PromptBuilder struct {
	prompt *Prompt
	server *Server
	err    error
}

// Description sets the prompt description.
func (b *PromptBuilder) Description(desc string) *PromptBuilder {
	if b.err != nil {
		return b
	}
	b.prompt.description = desc
	return b
}

// Argument declares an argument. Arguments are listed in declaration order.
func (b *PromptBuilder) Argument(name, description string, required bool) *PromptBuilder {
	if b.err != nil {
		return b
	}
	for _, a := range b.prompt.arguments {
		if a.Name == name {
			b.err = fmt.Errorf("prompt %q: duplicate argument %q", b.prompt.name, name)
			return b
		}
	}
	b.prompt.arguments = append(b.prompt.arguments, PromptArgument{
		Name:        name,
		Description: description,
		Required:    required,
	})
	return b
}

// Handler sets the prompt handler function and registers the prompt.
func (b *PromptBuilder) Handler(fn PromptHandler) *PromptBuilder {
	if b.err != nil {
		return b
	}
	if fn == nil {
		b.err = fmt.Errorf("prompt %q: handler is nil", b.prompt.name)
		return b
	}

	params := make([]schema.Param, 0, len(b.prompt.arguments))
	for _, a := range b.prompt.arguments {
		params = append(params, schema.Param{
			Name:        a.Name,
			Type:        "string",
			Required:    a.Required,
			Description: a.Description,
		})
	}
	b.prompt.argSchema = schema.Object(params...)
	b.prompt.handler = fn
	b.server.registerPrompt(b.prompt)
	return b
}

// Err returns the first error encountered while building, if any.
func (b *PromptBuilder) Err() error {
	return b.err
}

// validate rejects missing required arguments and undeclared ones.
func (p *Prompt) validate(args map[string]string) error {
	if err := p.argSchema.ValidateStrings(args); err != nil {
		return protocol.NewInvalidParams(fmt.Sprintf("invalid arguments for prompt %s: %v", p.name, err))
	}
	return nil
}
