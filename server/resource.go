package server

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// ResourceContent represents the content returned by a resource read.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// ResourceHandler is the function signature for resource handlers.
// params holds the value bound to the template placeholder, if any.
type ResourceHandler func(ctx context.Context, uri string, params map[string]string) (*ResourceContent, error)

// Resource represents a readable resource addressed by a URI template.
//
// A template is a literal URI with at most one {name} placeholder. The
// placeholder binds exactly one path segment: one or more characters
// other than '/'.
type Resource struct {
	uriTemplate string
	name        string
	description string
	mimeType    string
	handler     ResourceHandler

	uriRegex  *regexp.Regexp
	paramName string
}

// ResourceInfo is the discovery view of a resource.
type ResourceInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Info returns the discovery view of the resource.
func (r *Resource) Info() ResourceInfo {
	return ResourceInfo{
		URI:         r.uriTemplate,
		Name:        r.name,
		Description: r.description,
		MimeType:    r.mimeType,
	}
}

// ResourceBuilder provides a fluent API for building resources.
type ResourceBuilder struct {
	resource *Resource
	server   *Server
	err      error
}

// Name sets an optional human-readable name for the resource.
func (b *ResourceBuilder) Name(name string) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	b.resource.name = name
	return b
}

// Description sets the resource description.
func (b *ResourceBuilder) Description(desc string) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	b.resource.description = desc
	return b
}

// MimeType sets the MIME type of the resource content.
func (b *ResourceBuilder) MimeType(mimeType string) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	b.resource.mimeType = mimeType
	return b
}

// Handler sets the resource handler function and registers the resource.
func (b *ResourceBuilder) Handler(fn ResourceHandler) *ResourceBuilder {
	if b.err != nil {
		return b
	}
	if fn == nil {
		b.err = fmt.Errorf("resource %q: handler is nil", b.resource.uriTemplate)
		return b
	}

	if err := b.resource.compileTemplate(); err != nil {
		b.err = fmt.Errorf("resource %q: %w", b.resource.uriTemplate, err)
		return b
	}

	b.resource.handler = fn
	b.server.registerResource(b.resource)
	return b
}

// Err returns the first error encountered while building, if any.
// A resource with a builder error is not registered.
func (b *ResourceBuilder) Err() error {
	return b.err
}

// compileTemplate turns the template into an anchored regular expression.
func (r *Resource) compileTemplate() error {
	tmpl := r.uriTemplate
	if tmpl == "" {
		return fmt.Errorf("empty URI template")
	}

	open := strings.IndexByte(tmpl, '{')
	if open == -1 {
		if strings.IndexByte(tmpl, '}') != -1 {
			return fmt.Errorf("unbalanced '}' in URI template")
		}
		r.uriRegex = regexp.MustCompile("^" + regexp.QuoteMeta(tmpl) + "$")
		return nil
	}

	closeIdx := strings.IndexByte(tmpl[open:], '}')
	if closeIdx == -1 {
		return fmt.Errorf("unbalanced '{' in URI template")
	}
	closeIdx += open

	name := tmpl[open+1 : closeIdx]
	if name == "" || strings.ContainsAny(name, "{/") {
		return fmt.Errorf("invalid placeholder %q", tmpl[open:closeIdx+1])
	}

	prefix, suffix := tmpl[:open], tmpl[closeIdx+1:]
	if strings.ContainsAny(suffix, "{}") || strings.IndexByte(prefix, '}') != -1 {
		return fmt.Errorf("URI template may contain at most one placeholder")
	}

	r.paramName = name
	r.uriRegex = regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + "([^/]+)" + regexp.QuoteMeta(suffix) + "$")
	return nil
}

// Match reports whether uri addresses this resource and returns the bound
// placeholder value.
func (r *Resource) Match(uri string) (map[string]string, bool) {
	m := r.uriRegex.FindStringSubmatch(uri)
	if m == nil {
		return nil, false
	}
	params := make(map[string]string, 1)
	if r.paramName != "" {
		params[r.paramName] = m[1]
	}
	return params, true
}
