// Package server provides the capability registry and dispatch engine.
package server

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// Info contains server metadata exposed to clients.
type Info struct {
	Name         string
	Version      string
	Capabilities Capabilities
}

// Capabilities declares what features the server supports.
type Capabilities struct {
	Tools     bool `json:"tools"`
	Resources bool `json:"resources"`
	Prompts   bool `json:"prompts"`
}

// Manifest represents the server manifest returned to clients.
type Manifest struct {
	Name            string       `json:"name"`
	Version         string       `json:"version"`
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
}

// Option configures a Server.
type Option func(*Server)

// WithCancellationManager sets the manager used to track in-flight requests.
func WithCancellationManager(m *CancellationManager) Option {
	return func(s *Server) {
		s.cancellations = m
	}
}

// Server holds the registered capabilities and dispatches calls to them.
//
// Registration normally happens once at startup; lookups may run
// concurrently with it. Handler execution is serialized: at most one tool,
// resource or prompt handler runs at a time.
type Server struct {
	mu sync.RWMutex

	info      Info
	tools     registry[*Tool]
	resources registry[*Resource]
	prompts   registry[*Prompt]

	// exec is a one-slot semaphore around handler execution. A channel is
	// used instead of a mutex so waiting callers can give up when their
	// context ends.
	exec          chan struct{}
	cancellations *CancellationManager
}

// New creates a server with the given info and options.
func New(info Info, opts ...Option) *Server {
	s := &Server{
		info:      info,
		tools:     newRegistry[*Tool](),
		resources: newRegistry[*Resource](),
		prompts:   newRegistry[*Prompt](),
		exec:      make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cancellations == nil {
		s.cancellations = NewCancellationManager()
	}

	return s
}

// Info returns the server info.
func (s *Server) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Manifest returns the server manifest for initialization.
// Capabilities are reported for every namespace that has registrations,
// in addition to those declared in Info.
func (s *Server) Manifest() Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	caps := s.info.Capabilities
	caps.Tools = caps.Tools || s.tools.len() > 0
	caps.Resources = caps.Resources || s.resources.len() > 0
	caps.Prompts = caps.Prompts || s.prompts.len() > 0

	return Manifest{
		Name:            s.info.Name,
		Version:         s.info.Version,
		ProtocolVersion: protocol.MCPVersion,
		Capabilities:    caps,
	}
}

// Cancellations returns the manager tracking in-flight requests.
func (s *Server) Cancellations() *CancellationManager {
	return s.cancellations
}

// Tool starts building a new tool with the given name.
func (s *Server) Tool(name string) *ToolBuilder {
	return &ToolBuilder{
		tool:   &Tool{name: name},
		server: s,
	}
}

// Resource starts building a new resource with the given URI template.
func (s *Server) Resource(uriTemplate string) *ResourceBuilder {
	return &ResourceBuilder{
		resource: &Resource{uriTemplate: uriTemplate},
		server:   s,
	}
}

// Prompt starts building a new prompt with the given name.
func (s *Server) Prompt(name string) *PromptBuilder {
	return &PromptBuilder{
		prompt: &Prompt{name: name},
		server: s,
	}
}

func (s *Server) registerTool(t *Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools.put(t.name, t)
}

func (s *Server) registerResource(r *Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources.put(r.uriTemplate, r)
}

func (s *Server) registerPrompt(p *Prompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts.put(p.name, p)
}

// acquire waits for the execution slot or for ctx to end.
func (s *Server) acquire(ctx context.Context) error {
	select {
	case s.exec <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) release() {
	<-s.exec
}
