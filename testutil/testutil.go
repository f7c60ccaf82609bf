// Package testutil provides helpers for testing against an MCP server.
//
// A TestClient runs the server in-process behind the JSON-RPC adapter and
// talks to it through a real client session, so tests exercise the same
// framing and dispatch a remote client would:
//
//	func TestRead(t *testing.T) {
//	    srv, _ := testutil.NewDocsServer(t)
//	    tc := testutil.NewTestClient(t, srv)
//
//	    text := tc.MustCallTool("read_doc_contents", map[string]any{"doc_id": "plan.md"})
//	    ...
//	}
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	mcp "github.com/felixgeelhaar/mcp-docs"
	"github.com/felixgeelhaar/mcp-docs/client"
	"github.com/felixgeelhaar/mcp-docs/docs"
	"github.com/felixgeelhaar/mcp-docs/docstore"
	"github.com/felixgeelhaar/mcp-docs/protocol"
	"github.com/felixgeelhaar/mcp-docs/server"
	"github.com/felixgeelhaar/mcp-docs/transport"
)

// DefaultTimeout bounds every call a TestClient makes.
const DefaultTimeout = 5 * time.Second

// NewDocsServer returns a server with the document capabilities registered
// over a freshly seeded store.
func NewDocsServer(t testing.TB) (*server.Server, *docstore.Store) {
	t.Helper()
	srv, store, err := docs.NewServer(server.Info{Name: "DocumentMCP", Version: "test"})
	if err != nil {
		t.Fatalf("failed to create docs server: %v", err)
	}
	return srv, store
}

// ToolError is returned by TestClient.CallTool when the tool reported a
// failure in its result.
type ToolError struct {
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
}

// TestClient is a connected client session for tests.
type TestClient struct {
	t      testing.TB
	client *client.Client
	info   *client.ServerInfo
	notes  *NotificationRecorder
}

// NewTestClient connects to srv through the JSON-RPC adapter configured
// with opts. The session is closed when the test ends.
func NewTestClient(t testing.TB, srv *server.Server, opts ...mcp.ServeOption) *TestClient {
	t.Helper()
	return NewTestClientWithHandler(t, mcp.NewHandler(srv, opts...))
}

// NewTestClientWithHandler connects to an arbitrary handler. This is useful
// for testing middleware.
func NewTestClientWithHandler(t testing.TB, handler transport.Handler) *TestClient {
	t.Helper()

	notes := NewNotificationRecorder()
	c := client.New(
		client.NewPipeTransport(handler, client.WithNotificationHandler(notes.Handle)),
		client.WithTimeout(DefaultTimeout),
		client.WithClientInfo("testutil", "test"),
	)
	t.Cleanup(func() { _ = c.Close() })

	info, err := c.Connect(context.Background())
	if err != nil {
		t.Fatalf("failed to initialize server: %v", err)
	}

	return &TestClient{t: t, client: c, info: info, notes: notes}
}

// Client returns the underlying session.
func (tc *TestClient) Client() *client.Client {
	return tc.client
}

// ServerInfo returns what the server reported during initialization.
func (tc *TestClient) ServerInfo() *client.ServerInfo {
	return tc.info
}

// Notifications returns the recorder receiving the server's notifications.
func (tc *TestClient) Notifications() *NotificationRecorder {
	return tc.notes
}

// Close closes the session early.
func (tc *TestClient) Close() {
	_ = tc.client.Close()
}

// CallTool calls a tool and returns the text of its result. A failure the
// tool reports is returned as a *ToolError.
func (tc *TestClient) CallTool(name string, args any) (string, error) {
	res, err := tc.client.CallTool(context.Background(), name, args)
	if err != nil {
		return "", err
	}
	if res.IsError {
		return "", &ToolError{Tool: name, Message: res.Text()}
	}
	return res.Text(), nil
}

// MustCallTool calls a tool and fails the test on any error.
func (tc *TestClient) MustCallTool(name string, args any) string {
	tc.t.Helper()
	text, err := tc.CallTool(name, args)
	if err != nil {
		tc.t.Fatalf("CallTool(%s) failed: %v", name, err)
	}
	return text
}

// ReadResource reads a resource and returns its text.
func (tc *TestClient) ReadResource(uri string) (string, error) {
	content, err := tc.client.ReadResource(context.Background(), uri)
	if err != nil {
		return "", err
	}
	return content.Text, nil
}

// GetPrompt gets a prompt.
func (tc *TestClient) GetPrompt(name string, args map[string]string) (*client.PromptResult, error) {
	return tc.client.GetPrompt(context.Background(), name, args)
}

// Ping sends a ping.
func (tc *TestClient) Ping() error {
	return tc.client.Ping(context.Background())
}

// AssertToolExists asserts that a tool with the given name exists.
func (tc *TestClient) AssertToolExists(name string) {
	tc.t.Helper()
	tools, err := tc.client.ListTools(context.Background())
	if err != nil {
		tc.t.Fatalf("ListTools failed: %v", err)
	}
	for _, tool := range tools {
		if tool.Name == name {
			return
		}
	}
	tc.t.Errorf("tool %q not found", name)
}

// AssertResourceExists asserts that a resource with the given URI template
// exists.
func (tc *TestClient) AssertResourceExists(uri string) {
	tc.t.Helper()
	resources, err := tc.client.ListResources(context.Background())
	if err != nil {
		tc.t.Fatalf("ListResources failed: %v", err)
	}
	for _, r := range resources {
		if r.URI == uri {
			return
		}
	}
	tc.t.Errorf("resource %q not found", uri)
}

// AssertPromptExists asserts that a prompt with the given name exists.
func (tc *TestClient) AssertPromptExists(name string) {
	tc.t.Helper()
	prompts, err := tc.client.ListPrompts(context.Background())
	if err != nil {
		tc.t.Fatalf("ListPrompts failed: %v", err)
	}
	for _, p := range prompts {
		if p.Name == name {
			return
		}
	}
	tc.t.Errorf("prompt %q not found", name)
}

// AssertErrorKind asserts that err is classified as kind.
func AssertErrorKind(t testing.TB, err error, kind protocol.Kind) {
	t.Helper()
	if got := protocol.KindOf(err); got != kind {
		t.Errorf("error kind = %s, want %s (err: %v)", got, kind, err)
	}
}

// AssertToolError asserts that err is a *ToolError whose message contains
// substr.
func AssertToolError(t testing.TB, err error, substr string) {
	t.Helper()
	var te *ToolError
	if !errors.As(err, &te) {
		t.Errorf("expected *ToolError, got %T: %v", err, err)
		return
	}
	if !strings.Contains(te.Message, substr) {
		t.Errorf("tool error %q does not contain %q", te.Message, substr)
	}
}

// Notification is one notification received from the server.
type Notification struct {
	Method string
	Params json.RawMessage
}

// NotificationRecorder collects notifications. Handle can be passed to
// client.WithNotificationHandler; SendNotification lets it stand in for a
// transport.
type NotificationRecorder struct {
	mu      sync.Mutex
	changed chan struct{}
	notes   []Notification
}

// NewNotificationRecorder returns an empty recorder.
func NewNotificationRecorder() *NotificationRecorder {
	return &NotificationRecorder{changed: make(chan struct{})}
}

// Handle records a notification.
func (r *NotificationRecorder) Handle(method string, params json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, Notification{Method: method, Params: params})
	close(r.changed)
	r.changed = make(chan struct{})
}

// SendNotification records a notification sent by server code.
func (r *NotificationRecorder) SendNotification(method string, params any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	r.Handle(method, data)
	return nil
}

// All returns the notifications received so far.
func (r *NotificationRecorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

// Wait returns the first notification with the given method, waiting up to
// timeout for it to arrive.
func (r *NotificationRecorder) Wait(method string, timeout time.Duration) (Notification, bool) {
	deadline := time.After(timeout)
	for {
		r.mu.Lock()
		for _, n := range r.notes {
			if n.Method == method {
				r.mu.Unlock()
				return n, true
			}
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-deadline:
			return Notification{}, false
		}
	}
}
