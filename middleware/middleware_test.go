package middleware

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// mockLogger captures log calls for testing.
type mockLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level   string
	message string
	fields  []Field
}

func (l *mockLogger) add(level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, message: msg, fields: fields})
}

func (l *mockLogger) Info(msg string, fields ...Field)  { l.add("info", msg, fields) }
func (l *mockLogger) Error(msg string, fields ...Field) { l.add("error", msg, fields) }
func (l *mockLogger) Debug(msg string, fields ...Field) { l.add("debug", msg, fields) }
func (l *mockLogger) Warn(msg string, fields ...Field)  { l.add("warn", msg, fields) }

func (e logEntry) field(key string) (any, bool) {
	for _, f := range e.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func okHandler(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return protocol.NewResponse(req.ID, map[string]any{}), nil
}

func toolCall(id int, name string) *protocol.Request {
	req, _ := protocol.NewRequest(int64(id), protocol.MethodToolsCall, map[string]any{
		"name":      name,
		"arguments": map[string]string{"doc_id": "plan.md"},
	})
	return req
}

func TestChain(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
				order = append(order, name+":before")
				resp, err := next(ctx, req)
				order = append(order, name+":after")
				return resp, err
			}
		}
	}

	handler := Chain(mark("a"), nil, mark("b"))(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		order = append(order, "handler")
		return okHandler(ctx, req)
	})

	if _, err := handler(context.Background(), toolCall(1, "x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"a:before", "b:before", "handler", "b:after", "a:after"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("execution order (-want +got):\n%s", diff)
	}
}

func TestNewStack(t *testing.T) {
	metrics, err := NewMetrics("test")
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	tests := []struct {
		name string
		cfg  StackConfig
		want int
	}{
		{name: "default", cfg: StackConfig{}, want: 3},
		{name: "everything", cfg: StackConfig{Timeout: 1, Rate: 5, MaxRequestBytes: KB, Metrics: metrics, OTel: true}, want: 8},
		{name: "rate only", cfg: StackConfig{Rate: 5}, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(NewStack(tt.cfg)); got != tt.want {
				t.Errorf("len(NewStack) = %d, want %d", got, tt.want)
			}
		})
	}

	if got := len(DefaultStack(&mockLogger{})); got != 3 {
		t.Errorf("len(DefaultStack) = %d, want 3", got)
	}
}

func TestTarget(t *testing.T) {
	read, _ := protocol.NewRequest(1, protocol.MethodResourcesRead, map[string]string{"uri": "docs://content/plan.md"})
	prompt, _ := protocol.NewRequest(2, protocol.MethodPromptsGet, map[string]any{"name": "summarize_doc"})
	list, _ := protocol.NewRequest(3, protocol.MethodToolsList, nil)
	bad := &protocol.Request{ID: json.RawMessage("4"), Method: protocol.MethodToolsCall, Params: json.RawMessage(`[`)}

	tests := []struct {
		req  *protocol.Request
		want string
	}{
		{toolCall(1, "read_doc_contents"), "read_doc_contents"},
		{read, "docs://content/plan.md"},
		{prompt, "summarize_doc"},
		{list, ""},
		{bad, ""},
	}
	for _, tt := range tests {
		if got := Target(tt.req); got != tt.want {
			t.Errorf("Target(%s) = %q, want %q", tt.req.Method, got, tt.want)
		}
	}
}
