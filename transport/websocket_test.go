package transport_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/felixgeelhaar/mcp-docs/protocol"
	"github.com/felixgeelhaar/mcp-docs/transport"
)

func dialWebSocket(t *testing.T, handler transport.Handler) (*websocket.Conn, *transport.WebSocket) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ws := transport.NewWebSocket(":0", transport.WithWebSocketReadTimeout(0))
	srv := httptest.NewServer(ws.Handler(ctx, handler))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/", nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, ws
}

func readResponse(t *testing.T, conn *websocket.Conn) protocol.Response {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp protocol.Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp
}

func TestWebSocket_RequestResponse(t *testing.T) {
	handler := transport.HandlerFunc(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		switch req.Method {
		case protocol.MethodPing:
			return protocol.NewResponse(req.ID, map[string]any{}), nil
		case "echo":
			var params map[string]string
			_ = json.Unmarshal(req.Params, &params)
			return protocol.NewResponse(req.ID, params), nil
		default:
			return nil, protocol.NewMethodNotFound(req.Method)
		}
	})
	conn, _ := dialWebSocket(t, handler)

	tests := []struct {
		name     string
		frame    string
		wantID   string
		wantCode int
	}{
		{name: "ping", frame: `{"jsonrpc":"2.0","id":1,"method":"ping"}`, wantID: "1"},
		{name: "echo", frame: `{"jsonrpc":"2.0","id":2,"method":"echo","params":{"doc_id":"plan.md"}}`, wantID: "2"},
		{name: "unknown method", frame: `{"jsonrpc":"2.0","id":3,"method":"nope"}`, wantID: "3", wantCode: protocol.CodeMethodNotFound},
		{name: "parse error", frame: `{"jsonrpc"`, wantCode: protocol.CodeParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.frame)); err != nil {
				t.Fatalf("write: %v", err)
			}
			resp := readResponse(t, conn)
			if tt.wantID != "" && string(resp.ID) != tt.wantID {
				t.Errorf("id = %s, want %s", resp.ID, tt.wantID)
			}
			switch {
			case tt.wantCode == 0 && resp.Error != nil:
				t.Errorf("unexpected error: %v", resp.Error)
			case tt.wantCode != 0 && (resp.Error == nil || resp.Error.Code != tt.wantCode):
				t.Errorf("error = %+v, want code %d", resp.Error, tt.wantCode)
			}
		})
	}

	var params map[string]string
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":9,"method":"echo","params":{"doc_id":"plan.md"}}`))
	if err := readResponse(t, conn).DecodeResult(&params); err != nil || params["doc_id"] != "plan.md" {
		t.Errorf("echo result = %v, %v", params, err)
	}
}

func TestWebSocket_NotificationReachesRunningRequest(t *testing.T) {
	released := make(chan struct{})
	handler := transport.HandlerFunc(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		if req.IsNotification() {
			close(released)
			return nil, nil
		}
		<-released
		return protocol.NewResponse(req.ID, "released"), nil
	})
	conn, _ := dialWebSocket(t, handler)

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call"}`))
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":1}}`))

	var result string
	if err := readResponse(t, conn).DecodeResult(&result); err != nil || result != "released" {
		t.Errorf("result = %q, %v", result, err)
	}
}

func TestWebSocket_SendNotification(t *testing.T) {
	handler := transport.HandlerFunc(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		sender := transport.NotificationSenderFromContext(ctx)
		_ = sender.SendNotification(protocol.MethodResourceUpdated, map[string]string{"uri": "docs://content/plan.md"})
		return protocol.NewResponse(req.ID, "edited"), nil
	})
	conn, _ := dialWebSocket(t, handler)

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call"}`))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var notif transport.Notification
	if err := conn.ReadJSON(&notif); err != nil {
		t.Fatalf("read notification: %v", err)
	}
	if notif.Method != protocol.MethodResourceUpdated {
		t.Errorf("method = %q", notif.Method)
	}
	if resp := readResponse(t, conn); string(resp.ID) != "1" {
		t.Errorf("id = %s", resp.ID)
	}
}

func TestWebSocket_Serve(t *testing.T) {
	handler := transport.HandlerFunc(func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
		return protocol.NewResponse(req.ID, "ok"), nil
	})
	ws := transport.NewWebSocket("127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- ws.Serve(ctx, handler) }()

	var addr string
	for i := 0; i < 100 && addr == ""; i++ {
		addr = ws.ListenAddr()
		time.Sleep(10 * time.Millisecond)
	}
	if addr == "" {
		t.Fatal("transport did not start listening")
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/", nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	readResponse(t, conn)
	if ws.Clients() != 1 {
		t.Errorf("Clients() = %d, want 1", ws.Clients())
	}

	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected a normal close, got %v", err)
	}
}
