package client

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport connects to a server's WebSocket endpoint. Each
// message carries one JSON-RPC frame.
type WebSocketTransport struct {
	*frameConn
}

// DialWebSocket connects to the WebSocket server at url.
func DialWebSocket(ctx context.Context, url string, opts ...TransportOption) (*WebSocketTransport, error) {
	o := newTransportOptions(opts)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(int64(o.maxFrameSize))

	read := func() ([]byte, error) {
		_, data, err := conn.ReadMessage()
		return data, err
	}
	write := func(data []byte) error {
		return conn.WriteMessage(websocket.TextMessage, data)
	}
	closeFn := func() error {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return conn.Close()
	}

	return &WebSocketTransport{
		frameConn: newFrameConn(read, write, closeFn, o),
	}, nil
}
