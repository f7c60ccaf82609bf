// Package transport carries JSON-RPC frames between an MCP client and a
// Handler.
//
// # Stdio Transport
//
// The stdio transport reads newline-delimited frames from stdin and writes
// responses and notifications to stdout:
//
//	t := transport.NewStdio()
//	err := t.Serve(ctx, handler)
//
// # HTTP Transport
//
// The HTTP transport accepts JSON-RPC requests over POST and pushes server
// notifications over Server-Sent Events:
//
//	t := transport.NewHTTP(":8080",
//	    transport.WithReadTimeout(30*time.Second),
//	    transport.WithShutdownTimeout(10*time.Second),
//	    transport.WithMetricsHandler("/metrics", metrics.Handler()),
//	)
//	err := t.Serve(ctx, handler)
//
// Endpoints:
//   - POST /mcp - JSON-RPC requests
//   - GET /mcp/sse - notification stream
//   - GET /health - health check, 503 while draining
//
// # WebSocket Transport
//
// The WebSocket transport carries one frame per text message:
//
//	t := transport.NewWebSocket(":8081")
//	err := t.Serve(ctx, handler)
//
// On stdio and WebSocket, requests are handled concurrently and
// notifications inline, so a cancellation can reach a request that is
// still running.
package transport
