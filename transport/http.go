package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"

	"github.com/felixgeelhaar/mcp-docs/middleware"
	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// RequestIDHeader carries a caller-chosen request ID into the middleware
// chain.
const RequestIDHeader = "X-Request-ID"

// SessionHeader names the SSE stream a POST belongs to. Its value is the
// clientId announced in the stream's "connected" event. Requests carrying
// it get their notifications on that stream only, and their request IDs
// are scoped to it for cancellation.
const SessionHeader = "Mcp-Session-Id"

// HTTP implements an HTTP transport for MCP. JSON-RPC requests are POSTed to
// /mcp; server notifications are pushed to clients subscribed to the
// /mcp/sse event stream.
type HTTP struct {
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	maxBodyBytes int64
	shutdown     ShutdownConfig

	metricsPath    string
	metricsHandler http.Handler

	mu         sync.RWMutex
	listenAddr string
	server     *http.Server
	sm         *ShutdownManager
	closing    chan struct{}
	closeOnce  sync.Once

	// SSE clients
	sseClients   map[string]chan []byte
	sseClientsMu sync.RWMutex
}

// HTTPOption configures the HTTP transport.
type HTTPOption func(*HTTP)

// WithReadTimeout sets the read timeout for HTTP requests.
func WithReadTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.readTimeout = d
	}
}

// WithWriteTimeout sets the write timeout for HTTP responses. The SSE
// stream is long-lived, so a non-zero write timeout bounds its lifetime too.
func WithWriteTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.writeTimeout = d
	}
}

// WithMaxBodyBytes limits the size of a POSTed request body.
func WithMaxBodyBytes(n int64) HTTPOption {
	return func(h *HTTP) {
		h.maxBodyBytes = n
	}
}

// WithMetricsHandler serves handler at path, typically a Prometheus
// exposition handler.
func WithMetricsHandler(path string, handler http.Handler) HTTPOption {
	return func(h *HTTP) {
		h.metricsPath = path
		h.metricsHandler = handler
	}
}

// NewHTTP creates a new HTTP transport.
func NewHTTP(addr string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		addr:         addr,
		readTimeout:  30 * time.Second,
		maxBodyBytes: DefaultMaxMessageSize,
		shutdown:     DefaultShutdownConfig(),
		sseClients:   make(map[string]chan []byte),
		closing:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Addr returns the configured address.
func (h *HTTP) Addr() string {
	return h.addr
}

// ListenAddr returns the actual address the server is listening on.
func (h *HTTP) ListenAddr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.listenAddr
}

// Serve starts the HTTP server and handles requests until ctx is canceled.
// On cancellation it stops accepting JSON-RPC requests, waits for in-flight
// ones as configured by the shutdown options, closes SSE streams and shuts
// the server down.
func (h *HTTP) Serve(ctx context.Context, handler Handler) error {
	sm := NewShutdownManager(h.shutdown)

	listener, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	h.mu.Lock()
	h.listenAddr = listener.Addr().String()
	h.sm = sm
	h.server = &http.Server{
		Handler:      h.Handler(handler),
		ReadTimeout:  h.readTimeout,
		WriteTimeout: h.writeTimeout,
	}
	srv := h.server
	h.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		drainErr := sm.Shutdown(context.Background())
		h.closeOnce.Do(func() { close(h.closing) })

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if drainErr != nil {
			return fmt.Errorf("in-flight requests abandoned: %w", drainErr)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Handler returns the HTTP handler serving the MCP endpoints. Serve uses
// it; it is exported for mounting the transport in an existing server.
func (h *HTTP) Handler(handler Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		status, code := "ok", http.StatusOK
		if sm := h.shutdownManager(); sm != nil && sm.IsDraining() {
			status, code = "draining", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	// SSE endpoint for server-to-client notifications
	mux.HandleFunc("/mcp/sse", h.handleSSE)

	// Main MCP endpoint
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		h.handleMCP(w, r, handler)
	})

	if h.metricsHandler != nil {
		mux.Handle(h.metricsPath, h.metricsHandler)
	}

	return mux
}

func (h *HTTP) shutdownManager() *ShutdownManager {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sm
}

// handleMCP handles JSON-RPC requests over HTTP.
func (h *HTTP) handleMCP(w http.ResponseWriter, r *http.Request, handler Handler) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if sm := h.shutdownManager(); sm != nil {
		done, ok := sm.Track()
		if !ok {
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer done()
	}

	w.Header().Set("Content-Type", "application/json")

	var req protocol.Request
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			_ = json.NewEncoder(w).Encode(protocol.NewErrorResponse(nil,
				protocol.NewInvalidRequest(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))))
			return
		}
		_ = json.NewEncoder(w).Encode(protocol.NewErrorResponse(nil, protocol.NewParseError("Invalid JSON")))
		return
	}
	if req.Method == "" {
		_ = json.NewEncoder(w).Encode(protocol.NewErrorResponse(req.ID, protocol.NewInvalidRequest("missing method")))
		return
	}

	ctx := ContextWithNotificationSender(r.Context(), h)
	if clientID := r.Header.Get(SessionHeader); clientID != "" {
		ctx = ContextWithNotificationSender(ctx, sseTarget{h: h, clientID: clientID})
		ctx = ContextWithSession(ctx, clientID)
	}
	if id := r.Header.Get(RequestIDHeader); id != "" {
		ctx = middleware.ContextWithRequestID(ctx, id)
	}

	resp := handle(ctx, handler, &req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// handleSSE streams server notifications to one client until it
// disconnects or the transport shuts down.
func (h *HTTP) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sess, err := sse.Upgrade(w, r)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to upgrade session: %v", err), http.StatusInternalServerError)
		return
	}

	clientID := uuid.NewString()
	messageCh := make(chan []byte, 16)

	h.sseClientsMu.Lock()
	h.sseClients[clientID] = messageCh
	h.sseClientsMu.Unlock()

	defer func() {
		h.sseClientsMu.Lock()
		delete(h.sseClients, clientID)
		h.sseClientsMu.Unlock()
	}()

	connected, _ := json.Marshal(map[string]string{"clientId": clientID})
	if err := sendEvent(sess, "connected", connected); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.closing:
			return
		case msg := <-messageCh:
			if err := sendEvent(sess, "message", msg); err != nil {
				return
			}
		}
	}
}

func sendEvent(sess *sse.Session, eventType string, data []byte) error {
	msg := sse.Message{Type: sse.Type(eventType)}
	msg.AppendData(string(data))
	if err := sess.Send(&msg); err != nil {
		return err
	}
	return sess.Flush()
}

// SendNotification broadcasts a JSON-RPC notification to every connected
// SSE client.
func (h *HTTP) SendNotification(method string, params any) error {
	notif, err := NewNotification(method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(notif)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// Broadcast sends a message to all connected SSE clients.
func (h *HTTP) Broadcast(data []byte) {
	h.sseClientsMu.RLock()
	defer h.sseClientsMu.RUnlock()

	for _, ch := range h.sseClients {
		select {
		case ch <- data:
		default:
			// Skip if channel is full
		}
	}
}

// SendTo sends a message to a specific SSE client.
func (h *HTTP) SendTo(clientID string, data []byte) bool {
	h.sseClientsMu.RLock()
	defer h.sseClientsMu.RUnlock()

	if ch, ok := h.sseClients[clientID]; ok {
		select {
		case ch <- data:
			return true
		default:
			return false
		}
	}
	return false
}

// sseTarget sends notifications to one SSE client.
type sseTarget struct {
	h        *HTTP
	clientID string
}

func (t sseTarget) SendNotification(method string, params any) error {
	notif, err := NewNotification(method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(notif)
	if err != nil {
		return err
	}
	if !t.h.SendTo(t.clientID, data) {
		return fmt.Errorf("sse client %s not connected or not keeping up", t.clientID)
	}
	return nil
}

// SSEClients returns the number of connected SSE clients.
func (h *HTTP) SSEClients() int {
	h.sseClientsMu.RLock()
	defer h.sseClientsMu.RUnlock()
	return len(h.sseClients)
}
