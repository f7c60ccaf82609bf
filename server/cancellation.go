package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// CancelledNotification is the payload of notifications/cancelled.
type CancelledNotification struct {
	// RequestID is the JSON-RPC id of the request to cancel.
	RequestID json.RawMessage `json:"requestId"`
	// Reason is an optional human-readable reason for cancellation.
	Reason string `json:"reason,omitempty"`
}

// CancellationManager tracks in-flight requests so that a client can
// abandon one. Requests are keyed by session and JSON-RPC id, since ids are
// only unique within one connection. Cancelling a request only ends its
// context; the dispatch engine drops the late result.
type CancellationManager struct {
	mu       sync.Mutex
	requests map[requestRef]*tracked
}

type requestRef struct {
	session string
	id      string
}

type tracked struct {
	cancel context.CancelFunc
}

// NewCancellationManager creates a new cancellation manager.
func NewCancellationManager() *CancellationManager {
	return &CancellationManager{
		requests: make(map[requestRef]*tracked),
	}
}

// Track starts tracking a request of session and returns a derived context
// that Cancel ends. The returned function must be called when the request
// completes. A request reusing a live id replaces the earlier entry; the
// earlier request's done then leaves the new entry alone.
func (m *CancellationManager) Track(ctx context.Context, session, requestID string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	ref := requestRef{session: session, id: requestID}
	t := &tracked{cancel: cancel}

	m.mu.Lock()
	m.requests[ref] = t
	m.mu.Unlock()

	return ctx, func() {
		cancel()
		m.mu.Lock()
		if m.requests[ref] == t {
			delete(m.requests, ref)
		}
		m.mu.Unlock()
	}
}

// Cancel cancels a request of session by its ID.
// Returns true if the request was found and cancelled.
func (m *CancellationManager) Cancel(session, requestID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := requestRef{session: session, id: requestID}
	t, ok := m.requests[ref]
	if !ok {
		return false
	}
	t.cancel()
	delete(m.requests, ref)
	return true
}

// HandleNotification applies a notifications/cancelled payload received on
// session. Unknown or already finished requests are ignored.
func (m *CancellationManager) HandleNotification(session string, params json.RawMessage) (bool, error) {
	var n CancelledNotification
	if err := json.Unmarshal(params, &n); err != nil {
		return false, fmt.Errorf("decode cancellation: %w", err)
	}
	if len(n.RequestID) == 0 {
		return false, fmt.Errorf("decode cancellation: missing requestId")
	}
	return m.Cancel(session, RequestKey(n.RequestID)), nil
}

// ActiveRequests returns the number of currently tracked requests.
func (m *CancellationManager) ActiveRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// RequestKey normalizes a JSON-RPC id so that 7 and "7" track differently
// but insignificant whitespace does not matter.
func RequestKey(id json.RawMessage) string {
	return strings.TrimSpace(string(id))
}
