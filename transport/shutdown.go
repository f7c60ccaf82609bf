package transport

import (
	"context"
	"sync"
	"time"
)

// ShutdownConfig configures graceful shutdown behavior.
type ShutdownConfig struct {
	// Timeout is the maximum time to wait for in-flight requests to complete.
	// Default: 30 seconds
	Timeout time.Duration

	// DrainDelay is the time to keep accepting requests after shutdown
	// begins, so load balancers can take the server out of rotation.
	// Default: 0 (no delay)
	DrainDelay time.Duration

	// OnShutdownStart is called when shutdown begins.
	OnShutdownStart func()

	// OnDrainStart is called when draining begins (after DrainDelay).
	OnDrainStart func()

	// OnShutdownComplete is called when shutdown is complete.
	OnShutdownComplete func(err error)
}

// DefaultShutdownConfig returns sensible defaults for shutdown configuration.
func DefaultShutdownConfig() ShutdownConfig {
	return ShutdownConfig{
		Timeout: 30 * time.Second,
	}
}

// ShutdownManager tracks in-flight requests and lets a shutdown wait for
// them. Once draining, new requests are refused.
type ShutdownManager struct {
	config ShutdownConfig

	mu       sync.Mutex
	draining bool
	inFlight int64

	idle     chan struct{} // closed when draining with nothing in flight
	idleOnce sync.Once
	doneCh   chan struct{}
	doneOnce sync.Once
}

// NewShutdownManager creates a new shutdown manager.
func NewShutdownManager(config ShutdownConfig) *ShutdownManager {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &ShutdownManager{
		config: config,
		idle:   make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// IsDraining returns true if the server is draining connections.
func (sm *ShutdownManager) IsDraining() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.draining
}

// InFlightRequests returns the number of in-flight requests.
func (sm *ShutdownManager) InFlightRequests() int64 {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.inFlight
}

// TrackRequest increments the in-flight request counter.
// Returns false if the server is draining and new requests should be rejected.
func (sm *ShutdownManager) TrackRequest() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.draining {
		return false
	}
	sm.inFlight++
	return true
}

// CompleteRequest decrements the in-flight request counter.
func (sm *ShutdownManager) CompleteRequest() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.inFlight > 0 {
		sm.inFlight--
	}
	sm.signalIdleLocked()
}

// Track marks the start of a request. It returns a function that marks its
// end, or false if the server is draining.
func (sm *ShutdownManager) Track() (done func(), ok bool) {
	if !sm.TrackRequest() {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(sm.CompleteRequest) }, true
}

func (sm *ShutdownManager) signalIdleLocked() {
	if sm.draining && sm.inFlight == 0 {
		sm.idleOnce.Do(func() { close(sm.idle) })
	}
}

// Shutdown stops accepting requests after the drain delay and waits until
// the in-flight ones complete, the configured timeout passes or ctx ends.
// It reports an error when requests were still running.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	if sm.config.OnShutdownStart != nil {
		sm.config.OnShutdownStart()
	}

	if sm.config.DrainDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sm.config.DrainDelay):
		}
	}

	sm.mu.Lock()
	sm.draining = true
	sm.signalIdleLocked()
	sm.mu.Unlock()

	if sm.config.OnDrainStart != nil {
		sm.config.OnDrainStart()
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, sm.config.Timeout)
	defer cancel()

	var err error
	select {
	case <-sm.idle:
	case <-timeoutCtx.Done():
		err = timeoutCtx.Err()
	}

	sm.doneOnce.Do(func() { close(sm.doneCh) })

	if sm.config.OnShutdownComplete != nil {
		sm.config.OnShutdownComplete(err)
	}
	return err
}

// Done returns a channel that is closed when shutdown is complete.
func (sm *ShutdownManager) Done() <-chan struct{} {
	return sm.doneCh
}

// WithShutdownTimeout sets how long the HTTP transport waits for in-flight
// requests when shutting down.
func WithShutdownTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.shutdown.Timeout = d
	}
}

// WithShutdownDrainDelay sets the delay before the HTTP transport stops
// accepting requests when shutting down.
func WithShutdownDrainDelay(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.shutdown.DrainDelay = d
	}
}

// WithShutdownConfig replaces the HTTP transport's shutdown configuration.
func WithShutdownConfig(cfg ShutdownConfig) HTTPOption {
	return func(h *HTTP) {
		h.shutdown = cfg
	}
}
