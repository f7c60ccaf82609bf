package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// NotificationHandler receives notifications the server sends between or
// during requests. It runs on the transport's read goroutine.
type NotificationHandler func(method string, params json.RawMessage)

// TransportOption configures the client transports.
type TransportOption func(*transportOptions)

type transportOptions struct {
	onNotification NotificationHandler
	maxFrameSize   int
}

// WithNotificationHandler sets a handler for server notifications.
// Without one they are dropped.
func WithNotificationHandler(fn NotificationHandler) TransportOption {
	return func(o *transportOptions) {
		o.onNotification = fn
	}
}

// WithMaxFrameSize bounds the size of a single frame read from the server.
func WithMaxFrameSize(n int) TransportOption {
	return func(o *transportOptions) {
		o.maxFrameSize = n
	}
}

func newTransportOptions(opts []TransportOption) transportOptions {
	o := transportOptions{maxFrameSize: 10 * 1024 * 1024}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// frame is one response read from the server, or the reason it could not
// be decoded.
type frame struct {
	resp *protocol.Response
	err  error
}

// frameConn implements Transport over any channel that carries whole
// JSON-RPC frames. A read goroutine routes notifications to the handler and
// responses to the caller waiting in Send. Responses whose ID does not match
// the request being waited on belong to abandoned requests and are dropped,
// as are undecodable frames read while no Send is waiting.
type frameConn struct {
	read    func() ([]byte, error)
	write   func([]byte) error
	closeFn func() error
	opts    transportOptions

	writeMu sync.Mutex
	frames  chan frame
	readErr error // set before frames is closed
	waiting atomic.Bool

	closed    atomic.Bool
	closing   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newFrameConn(read func() ([]byte, error), write func([]byte) error, closeFn func() error, opts transportOptions) *frameConn {
	c := &frameConn{
		read:    read,
		write:   write,
		closeFn: closeFn,
		opts:    opts,
		frames:  make(chan frame, 8),
		closing: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *frameConn) readLoop() {
	defer close(c.frames)

	for {
		data, err := c.read()
		if err != nil {
			c.readErr = err
			return
		}
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}

		var envelope struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			if !c.waiting.Load() {
				continue
			}
			if !c.deliver(frame{err: err}) {
				return
			}
			continue
		}
		if envelope.Method != "" {
			if c.opts.onNotification != nil {
				c.opts.onNotification(envelope.Method, envelope.Params)
			}
			continue
		}

		var resp protocol.Response
		if err := json.Unmarshal(data, &resp); err != nil {
			if !c.waiting.Load() {
				continue
			}
			if !c.deliver(frame{err: err}) {
				return
			}
			continue
		}
		if !c.deliver(frame{resp: &resp}) {
			return
		}
	}
}

func (c *frameConn) deliver(f frame) bool {
	select {
	case c.frames <- f:
		return true
	case <-c.closing:
		return false
	}
}

// Send writes req and waits for its response.
func (c *frameConn) Send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	c.waiting.Store(true)
	defer c.waiting.Store(false)
	c.discardStale()

	if err := c.writeMessage(req); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.closing:
			return nil, &TransportError{Op: "read", Err: ErrClosed}
		case f, ok := <-c.frames:
			if !ok {
				if c.closed.Load() {
					return nil, &TransportError{Op: "read", Err: ErrClosed}
				}
				return nil, &TransportError{Op: "read", Err: c.readErr}
			}
			if f.err != nil {
				return nil, &TransportError{Op: "decode", Err: f.err}
			}
			if matchesRequest(f.resp, req) {
				return f.resp, nil
			}
		}
	}
}

// discardStale drops frames buffered before the request is written. None of
// them can answer it.
func (c *frameConn) discardStale() {
	for {
		select {
		case _, ok := <-c.frames:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Notify writes a notification without waiting for anything.
func (c *frameConn) Notify(_ context.Context, n *protocol.Request) error {
	return c.writeMessage(n)
}

func (c *frameConn) writeMessage(v any) error {
	if c.closed.Load() {
		return &TransportError{Op: "write", Err: ErrClosed}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return &TransportError{Op: "encode", Err: err}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.write(data); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// Close closes the underlying channel. It is safe to call more than once.
func (c *frameConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closing)
		c.closeErr = c.closeFn()
	})
	return c.closeErr
}

// matchesRequest reports whether resp answers req. An error response
// without an ID answers whatever request is outstanding, since the server
// could not read its ID.
func matchesRequest(resp *protocol.Response, req *protocol.Request) bool {
	id := bytes.TrimSpace(resp.ID)
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return resp.Error != nil
	}
	return bytes.Equal(id, bytes.TrimSpace(req.ID))
}

// lineReader returns a read function yielding newline-delimited frames.
func lineReader(r io.Reader, maxSize int) func() ([]byte, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSize)
	return func() ([]byte, error) {
		if scanner.Scan() {
			return bytes.Clone(scanner.Bytes()), nil
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
}

// lineWriter returns a write function appending the frame delimiter.
func lineWriter(w io.Writer) func([]byte) error {
	return func(data []byte) error {
		_, err := w.Write(append(data, '\n'))
		return err
	}
}
