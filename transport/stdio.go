package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// DefaultMaxMessageSize bounds a single newline-delimited frame.
const DefaultMaxMessageSize = 10 * 1024 * 1024

// Stdio implements MCP transport over stdin/stdout using newline-delimited
// JSON frames.
//
// Requests are handled on their own goroutine so that a cancellation
// notification read while a request is running can still reach it.
// Notifications are handled inline, in the order they arrive.
type Stdio struct {
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	maxSize int

	mu sync.Mutex // guards out
	wg sync.WaitGroup
}

// StdioOption configures a Stdio transport.
type StdioOption func(*Stdio)

// WithStdin sets a custom stdin reader.
func WithStdin(r io.Reader) StdioOption {
	return func(s *Stdio) {
		s.in = r
	}
}

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) StdioOption {
	return func(s *Stdio) {
		s.out = w
	}
}

// WithStderr sets a custom stderr writer.
func WithStderr(w io.Writer) StdioOption {
	return func(s *Stdio) {
		s.errOut = w
	}
}

// WithMaxMessageSize sets the largest frame the transport accepts.
func WithMaxMessageSize(n int) StdioOption {
	return func(s *Stdio) {
		s.maxSize = n
	}
}

// NewStdio creates a new stdio transport.
func NewStdio(opts ...StdioOption) *Stdio {
	s := &Stdio{
		in:      os.Stdin,
		out:     os.Stdout,
		errOut:  os.Stderr,
		maxSize: DefaultMaxMessageSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Addr returns the transport address.
func (s *Stdio) Addr() string {
	return "stdio"
}

// Serve processes requests from stdin until EOF, a read error or ctx is
// canceled. It waits for requests already dispatched before returning.
func (s *Stdio) Serve(ctx context.Context, handler Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.wg.Wait()

	// One stream is one session; several may share a process in-memory.
	ctx = ContextWithSession(ctx, uuid.NewString())

	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), s.maxSize)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := bytes.Clone(scanner.Bytes())
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			scanErr <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil // EOF
				}
			}
			s.handleLine(ctx, handler, line)
		}
	}
}

// SendNotification sends a JSON-RPC notification to the client.
func (s *Stdio) SendNotification(method string, params any) error {
	notif, err := NewNotification(method, params)
	if err != nil {
		return err
	}
	return s.write(notif)
}

func (s *Stdio) handleLine(ctx context.Context, handler Handler, line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	req, errResp := decodeRequest(line)
	if errResp != nil {
		_ = s.write(errResp)
		return
	}

	// Attach notification sender to context for resource updates
	ctx = ContextWithNotificationSender(ctx, s)

	if req.IsNotification() {
		handle(ctx, handler, req)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if resp := handle(ctx, handler, req); resp != nil {
			_ = s.write(resp)
		}
	}()
}

func (s *Stdio) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		if resp, ok := v.(*protocol.Response); ok {
			data, _ = json.Marshal(protocol.NewErrorResponse(resp.ID, protocol.NewInternalError(err.Error())))
		} else {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.out.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}
