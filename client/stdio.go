package client

import (
	"fmt"
	"io"
	"os/exec"
	"time"
)

// StdioTransport connects to an MCP server running as a subprocess and
// talks to it over its stdin and stdout.
type StdioTransport struct {
	*frameConn
	cmd *exec.Cmd
}

// NewStdioTransport starts command with args and connects to it. The
// server's stderr goes to stderr, or is discarded when stderr is nil.
func NewStdioTransport(command string, args []string, stderr io.Writer, opts ...TransportOption) (*StdioTransport, error) {
	o := newTransportOptions(opts)

	cmd := exec.Command(command, args...)
	if stderr == nil {
		stderr = io.Discard
	}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

	t := &StdioTransport{cmd: cmd}
	t.frameConn = newFrameConn(lineReader(stdout, o.maxFrameSize), lineWriter(stdin), func() error {
		return t.stop(stdin)
	}, o)
	return t, nil
}

// stop closes stdin so the server sees end of input, then waits for it to
// exit. A server that does not exit in time is killed.
func (t *StdioTransport) stop(stdin io.Closer) error {
	_ = stdin.Close()

	exited := make(chan error, 1)
	go func() { exited <- t.cmd.Wait() }()

	select {
	case err := <-exited:
		return err
	case <-time.After(5 * time.Second):
		_ = t.cmd.Process.Kill()
		<-exited
		return nil
	}
}

// Pid returns the process ID of the server.
func (t *StdioTransport) Pid() int {
	if t.cmd.Process == nil {
		return 0
	}
	return t.cmd.Process.Pid
}
