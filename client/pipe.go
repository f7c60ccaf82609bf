package client

import (
	"context"
	"errors"
	"io"

	"github.com/felixgeelhaar/mcp-docs/transport"
)

// PipeTransport runs a server handler in-process and connects to it over a
// pair of pipes, framed the same way as stdio.
type PipeTransport struct {
	*frameConn
}

// NewPipeTransport serves handler on an in-memory stdio transport and
// returns a client transport connected to it.
func NewPipeTransport(handler transport.Handler, opts ...TransportOption) *PipeTransport {
	o := newTransportOptions(opts)

	clientIn, serverOut := io.Pipe()
	serverIn, clientOut := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)

	server := transport.NewStdio(
		transport.WithStdin(serverIn),
		transport.WithStdout(serverOut),
		transport.WithMaxMessageSize(o.maxFrameSize),
	)
	go func() {
		err := server.Serve(ctx, handler)
		_ = serverOut.Close()
		served <- err
	}()

	closeFn := func() error {
		_ = clientOut.Close()
		_ = clientIn.Close()
		cancel()
		if err := <-served; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	return &PipeTransport{
		frameConn: newFrameConn(lineReader(clientIn, o.maxFrameSize), lineWriter(clientOut), closeFn, o),
	}
}
