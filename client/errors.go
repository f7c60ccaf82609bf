package client

import (
	"errors"
	"fmt"
)

// ErrClosed is returned for calls on a closed client or transport.
var ErrClosed = errors.New("transport closed")

// TransportError reports a failure of the channel to the server rather
// than an error the server returned: a failed write, end of stream, a
// closed transport or a frame that is not valid JSON-RPC.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TransportFailure marks the error for protocol.KindOf.
func (e *TransportError) TransportFailure() bool {
	return true
}
