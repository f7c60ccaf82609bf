// Package protocol implements the MCP protocol layer including JSON-RPC 2.0.
package protocol

import (
	"errors"
	"fmt"
)

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// MCP-specific error codes.
const (
	CodeNotFound     = -32001
	CodeRateLimited  = -32003
	CodeHandlerFault = -32004
)

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("mcp: %s (code: %d)", e.Message, e.Code)
}

// Is implements errors.Is comparison by error code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithData returns a copy of the error with additional data attached.
func (e *Error) WithData(data any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Data:    data,
	}
}

// NewParseError creates a parse error (-32700).
func NewParseError(msg string) *Error {
	return &Error{Code: CodeParseError, Message: msg}
}

// NewInvalidRequest creates an invalid request error (-32600).
func NewInvalidRequest(msg string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: msg}
}

// NewMethodNotFound creates a method not found error (-32601).
func NewMethodNotFound(msg string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: msg}
}

// NewInvalidParams creates an invalid params error (-32602).
// Argument validation failures use this code.
func NewInvalidParams(msg string) *Error {
	return &Error{Code: CodeInvalidParams, Message: msg}
}

// NewInternalError creates an internal error (-32603).
func NewInternalError(msg string) *Error {
	return &Error{Code: CodeInternalError, Message: msg}
}

// NewNotFound creates a not found error (-32001).
// It is returned when no tool, prompt or resource template matches a request.
func NewNotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NewHandlerFault creates a handler fault error (-32004).
// Resource and prompt handlers that fail surface this code to the caller.
func NewHandlerFault(msg string) *Error {
	return &Error{Code: CodeHandlerFault, Message: msg}
}

// Kind classifies a failure observed by a caller of the dispatch protocol.
type Kind int

const (
	// KindNone means there was no error.
	KindNone Kind = iota
	// KindCapabilityNotFound means no tool, prompt or resource template matched.
	KindCapabilityNotFound
	// KindInvalidArguments means the arguments did not satisfy the declared schema.
	KindInvalidArguments
	// KindHandlerFault means the handler ran and reported a domain fault.
	KindHandlerFault
	// KindTransport means the channel to the server failed.
	KindTransport
	// KindInternal covers every other protocol error.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCapabilityNotFound:
		return "capability_not_found"
	case KindInvalidArguments:
		return "invalid_arguments"
	case KindHandlerFault:
		return "handler_fault"
	case KindTransport:
		return "transport"
	default:
		return "internal"
	}
}

// transportError is implemented by transport-level failures.
type transportError interface {
	TransportFailure() bool
}

// KindOf returns the classification of err.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	var te transportError
	if errors.As(err, &te) && te.TransportFailure() {
		return KindTransport
	}

	var mcpErr *Error
	if !errors.As(err, &mcpErr) {
		return KindInternal
	}

	switch mcpErr.Code {
	case CodeNotFound:
		return KindCapabilityNotFound
	case CodeInvalidParams:
		return KindInvalidArguments
	case CodeHandlerFault:
		return KindHandlerFault
	default:
		return KindInternal
	}
}
