// Package protocol defines the MCP JSON-RPC 2.0 message types and error codes.
//
// # Request and Response Types
//
// Requests and responses follow JSON-RPC 2.0. Responses decoded from the wire
// keep their result as raw JSON; use DecodeResult to turn it into a typed
// value:
//
//	var result server.ToolResult
//	if err := resp.DecodeResult(&result); err != nil {
//	    return err
//	}
//
// # Error Codes
//
// Standard JSON-RPC 2.0 codes plus the MCP specific ones:
//
//	CodeInvalidParams  = -32602  // arguments failed validation
//	CodeNotFound       = -32001  // no tool, prompt or resource template matched
//	CodeHandlerFault   = -32004  // a resource or prompt handler failed
//
// # Classification
//
// KindOf maps any error seen by a client to a Kind so callers can tell
// "not found", "malformed call", "handler fault" and transport failures apart:
//
//	switch protocol.KindOf(err) {
//	case protocol.KindCapabilityNotFound:
//	case protocol.KindInvalidArguments:
//	}
package protocol
