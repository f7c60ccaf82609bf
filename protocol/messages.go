package protocol

import (
	"encoding/json"
	"strconv"
)

// JSONRPCVersion is the JSON-RPC protocol version.
const JSONRPCVersion = "2.0"

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification returns true if this request has no ID (is a notification).
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewResponse creates a successful response.
func NewResponse(id json.RawMessage, result any) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id json.RawMessage, err *Error) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   err,
	}
}

// NewRequest builds a request with a numeric ID and marshaled params.
// A nil params value produces a request without params.
func NewRequest(id int64, method string, params any) (*Request, error) {
	req := &Request{
		JSONRPC: JSONRPCVersion,
		ID:      json.RawMessage(strconv.FormatInt(id, 10)),
		Method:  method,
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		req.Params = data
	}
	return req, nil
}

// DecodeResult decodes the result of a response into v.
// Responses that arrived over the wire hold json.RawMessage results; responses
// produced in-process hold Go values, which are round-tripped through JSON.
func (r *Response) DecodeResult(v any) error {
	switch res := r.Result.(type) {
	case json.RawMessage:
		return json.Unmarshal(res, v)
	case nil:
		return json.Unmarshal([]byte("null"), v)
	default:
		data, err := json.Marshal(res)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, v)
	}
}

// wireResponse mirrors Response with a raw result for decoding.
type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// UnmarshalJSON keeps the result as raw JSON so callers can decode it into
// typed values with DecodeResult.
func (r *Response) UnmarshalJSON(data []byte) error {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.JSONRPC = w.JSONRPC
	r.ID = w.ID
	r.Error = w.Error
	r.Result = nil
	if len(w.Result) > 0 {
		r.Result = w.Result
	}
	return nil
}
