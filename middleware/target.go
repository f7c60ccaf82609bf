package middleware

import (
	"encoding/json"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// Target returns the capability a request addresses: the tool or prompt
// name, or the resource URI. It is empty for methods without one.
func Target(req *protocol.Request) string {
	switch req.Method {
	case protocol.MethodToolsCall, protocol.MethodPromptsGet, protocol.MethodResourcesRead:
	default:
		return ""
	}

	var params struct {
		Name string `json:"name"`
		URI  string `json:"uri"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return ""
	}
	if params.Name != "" {
		return params.Name
	}
	return params.URI
}
