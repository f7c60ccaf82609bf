// Package server provides the capability registry and dispatch engine.
//
// A Server holds three ordered namespaces: tools, resources and prompts.
// Each is registered once at startup through a fluent builder and listed
// back in registration order.
//
// # Tools
//
// A tool handler takes a struct whose fields declare its parameters:
//
//	type ReadInput struct {
//	    DocID string `json:"doc_id" jsonschema:"required,description=Id of the document to read"`
//	}
//
//	srv.Tool("read_doc_contents").
//	    Description("Read the contents of a document and return it as a string.").
//	    Handler(func(ctx context.Context, in ReadInput) (string, error) {
//	        return store.Get(in.DocID)
//	    })
//
// # Resources
//
// Resources are addressed by a URI template with at most one placeholder:
//
//	srv.Resource("docs://content/{doc_id}").
//	    Name("Document Content").
//	    MimeType("text/plain").
//	    Handler(func(ctx context.Context, uri string, params map[string]string) (*server.ResourceContent, error) {
//	        text, err := store.Get(params["doc_id"])
//	        if err != nil {
//	            return nil, err
//	        }
//	        return &server.ResourceContent{Text: text}, nil
//	    })
//
// # Dispatch
//
// CallTool, ReadResource and GetPrompt run a request through the same
// steps: resolve the target, validate the arguments, run the handler. An
// unknown target is a protocol.CodeNotFound error and malformed arguments a
// protocol.CodeInvalidParams error; in both cases the handler never runs.
//
// Handler errors are reported differently per kind. A tool's error becomes
// a ToolResult with IsError set, so the caller sees it as data. Resource
// and prompt errors are returned as protocol.CodeHandlerFault errors.
//
// Only one handler runs at a time, whichever transport delivered the
// request.
package server
