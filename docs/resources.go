package docs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/mcp-docs/docstore"
	"github.com/felixgeelhaar/mcp-docs/server"
)

// Resource URIs.
const (
	ResourceList    = "docs://list"
	ResourceContent = "docs://content/{doc_id}"
)

type contentParams struct {
	DocID string `uri:"doc_id,required"`
}

// RegisterResources registers docs://list and docs://content/{doc_id}.
func RegisterResources(srv *server.Server, store *docstore.Store) error {
	if err := srv.Resource(ResourceList).
		Name("Document List").
		Description("A list of all document ids").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, _ map[string]string) (*server.ResourceContent, error) {
			data, err := json.Marshal(store.List())
			if err != nil {
				return nil, fmt.Errorf("encode document ids: %w", err)
			}
			return &server.ResourceContent{URI: uri, Text: string(data)}, nil
		}).Err(); err != nil {
		return err
	}

	return srv.Resource(ResourceContent).
		Name("Document Content").
		Description("The content of a specific document").
		MimeType("text/plain").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*server.ResourceContent, error) {
			p, err := server.ExtractParams[contentParams](params)
			if err != nil {
				return nil, err
			}
			content, err := store.Get(p.DocID)
			if err != nil {
				return nil, err
			}
			return &server.ResourceContent{URI: uri, Text: content}, nil
		}).Err()
}

// ContentURI returns the docs://content URI of a document.
func ContentURI(docID string) string {
	return "docs://content/" + docID
}

// notifyUpdated tells the client a document changed. A failed notification
// does not fail the edit that caused it.
func notifyUpdated(ctx context.Context, docID string) {
	_ = server.NotifierFromContext(ctx).ResourceUpdated(ContentURI(docID))
}
