package docs

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-docs/docstore"
	"github.com/felixgeelhaar/mcp-docs/server"
)

// Tool names.
const (
	ToolReadDoc       = "read_doc_contents"
	ToolEditDocument  = "edit_document"
	ToolListDocuments = "list_documents"
)

// ReadDocInput is the input of read_doc_contents.
type ReadDocInput struct {
	DocID string `json:"doc_id" jsonschema:"required,description=Id of the document to read"`
}

// EditDocInput is the input of edit_document.
type EditDocInput struct {
	DocID  string `json:"doc_id" jsonschema:"required,description=Id of the document that will be edited"`
	OldStr string `json:"old_str" jsonschema:"required,description=The text to replace. Must match exactly, including whitespace."`
	NewStr string `json:"new_str" jsonschema:"required,description=The new text to insert in place of the old text."`
}

// ListDocumentsInput is the empty input of list_documents.
type ListDocumentsInput struct{}

// RegisterTools registers read_doc_contents, edit_document and
// list_documents.
func RegisterTools(srv *server.Server, store *docstore.Store) error {
	return errors.Join(
		srv.Tool(ToolReadDoc).
			Description("Read the contents of a document and return it as a string.").
			Handler(func(ctx context.Context, in ReadDocInput) (string, error) {
				return store.Get(in.DocID)
			}).Err(),

		// Returns the edited content; an old_str that no longer occurs
		// leaves the document as it is.
		srv.Tool(ToolEditDocument).
			Description("Edit a document by replacing a string in the documents content with a new string.").
			Handler(func(ctx context.Context, in EditDocInput) (string, error) {
				content, changed, err := store.Replace(in.DocID, in.OldStr, in.NewStr)
				if err != nil {
					return "", err
				}
				if changed {
					notifyUpdated(ctx, in.DocID)
				}
				return content, nil
			}).Err(),

		srv.Tool(ToolListDocuments).
			Description("List all available document IDs").
			Handler(func(ctx context.Context, _ ListDocumentsInput) ([]string, error) {
				return store.List(), nil
			}).Err(),
	)
}
