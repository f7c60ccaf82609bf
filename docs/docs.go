// Package docs exposes a document store as tools, resources and prompts.
package docs

import (
	"errors"

	"github.com/felixgeelhaar/mcp-docs/docstore"
	"github.com/felixgeelhaar/mcp-docs/server"
)

// Register binds every document capability to srv, backed by store.
// Tools are registered first, then resources, then prompts, each in the
// order they are listed to clients.
func Register(srv *server.Server, store *docstore.Store) error {
	return errors.Join(
		RegisterTools(srv, store),
		RegisterResources(srv, store),
		RegisterPrompts(srv, store),
	)
}

// NewServer returns a server carrying the document capabilities over a
// store seeded with the default documents.
func NewServer(info server.Info, opts ...server.Option) (*server.Server, *docstore.Store, error) {
	store := docstore.New(docstore.Seed()...)
	srv := server.New(info, opts...)
	if err := Register(srv, store); err != nil {
		return nil, nil, err
	}
	return srv, store, nil
}
