// Package docstore holds the in-memory documents served by the capability
// server.
//
// The store is created once with a fixed seed set. Identifiers can be read,
// overwritten and edited in place but never created or deleted after
// construction:
//
//	store := docstore.New(docstore.Seed()...)
//	content, err := store.Get("plan.md")
//	if errors.Is(err, docstore.ErrNotFound) {
//	    // unknown identifier
//	}
package docstore
