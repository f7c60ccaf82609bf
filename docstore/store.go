package docstore

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotFound is returned when an identifier is not in the store.
var ErrNotFound = errors.New("document not found")

// NotFoundError reports the identifier that was not found.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("doc with id %s not found", e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Document is a single stored document.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Store maps document identifiers to their content.
// It is safe for concurrent use; writers are serialized.
type Store struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]string
}

// New creates a store seeded with the given documents.
// Later duplicates of an identifier overwrite earlier content but keep the
// first position.
func New(seed ...Document) *Store {
	s := &Store{
		order: make([]string, 0, len(seed)),
		docs:  make(map[string]string, len(seed)),
	}
	for _, d := range seed {
		if _, exists := s.docs[d.ID]; !exists {
			s.order = append(s.order, d.ID)
		}
		s.docs[d.ID] = d.Content
	}
	return s
}

// Get returns the content of the document with the given id.
func (s *Store) Get(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	content, ok := s.docs[id]
	if !ok {
		return "", &NotFoundError{ID: id}
	}
	return content, nil
}

// Set overwrites the content of an existing document.
func (s *Store) Set(id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return &NotFoundError{ID: id}
	}
	s.docs[id] = content
	return nil
}

// Replace substitutes every non-overlapping occurrence of old with new,
// scanning left to right, and returns the resulting content and whether it
// differs from what was stored. Content without an occurrence of old, or an
// empty old, is left unchanged.
func (s *Store) Replace(id, old, new string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, ok := s.docs[id]
	if !ok {
		return "", false, &NotFoundError{ID: id}
	}
	if old == "" {
		return content, false, nil
	}

	replaced := strings.ReplaceAll(content, old, new)
	if replaced == content {
		return content, false, nil
	}
	s.docs[id] = replaced
	return replaced, true, nil
}

// List returns document identifiers in registration order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Len returns the number of documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns a copy of every document in registration order.
func (s *Store) Snapshot() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, 0, len(s.order))
	for _, id := range s.order {
		docs = append(docs, Document{ID: id, Content: s.docs[id]})
	}
	return docs
}
