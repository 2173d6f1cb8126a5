// Package memory provides an in-process document store. It backs local
// development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
)

type collection struct {
	order []string
	docs  map[string]store.Document
}

// Store keeps documents in insertion order per collection.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	newID       func() string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string]*collection),
		newID:       func() string { return uuid.New().String() },
	}
}

func (s *Store) snapshot(name string) []map[string]any {
	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	docs := make([]map[string]any, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, c.docs[id])
	}
	return docs
}

// Find evaluates q over the collection in insertion order.
func (s *Store) Find(ctx context.Context, name string, q query.Query) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	selected := q.Apply(s.snapshot(name))
	out := make([]store.Document, len(selected))
	for i, d := range selected {
		out[i] = store.Clone(d)
	}
	return out, nil
}

// Count returns the size of the windowed result of q.
func (s *Store) Count(ctx context.Context, name string, q query.Query) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(q.Select(s.snapshot(name)))), nil
}

// FindByID looks a document up by identifier.
func (s *Store) FindByID(ctx context.Context, name, id string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	doc, ok := c.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return store.Clone(doc), nil
}

// Save inserts or replaces doc.
func (s *Store) Save(ctx context.Context, name string, doc store.Document) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]store.Document)}
		s.collections[name] = c
	}

	saved := store.Clone(doc)
	id := saved.ID()
	if id == "" {
		id = s.newID()
		saved[store.IDField] = id
	}
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = saved
	return store.Clone(saved), nil
}

// RemoveByID deletes a document.
func (s *Store) RemoveByID(ctx context.Context, name, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return store.ErrNotFound
	}
	if _, exists := c.docs[id]; !exists {
		return store.ErrNotFound
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

var _ store.Store = (*Store)(nil)
