// Package store defines the document-store capability the resource services
// depend on. Backends live in sub-packages.
package store

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/taskhub/internal/query"
)

// IDField is the key holding a document's identifier.
const IDField = query.IDField

// TimeLayout is the wire encoding of timestamps: RFC 3339 in UTC with
// millisecond precision, fixed width so text order matches time order.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	// ErrNotFound is returned when an identifier is unknown or malformed.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned by backends that enforce a unique index.
	ErrDuplicate = errors.New("duplicate key")
)

// Document is a schemaless record. Values are JSON-compatible: string,
// float64, bool, nil, []any and map[string]any.
type Document map[string]any

// ID returns the document identifier, or "" when unassigned.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Store is a collection-addressed document store.
type Store interface {
	// Find returns the documents of collection selected by q, projection applied.
	Find(ctx context.Context, collection string, q query.Query) ([]Document, error)

	// Count returns how many documents Find would return for q.
	Count(ctx context.Context, collection string, q query.Query) (int64, error)

	// FindByID returns ErrNotFound for unknown or malformed identifiers.
	FindByID(ctx context.Context, collection, id string) (Document, error)

	// Save inserts doc when it has no identifier, assigning one, and
	// otherwise replaces the stored document. The saved document is returned.
	Save(ctx context.Context, collection string, doc Document) (Document, error)

	// RemoveByID returns ErrNotFound when nothing was removed.
	RemoveByID(ctx context.Context, collection, id string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// Clone deep-copies a document so callers never share nested slices or maps
// with a backend.
func Clone(d Document) Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case Document:
		return map[string]any(Clone(t))
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	case []string:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = e
		}
		return s
	}
	return v
}

// Maps converts documents for the query evaluator.
func Maps(docs []Document) []map[string]any {
	out := make([]map[string]any, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}

// Documents is the inverse of Maps.
func Documents(maps []map[string]any) []Document {
	out := make([]Document, len(maps))
	for i, m := range maps {
		out[i] = m
	}
	return out
}
