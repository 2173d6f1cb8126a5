// Package records holds the user and task resources: their shapes, the
// validation and defaulting applied before every write, and the service
// composing query parsing, validation and storage into the five resource
// operations.
package records

import (
	"context"
	"time"

	"github.com/felixgeelhaar/taskhub/internal/store"
)

const (
	// DateCreatedField is set on create and preserved by updates.
	DateCreatedField = "dateCreated"
)

// Schema validates input for one collection and turns it into a complete,
// defaulted document.
type Schema interface {
	// Collection is the store collection, e.g. "users".
	Collection() string
	// Noun is the lower-case singular, e.g. "user". It prefixes event
	// routing keys.
	Noun() string
	// Label is the singular used in response messages, e.g. "User".
	Label() string
	// TimeFields lists the timestamp fields of stored documents.
	TimeFields() []string
	// UniqueFields lists fields whose values must not repeat across the
	// collection.
	UniqueFields() []string
	// ConflictMessage is reported when a unique field collides.
	ConflictMessage() string
	// Prepare validates in and returns the document to save. current is the
	// stored document on update and nil on create.
	Prepare(ctx context.Context, in Input, current store.Document) (store.Document, error)
}

// identity returns the identifier and creation time a prepared document
// carries: fresh on create, preserved on update.
func identity(current store.Document, now time.Time) (string, time.Time) {
	if current == nil {
		return "", now.UTC()
	}
	if raw, ok := current[DateCreatedField].(string); ok {
		if ts, ok := parseTime(raw); ok {
			return current.ID(), ts
		}
	}
	return current.ID(), now.UTC()
}
