// Package sqlstore keeps JSON documents in a single SQL table, served by
// SQLite or PostgreSQL through the database package. Filters, sorting and
// projection are evaluated in process by the query package; rows are read
// in insertion order.
package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/taskhub/internal/database"
	"github.com/felixgeelhaar/taskhub/internal/database/migrations"
	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
)

// Store implements store.Store on a database.Connection.
type Store struct {
	conn database.Connection
	body string
}

// New migrates the schema and returns a store using conn.
func New(ctx context.Context, conn database.Connection) (*Store, error) {
	if err := migrations.Run(ctx, conn); err != nil {
		return nil, err
	}
	s := &Store{conn: conn, body: "body"}
	if conn.Driver() == database.DriverPostgres {
		// jsonb scans as text.
		s.body = "body::text"
	}
	return s, nil
}

func (s *Store) load(ctx context.Context, collection string) ([]map[string]any, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT `+s.body+` FROM documents WHERE collection = ? ORDER BY seq`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []map[string]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Find evaluates q over the collection.
func (s *Store) Find(ctx context.Context, collection string, q query.Query) ([]store.Document, error) {
	docs, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	return store.Documents(q.Apply(docs)), nil
}

// Count returns the size of the windowed result of q.
func (s *Store) Count(ctx context.Context, collection string, q query.Query) (int64, error) {
	docs, err := s.load(ctx, collection)
	if err != nil {
		return 0, err
	}
	return int64(len(q.Select(docs))), nil
}

// FindByID loads one document. Identifiers are UUIDs; anything else is
// reported as not found without touching the database.
func (s *Store) FindByID(ctx context.Context, collection, id string) (store.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}

	var raw string
	err := s.conn.QueryRow(ctx,
		`SELECT `+s.body+` FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&raw)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	return decode(raw)
}

// Save inserts or replaces doc inside a transaction.
func (s *Store) Save(ctx context.Context, collection string, doc store.Document) (store.Document, error) {
	saved := store.Clone(doc)
	id := saved.ID()
	if id == "" {
		id = uuid.New().String()
		saved[store.IDField] = id
	}

	body, err := json.Marshal(saved)
	if err != nil {
		return nil, fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	tx, err := s.conn.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin save %s/%s: %w", collection, id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	result, err := tx.Exec(ctx,
		`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`,
		string(body), collection, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	} else if n == 0 {
		if _, err := tx.Exec(ctx,
			`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`,
			collection, id, string(body),
		); err != nil {
			return nil, fmt.Errorf("insert %s/%s: %w", collection, id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit save %s/%s: %w", collection, id, err)
	}
	return saved, nil
}

// RemoveByID deletes one document.
func (s *Store) RemoveByID(ctx context.Context, collection, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrNotFound
	}

	result, err := s.conn.Exec(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func decode(raw string) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

var _ store.Store = (*Store)(nil)
