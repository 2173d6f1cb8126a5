// Package mongostore serves documents from MongoDB, pushing filters,
// projections, sorting and skip/limit down to the server.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
)

// Config configures the MongoDB store.
type Config struct {
	// URI is the connection string, e.g. "mongodb://localhost:27017".
	URI string
	// Database is the database holding the collections.
	Database string
	// TimeFields lists, per collection, fields stored as BSON dates.
	TimeFields map[string][]string
	// UniqueIndexes lists, per collection, fields that get a unique index.
	// Saves violating one fail with store.ErrDuplicate.
	UniqueIndexes map[string][]string
	// ConnectTimeout bounds the initial connection. Defaults to 10s.
	ConnectTimeout time.Duration
	Logger         *slog.Logger
}

// Store implements store.Store on a MongoDB database.
type Store struct {
	client      *mongo.Client
	db          *mongo.Database
	translators map[string]translator
	logger      *slog.Logger
}

// Connect dials MongoDB, verifies the connection and creates configured
// unique indexes.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo URI is required")
	}
	if cfg.Database == "" {
		cfg.Database = "taskhub"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx) // Best-effort cleanup
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &Store{
		client:      client,
		db:          client.Database(cfg.Database),
		translators: make(map[string]translator, len(cfg.TimeFields)),
		logger:      cfg.Logger,
	}
	for collection, fields := range cfg.TimeFields {
		s.translators[collection] = newTranslator(fields)
	}

	for collection, fields := range cfg.UniqueIndexes {
		for _, field := range fields {
			_, err := s.db.Collection(collection).Indexes().CreateOne(connectCtx, mongo.IndexModel{
				Keys:    bson.D{{Key: field, Value: 1}},
				Options: options.Index().SetUnique(true),
			})
			if err != nil {
				_ = client.Disconnect(ctx) // Best-effort cleanup
				return nil, fmt.Errorf("failed to create unique index %s.%s: %w", collection, field, err)
			}
			s.logger.Info("unique index ensured", "collection", collection, "field", field)
		}
	}

	s.logger.Info("MongoDB store connected", "database", cfg.Database)
	return s, nil
}

func (s *Store) translator(collection string) translator {
	if t, ok := s.translators[collection]; ok {
		return t
	}
	return newTranslator(nil)
}

// Find runs q on the server.
func (s *Store) Find(ctx context.Context, collection string, q query.Query) ([]store.Document, error) {
	t := s.translator(collection)

	opts := options.Find()
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if sort := t.sort(q.Sort); sort != nil {
		opts.SetSort(sort)
	}
	if projection := t.projection(q.Projection); projection != nil {
		opts.SetProjection(projection)
	}

	cur, err := s.db.Collection(collection).Find(ctx, t.filter(q.Filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}

	docs := make([]store.Document, len(raw))
	for i, m := range raw {
		docs[i] = t.fromBSON(m)
	}
	return docs, nil
}

// Count counts the windowed result of q on the server.
func (s *Store) Count(ctx context.Context, collection string, q query.Query) (int64, error) {
	t := s.translator(collection)

	opts := options.Count()
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	n, err := s.db.Collection(collection).CountDocuments(ctx, t.filter(q.Filter), opts)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// FindByID loads one document. Identifiers are ObjectID hex strings.
func (s *Store) FindByID(ctx context.Context, collection, id string) (store.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrNotFound
	}

	var m bson.M
	err = s.db.Collection(collection).FindOne(ctx, bson.D{{Key: store.IDField, Value: oid}}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	return s.translator(collection).fromBSON(m), nil
}

// Save inserts documents without an identifier and upserts the rest.
func (s *Store) Save(ctx context.Context, collection string, doc store.Document) (store.Document, error) {
	t := s.translator(collection)
	saved := store.Clone(doc)
	coll := s.db.Collection(collection)

	id := saved.ID()
	var err error
	if id == "" {
		oid := primitive.NewObjectID()
		saved[store.IDField] = oid.Hex()
		_, err = coll.InsertOne(ctx, t.toBSON(saved))
	} else {
		oid, parseErr := primitive.ObjectIDFromHex(id)
		if parseErr != nil {
			return nil, store.ErrNotFound
		}
		_, err = coll.ReplaceOne(ctx,
			bson.D{{Key: store.IDField, Value: oid}},
			t.toBSON(saved),
			options.Replace().SetUpsert(true),
		)
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("save %s: %w", collection, store.ErrDuplicate)
		}
		return nil, fmt.Errorf("save %s: %w", collection, err)
	}
	return t.fromBSON(t.toBSON(saved)), nil
}

// RemoveByID deletes one document.
func (s *Store) RemoveByID(ctx context.Context, collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}

	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.D{{Key: store.IDField, Value: oid}})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Ping checks the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ store.Store = (*Store)(nil)
