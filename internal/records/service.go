package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/felixgeelhaar/taskhub/internal/events"
	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
)

// ServiceConfig holds the dependencies of a Service.
type ServiceConfig struct {
	Schema Schema
	Store  store.Store
	Events *events.Recorder
	Logger *slog.Logger
}

// Service implements list, create, get, update and delete for one collection.
type Service struct {
	schema Schema
	store  store.Store
	events *events.Recorder
	logger *slog.Logger
}

// NewService creates a service. Events may be nil.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		schema: cfg.Schema,
		store:  cfg.Store,
		events: cfg.Events,
		logger: logger.With("collection", cfg.Schema.Collection()),
	}
}

// Label is the singular used in response messages, e.g. "User".
func (s *Service) Label() string {
	return s.schema.Label()
}

// Collection is the store collection served.
func (s *Service) Collection() string {
	return s.schema.Collection()
}

// ListResult holds either matching records or, in count mode, their number.
type ListResult struct {
	Records []store.Document
	Count   int64
	Counted bool
}

// List parses the where/select/sort/skip/limit/count parameters and runs the
// query. Count mode counts the windowed result.
func (s *Service) List(ctx context.Context, params url.Values) (ListResult, error) {
	q, err := query.Parse(params)
	if err != nil {
		return ListResult{}, &ValidationError{Message: err.Error(), Kind: Invalid, Err: err}
	}

	if q.Count {
		n, err := s.store.Count(ctx, s.Collection(), q)
		if err != nil {
			return ListResult{}, s.storeFailure(ctx, "count", "", err)
		}
		return ListResult{Count: n, Counted: true}, nil
	}

	docs, err := s.store.Find(ctx, s.Collection(), q)
	if err != nil {
		return ListResult{}, s.storeFailure(ctx, "find", "", err)
	}
	if docs == nil {
		docs = []store.Document{}
	}
	return ListResult{Records: docs}, nil
}

// Create validates in and saves a new record.
func (s *Service) Create(ctx context.Context, in Input) (store.Document, error) {
	doc, err := s.schema.Prepare(ctx, in, nil)
	if err != nil {
		return nil, s.prepareFailure(ctx, "", err)
	}

	saved, err := s.save(ctx, doc)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "record created", "id", saved.ID())
	s.events.Record(ctx, s.Collection(), s.schema.Noun(), events.Created, saved.ID(), saved)
	return saved, nil
}

// Get loads one record.
func (s *Service) Get(ctx context.Context, id string) (store.Document, error) {
	doc, err := s.store.FindByID(ctx, s.Collection(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.storeFailure(ctx, "find", id, err)
	}
	return doc, nil
}

// Update replaces every mutable field of an existing record. Omitted
// optional fields reset to their defaults; the identifier and creation time
// are kept.
func (s *Service) Update(ctx context.Context, id string, in Input) (store.Document, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Replace(ctx, current, in)
}

// Replace is Update for a record the caller already loaded with Get.
func (s *Service) Replace(ctx context.Context, current store.Document, in Input) (store.Document, error) {
	id := current.ID()
	doc, err := s.schema.Prepare(ctx, in, current)
	if err != nil {
		return nil, s.prepareFailure(ctx, id, err)
	}

	saved, err := s.save(ctx, doc)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "record updated", "id", id)
	s.events.Record(ctx, s.Collection(), s.schema.Noun(), events.Updated, id, saved)
	return saved, nil
}

// Delete removes a record. Deleting an unknown record is ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.RemoveByID(ctx, s.Collection(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return s.storeFailure(ctx, "delete", id, err)
	}

	s.logger.InfoContext(ctx, "record deleted", "id", id)
	s.events.Record(ctx, s.Collection(), s.schema.Noun(), events.Deleted, id, nil)
	return nil
}

func (s *Service) save(ctx context.Context, doc store.Document) (store.Document, error) {
	saved, err := s.store.Save(ctx, s.Collection(), doc)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, &ValidationError{Message: s.schema.ConflictMessage(), Kind: Conflict, Err: err}
		}
		return nil, s.storeFailure(ctx, "save", doc.ID(), err)
	}
	return saved, nil
}

// prepareFailure passes validation errors through; anything else came from
// the store during validation.
func (s *Service) prepareFailure(ctx context.Context, id string, err error) error {
	if _, ok := IsValidation(err); ok {
		return err
	}
	return s.storeFailure(ctx, "validate", id, err)
}

func (s *Service) storeFailure(ctx context.Context, op, id string, err error) error {
	s.logger.ErrorContext(ctx, "store operation failed",
		"op", op,
		"id", id,
		"error", err,
	)
	return fmt.Errorf("%s %s: %w: %w", op, s.Collection(), ErrStoreFailure, err)
}
