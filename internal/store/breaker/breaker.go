// Package breaker guards a store with a circuit breaker so a failing backend
// is shed quickly instead of stalling every request.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("store unavailable")

// Config configures the breaker.
type Config struct {
	// Name identifies the breaker in logs.
	Name string

	// MaxRequests is the maximum number of requests allowed in half-open state.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state.
	Interval time.Duration

	// Timeout is the period of the open state.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that trips
	// the breaker.
	FailureThreshold uint32
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Name:             "store",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Store wraps a store.Store with a circuit breaker.
type Store struct {
	next    store.Store
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// New wraps next. A nil logger uses slog.Default.
func New(next store.Store, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Store{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		logger:  logger,
	}
}

// isSuccessful counts only backend faults against the breaker. Lookups of
// absent documents, unique violations and caller cancellation are normal
// outcomes.
func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrDuplicate) ||
		errors.Is(err, context.Canceled)
}

// State reports the breaker state, e.g. "closed".
func (s *Store) State() string {
	return s.breaker.State().String()
}

func (s *Store) execute(fn func() (any, error)) (any, error) {
	result, err := s.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return result, err
}

func (s *Store) Find(ctx context.Context, collection string, q query.Query) ([]store.Document, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.Find(ctx, collection, q)
	})
	if err != nil {
		return nil, err
	}
	return result.([]store.Document), nil
}

func (s *Store) Count(ctx context.Context, collection string, q query.Query) (int64, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.Count(ctx, collection, q)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (s *Store) FindByID(ctx context.Context, collection, id string) (store.Document, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.FindByID(ctx, collection, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(store.Document), nil
}

func (s *Store) Save(ctx context.Context, collection string, doc store.Document) (store.Document, error) {
	result, err := s.execute(func() (any, error) {
		return s.next.Save(ctx, collection, doc)
	})
	if err != nil {
		return nil, err
	}
	return result.(store.Document), nil
}

func (s *Store) RemoveByID(ctx context.Context, collection, id string) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.next.RemoveByID(ctx, collection, id)
	})
	return err
}

// Ping bypasses the breaker so health checks observe the backend directly.
func (s *Store) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *Store) Close() error {
	return s.next.Close()
}

var _ store.Store = (*Store)(nil)
