// Package cache adds a read-through document cache in front of a store.
// Only lookups by identifier are cached; writes and removals invalidate.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
)

// ErrMiss is returned by a Cache when the key is absent.
var ErrMiss = errors.New("cache miss")

// Cache is a byte-oriented key/value cache with expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisCache implements Cache on a Redis client.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get retrieves a value by key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores a value. Pass 0 for ttl to store without expiration.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a value by key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Store decorates a store.Store with a Cache. Cache failures are logged and
// the call falls through to the wrapped store.
type Store struct {
	next   store.Store
	cache  Cache
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key namespace. Defaults to "taskhub".
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithLogger sets the logger for cache failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New wraps next.
func New(next store.Store, c Cache, ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		next:   next,
		cache:  c,
		ttl:    ttl,
		prefix: "taskhub",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// key namespaces a document: {prefix}:{collection}:{id}
func (s *Store) key(collection, id string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, collection, id)
}

func (s *Store) Find(ctx context.Context, collection string, q query.Query) ([]store.Document, error) {
	return s.next.Find(ctx, collection, q)
}

func (s *Store) Count(ctx context.Context, collection string, q query.Query) (int64, error) {
	return s.next.Count(ctx, collection, q)
}

// FindByID serves from the cache when possible and fills it on a miss.
func (s *Store) FindByID(ctx context.Context, collection, id string) (store.Document, error) {
	key := s.key(collection, id)

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var doc store.Document
		if jsonErr := json.Unmarshal(raw, &doc); jsonErr == nil {
			return doc, nil
		}
		s.logger.Warn("discarding undecodable cache entry", "key", key)
	case !errors.Is(err, ErrMiss):
		s.logger.Warn("cache read failed", "key", key, "error", err)
	}

	doc, err := s.next.FindByID(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, key, doc)
	return doc, nil
}

func (s *Store) Save(ctx context.Context, collection string, doc store.Document) (store.Document, error) {
	saved, err := s.next.Save(ctx, collection, doc)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, s.key(collection, saved.ID()))
	return saved, nil
}

func (s *Store) RemoveByID(ctx context.Context, collection, id string) error {
	err := s.next.RemoveByID(ctx, collection, id)
	s.invalidate(ctx, s.key(collection, id))
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *Store) Close() error {
	return s.next.Close()
}

func (s *Store) fill(ctx context.Context, key string, doc store.Document) {
	raw, err := json.Marshal(doc)
	if err != nil {
		s.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (s *Store) invalidate(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("cache invalidation failed", "key", key, "error", err)
	}
}

var _ store.Store = (*Store)(nil)
