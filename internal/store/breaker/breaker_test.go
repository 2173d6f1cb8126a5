package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
	"github.com/felixgeelhaar/taskhub/internal/store/memory"
	"github.com/felixgeelhaar/taskhub/internal/store/storetest"
)

var errBackend = errors.New("connection refused")

type flakyStore struct {
	store.Store
	fail  bool
	calls int
}

func (s *flakyStore) Find(ctx context.Context, collection string, q query.Query) ([]store.Document, error) {
	s.calls++
	if s.fail {
		return nil, errBackend
	}
	return s.Store.Find(ctx, collection, q)
}

func testConfig() Config {
	return Config{
		Name:             "test",
		MaxRequests:      1,
		Timeout:          50 * time.Millisecond,
		FailureThreshold: 2,
	}
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return New(memory.New(), testConfig(), nil)
	})
}

func TestStore_TripsAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	backend := &flakyStore{Store: memory.New(), fail: true}
	s := New(backend, testConfig(), nil)

	for i := 0; i < 2; i++ {
		_, err := s.Find(ctx, "tasks", query.Query{})
		assert.ErrorIs(t, err, errBackend)
	}
	assert.Equal(t, "open", s.State())

	_, err := s.Find(ctx, "tasks", query.Query{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, backend.calls, "open breaker must not reach the backend")
}

func TestStore_RecoversAfterTimeout(t *testing.T) {
	ctx := context.Background()
	backend := &flakyStore{Store: memory.New(), fail: true}
	s := New(backend, testConfig(), nil)

	for i := 0; i < 2; i++ {
		_, _ = s.Find(ctx, "tasks", query.Query{})
	}
	require.Equal(t, "open", s.State())

	backend.fail = false
	time.Sleep(80 * time.Millisecond)

	_, err := s.Find(ctx, "tasks", query.Query{})
	require.NoError(t, err)
	assert.Equal(t, "closed", s.State())
}

func TestStore_NotFoundDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	s := New(memory.New(), testConfig(), nil)

	for i := 0; i < 5; i++ {
		_, err := s.FindByID(ctx, "users", "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.RemoveByID(ctx, "users", "missing"), store.ErrNotFound)
	}
	assert.Equal(t, "closed", s.State())
}

func TestIsSuccessful(t *testing.T) {
	assert.True(t, isSuccessful(nil))
	assert.True(t, isSuccessful(store.ErrNotFound))
	assert.True(t, isSuccessful(errors.Join(errors.New("save users"), store.ErrDuplicate)))
	assert.True(t, isSuccessful(context.Canceled))
	assert.False(t, isSuccessful(errBackend))
	assert.False(t, isSuccessful(context.DeadlineExceeded))
}
