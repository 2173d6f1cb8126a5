// Package storetest holds behavior tests shared by every store backend.
package storetest

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
)

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("SaveAssignsID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		saved, err := s.Save(ctx, "users", store.Document{"name": "Ada", "email": "ada@example.com"})
		require.NoError(t, err)
		require.NotEmpty(t, saved.ID())

		found, err := s.FindByID(ctx, "users", saved.ID())
		require.NoError(t, err)
		assert.Equal(t, "Ada", found["name"])
		assert.Equal(t, saved.ID(), found.ID())
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		saved, err := s.Save(ctx, "tasks", store.Document{"name": "draft", "description": "old"})
		require.NoError(t, err)

		_, err = s.Save(ctx, "tasks", store.Document{store.IDField: saved.ID(), "name": "final"})
		require.NoError(t, err)

		found, err := s.FindByID(ctx, "tasks", saved.ID())
		require.NoError(t, err)
		assert.Equal(t, "final", found["name"])
		assert.NotContains(t, found, "description")

		n, err := s.Count(ctx, "tasks", query.Query{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("FindByIDUnknown", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.FindByID(ctx, "tasks", "does-not-exist")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("RemoveByID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		saved, err := s.Save(ctx, "tasks", store.Document{"name": "short lived"})
		require.NoError(t, err)

		require.NoError(t, s.RemoveByID(ctx, "tasks", saved.ID()))
		assert.ErrorIs(t, s.RemoveByID(ctx, "tasks", saved.ID()), store.ErrNotFound)

		_, err = s.FindByID(ctx, "tasks", saved.ID())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("FindWindowInStoreOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var want []string
		for i := 0; i < 10; i++ {
			saved, err := s.Save(ctx, "tasks", store.Document{"name": fmt.Sprintf("task %d", i), "rank": float64(i)})
			require.NoError(t, err)
			if i >= 2 && i <= 4 {
				want = append(want, saved.ID())
			}
		}

		q, err := query.Parse(url.Values{"skip": {"2"}, "limit": {"3"}})
		require.NoError(t, err)

		docs, err := s.Find(ctx, "tasks", q)
		require.NoError(t, err)
		require.Len(t, docs, 3)
		for i, d := range docs {
			assert.Equal(t, want[i], d.ID())
		}

		n, err := s.Count(ctx, "tasks", q)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("FindFilterSortProject", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 0; i < 6; i++ {
			_, err := s.Save(ctx, "tasks", store.Document{
				"name":      fmt.Sprintf("task %d", i),
				"completed": i%2 == 0,
				"rank":      float64(i),
			})
			require.NoError(t, err)
		}

		q, err := query.Parse(url.Values{
			"where":  {`{"completed": true}`},
			"sort":   {`{"rank": -1}`},
			"select": {`{"name": 1, "_id": 0}`},
		})
		require.NoError(t, err)

		docs, err := s.Find(ctx, "tasks", q)
		require.NoError(t, err)
		assert.Equal(t, []store.Document{
			{"name": "task 4"},
			{"name": "task 2"},
			{"name": "task 0"},
		}, docs)
	})

	t.Run("CollectionsAreIsolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Save(ctx, "users", store.Document{"name": "Ada"})
		require.NoError(t, err)

		n, err := s.Count(ctx, "tasks", query.Query{})
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("ReturnedDocumentsAreCopies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		saved, err := s.Save(ctx, "users", store.Document{"name": "Ada", "pendingTasks": []any{"t1"}})
		require.NoError(t, err)
		saved["pendingTasks"].([]any)[0] = "mutated"

		found, err := s.FindByID(ctx, "users", saved.ID())
		require.NoError(t, err)
		assert.Equal(t, []any{"t1"}, found["pendingTasks"])
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}
