package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskhub/internal/database"
	"github.com/felixgeelhaar/taskhub/internal/database/sqlite"
	"github.com/felixgeelhaar/taskhub/internal/query"
	"github.com/felixgeelhaar/taskhub/internal/store"
	"github.com/felixgeelhaar/taskhub/internal/store/storetest"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	conn, err := sqlite.NewConnection(ctx, database.Config{
		SQLitePath: filepath.Join(t.TempDir(), "taskhub.db"),
	})
	require.NoError(t, err)

	s, err := New(ctx, conn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SQLite(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newSQLiteStore(t)
	})
}

func TestStore_MalformedIDIsNotFound(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.FindByID(ctx, "tasks", "not-a-uuid")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.RemoveByID(ctx, "tasks", "not-a-uuid"), store.ErrNotFound)

	_, err = s.FindByID(ctx, "tasks", uuid.New().String())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "taskhub.db")

	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: path})
	require.NoError(t, err)
	s, err := New(ctx, conn)
	require.NoError(t, err)

	saved, err := s.Save(ctx, "users", store.Document{"name": "Ada", "pendingTasks": []any{"t1"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	conn, err = sqlite.NewConnection(ctx, database.Config{SQLitePath: path})
	require.NoError(t, err)
	s, err = New(ctx, conn)
	require.NoError(t, err)
	defer s.Close()

	found, err := s.FindByID(ctx, "users", saved.ID())
	require.NoError(t, err)
	assert.Equal(t, saved, found)

	n, err := s.Count(ctx, "users", query.Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
