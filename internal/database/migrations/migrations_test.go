package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskhub/internal/database"
	"github.com/felixgeelhaar/taskhub/internal/database/sqlite"
)

func TestRun_SQLiteIsIdempotent(t *testing.T) {
	ctx := context.Background()

	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: ":memory:"})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, Run(ctx, conn))
	require.NoError(t, Run(ctx, conn))

	var n int
	err = conn.QueryRow(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'documents'`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStatements(t *testing.T) {
	got := statements("CREATE TABLE a (x INT);\n\n CREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, got)
}
