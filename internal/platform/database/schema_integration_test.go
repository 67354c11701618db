//go:build integration

package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"chrona/internal/platform/database"
	"chrona/pkg/testutil/containers"
)

func TestEnsureSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	// The container helper runs the bootstrap once; this exercises the
	// startup path against an already initialized database.
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()

	require.NoError(t, database.EnsureSchema(ctx, pg.DB))

	for _, table := range []string{"subjects", "workflow_log", "outbox", "notifications"} {
		var count int
		err := pg.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		require.NoError(t, err, "table %s should exist", table)
		require.Zero(t, count)
	}
}
