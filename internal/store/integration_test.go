package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/kiranshivaraju/qruntime/internal/config"
	"github.com/kiranshivaraju/qruntime/internal/store"
	"github.com/kiranshivaraju/qruntime/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB spins up a Postgres container, runs migrations, and returns a journal.
func setupTestDB(t *testing.T) *store.PostgresStore {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("qruntime_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := store.Connect(ctx, config.DatabaseConfig{
		URL:             connStr,
		MaxOpenConns:    5,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, store.RunMigrations(db))
	// Applying twice is a no-op.
	require.NoError(t, store.RunMigrations(db))

	s := store.NewPostgresStore(db, 30)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))
	base := seed(t, s)

	all, err := s.ListEvents(ctx, store.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-1", "evt-2", "evt-3", "evt-4", "evt-5"}, ids(all))
	assert.Equal(t, models.EventSessionCreated, all[0].Kind)
	assert.True(t, all[0].Timestamp.Equal(base))

	byJob, err := s.ListEvents(ctx, store.EventFilter{JobID: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-2", "evt-3", "evt-5"}, ids(byJob))
	assert.Equal(t, "boom", byJob[2].Detail)

	paged, err := s.ListEvents(ctx, store.EventFilter{SessionID: "session-1", Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"evt-2", "evt-3"}, ids(paged))

	// Seeded events are from 2025-01-01, far outside the retention window.
	n, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	left, err := s.ListEvents(ctx, store.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, left)
}
