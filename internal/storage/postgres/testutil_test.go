package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"menu-forecast/internal/storage/migrations"
	"menu-forecast/internal/storage/postgres"
)

// setupTestDB creates a PostgreSQL container for testing and applies the
// embedded migrations. Returns a cleanup function that must be called after
// tests complete.
func setupTestDB(t *testing.T) (*postgres.Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool), "failed to apply migrations")
	// idempotent
	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool), "failed to re-apply migrations")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// insertOrder creates one order at createdAt with (menu_id, quantity) items.
func insertOrder(t *testing.T, pool *postgres.Pool, createdAt time.Time, items ...[2]int64) {
	t.Helper()
	ctx := context.Background()

	var orderID int64
	err := pool.QueryRow(ctx, `INSERT INTO orders (created_at) VALUES ($1) RETURNING id`, createdAt).Scan(&orderID)
	require.NoError(t, err)

	for _, it := range items {
		_, err := pool.Exec(ctx, `INSERT INTO order_items (order_id, menu_id, quantity) VALUES ($1, $2, $3)`,
			orderID, it[0], it[1])
		require.NoError(t, err)
	}
}

func insertMenus(t *testing.T, pool *postgres.Pool, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		_, err := pool.Exec(context.Background(), `INSERT INTO menus (id, name) VALUES ($1, $2)`, id, "menu")
		require.NoError(t, err)
	}
}
