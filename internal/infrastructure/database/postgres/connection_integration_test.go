//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/FreshGuard/internal/config"
	"github.com/turtacn/FreshGuard/internal/infrastructure/database/postgres"
	"github.com/turtacn/FreshGuard/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test helpers
// ─────────────────────────────────────────────────────────────────────────────

// startPostgres launches a PostgreSQL 16 container and returns its settings.
func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "freshguard_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "test",
		Password: "test",
		DBName:   "freshguard_test",
		SSLMode:  "disable",
		MaxConns: 4,
	}
}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool, err := postgres.NewConnectionPool(startPostgres(t), logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { postgres.Close(pool) })
	return pool
}

// ─────────────────────────────────────────────────────────────────────────────
// WithTransaction
// ─────────────────────────────────────────────────────────────────────────────

func TestWithTransaction_CommitsOnSuccess(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, "CREATE TABLE tx_commit (id INT)")
	require.NoError(t, err)

	err = postgres.WithTransaction(ctx, pool, func(tx pgx.Tx, txCtx context.Context) error {
		_, err := tx.Exec(txCtx, "INSERT INTO tx_commit VALUES (1)")
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM tx_commit").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, "CREATE TABLE tx_rollback (id INT PRIMARY KEY)")
	require.NoError(t, err)

	err = postgres.WithTransaction(ctx, pool, func(tx pgx.Tx, txCtx context.Context) error {
		_, err := tx.Exec(txCtx, "INSERT INTO tx_rollback VALUES (1)")
		require.NoError(t, err)
		return fmt.Errorf("intentional error for rollback test")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intentional error")

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM tx_rollback").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction_RollsBackOnPanic(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, "CREATE TABLE tx_panic (id INT)")
	require.NoError(t, err)

	assert.Panics(t, func() {
		_ = postgres.WithTransaction(ctx, pool, func(tx pgx.Tx, txCtx context.Context) error {
			_, _ = tx.Exec(txCtx, "INSERT INTO tx_panic VALUES (1)")
			panic("intentional panic")
		})
	})

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM tx_panic").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction_NestedUsesSavepoint(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, "CREATE TABLE tx_nested (id INT)")
	require.NoError(t, err)

	err = postgres.WithTransaction(ctx, pool, func(outerTx pgx.Tx, outerCtx context.Context) error {
		_, err := outerTx.Exec(outerCtx, "INSERT INTO tx_nested VALUES (1)")
		require.NoError(t, err)

		innerErr := postgres.WithTransaction(outerCtx, pool, func(innerTx pgx.Tx, innerCtx context.Context) error {
			_, err := innerTx.Exec(innerCtx, "INSERT INTO tx_nested VALUES (2)")
			require.NoError(t, err)
			return fmt.Errorf("inner transaction error")
		})
		assert.Error(t, innerErr)
		return nil
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM tx_nested").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestHealthCheck(t *testing.T) {
	pool := setupTestDB(t)
	assert.NoError(t, postgres.HealthCheck(context.Background(), pool, logging.NewNopLogger()))
}
