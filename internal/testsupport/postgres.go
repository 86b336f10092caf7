//go:build integration

// Package testsupport starts the containers planner integration tests run against.
package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var migrationsDir string

func init() {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("unable to resolve testsupport filename for migration loading")
	}
	migrationsDir = filepath.Join(filepath.Dir(filename), "../../db/postgres/migrations")
}

// StartPostgres launches a Postgres container, applies every *.up.sql
// migration in order and returns a pool. The container and pool are released
// when t finishes.
func StartPostgres(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgrescontainer.WithDatabase("planner"),
		postgrescontainer.WithUsername("planner"),
		postgrescontainer.WithPassword("planner"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.Eventually(t, func() bool { return pool.Ping(ctx) == nil }, 30*time.Second, 250*time.Millisecond)
	migrate(ctx, t, pool)
	return pool
}

func migrate(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "no migrations under %s", migrationsDir)
	sort.Strings(files)

	for _, file := range files {
		sql, err := os.ReadFile(file)
		require.NoErrorf(t, err, "read migration %s", file)
		_, err = pool.Exec(ctx, string(sql))
		require.NoErrorf(t, err, "apply migration %s", filepath.Base(file))
	}
}
