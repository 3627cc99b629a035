package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/proxypulse/proxypulse/internal/endpoint"
	"github.com/proxypulse/proxypulse/internal/probe"
	"github.com/proxypulse/proxypulse/internal/store"
)

// startPostgresContainer starts a PostgreSQL container for tests and returns
// a DSN suitable for the pgx stdlib driver. It skips the test if Docker is
// unavailable.
func startPostgresContainer(t *testing.T) (dsn string, terminate func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
	)
	if err != nil {
		cancel()
		t.Skipf("Failed to start PostgreSQL container: %v", err)
		return "", nil
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		t.Skipf("Failed to get host info: %v", err)
		return "", nil
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		t.Skipf("Failed to get mapped port: %v", err)
		return "", nil
	}

	dsn = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
	terminate = func() {
		_ = container.Terminate(context.Background())
		cancel()
	}
	return dsn, terminate
}

func waitForSchema(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(30 * time.Second)
	for {
		if err := db.EnsureSchema(ctx); err == nil {
			return
		} else if time.Now().After(deadline) {
			t.Skipf("PostgreSQL did not become ready: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func TestPostgresStoreIntegration(t *testing.T) {
	dsn, terminate := startPostgresContainer(t)
	defer terminate()

	db, err := New(dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	waitForSchema(t, db)

	ctx := context.Background()

	e := endpoint.Endpoint{
		Name: "cache", Kind: endpoint.KindProxy,
		Host: "cache.internal", Port: 3128, Interval: 45 * time.Second,
	}
	require.NoError(t, db.SaveEndpoint(ctx, &e))
	require.NotZero(t, e.ID)

	got, err := db.GetEndpoint(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, endpoint.KindProxy, got.Kind)
	assert.Equal(t, 45*time.Second, got.Interval)

	e.Port = 8080
	require.NoError(t, db.UpdateEndpoint(ctx, &e))
	assert.Equal(t, uint64(2), e.Generation)

	for i := 0; i < 110; i++ {
		r := probe.Result{Timestamp: time.Now().UTC(), OK: i%3 != 0, StatusCode: 200, LatencyMS: float64(i)}
		require.NoError(t, db.AppendResult(ctx, e.ID, r))
	}
	results, err := db.RecentResults(ctx, e.ID, 0)
	require.NoError(t, err)
	assert.Len(t, results, 100)

	require.NoError(t, db.PurgeResults(ctx, e.ID))
	results, err = db.RecentResults(ctx, e.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, db.DeleteEndpoint(ctx, e.ID))
	_, err = db.GetEndpoint(ctx, e.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	u, err := db.CreateUser(ctx, "ops", "hash")
	require.NoError(t, err)
	fetched, err := db.GetUserByUsername(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, u.ID, fetched.ID)
}
