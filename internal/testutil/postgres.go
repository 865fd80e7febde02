package testutil

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/watchstore/checkout-service/internal/db"
)

// RequireIntegration skips the test unless integration runs are opted in.
// The DB-backed tests need a Docker daemon.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("CHECKOUT_INTEGRATION_TESTS") == "" {
		t.Skip("set CHECKOUT_INTEGRATION_TESTS=1 to run docker-backed tests")
	}
}

// StartPostgres launches a temporary Postgres container, applies the
// embedded migrations, and returns a connection pool.
func StartPostgres(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "checkout"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = container.Terminate(terminateCtx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/checkout?sslmode=disable", host, mappedPort.Port())

	logger := log.New(os.Stdout, "", log.LstdFlags)
	waitForMigrations(ctx, t, dsn, logger)

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func waitForMigrations(ctx context.Context, t *testing.T, dsn string, logger *log.Logger) {
	t.Helper()

	deadline := time.Now().Add(30 * time.Second)
	for {
		err := db.RunMigrations(dsn, logger)
		if err == nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout applying migrations: %v", err)
		}
		select {
		case <-ctx.Done():
			t.Fatalf("context cancelled applying migrations: %v", ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
	}
}
