package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"go-batch-pipeline/internal/logger"
)

// startPostgres runs a throwaway Postgres container and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() || os.Getenv("PIPELINE_PG_INTEGRATION") == "" {
		t.Skip("set PIPELINE_PG_INTEGRATION=1 to run against a postgres container")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "pipeline",
				"POSTGRES_PASSWORD": "pipeline",
				"POSTGRES_DB":       "data",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://pipeline:pipeline@%s:%s/data?sslmode=disable", host, port.Port())
}

func TestPostgresStore(t *testing.T) {
	dsn := startPostgres(t)
	exerciseStore(t, NewPostgresStore(dsn, logger.Discard()))
}

func TestPostgresStoreBadDSN(t *testing.T) {
	s := NewPostgresStore("postgres://%zz", logger.Discard())
	require.Error(t, s.Connect(context.Background()))
	_, err := s.Save(context.Background(), sampleRecord())
	require.ErrorIs(t, err, ErrNotConnected)
}
