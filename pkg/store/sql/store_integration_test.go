//go:build integration

package sql

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestStore_Postgres(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("asyncload_test"),
		postgres.WithUsername("asyncload_test"),
		postgres.WithPassword("asyncload_test"),
		testcontainers.WithWaitStrategyAndDeadline(60*time.Second,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	s, err := New(&Config{
		Type: DatabaseTypePostgres,
		Postgres: PostgresConfig{
			Host:     host,
			Port:     port.Int(),
			Database: "asyncload_test",
			User:     "asyncload_test",
			Password: "asyncload_test",
		},
	})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.HealthCheck(ctx))
	require.NoError(t, s.WritePackage(ctx, "/Game/Hero", []byte("v1")))
	require.NoError(t, s.WritePackage(ctx, "/Game/Hero", []byte("v2")))

	data, err := s.ReadPackage(ctx, "/Game/Hero")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)

	names, err := s.ListPackages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/Game/Hero"}, names)
}
