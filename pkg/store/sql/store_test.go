package sql

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/asyncload/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(&Config{
		Type:   DatabaseTypeSQLite,
		SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "packages.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConfig_ApplyDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	cfg := &Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, DatabaseTypeSQLite, cfg.Type)
	assert.Equal(t, filepath.Join("/tmp/xdg", "asyncload", "packages.db"), cfg.SQLite.Path)

	pg := &Config{Type: DatabaseTypePostgres}
	pg.ApplyDefaults()
	assert.Equal(t, 5432, pg.Postgres.Port)
	assert.Equal(t, "disable", pg.Postgres.SSLMode)
	assert.Equal(t, 25, pg.Postgres.MaxOpenConns)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite ok", Config{Type: DatabaseTypeSQLite, SQLite: SQLiteConfig{Path: "x.db"}}, false},
		{"sqlite missing path", Config{Type: DatabaseTypeSQLite}, true},
		{"postgres missing host", Config{Type: DatabaseTypePostgres, Postgres: PostgresConfig{Database: "d", User: "u"}}, true},
		{"postgres ok", Config{Type: DatabaseTypePostgres, Postgres: PostgresConfig{Host: "h", Database: "d", User: "u"}}, false},
		{"unknown", Config{Type: "oracle"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostgresConfig_DSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "pk", SSLMode: "require"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=pk sslmode=require", c.DSN())
}

func TestStore_SQLite(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	require.NoError(t, s.HealthCheck(ctx))

	require.NoError(t, s.WritePackage(ctx, "/Game/Hero", []byte("v1")))
	require.NoError(t, s.WritePackage(ctx, "/Game/Hero", []byte("v2")), "upsert")
	require.NoError(t, s.WritePackage(ctx, "/Engine", []byte("e")))

	data, err := s.ReadPackage(ctx, "/Game/Hero")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)

	names, err := s.ListPackages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/Engine", "/Game/Hero"}, names)

	require.NoError(t, s.DeletePackage(ctx, "/Engine"))
	_, err = s.ReadPackage(ctx, "/Engine")
	assert.ErrorIs(t, err, store.ErrPackageNotFound)
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.HealthCheck(ctx), store.ErrStoreClosed)
	assert.ErrorIs(t, s.WritePackage(ctx, "/a", nil), store.ErrStoreClosed)
}
