package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/asyncload/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNew_RequiresBasePath(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNew_RejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := New(Config{BasePath: path})
	assert.Error(t, err)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.WritePackage(ctx, "/Game/Hero", []byte("hero")))

	_, err := os.Stat(filepath.Join(s.BasePath(), "Game", "Hero.pkg"))
	require.NoError(t, err, "package file should exist on disk")

	data, err := s.ReadPackage(ctx, "/Game/Hero")
	require.NoError(t, err)
	assert.Equal(t, "hero", string(data))

	// Overwrite
	require.NoError(t, s.WritePackage(ctx, "/Game/Hero", []byte("hero2")))
	data, err = s.ReadPackage(ctx, "/Game/Hero")
	require.NoError(t, err)
	assert.Equal(t, "hero2", string(data))
}

func TestStore_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReadPackage(context.Background(), "/missing")
	assert.ErrorIs(t, err, store.ErrPackageNotFound)
}

func TestStore_RejectsTraversal(t *testing.T) {
	s := newTestStore(t)

	err := s.WritePackage(context.Background(), "/../escape", []byte("x"))
	assert.ErrorIs(t, err, store.ErrInvalidName)
}

func TestStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.WritePackage(ctx, "/Game/Hero", []byte("a")))
	require.NoError(t, s.WritePackage(ctx, "/Game/Maps/Level1", []byte("b")))
	require.NoError(t, s.WritePackage(ctx, "/Engine", []byte("c")))

	names, err := s.ListPackages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/Engine", "/Game/Hero", "/Game/Maps/Level1"}, names)

	require.NoError(t, s.DeletePackage(ctx, "/Game/Maps/Level1"))
	_, err = os.Stat(filepath.Join(s.BasePath(), "Game", "Maps"))
	assert.True(t, os.IsNotExist(err), "empty directory should be cleaned up")

	require.NoError(t, s.DeletePackage(ctx, "/Game/Maps/Level1"), "deleting twice is not an error")
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	s, err := New(DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.HealthCheck(ctx), store.ErrStoreClosed)
	_, err = s.ListPackages(ctx)
	assert.ErrorIs(t, err, store.ErrStoreClosed)
}
