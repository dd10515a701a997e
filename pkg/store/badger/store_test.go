package badger

import (
	"context"
	"testing"

	"github.com/marmos91/asyncload/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(t *testing.T) Config
	}{
		{"in-memory", func(t *testing.T) Config { return Config{InMemory: true} }},
		{"on-disk", func(t *testing.T) Config { return Config{Path: t.TempDir()} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, err := New(tt.cfg(t))
			require.NoError(t, err)
			defer s.Close()

			require.NoError(t, s.HealthCheck(ctx))

			require.NoError(t, s.WritePackage(ctx, "/Game/Hero", []byte("hero")))
			require.NoError(t, s.WritePackage(ctx, "/Game/Sword", []byte("sword")))

			data, err := s.ReadPackage(ctx, "/Game/Hero")
			require.NoError(t, err)
			assert.Equal(t, []byte("hero"), data)

			names, err := s.ListPackages(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"/Game/Hero", "/Game/Sword"}, names)

			require.NoError(t, s.DeletePackage(ctx, "/Game/Hero"))
			_, err = s.ReadPackage(ctx, "/Game/Hero")
			assert.ErrorIs(t, err, store.ErrPackageNotFound)
		})
	}
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	s, err := New(Config{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "double close is a no-op")

	assert.ErrorIs(t, s.HealthCheck(ctx), store.ErrStoreClosed)
	_, err = s.ReadPackage(ctx, "/a")
	assert.ErrorIs(t, err, store.ErrStoreClosed)
}
