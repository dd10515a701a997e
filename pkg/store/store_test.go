package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/asyncload/pkg/store"
	"github.com/marmos91/asyncload/pkg/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"/Game/Hero", false},
		{"Game/Hero", false},
		{"/a", false},
		{"", true},
		{"/", true},
		{"/a/../b", true},
		{"/a/./b", true},
		{"/a//b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.ValidateName(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, store.ErrInvalidName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestKeyRoundTrip(t *testing.T) {
	assert.Equal(t, "Game/Hero", store.Key("/Game/Hero"))
	assert.Equal(t, "/Game/Hero", store.NameFromKey(store.Key("/Game/Hero")))
}

type recordingMetrics struct {
	mu    sync.Mutex
	ops   []string
	errs  int
	bytes map[string]int64
}

func (m *recordingMetrics) ObserveOperation(storeType, operation string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, storeType+":"+operation)
	if err != nil {
		m.errs++
	}
}

func (m *recordingMetrics) RecordBytes(storeType, operation string, bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bytes == nil {
		m.bytes = map[string]int64{}
	}
	m.bytes[operation] += bytes
}

func TestInstrumented(t *testing.T) {
	ctx := context.Background()
	m := &recordingMetrics{}
	s := store.Instrument(memory.New(), "memory", m)
	defer s.Close()

	assert.Equal(t, "memory", s.Type())

	require.NoError(t, s.WritePackage(ctx, "/a", []byte("hello")))
	data, err := s.ReadPackage(ctx, "/a")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = s.ReadPackage(ctx, "/missing")
	assert.True(t, errors.Is(err, store.ErrPackageNotFound))

	_, err = s.ListPackages(ctx)
	require.NoError(t, err)
	require.NoError(t, s.DeletePackage(ctx, "/a"))

	assert.Equal(t, []string{"memory:write", "memory:read", "memory:read", "memory:list", "memory:delete"}, m.ops)
	assert.Equal(t, 1, m.errs)
	assert.Equal(t, int64(5), m.bytes["write"])
	assert.Equal(t, int64(5), m.bytes["read"])
}

func TestInstrumented_NilMetrics(t *testing.T) {
	s := store.Instrument(memory.New(), "memory", nil)
	defer s.Close()

	require.NotPanics(t, func() {
		_ = s.WritePackage(context.Background(), "/a", []byte("x"))
		_, _ = s.ReadPackage(context.Background(), "/a")
	})
}
