// Package memory provides an in-memory package store, mostly for tests and
// the `load --store memory` quick path.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/marmos91/asyncload/pkg/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu       sync.RWMutex
	packages map[string][]byte
	closed   bool
}

// New creates a new in-memory package store.
func New() *Store {
	return &Store{
		packages: make(map[string][]byte),
	}
}

// ReadPackage returns a copy of the stored package.
func (s *Store) ReadPackage(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}

	data, ok := s.packages[store.Key(name)]
	if !ok {
		return nil, store.ErrPackageNotFound
	}

	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// WritePackage stores a copy of data under name.
func (s *Store) WritePackage(ctx context.Context, name string, data []byte) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}

	copied := make([]byte, len(data))
	copy(copied, data)
	s.packages[store.Key(name)] = copied

	return nil
}

// DeletePackage removes a package from memory.
func (s *Store) DeletePackage(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}

	delete(s.packages, store.Key(name))
	return nil
}

// ListPackages lists all package names.
func (s *Store) ListPackages(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}

	names := make([]string, 0, len(s.packages))
	for key := range s.packages {
		names = append(names, store.NameFromKey(key))
	}

	sort.Strings(names)
	return names, nil
}

// HealthCheck reports whether the store is still open.
func (s *Store) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed and drops its contents.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.packages = nil
	return nil
}

// Count returns the number of packages stored (for testing).
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.packages)
}

var _ store.Store = (*Store)(nil)
