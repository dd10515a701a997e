// Package badger provides a package store backed by an embedded BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/asyncload/internal/logger"
	"github.com/marmos91/asyncload/pkg/store"
)

// keyPrefix namespaces package blobs inside the database.
const keyPrefix = "pkg:"

// Config holds configuration for the Badger package store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the database entirely in memory.
	InMemory bool

	// SyncWrites forces an fsync on every write.
	SyncWrites bool
}

// Store is a BadgerDB implementation of store.Store.
type Store struct {
	db     *badgerdb.DB
	mu     sync.RWMutex
	closed bool
}

// New opens (or creates) a Badger package store.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, errors.New("badger path is required")
	}

	opts := badgerdb.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &Store{db: db}, nil
}

func dbKey(name string) []byte {
	return []byte(keyPrefix + store.Key(name))
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrStoreClosed
	}
	return nil
}

// ReadPackage returns the stored blob for name.
func (s *Store) ReadPackage(ctx context.Context, name string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(dbKey(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil, store.ErrPackageNotFound
		}
		return nil, fmt.Errorf("badger read: %w", err)
	}

	return data, nil
}

// WritePackage stores the blob for name.
func (s *Store) WritePackage(ctx context.Context, name string, data []byte) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(dbKey(name), data)
	})
	if err != nil {
		return fmt.Errorf("badger write: %w", err)
	}
	return nil
}

// DeletePackage removes the blob for name.
func (s *Store) DeletePackage(ctx context.Context, name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(dbKey(name))
	})
	if err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

// ListPackages iterates keys only; values are never fetched.
func (s *Store) ListPackages(ctx context.Context) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var names []string
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := string(it.Item().KeyCopy(nil))
			names = append(names, store.NameFromKey(strings.TrimPrefix(key, keyPrefix)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// HealthCheck starts a read transaction to verify the database is usable.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	err := s.db.View(func(txn *badgerdb.Txn) error {
		return nil
	})
	if err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// badgerLogger routes Badger's internal logging through the structured logger.
// Badger is chatty at info level, so info is demoted to debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, v ...any) {
	logger.Errorf("badger: "+strings.TrimSpace(format), v...)
}

func (badgerLogger) Warningf(format string, v ...any) {
	logger.Warnf("badger: "+strings.TrimSpace(format), v...)
}

func (badgerLogger) Infof(format string, v ...any) {
	logger.Debugf("badger: "+strings.TrimSpace(format), v...)
}

func (badgerLogger) Debugf(format string, v ...any) {
	logger.Debugf("badger: "+strings.TrimSpace(format), v...)
}

var _ store.Store = (*Store)(nil)
