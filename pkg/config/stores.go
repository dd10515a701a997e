package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/marmos91/asyncload/pkg/metrics"
	"github.com/marmos91/asyncload/pkg/store"
	badgerstore "github.com/marmos91/asyncload/pkg/store/badger"
	fsstore "github.com/marmos91/asyncload/pkg/store/fs"
	"github.com/marmos91/asyncload/pkg/store/memory"
	s3store "github.com/marmos91/asyncload/pkg/store/s3"
	sqlstore "github.com/marmos91/asyncload/pkg/store/sql"
)

// StoreTypes lists the accepted values of store.type.
var StoreTypes = []string{"memory", "fs", "s3", "badger", "sql"}

// CreateStore creates the configured package store, wrapped with tracing and,
// when the metrics registry is initialized, Prometheus metrics.
func CreateStore(ctx context.Context, cfg StoreConfig) (*store.Instrumented, error) {
	s, err := createBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store.Instrument(s, cfg.Type, metrics.NewStoreMetrics()), nil
}

func createBackend(ctx context.Context, cfg StoreConfig) (store.Store, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(), nil
	case "fs":
		return createFSStore(cfg.FS)
	case "s3":
		return createS3Store(ctx, cfg.S3)
	case "badger":
		return createBadgerStore(cfg.Badger)
	case "sql":
		return createSQLStore(cfg.SQL)
	default:
		return nil, fmt.Errorf("unknown store type %q (valid: %s)", cfg.Type, strings.Join(StoreTypes, ", "))
	}
}

// createFSStore creates a filesystem-backed package store.
func createFSStore(cfg FSStoreConfig) (store.Store, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("fs store requires base_path to be set")
	}

	// Build config - fs.New() applies defaults for zero values
	fsCfg := fsstore.Config{
		BasePath:  cfg.BasePath,
		CreateDir: cfg.CreateDir,
		DirMode:   os.FileMode(cfg.DirMode),
		FileMode:  os.FileMode(cfg.FileMode),
	}

	s, err := fsstore.New(fsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create fs store: %w", err)
	}
	return s, nil
}

// createS3Store creates an S3-backed package store.
func createS3Store(ctx context.Context, cfg S3StoreConfig) (store.Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store requires bucket to be set")
	}

	s3Cfg := s3store.Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		KeyPrefix:       cfg.KeyPrefix,
		ForcePathStyle:  cfg.ForcePathStyle,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	}

	s, err := s3store.NewFromConfig(ctx, s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 store: %w", err)
	}
	return s, nil
}

// createBadgerStore opens a BadgerDB package store.
func createBadgerStore(cfg BadgerStoreConfig) (store.Store, error) {
	s, err := badgerstore.New(badgerstore.Config{
		Path:       cfg.Path,
		InMemory:   cfg.InMemory,
		SyncWrites: cfg.SyncWrites,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return s, nil
}

// createSQLStore opens a SQLite or PostgreSQL package store.
func createSQLStore(cfg sqlstore.Config) (store.Store, error) {
	cfg.ApplyDefaults()
	s, err := sqlstore.New(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create sql store: %w", err)
	}
	return s, nil
}
