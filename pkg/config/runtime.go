package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/asyncload/internal/logger"
	"github.com/marmos91/asyncload/pkg/linker"
	"github.com/marmos91/asyncload/pkg/loader"
	"github.com/marmos91/asyncload/pkg/metrics"
	"github.com/marmos91/asyncload/pkg/objects"
	"github.com/marmos91/asyncload/pkg/store"
)

// Runtime bundles the components built from a configuration.
type Runtime struct {
	Store   *store.Instrumented
	Objects *objects.Registry
	Loader  *loader.Loader

	cfg LoaderConfig
}

// InitializeRuntime creates the package store, the object registry and a
// loader wired to both. The loader is not started.
//
// Call InitializeMetrics first when metrics are wanted: metric sinks are
// resolved here.
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	rt, err := config.InitializeRuntime(ctx, cfg)
//	if err != nil {
//	    log.Fatalf("Failed to initialize runtime: %v", err)
//	}
//	defer rt.Close()
func InitializeRuntime(ctx context.Context, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil")
	}
	logger.Debug("Initializing runtime from configuration", logger.KeyStoreType, cfg.Store.Type)

	st, err := CreateStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to create package store: %w", err)
	}
	logger.Info("Package store ready", logger.KeyStoreType, st.Type())

	objs := objects.NewRegistry()

	opts := []loader.Option{loader.WithHealthCheck(st.HealthCheck)}
	if m := metrics.NewLoaderMetrics(); m != nil {
		opts = append(opts, loader.WithMetrics(m))
	}

	ld := loader.New(
		cfg.Loader.EngineConfig(),
		linker.NewStoreFactory(st, int64(cfg.Loader.MaxPackageSize)),
		objs,
		opts...,
	)

	return &Runtime{
		Store:   st,
		Objects: objs,
		Loader:  ld,
		cfg:     cfg.Loader,
	}, nil
}

// NewRunner wraps the loader in a tick loop configured from the loader
// section.
func (r *Runtime) NewRunner() *loader.Runner {
	return loader.NewRunner(r.Loader, r.cfg.RunnerConfig())
}

// Close stops the loader, waiting up to the configured stop timeout, and
// closes the package store.
func (r *Runtime) Close() error {
	var errs []error
	if err := r.Loader.Stop(r.cfg.StopTimeout); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop loader: %w", err))
	}
	if err := r.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close package store: %w", err))
	}
	return errors.Join(errs...)
}
