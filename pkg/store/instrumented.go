package store

import (
	"context"
	"time"

	"github.com/marmos91/asyncload/internal/telemetry"
)

// Metrics is the observability hook for package stores.
// Implementations must be safe for concurrent use. A nil Metrics disables
// collection.
type Metrics interface {
	// ObserveOperation records one store call with its duration and outcome.
	ObserveOperation(storeType, operation string, duration time.Duration, err error)

	// RecordBytes records bytes read from or written to a store.
	RecordBytes(storeType, operation string, bytes int64)
}

// Instrumented wraps a Store with tracing spans and metrics.
type Instrumented struct {
	Store
	storeType string
	metrics   Metrics
}

// Instrument wraps s so every call produces a span and, when m is non-nil,
// metric observations labelled with storeType.
func Instrument(s Store, storeType string, m Metrics) *Instrumented {
	return &Instrumented{Store: s, storeType: storeType, metrics: m}
}

// Type returns the configured store type label.
func (i *Instrumented) Type() string {
	return i.storeType
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	if i.metrics != nil {
		i.metrics.ObserveOperation(i.storeType, op, time.Since(start), err)
	}
}

func (i *Instrumented) bytes(op string, n int) {
	if i.metrics != nil && n > 0 {
		i.metrics.RecordBytes(i.storeType, op, int64(n))
	}
}

// ReadPackage reads through the wrapped store.
func (i *Instrumented) ReadPackage(ctx context.Context, name string) ([]byte, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "read", i.storeType, name)
	defer span.End()

	start := time.Now()
	data, err := i.Store.ReadPackage(ctx, name)
	i.observe("read", start, err)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	i.bytes("read", len(data))
	telemetry.SetAttributes(ctx, telemetry.Size(len(data)))
	return data, nil
}

// WritePackage writes through the wrapped store.
func (i *Instrumented) WritePackage(ctx context.Context, name string, data []byte) error {
	ctx, span := telemetry.StartStoreSpan(ctx, "write", i.storeType, name, telemetry.Size(len(data)))
	defer span.End()

	start := time.Now()
	err := i.Store.WritePackage(ctx, name, data)
	i.observe("write", start, err)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}

	i.bytes("write", len(data))
	return nil
}

// DeletePackage deletes through the wrapped store.
func (i *Instrumented) DeletePackage(ctx context.Context, name string) error {
	ctx, span := telemetry.StartStoreSpan(ctx, "delete", i.storeType, name)
	defer span.End()

	start := time.Now()
	err := i.Store.DeletePackage(ctx, name)
	i.observe("delete", start, err)
	telemetry.RecordError(ctx, err)
	return err
}

// ListPackages lists through the wrapped store.
func (i *Instrumented) ListPackages(ctx context.Context) ([]string, error) {
	ctx, span := telemetry.StartStoreSpan(ctx, "list", i.storeType, "")
	defer span.End()

	start := time.Now()
	names, err := i.Store.ListPackages(ctx)
	i.observe("list", start, err)
	telemetry.RecordError(ctx, err)
	return names, err
}

var _ Store = (*Instrumented)(nil)
