// Package loader implements the asynchronous package loading engine.
//
// Callers queue package requests; the loader side drives each package
// through its stages (link, import discovery, export setup, import and export
// resolution, post-load wait) by executing prioritized stage events, and the
// owning goroutine finalizes finished packages and fires callbacks from
// TickAsyncLoading.
//
// The loader side runs either on the caller's goroutine inside
// TickAsyncLoading (caller strategy) or on a dedicated worker goroutine
// (worker strategy). Both execute the same state transitions.
package loader

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/marmos91/asyncload/internal/logger"
	"github.com/marmos91/asyncload/internal/telemetry"
	"github.com/marmos91/asyncload/pkg/linker"
	"github.com/marmos91/asyncload/pkg/objects"
	"go.opentelemetry.io/otel/trace"
)

// ObjectSystem owns loaded objects. Post-load and registration happen on the
// owning goroutine only.
type ObjectSystem interface {
	FindPackage(pkg string) bool
	FindObject(pkg, name string) *objects.Object
	PostLoad(obj *objects.Object) error
	Register(pkg string, objs []*objects.Object) error
}

// Config configures a Loader.
type Config struct {
	// Multithreaded selects the worker strategy.
	Multithreaded bool

	// IdleSleep bounds how long an idle worker sleeps before polling again.
	IdleSleep time.Duration

	// HistorySize is the number of finished packages remembered.
	HistorySize int
}

// DefaultConfig returns the default loader configuration.
func DefaultConfig() Config {
	return Config{
		IdleSleep:   10 * time.Millisecond,
		HistorySize: 1024,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.IdleSleep <= 0 {
		c.IdleSleep = def.IdleSleep
	}
	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}
}

// Option customizes a Loader.
type Option func(*Loader)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// WithHealthCheck sets the check run before the worker starts, typically the
// package store health check.
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(l *Loader) { l.healthCheck = check }
}

// Loader is the package loading engine.
type Loader struct {
	cfg         Config
	linkers     linker.Factory
	objs        ObjectSystem
	metrics     Metrics
	healthCheck func(ctx context.Context) error
	strategy    ExecutionStrategy

	requests *RequestQueue
	inFlight *packageMap
	loaded   *loadedList
	pending  *requestIDSet
	history  *history
	arena    *arena

	// loader side
	events *EventQueue
	waits  *waitGraph

	nextRequestID atomic.Int32
	suspendCount  atomic.Int32
	consuming     atomic.Int32
	eventCount    atomic.Int64
	started       atomic.Bool
	closed        atomic.Bool
	yield         atomic.Bool
	activeTree    atomic.Pointer[FlushTree]
	loadedCh      chan struct{}

	created   atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	canceled  atomic.Uint64
	ticks     atomic.Uint64
}

// New creates a loader. It does not start the worker; call Start.
func New(cfg Config, linkers linker.Factory, objs ObjectSystem, opts ...Option) *Loader {
	cfg.applyDefaults()

	l := &Loader{
		cfg:      cfg,
		linkers:  linkers,
		objs:     objs,
		requests: NewRequestQueue(),
		inFlight: newPackageMap(),
		loaded:   newLoadedList(),
		pending:  newRequestIDSet(),
		history:  newHistory(cfg.HistorySize),
		arena:    newArena(),
		events:   NewEventQueue(),
		waits:    newWaitGraph(),
		loadedCh: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}

	if cfg.Multithreaded {
		l.strategy = newWorkerStrategy(l, cfg.IdleSleep)
	} else {
		l.strategy = newCallerStrategy(l)
	}
	return l
}

// Start starts the execution strategy. For the worker strategy the health
// check runs first and a failure is returned as ErrStartFailed.
func (l *Loader) Start(ctx context.Context) error {
	if l.closed.Load() {
		return ErrLoaderClosed
	}
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if l.strategy.Multithreaded() && l.healthCheck != nil {
		if err := l.healthCheck(ctx); err != nil {
			l.started.Store(false)
			return fmt.Errorf("%w: %w", ErrStartFailed, err)
		}
	}

	if err := l.strategy.Start(ctx); err != nil {
		l.started.Store(false)
		return fmt.Errorf("%w: %w", ErrStartFailed, err)
	}

	logger.Info("Loader started", "strategy", l.strategy.Name(), "history_size", l.cfg.HistorySize)
	return nil
}

// Stop stops the worker, waiting up to timeout, and closes the loader.
func (l *Loader) Stop(timeout time.Duration) error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	logger.Info("Stopping loader", logger.KeyInFlight, l.inFlight.len(), logger.KeyQueued, l.requests.Len())
	return l.strategy.Stop(timeout)
}

// QueuePackage requests a load of name at priority. The returned request id
// stays pending until the load finishes; cb, if not nil, fires once on the
// goroutine calling TickAsyncLoading.
func (l *Loader) QueuePackage(name string, priority int32, cb Callback) (int32, error) {
	if l.closed.Load() {
		return 0, ErrLoaderClosed
	}
	if strings.TrimSpace(name) == "" {
		return 0, ErrInvalidName
	}

	id := l.nextRequestID.Add(1)
	l.pending.add(id)
	merged := l.requests.Add(name, priority, id, cb)
	l.strategy.Wake()

	logger.Debug("Package queued",
		logger.Package(name), logger.RequestID(id), logger.Priority(priority), "merged", merged)
	return id, nil
}

// SuspendLoading stops the loader from advancing packages until every
// suspend has been matched by a resume.
func (l *Loader) SuspendLoading() {
	n := l.suspendCount.Add(1)
	logger.Debug("Loading suspended", logger.KeySuspendCount, n)
}

// ResumeLoading undoes one SuspendLoading.
func (l *Loader) ResumeLoading() error {
	for {
		cur := l.suspendCount.Load()
		if cur <= 0 {
			l.suspendCount.CompareAndSwap(cur, 0)
			return ErrNotSuspended
		}
		if l.suspendCount.CompareAndSwap(cur, cur-1) {
			if cur == 1 {
				l.strategy.Wake()
			}
			logger.Debug("Loading resumed", logger.KeySuspendCount, cur-1)
			return nil
		}
	}
}

// IsSuspended reports whether any suspend is outstanding.
func (l *Loader) IsSuspended() bool {
	return l.suspendCount.Load() > 0
}

// IsMultithreaded reports whether the worker strategy is in use.
func (l *Loader) IsMultithreaded() bool {
	return l.strategy.Multithreaded()
}

// IsAsyncLoading reports whether any request or package is unfinished.
//
// Packages are always added to their next collection before being removed
// from the previous one, and the checks run in the same order, so a package
// moving between collections is never missed.
func (l *Loader) IsAsyncLoading() bool {
	return l.requests.Len() > 0 || l.consuming.Load() > 0 || l.inFlight.len() > 0 || l.loaded.len() > 0
}

// CancelAsyncLoading discards every queued request, in-flight package and
// package awaiting finalization. In-flight packages stop at the next event
// boundary. All their callbacks fire with Canceled on the calling goroutine.
func (l *Loader) CancelAsyncLoading(ctx context.Context) error {
	if l.closed.Load() {
		return ErrLoaderClosed
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanLoaderCancel)
	defer span.End()

	requests := l.requests.Drain()
	asyncErr := l.strategy.CancelAsync(ctx)

	canceled := 0
	for _, r := range requests {
		for _, cb := range r.Callbacks {
			cb(r.Name, Canceled, ErrCanceled)
		}
		l.pending.remove(r.RequestIDs)
		l.canceled.Add(1)
		canceled++
	}

	for _, e := range l.loaded.snapshot() {
		p := l.arena.get(e.handle)
		if p == nil {
			l.loaded.remove(e.handle)
			continue
		}
		l.finishPackage(ctx, p, Canceled, ErrCanceled)
		canceled++
	}

	logger.InfoCtx(ctx, "Async loading canceled", "canceled", canceled)
	return asyncErr
}

// FlushAsyncLoading blocks until the load for requestID finishes, giving its
// packages precedence over other work.
func (l *Loader) FlushAsyncLoading(ctx context.Context, requestID int32) error {
	if !l.ContainsRequestID(requestID) {
		return nil
	}
	if l.IsSuspended() {
		return ErrSuspended
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanLoaderFlush,
		trace.WithAttributes(telemetry.RequestID(requestID)))
	defer span.End()

	tree := NewFlushTree(requestID)
	if l.strategy.Multithreaded() {
		l.activeTree.Store(tree)
		defer l.activeTree.CompareAndSwap(tree, nil)
		l.strategy.Wake()
	}

	for l.ContainsRequestID(requestID) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if l.IsSuspended() {
			return ErrSuspended
		}

		l.TickAsyncLoading(ctx, false, false, 0, tree)
		if !l.ContainsRequestID(requestID) {
			break
		}

		if !l.strategy.Multithreaded() {
			// Unrelated packages too: a hand-added request id has none.
			l.TickAsyncLoading(ctx, false, false, 0, nil)
		}
		if l.ContainsRequestID(requestID) && !l.IsAsyncLoading() {
			return fmt.Errorf("%w: request %d has no package to wait on", ErrStalled, requestID)
		}

		if l.strategy.Multithreaded() {
			timer := time.NewTimer(l.cfg.IdleSleep)
			select {
			case <-l.loadedCh:
			case <-timer.C:
			case <-ctx.Done():
			}
			timer.Stop()
		}
	}

	logger.DebugCtx(ctx, "Flush complete", logger.RequestID(requestID), "packages", tree.Len())
	return nil
}

func (l *Loader) notifyLoaded() {
	select {
	case l.loadedCh <- struct{}{}:
	default:
	}
}
