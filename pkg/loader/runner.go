package loader

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/marmos91/asyncload/internal/logger"
)

// RunnerConfig configures the tick loop of a Runner.
type RunnerConfig struct {
	// Interval between ticks.
	Interval time.Duration

	// TimeLimit is the budget of each tick. Zero means unlimited.
	TimeLimit time.Duration

	// UseFullTimeLimit keeps a tick working until its budget is spent.
	UseFullTimeLimit bool
}

// Runner owns a Loader for a long running process: its Run goroutine is the
// owning goroutine, ticking the loader and executing every operation that
// must run there. Operations that are safe from any goroutine are reached
// through the embedded Loader.
type Runner struct {
	*Loader

	cfg     RunnerConfig
	ops     chan runnerOp
	running atomic.Bool
	stopped chan struct{}
}

type runnerOp struct {
	fn   func()
	done chan struct{}
}

// NewRunner wraps l. Call Run to start ticking.
func NewRunner(l *Loader, cfg RunnerConfig) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = 16 * time.Millisecond
	}
	return &Runner{
		Loader:  l,
		cfg:     cfg,
		ops:     make(chan runnerOp),
		stopped: make(chan struct{}),
	}
}

// Run ticks the loader until ctx is done. It returns nil on cancellation and
// ErrAlreadyStarted if called twice.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer close(r.stopped)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	logger.Debug("Loader runner started", "interval", r.cfg.Interval, "time_limit", r.cfg.TimeLimit)

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Loader runner stopped")
			return nil
		case op := <-r.ops:
			op.fn()
			close(op.done)
		case <-ticker.C:
			r.Loader.TickAsyncLoading(ctx, r.cfg.TimeLimit > 0, r.cfg.UseFullTimeLimit, r.cfg.TimeLimit, nil)
		}
	}
}

// Do runs fn on the owning goroutine and waits for it. fn receives the
// caller's context. Do returns ErrLoaderClosed once Run has returned.
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context)) error {
	op := runnerOp{
		fn:   func() { fn(ctx) },
		done: make(chan struct{}),
	}

	select {
	case r.ops <- op:
	case <-r.stopped:
		return ErrLoaderClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted the op always runs to completion.
	<-op.done
	return nil
}

// CancelAsyncLoading cancels all loads on the owning goroutine.
func (r *Runner) CancelAsyncLoading(ctx context.Context) error {
	var err error
	if doErr := r.Do(ctx, func(ctx context.Context) {
		err = r.Loader.CancelAsyncLoading(ctx)
	}); doErr != nil {
		return doErr
	}
	return err
}

// FlushAsyncLoading flushes requestID on the owning goroutine. Regular ticks
// pause while the flush runs.
func (r *Runner) FlushAsyncLoading(ctx context.Context, requestID int32) error {
	var err error
	if doErr := r.Do(ctx, func(ctx context.Context) {
		err = r.Loader.FlushAsyncLoading(ctx, requestID)
	}); doErr != nil {
		return doErr
	}
	return err
}
