package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/asyncload/internal/logger"
)

// Budget is the time allowance of one tick. Time is only checked after a
// unit of work, so every tick makes progress.
type Budget struct {
	UseTimeLimit     bool
	UseFullTimeLimit bool
	Limit            time.Duration
	start            time.Time
}

// NewBudget starts a budget now.
func NewBudget(useTimeLimit, useFullTimeLimit bool, limit time.Duration) *Budget {
	return &Budget{
		UseTimeLimit:     useTimeLimit,
		UseFullTimeLimit: useFullTimeLimit,
		Limit:            limit,
		start:            time.Now(),
	}
}

// Exceeded reports whether a time-limited budget ran out.
func (b *Budget) Exceeded() bool {
	return b.UseTimeLimit && time.Since(b.start) >= b.Limit
}

// Elapsed returns the time since the budget started.
func (b *Budget) Elapsed() time.Duration {
	return time.Since(b.start)
}

// ExecutionStrategy decides where the loader side runs.
type ExecutionStrategy interface {
	Name() string
	Multithreaded() bool

	Start(ctx context.Context) error
	Stop(timeout time.Duration) error

	// DriveAsync advances the loader side from TickAsyncLoading and
	// reports whether any work was done on the calling goroutine.
	DriveAsync(ctx context.Context, budget *Budget, tree *FlushTree) bool

	// CancelAsync discards in-flight packages at the next event boundary
	// and returns once they were handed to the loaded list.
	CancelAsync(ctx context.Context) error

	// Wake signals that new work may be available.
	Wake()
}

// callerStrategy runs the loader side inside TickAsyncLoading.
type callerStrategy struct {
	l *Loader
}

func newCallerStrategy(l *Loader) *callerStrategy {
	return &callerStrategy{l: l}
}

func (s *callerStrategy) Name() string                { return "caller" }
func (s *callerStrategy) Multithreaded() bool         { return false }
func (s *callerStrategy) Start(context.Context) error { return nil }
func (s *callerStrategy) Stop(time.Duration) error    { return nil }
func (s *callerStrategy) Wake()                       {}
func (s *callerStrategy) CancelAsync(context.Context) error {
	s.l.cancelInFlight()
	return nil
}

func (s *callerStrategy) DriveAsync(ctx context.Context, budget *Budget, tree *FlushTree) bool {
	return s.l.processAsync(ctx, budget, tree)
}

// workerStrategy runs the loader side on a dedicated goroutine with no time
// limit. TickAsyncLoading only finalizes.
type workerStrategy struct {
	l         *Loader
	idleSleep time.Duration

	wakeCh    chan struct{}
	cancelCh  chan chan struct{}
	stopCh    chan struct{}
	stoppedCh chan struct{}

	mu      sync.Mutex
	started bool
}

func newWorkerStrategy(l *Loader, idleSleep time.Duration) *workerStrategy {
	return &workerStrategy{
		l:         l,
		idleSleep: idleSleep,
		wakeCh:    make(chan struct{}, 1),
		cancelCh:  make(chan chan struct{}),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (s *workerStrategy) Name() string        { return "worker" }
func (s *workerStrategy) Multithreaded() bool { return true }

func (s *workerStrategy) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	go s.run(ctx)
	return nil
}

func (s *workerStrategy) run(ctx context.Context) {
	defer close(s.stoppedCh)
	logger.Debug("Loader worker running", "idle_sleep", s.idleSleep)

	for {
		select {
		case <-s.stopCh:
			return
		case ack := <-s.cancelCh:
			s.handleCancel(ack)
			continue
		default:
		}

		if !s.l.IsSuspended() {
			budget := NewBudget(false, false, 0)
			if s.l.processAsync(ctx, budget, s.l.activeTree.Load()) {
				continue
			}
		}

		timer := time.NewTimer(s.idleSleep)
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case ack := <-s.cancelCh:
			s.handleCancel(ack)
		case <-s.wakeCh:
		case <-timer.C:
		}
		timer.Stop()
	}
}

func (s *workerStrategy) handleCancel(ack chan struct{}) {
	s.l.cancelInFlight()
	s.l.yield.Store(false)
	close(ack)
}

func (s *workerStrategy) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.l.yield.Store(true)
	close(s.stopCh)

	select {
	case <-s.stoppedCh:
		logger.Info("Loader worker stopped")
		return nil
	case <-time.After(timeout):
		logger.Warn("Loader worker stop timed out", logger.KeyInFlight, s.l.inFlight.len())
		return fmt.Errorf("loader worker did not stop within %s", timeout)
	}
}

func (s *workerStrategy) CancelAsync(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		s.l.cancelInFlight()
		return nil
	}

	s.l.yield.Store(true)
	ack := make(chan struct{})
	select {
	case s.cancelCh <- ack:
	case <-s.stoppedCh:
		s.l.cancelInFlight()
		return nil
	case <-ctx.Done():
		s.l.yield.Store(false)
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DriveAsync only nudges the worker.
func (s *workerStrategy) DriveAsync(context.Context, *Budget, *FlushTree) bool {
	s.Wake()
	return false
}

func (s *workerStrategy) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}
