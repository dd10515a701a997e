package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/asyncload/internal/logger"
	"github.com/marmos91/asyncload/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// asyncContext is the execution context shared by the events of one pass of
// the loader side.
type asyncContext struct {
	l        *Loader
	ctx      context.Context
	budget   *Budget
	tree     *FlushTree
	executed int
	timedOut bool
}

// ExecuteEvent implements EventContext.
func (ac *asyncContext) ExecuteEvent(pl Payload) {
	ac.executed++
	ac.l.dispatch(ac, pl)
}

// TickAsyncLoading advances loading within the given budget: finalize
// finished packages, drive the loader side (caller strategy only), finalize
// again. With a flush tree, the tree's packages go first and the tick is
// complete once the tree's request finished.
func (l *Loader) TickAsyncLoading(ctx context.Context, useTimeLimit, useFullTimeLimit bool, timeLimit time.Duration, tree *FlushTree) TickResult {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanLoaderTick,
		trace.WithAttributes(
			attribute.Bool(telemetry.AttrTimeLimited, useTimeLimit),
			attribute.Bool(telemetry.AttrMultithreaded, l.strategy.Multithreaded()),
		))
	defer span.End()

	budget := NewBudget(useTimeLimit, useFullTimeLimit, timeLimit)

	if !l.IsSuspended() {
		for {
			progressed := l.processLoaded(ctx, budget, tree)
			if l.flushDone(tree) || (progressed && budget.Exceeded()) {
				break
			}
			if l.strategy.DriveAsync(ctx, budget, tree) {
				progressed = true
			}
			if budget.Exceeded() {
				break
			}
			if l.processLoaded(ctx, budget, tree) {
				progressed = true
			}
			if l.flushDone(tree) || budget.Exceeded() || !progressed {
				break
			}
		}
	}

	result := TickTimeOut
	if l.tickComplete(tree) {
		result = TickComplete
	}

	l.ticks.Add(1)
	span.SetAttributes(telemetry.TickResult(result.String()))
	if l.metrics != nil {
		l.metrics.RecordTick(result.String(), budget.Elapsed())
	}
	l.reportQueueDepth()
	return result
}

func (l *Loader) flushDone(tree *FlushTree) bool {
	return tree != nil && !l.pending.contains(tree.RequestID)
}

func (l *Loader) tickComplete(tree *FlushTree) bool {
	if tree != nil {
		return l.flushDone(tree)
	}
	return !l.IsAsyncLoading()
}

// processAsync runs the loader side until it is idle, the budget runs out,
// loading is suspended or the strategy asks it to yield.
func (l *Loader) processAsync(ctx context.Context, budget *Budget, tree *FlushTree) bool {
	ac := &asyncContext{l: l, ctx: ctx, budget: budget, tree: tree}
	did := false

	for !l.IsSuspended() && !l.yield.Load() {
		if tree != nil {
			l.seedFlushTree(tree)
		}

		if l.createFromQueue(ac) > 0 {
			did = true
			if budget.Exceeded() {
				break
			}
			continue
		}

		if l.popAndExecute(ac) {
			did = true
			if ac.timedOut || budget.Exceeded() {
				break
			}
			continue
		}

		if l.inFlight.len() > 0 && l.resolveStalled(ac) {
			did = true
			continue
		}
		break
	}

	l.eventCount.Store(int64(l.events.Len()))
	return did
}

// createFromQueue turns queued requests into packages. Without a time limit,
// or with useFullTimeLimit, the whole queue is consumed at once; otherwise one
// request at a time with a time check in between.
func (l *Loader) createFromQueue(ac *asyncContext) int {
	batch := 1
	if !ac.budget.UseTimeLimit || ac.budget.UseFullTimeLimit {
		batch = 0
	}

	l.consuming.Add(1)
	defer l.consuming.Add(-1)

	n := 0
	for {
		reqs := l.requests.Pop(batch)
		if len(reqs) == 0 {
			break
		}
		for _, r := range reqs {
			l.processRequest(ac, r)
			n++
		}
		if batch == 0 || ac.budget.Exceeded() || l.yield.Load() {
			break
		}
	}
	return n
}

// processRequest merges r into an existing package (in flight, then awaiting
// finalization) or creates a new one.
func (l *Loader) processRequest(ac *asyncContext, r *Request) {
	if h, ok := l.inFlight.get(r.Name); ok {
		if p := l.arena.get(h); p != nil && p.merge(r.RequestIDs, r.Callbacks) {
			l.raisePriority(p, r.Priority)
			l.populateForRequest(ac.tree, r, p)
			return
		}
	}

	if h, ok := l.loaded.find(r.Name); ok {
		if p := l.arena.get(h); p != nil && p.merge(r.RequestIDs, r.Callbacks) {
			l.populateForRequest(ac.tree, r, p)
			return
		}
	}

	if l.objs.FindPackage(r.Name) {
		p := newPackage(r.Name, r.Priority)
		l.arena.alloc(p)
		p.resident = true
		p.setState(StateReadyForPostLoad)
		p.merge(r.RequestIDs, r.Callbacks)
		l.populateForRequest(ac.tree, r, p)
		l.loaded.push(p.name, p.handle)
		l.notifyLoaded()
		return
	}

	p := l.createPackage(r.Name, r.Priority)
	p.merge(r.RequestIDs, r.Callbacks)
	l.populateForRequest(ac.tree, r, p)
}

func (l *Loader) populateForRequest(tree *FlushTree, r *Request, p *Package) {
	if tree == nil {
		return
	}
	for _, id := range r.RequestIDs {
		if id == tree.RequestID {
			l.populateFlushTree(tree, p)
			return
		}
	}
}

// populateFlushTree adds p and its known dependencies to tree.
func (l *Loader) populateFlushTree(tree *FlushTree, p *Package) {
	if !tree.Add(p.name) {
		return
	}
	for _, d := range p.deps {
		if dep := l.arena.get(d.handle); dep != nil {
			l.populateFlushTree(tree, dep)
		}
	}
}

// seedFlushTree adds the packages already carrying the tree's request id
// the first time the tree is seen.
func (l *Loader) seedFlushTree(tree *FlushTree) {
	if !tree.markSeeded() {
		return
	}
	for _, h := range l.inFlight.snapshot() {
		if p := l.arena.get(h); p != nil && p.hasRequestID(tree.RequestID) {
			l.populateFlushTree(tree, p)
		}
	}
	for _, e := range l.loaded.snapshot() {
		if p := l.arena.get(e.handle); p != nil && p.hasRequestID(tree.RequestID) {
			l.populateFlushTree(tree, p)
		}
	}
}

// popAndExecute runs the next event, preferring packages in the flush tree.
func (l *Loader) popAndExecute(ac *asyncContext) bool {
	if ac.tree != nil && ac.tree.Len() > 0 {
		inTree := func(pl Payload) bool {
			p := l.arena.get(pl.Handle)
			return p != nil && ac.tree.Contains(p.name)
		}
		if l.events.PopMatchingAndExecute(inTree, ac) {
			return true
		}
	}
	return l.events.PopAndExecute(ac)
}

// resolveStalled handles an idle loader side with packages still in flight:
// every package is parked on another one. Cycles fail with
// ErrDependencyCycle, anything else with ErrStalled.
func (l *Loader) resolveStalled(ac *asyncContext) bool {
	if l.events.Len() > 0 {
		return false
	}

	if cycles := l.waits.cycles(); len(cycles) > 0 {
		for _, c := range cycles {
			l.failCycle(ac, c)
		}
		return true
	}

	stalled := l.inFlight.snapshot()
	for _, h := range stalled {
		p := l.arena.get(h)
		if p == nil {
			continue
		}
		logger.ErrorCtx(ac.ctx, "Package stalled",
			logger.Package(p.name), logger.Stage(p.stage.String()), logger.State(p.State().String()))
		l.failPackage(ac, p, fmt.Errorf("%w: %s in %s", ErrStalled, p.name, p.stage))
	}
	return len(stalled) > 0
}

// cancelInFlight hands every in-flight package to the loaded list as
// Canceled and drops the loader-side state. Runs on the loader side.
func (l *Loader) cancelInFlight() {
	for _, h := range l.inFlight.snapshot() {
		p := l.arena.get(h)
		if p == nil {
			continue
		}
		p.setErr(ErrCanceled)
		p.setState(StateCanceled)
		l.loaded.push(p.name, h)
		l.inFlight.remove(p.name, h)
	}
	l.inFlight.drain()
	l.events.Clear()
	l.waits.clear()
	l.eventCount.Store(0)
	l.activeTree.Store(nil)
	l.notifyLoaded()
}

// processLoaded finalizes packages handed to the owning goroutine, in
// hand-off order. A package waits for its dependencies to finish first, so
// callbacks of dependencies fire before those of their importers.
func (l *Loader) processLoaded(ctx context.Context, budget *Budget, tree *FlushTree) bool {
	did := false
	for !l.IsSuspended() {
		p := l.nextToFinalize(tree)
		if p == nil {
			break
		}

		done := l.finalizePackage(ctx, budget, p)
		did = true
		if !done || budget.Exceeded() || l.flushDone(tree) {
			break
		}
	}
	return did
}

func (l *Loader) nextToFinalize(tree *FlushTree) *Package {
	for _, e := range l.loaded.snapshot() {
		p := l.arena.get(e.handle)
		if p == nil {
			l.loaded.remove(e.handle)
			continue
		}
		if tree != nil && !tree.Contains(p.name) && !p.hasRequestID(tree.RequestID) {
			continue
		}

		switch p.State() {
		case StateFailed, StateCanceled:
			return p
		}
		if l.dependenciesSettled(p) {
			return p
		}
	}
	return nil
}

func (l *Loader) dependenciesSettled(p *Package) bool {
	for _, d := range p.deps {
		if dep := l.arena.get(d.handle); dep != nil && !dep.State().Terminal() {
			return false
		}
	}
	return true
}

func (l *Loader) failedDependency(p *Package) error {
	for _, d := range p.deps {
		if dep := l.arena.get(d.handle); dep != nil {
			if s := dep.State(); s == StateFailed || s == StateCanceled {
				return fmt.Errorf("%w: %s", ErrDependencyFailed, d.name)
			}
			continue
		}
		if e, ok := l.history.findSerial(d.handle.serial); ok && e.State != StateLoaded {
			return fmt.Errorf("%w: %s", ErrDependencyFailed, d.name)
		}
	}
	return nil
}

// finalizePackage post-loads and registers the exports of p and fires its
// callbacks. It returns false if the budget ran out part way.
func (l *Loader) finalizePackage(ctx context.Context, budget *Budget, p *Package) bool {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanLoaderFinalize,
		trace.WithAttributes(telemetry.Package(p.name), telemetry.PackageSerial(p.serial)))
	defer span.End()

	switch p.State() {
	case StateFailed:
		l.finishPackage(ctx, p, Failed, p.Err())
		return true
	case StateCanceled:
		l.finishPackage(ctx, p, Canceled, ErrCanceled)
		return true
	}

	if err := l.failedDependency(p); err != nil {
		l.finishPackage(ctx, p, Failed, err)
		return true
	}

	if !p.resident {
		exports := p.linker.Exports()
		span.SetAttributes(telemetry.Exports(len(exports)))

		for p.postLoadIdx < len(exports) {
			if err := l.objs.PostLoad(exports[p.postLoadIdx]); err != nil {
				l.finishPackage(ctx, p, Failed, err)
				return true
			}
			p.postLoadIdx++
			p.postLoaded.Add(1)
			p.updateProgress()

			if p.postLoadIdx < len(exports) && !budget.UseFullTimeLimit && budget.Exceeded() {
				return false
			}
		}

		if err := l.objs.Register(p.name, exports); err != nil {
			l.finishPackage(ctx, p, Failed, err)
			return true
		}
	}

	l.finishPackage(ctx, p, Succeeded, nil)
	return true
}

// finishPackage moves p to its terminal state, records it, frees its slot and
// fires its callbacks.
func (l *Loader) finishPackage(ctx context.Context, p *Package, result Result, err error) {
	telemetry.AddEvent(ctx, "package.finished", telemetry.Package(p.name), telemetry.Result(result.String()))
	if err != nil {
		p.setErr(err)
		telemetry.RecordError(ctx, err)
	}
	p.setState(resultState(result))
	if result == Succeeded {
		p.storePercent(100)
	}

	callbacks, ids, perr := p.finalize()
	if result == Succeeded {
		perr = nil
	}

	entry := HistoryEntry{
		Name:       p.name,
		Serial:     p.serial,
		State:      p.State(),
		StateName:  p.State().String(),
		Percent:    p.Percentage(),
		RequestIDs: ids,
		Duration:   time.Since(p.created),
		FinishedAt: time.Now(),
	}
	if perr != nil {
		entry.Error = perr.Error()
	}

	l.history.add(entry)
	l.loaded.remove(p.handle)
	l.arena.release(p.handle)

	switch result {
	case Succeeded:
		l.succeeded.Add(1)
	case Failed:
		l.failed.Add(1)
	case Canceled:
		l.canceled.Add(1)
	}
	if l.metrics != nil {
		l.metrics.RecordResult(result.String(), entry.Duration)
	}

	logger.DebugCtx(ctx, "Package finished",
		logger.Package(p.name), logger.Serial(p.serial), logger.Result(result.String()),
		logger.DurationMs(float64(entry.Duration.Microseconds())/1000), logger.Err(perr))

	for _, cb := range callbacks {
		cb(p.name, result, perr)
	}
	l.pending.remove(ids)
}

func (l *Loader) reportQueueDepth() {
	if l.metrics == nil {
		return
	}
	l.metrics.SetQueueDepth(l.requests.Len(), int(l.eventCount.Load()), l.inFlight.len(), l.loaded.len())
}
