package loader

import (
	"fmt"
	"strings"
	"time"

	"github.com/marmos91/asyncload/internal/logger"
	"github.com/marmos91/asyncload/internal/telemetry"
)

// Stage is a step of the per-package state machine. Stages run in order and
// are never skipped.
type Stage uint8

const (
	StageCreateLinker Stage = iota
	StageFinishLinker
	StageStartImportPackages
	StageSetupImports
	StageSetupExports
	StageProcessImportsAndExports
	StageExportsDone
	StageProcessPostloadWait
	StageStartPostLoad
	stageCount
)

var stageNames = [stageCount]string{
	StageCreateLinker:             "create_linker",
	StageFinishLinker:             "finish_linker",
	StageStartImportPackages:      "start_import_packages",
	StageSetupImports:             "setup_imports",
	StageSetupExports:             "setup_exports",
	StageProcessImportsAndExports: "process_imports_and_exports",
	StageExportsDone:              "exports_done",
	StageProcessPostloadWait:      "process_postload_wait",
	StageStartPostLoad:            "start_postload",
}

func (s Stage) String() string {
	if s >= stageCount {
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
	return stageNames[s]
}

// Stages lists every stage in execution order.
func Stages() []Stage {
	out := make([]Stage, stageCount)
	for i := range out {
		out[i] = Stage(i)
	}
	return out
}

type stageStatus int

const (
	stageDone stageStatus = iota
	stageTimeout
	stageWaiting
	stageFailed
)

type stageFunc func(l *Loader, ac *asyncContext, p *Package) stageStatus

type stageDef struct {
	systemPriority int32
	run            stageFunc
}

// stageTable is filled in init because the stage functions reach back into
// the dispatcher through the event queue.
var stageTable [stageCount]stageDef

func init() {
	stageTable = [stageCount]stageDef{
		StageCreateLinker:             {SystemPriorityMax, (*Loader).createLinker},
		StageFinishLinker:             {SystemPriorityDefault, (*Loader).finishLinker},
		StageStartImportPackages:      {SystemPriorityMax - 1, (*Loader).startImportPackages},
		StageSetupImports:             {SystemPriorityDefault, (*Loader).setupImports},
		StageSetupExports:             {SystemPriorityDefault, (*Loader).setupExports},
		StageProcessImportsAndExports: {SystemPriorityDefault, (*Loader).processImportsAndExports},
		StageExportsDone:              {SystemPriorityDefault, (*Loader).exportsDone},
		StageProcessPostloadWait:      {SystemPriorityDefault, (*Loader).processPostloadWait},
		StageStartPostLoad:            {SystemPriorityDefault, (*Loader).startPostLoad},
	}
}

// dispatch runs one stage event. Events of released, finished or already
// advanced packages are dropped.
func (l *Loader) dispatch(ac *asyncContext, pl Payload) {
	p := l.arena.get(pl.Handle)
	if p == nil || p.State().Terminal() || p.stage != pl.Stage || pl.Stage >= stageCount {
		return
	}

	def := stageTable[pl.Stage]
	parent := ac.ctx
	ctx, span := telemetry.StartStageSpan(parent, p.name, pl.Stage.String(), p.Priority())
	ac.ctx = ctx
	start := time.Now()

	status := def.run(l, ac, p)

	ac.ctx = parent
	span.End()
	if l.metrics != nil {
		l.metrics.ObserveStage(pl.Stage.String(), time.Since(start))
	}

	switch status {
	case stageDone:
		if next := pl.Stage + 1; next < stageCount {
			p.stage = next
			l.queueStage(p, next, stageTable[next].systemPriority)
		}
	case stageTimeout:
		ac.timedOut = true
		l.queueStage(p, pl.Stage, SystemPriorityMax)
	}
}

func (l *Loader) queueStage(p *Package, stage Stage, systemPriority int32) {
	l.events.AddEvent(p.Priority(), p.serial, systemPriority, Payload{Stage: stage, Handle: p.handle})
	l.eventCount.Store(int64(l.events.Len()))
}

func (l *Loader) createLinker(ac *asyncContext, p *Package) stageStatus {
	lk, err := l.linkers.NewLinker(p.name)
	if err != nil {
		l.failPackage(ac, p, fmt.Errorf("create linker for %s: %w", p.name, err))
		return stageFailed
	}
	p.linker = lk
	return stageDone
}

func (l *Loader) finishLinker(ac *asyncContext, p *Package) stageStatus {
	if err := p.linker.Finish(ac.ctx); err != nil {
		l.failPackage(ac, p, err)
		return stageFailed
	}
	p.importCount.Store(int32(len(p.linker.Imports())))
	p.exportCount.Store(int32(p.linker.ExportCount()))
	p.updateProgress()
	return stageDone
}

func (l *Loader) startImportPackages(ac *asyncContext, p *Package) stageStatus {
	inTree := ac.tree != nil && ac.tree.Contains(p.name)

	imports := p.linker.ImportedPackages()
	telemetry.SetAttributes(ac.ctx, telemetry.Imports(len(imports)))

	for _, name := range imports {
		dep := l.findOrCreateDependency(name, p.Priority())
		if dep == nil {
			continue
		}
		p.addDependency(name, dep.handle)
		if inTree {
			l.populateFlushTree(ac.tree, dep)
		}
	}
	return stageDone
}

// findOrCreateDependency returns the package that will provide name, or nil
// if name is already resident.
func (l *Loader) findOrCreateDependency(name string, priority int32) *Package {
	if l.objs.FindPackage(name) {
		return nil
	}
	if h, ok := l.inFlight.get(name); ok {
		if dep := l.arena.get(h); dep != nil {
			l.raisePriority(dep, priority)
			return dep
		}
	}
	if h, ok := l.loaded.find(name); ok {
		if dep := l.arena.get(h); dep != nil && !dep.isFinalized() {
			return dep
		}
	}
	if l.objs.FindPackage(name) {
		return nil
	}
	return l.createPackage(name, priority)
}

func (l *Loader) setupImports(ac *asyncContext, p *Package) stageStatus {
	imports := p.linker.Imports()

	for i := int(p.importsBound.Load()); i < len(imports); i++ {
		imp := imports[i]

		if obj := l.objs.FindObject(imp.Package, imp.Object); obj != nil {
			p.linker.BindImport(i, obj)
			p.importsBound.Add(1)
			p.updateProgress()
			continue
		}

		h, _ := p.dependency(imp.Package)
		dep := l.arena.get(h)
		if dep == nil {
			l.failPackage(ac, p, l.unresolvedImportError(h, imp.Package, imp.Object))
			return stageFailed
		}

		switch dep.State() {
		case StateFailed, StateCanceled:
			l.failPackage(ac, p, fmt.Errorf("%w: %s", ErrDependencyFailed, dep.name))
			return stageFailed
		}

		if !dep.exportsCreated {
			return l.waitFor(ac, p, dep)
		}

		obj := dep.linker.FindExport(imp.Object)
		if obj == nil {
			l.failPackage(ac, p, fmt.Errorf("%w: %s", ErrMissingImport, imp.Package+"."+imp.Object))
			return stageFailed
		}
		p.linker.BindImport(i, obj)
		p.importsBound.Add(1)
		p.updateProgress()
	}
	return stageDone
}

// unresolvedImportError explains an import whose providing package is gone.
func (l *Loader) unresolvedImportError(h Handle, pkg, object string) error {
	if !h.IsZero() {
		if e, ok := l.history.findSerial(h.serial); ok && e.State != StateLoaded {
			return fmt.Errorf("%w: %s", ErrDependencyFailed, pkg)
		}
	}
	return fmt.Errorf("%w: %s.%s", ErrMissingImport, pkg, object)
}

func (l *Loader) setupExports(ac *asyncContext, p *Package) stageStatus {
	for i := 0; i < p.linker.ExportCount(); i++ {
		p.linker.CreateExport(i)
	}
	p.exportsCreated = true
	l.wake(ac, p)
	return stageDone
}

func (l *Loader) processImportsAndExports(ac *asyncContext, p *Package) stageStatus {
	n := p.linker.ExportCount()
	for i := int(p.exportsDoneCnt.Load()); i < n; i++ {
		if err := p.linker.SerializeExport(i); err != nil {
			l.failPackage(ac, p, err)
			return stageFailed
		}
		p.exportsDoneCnt.Add(1)
		p.updateProgress()

		if i+1 < n && !ac.budget.UseFullTimeLimit && ac.budget.Exceeded() {
			return stageTimeout
		}
	}
	return stageDone
}

func (l *Loader) exportsDone(ac *asyncContext, p *Package) stageStatus {
	p.exportsDone = true
	l.wake(ac, p)
	return stageDone
}

func (l *Loader) processPostloadWait(ac *asyncContext, p *Package) stageStatus {
	p.setState(StateWaitingForPostLoad)

	visited := map[uint64]bool{p.serial: true}
	blocker, err := l.firstUnfinishedDependency(p, visited)
	if err != nil {
		l.failPackage(ac, p, err)
		return stageFailed
	}
	if blocker != nil {
		return l.waitFor(ac, p, blocker)
	}

	p.setState(StateReadyForPostLoad)
	return stageDone
}

// firstUnfinishedDependency walks the transitive dependency closure of p and
// returns the first package that has not reached ExportsDone.
func (l *Loader) firstUnfinishedDependency(p *Package, visited map[uint64]bool) (*Package, error) {
	for _, d := range p.deps {
		dep := l.arena.get(d.handle)
		if dep == nil {
			if e, ok := l.history.findSerial(d.handle.serial); ok && e.State != StateLoaded {
				return nil, fmt.Errorf("%w: %s", ErrDependencyFailed, d.name)
			}
			continue
		}
		if visited[dep.serial] {
			continue
		}
		visited[dep.serial] = true

		switch dep.State() {
		case StateFailed, StateCanceled:
			return nil, fmt.Errorf("%w: %s", ErrDependencyFailed, dep.name)
		}
		if !dep.exportsDone {
			return dep, nil
		}
		if blocker, err := l.firstUnfinishedDependency(dep, visited); blocker != nil || err != nil {
			return blocker, err
		}
	}
	return nil, nil
}

func (l *Loader) startPostLoad(ac *asyncContext, p *Package) stageStatus {
	l.loaded.push(p.name, p.handle)
	l.inFlight.remove(p.name, p.handle)
	l.waits.removeOwner(p.name)
	l.notifyLoaded()

	logger.DebugCtx(ac.ctx, "Package ready for post-load",
		logger.Package(p.name), logger.Serial(p.serial), logger.Priority(p.Priority()))
	return stageDone
}

// waitFor parks p until dep advances. Waiting on a package that already
// waits on p, directly or not, fails the whole cycle.
func (l *Loader) waitFor(ac *asyncContext, p, dep *Package) stageStatus {
	if l.waits.wouldCauseCycle(p.name, dep.name) {
		cycle := l.waits.path(dep.name, p.name)
		if len(cycle) == 0 {
			cycle = []string{dep.name, p.name}
		}
		l.failCycle(ac, cycle)
		return stageFailed
	}

	l.waits.addWaiter(p.name, dep.name)
	p.waitingOn = dep.serial
	dep.waiters = append(dep.waiters, p.handle)
	return stageWaiting
}

// wake re-queues every package parked on target.
func (l *Loader) wake(ac *asyncContext, target *Package) {
	waiters := target.waiters
	target.waiters = nil

	for _, h := range waiters {
		w := l.arena.get(h)
		if w == nil || w.waitingOn != target.serial || w.State().Terminal() {
			continue
		}
		w.waitingOn = 0
		l.waits.removeWaiter(w.name)
		l.queueStage(w, w.stage, stageTable[w.stage].systemPriority)
	}
}

// failCycle fails every in-flight package on cycle.
func (l *Loader) failCycle(ac *asyncContext, cycle []string) {
	err := fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(cycle, " -> "))
	logger.ErrorCtx(ac.ctx, "Dependency cycle detected", logger.Cycle(cycle))
	if l.metrics != nil {
		l.metrics.RecordCycle()
	}

	for _, name := range cycle {
		h, ok := l.inFlight.get(name)
		if !ok {
			continue
		}
		if p := l.arena.get(h); p != nil {
			l.failPackage(ac, p, err)
		}
	}
}

// failPackage moves an in-flight package to the loaded list as Failed and
// wakes its waiters so they fail too.
func (l *Loader) failPackage(ac *asyncContext, p *Package, err error) {
	if p.State().Terminal() {
		return
	}
	p.setErr(err)
	p.setState(StateFailed)
	p.waitingOn = 0

	l.loaded.push(p.name, p.handle)
	l.inFlight.remove(p.name, p.handle)
	l.waits.removeOwner(p.name)
	l.notifyLoaded()

	logger.WarnCtx(ac.ctx, "Package load failed",
		logger.Package(p.name), logger.Serial(p.serial), logger.Stage(p.stage.String()), logger.Err(err))

	l.wake(ac, p)
}

// raisePriority raises p and every package in its dependency closure that
// has not reached ExportsDone. Finished packages are walked through, not
// raised, so their unfinished dependencies are still reached. The visited
// set bounds the walk on cyclic graphs.
func (l *Loader) raisePriority(p *Package, priority int32) {
	visited := make(map[uint64]bool)
	var walk func(pkg *Package, root bool)
	walk = func(pkg *Package, root bool) {
		if visited[pkg.serial] {
			return
		}
		visited[pkg.serial] = true

		if (root || !pkg.exportsDone) && pkg.raiseTo(priority) {
			l.events.Reprioritize(pkg.serial, priority)
		}
		for _, d := range pkg.deps {
			if dep := l.arena.get(d.handle); dep != nil {
				walk(dep, false)
			}
		}
	}
	walk(p, true)
}

func (l *Loader) createPackage(name string, priority int32) *Package {
	p := newPackage(name, priority)
	l.arena.alloc(p)
	l.inFlight.add(name, p.handle)
	p.stage = StageCreateLinker
	l.queueStage(p, StageCreateLinker, stageTable[StageCreateLinker].systemPriority)
	l.created.Add(1)

	logger.Debug("Package created",
		logger.Package(name), logger.Serial(p.serial), logger.Priority(priority))
	return p
}
