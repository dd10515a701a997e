package loader

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/asyncload/pkg/linker"
)

type dependency struct {
	name   string
	handle Handle
}

// Package is one load in progress.
//
// Fields are split by owner. Atomics and the mu-guarded group are shared by
// both goroutines; the loader-side group is only touched by whoever drives
// the async side; the owner-side group only by the finalizing goroutine.
type Package struct {
	name    string
	serial  uint64
	handle  Handle
	created time.Time

	priority atomic.Int32
	state    atomic.Int32
	percent  atomic.Uint64

	importCount    atomic.Int32
	exportCount    atomic.Int32
	importsBound   atomic.Int32
	exportsDoneCnt atomic.Int32
	postLoaded     atomic.Int32

	mu         sync.Mutex
	callbacks  []Callback
	requestIDs []int32
	err        error
	finalized  bool

	// loader side
	stage          Stage
	linker         linker.Linker
	deps           []dependency
	exportsCreated bool
	exportsDone    bool
	waiters        []Handle
	waitingOn      uint64
	resident       bool

	// owner side
	postLoadIdx int
}

func newPackage(name string, priority int32) *Package {
	p := &Package{name: name, created: time.Now()}
	p.priority.Store(priority)
	p.state.Store(int32(StateLoading))
	return p
}

// Name returns the package name.
func (p *Package) Name() string { return p.name }

// Serial returns the package serial.
func (p *Package) Serial() uint64 { return p.serial }

// Priority returns the current priority.
func (p *Package) Priority() int32 { return p.priority.Load() }

// State returns the current state.
func (p *Package) State() State { return State(p.state.Load()) }

func (p *Package) setState(s State) { p.state.Store(int32(s)) }

// Percentage returns the load percentage, 0-100.
func (p *Package) Percentage() float64 {
	return math.Float64frombits(p.percent.Load())
}

// Err returns the failure error, if any.
func (p *Package) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// raiseTo sets priority to at least prio and reports whether it changed.
func (p *Package) raiseTo(prio int32) bool {
	for {
		cur := p.priority.Load()
		if cur >= prio {
			return false
		}
		if p.priority.CompareAndSwap(cur, prio) {
			return true
		}
	}
}

// updateProgress recomputes the percentage from the progress counters.
// The stored value never decreases.
func (p *Package) updateProgress() {
	imports := float64(p.importCount.Load())
	exports := float64(p.exportCount.Load())
	postLoadCount := math.Max(exports, imports)
	total := imports + exports + postLoadCount
	if total == 0 {
		return
	}
	done := float64(p.importsBound.Load() + p.exportsDoneCnt.Load() + p.postLoaded.Load())
	p.storePercent(math.Min(100, 100*done/total))
}

func (p *Package) storePercent(v float64) {
	for {
		old := p.percent.Load()
		if math.Float64frombits(old) >= v {
			return
		}
		if p.percent.CompareAndSwap(old, math.Float64bits(v)) {
			return
		}
	}
}

// merge attaches a request to the package. It fails once the package was
// finalized, because its callbacks were already taken.
func (p *Package) merge(ids []int32, cbs []Callback) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finalized {
		return false
	}
	p.requestIDs = append(p.requestIDs, ids...)
	p.callbacks = append(p.callbacks, cbs...)
	return true
}

func (p *Package) isFinalized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finalized
}

func (p *Package) hasRequestID(id int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rid := range p.requestIDs {
		if rid == id {
			return true
		}
	}
	return false
}

func (p *Package) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

// finalize marks the package finalized and takes its callbacks and ids.
func (p *Package) finalize() ([]Callback, []int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finalized = true
	cbs, ids := p.callbacks, p.requestIDs
	p.callbacks, p.requestIDs = nil, nil
	return cbs, ids, p.err
}

func (p *Package) dependency(name string) (Handle, bool) {
	for _, d := range p.deps {
		if d.name == name {
			return d.handle, true
		}
	}
	return Handle{}, false
}

func (p *Package) addDependency(name string, h Handle) {
	if _, ok := p.dependency(name); ok {
		return
	}
	p.deps = append(p.deps, dependency{name: name, handle: h})
}
