package loader

import (
	"fmt"
	"sync"
)

// Handle addresses a package in the arena. A handle is only valid while the
// slot still holds the package with the same serial.
type Handle struct {
	index  uint32
	serial uint64
}

// Serial returns the package serial the handle was issued for.
func (h Handle) Serial() uint64 { return h.serial }

// IsZero reports whether h was never issued.
func (h Handle) IsZero() bool { return h.serial == 0 }

func (h Handle) String() string {
	return fmt.Sprintf("%d#%d", h.index, h.serial)
}

// arena stores packages in reusable slots. Serials are globally monotonic and
// never reused, so a stale handle never resolves to a newer package.
type arena struct {
	mu         sync.RWMutex
	slots      []*Package
	free       []uint32
	nextSerial uint64
}

func newArena() *arena {
	return &arena{}
}

// alloc stores p and assigns its serial and handle.
func (a *arena) alloc(p *Package) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextSerial++
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx] = p
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, p)
	}

	h := Handle{index: idx, serial: a.nextSerial}
	p.serial = h.serial
	p.handle = h
	return h
}

// get returns the package for h, or nil if the handle is stale.
func (a *arena) get(h Handle) *Package {
	if h.IsZero() {
		return nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	if int(h.index) >= len(a.slots) {
		return nil
	}
	p := a.slots[h.index]
	if p == nil || p.serial != h.serial {
		return nil
	}
	return p
}

// release frees the slot of h. Releasing a stale handle is a no-op.
func (a *arena) release(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if int(h.index) >= len(a.slots) {
		return false
	}
	p := a.slots[h.index]
	if p == nil || p.serial != h.serial {
		return false
	}
	a.slots[h.index] = nil
	a.free = append(a.free, h.index)
	return true
}

// len returns the number of live packages.
func (a *arena) len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.slots) - len(a.free)
}
