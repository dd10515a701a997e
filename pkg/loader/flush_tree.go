package loader

import (
	"sort"
	"sync"
)

// FlushTree is the set of packages a caller is waiting on for one request.
// The loader fills it in as the request is consumed and its dependencies are
// discovered.
type FlushTree struct {
	RequestID int32

	mu       sync.RWMutex
	packages map[string]struct{}
	seeded   bool
}

// NewFlushTree creates an empty flush tree for requestID.
func NewFlushTree(requestID int32) *FlushTree {
	return &FlushTree{
		RequestID: requestID,
		packages:  make(map[string]struct{}),
	}
}

// Add inserts name and reports whether it was new.
func (t *FlushTree) Add(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.packages[name]; ok {
		return false
	}
	t.packages[name] = struct{}{}
	return true
}

// Contains reports whether name is in the tree.
func (t *FlushTree) Contains(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.packages[name]
	return ok
}

// Packages returns the sorted member names.
func (t *FlushTree) Packages() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.packages))
	for name := range t.packages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of members.
func (t *FlushTree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.packages)
}

// markSeeded reports whether this call is the first one.
func (t *FlushTree) markSeeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seeded {
		return false
	}
	t.seeded = true
	return true
}
