package loader

import (
	"sort"
	"sync"
	"time"
)

// packageMap maps names of in-flight packages to their handles.
type packageMap struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

func newPackageMap() *packageMap {
	return &packageMap{handles: make(map[string]Handle)}
}

func (m *packageMap) add(name string, h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handles[name] = h
}

func (m *packageMap) get(name string) (Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handles[name]
	return h, ok
}

// remove deletes name only if it still maps to h.
func (m *packageMap) remove(name string, h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.handles[name]; ok && cur == h {
		delete(m.handles, name)
	}
}

// drain empties the map and returns its handles.
func (m *packageMap) drain() []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Handle, 0, len(m.handles))
	for _, h := range m.handles {
		out = append(out, h)
	}
	m.handles = make(map[string]Handle)
	sort.Slice(out, func(i, j int) bool { return out[i].serial < out[j].serial })
	return out
}

func (m *packageMap) snapshot() []Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Handle, 0, len(m.handles))
	for _, h := range m.handles {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].serial < out[j].serial })
	return out
}

func (m *packageMap) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}

type loadedEntry struct {
	name   string
	handle Handle
}

// loadedList holds packages handed to the owning goroutine, in hand-off
// order, with lookup by name.
type loadedList struct {
	mu      sync.Mutex
	entries []loadedEntry
	byName  map[string]Handle
}

func newLoadedList() *loadedList {
	return &loadedList{byName: make(map[string]Handle)}
}

func (l *loadedList) push(name string, h Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, loadedEntry{name: name, handle: h})
	l.byName[name] = h
}

func (l *loadedList) find(name string) (Handle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.byName[name]
	return h, ok
}

func (l *loadedList) remove(h Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e.handle == h {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			if cur, ok := l.byName[e.name]; ok && cur == h {
				delete(l.byName, e.name)
			}
			return
		}
	}
}

func (l *loadedList) snapshot() []loadedEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]loadedEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *loadedList) drain() []loadedEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.entries
	l.entries = nil
	l.byName = make(map[string]Handle)
	return out
}

func (l *loadedList) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// requestIDSet tracks request ids whose loads have not finished.
type requestIDSet struct {
	mu  sync.RWMutex
	ids map[int32]struct{}
}

func newRequestIDSet() *requestIDSet {
	return &requestIDSet{ids: make(map[int32]struct{})}
}

func (s *requestIDSet) add(id int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

func (s *requestIDSet) remove(ids []int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.ids, id)
	}
}

func (s *requestIDSet) contains(id int32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

func (s *requestIDSet) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[int32]struct{})
}

func (s *requestIDSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// HistoryEntry records a finished package.
type HistoryEntry struct {
	Name       string        `json:"name"`
	Serial     uint64        `json:"serial"`
	State      State         `json:"-"`
	StateName  string        `json:"state"`
	Error      string        `json:"error,omitempty"`
	Percent    float64       `json:"percent"`
	RequestIDs []int32       `json:"request_ids,omitempty"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}

// history is a bounded ring of finished packages with lookup by name.
type history struct {
	mu      sync.RWMutex
	size    int
	entries []HistoryEntry
	next    int
	full    bool
}

func newHistory(size int) *history {
	if size <= 0 {
		size = 1
	}
	return &history{size: size, entries: make([]HistoryEntry, size)}
}

func (h *history) add(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.next] = e
	h.next = (h.next + 1) % h.size
	if h.next == 0 {
		h.full = true
	}
}

// list returns entries oldest first.
func (h *history) list() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.full {
		out := make([]HistoryEntry, h.next)
		copy(out, h.entries[:h.next])
		return out
	}
	out := make([]HistoryEntry, 0, h.size)
	out = append(out, h.entries[h.next:]...)
	out = append(out, h.entries[:h.next]...)
	return out
}

// find returns the most recent entry for name.
func (h *history) find(name string) (HistoryEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := h.next
	if h.full {
		n = h.size
	}
	for i := 1; i <= n; i++ {
		e := h.entries[(h.next-i+h.size)%h.size]
		if e.Name == name {
			return e, true
		}
	}
	return HistoryEntry{}, false
}

// findSerial returns the entry for a package serial.
func (h *history) findSerial(serial uint64) (HistoryEntry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, e := range h.entries {
		if e.Serial == serial && e.Name != "" {
			return e, true
		}
	}
	return HistoryEntry{}, false
}
