package loader

import "time"

// PackageInfo describes a known package.
type PackageInfo struct {
	Name       string    `json:"name"`
	Serial     uint64    `json:"serial,omitempty"`
	State      string    `json:"state"`
	Priority   int32     `json:"priority"`
	Percent    float64   `json:"percent"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Status is a point-in-time view of the loader.
type Status struct {
	Strategy        string `json:"strategy"`
	Multithreaded   bool   `json:"multithreaded"`
	Started         bool   `json:"started"`
	Closed          bool   `json:"closed"`
	Suspended       bool   `json:"suspended"`
	SuspendCount    int32  `json:"suspend_count"`
	Queued          int    `json:"queued"`
	Events          int    `json:"events"`
	InFlight        int    `json:"in_flight"`
	Loaded          int    `json:"awaiting_finalization"`
	PendingRequests int    `json:"pending_requests"`
	Live            int    `json:"live_packages"`
	Created         uint64 `json:"created"`
	Succeeded       uint64 `json:"succeeded"`
	Failed          uint64 `json:"failed"`
	Canceled        uint64 `json:"canceled"`
	Ticks           uint64 `json:"ticks"`
}

// lookup finds a live package: in flight first, then awaiting finalization.
func (l *Loader) lookup(name string) *Package {
	if h, ok := l.inFlight.get(name); ok {
		if p := l.arena.get(h); p != nil {
			return p
		}
	}
	if h, ok := l.loaded.find(name); ok {
		if p := l.arena.get(h); p != nil {
			return p
		}
	}
	return nil
}

// GetAsyncLoadPercentage returns the load percentage of name, 0 to 100, or
// -1 if the loader does not know the package. A queued request reports 0.
func (l *Loader) GetAsyncLoadPercentage(name string) float64 {
	if p := l.lookup(name); p != nil {
		return p.Percentage()
	}
	if _, ok := l.requests.Find(name); ok {
		return 0
	}
	if e, ok := l.history.find(name); ok {
		return e.Percent
	}
	return -1
}

// ContainsRequestID reports whether the load for id has not finished.
func (l *Loader) ContainsRequestID(id int32) bool {
	return l.pending.contains(id)
}

// AddPendingRequest marks id as pending.
func (l *Loader) AddPendingRequest(id int32) {
	l.pending.add(id)
}

// RemovePendingRequests marks ids as finished.
func (l *Loader) RemovePendingRequests(ids ...int32) {
	l.pending.remove(ids)
}

// PackagePriority returns the current priority of a queued or loading
// package.
func (l *Loader) PackagePriority(name string) (int32, bool) {
	if p := l.lookup(name); p != nil {
		return p.Priority(), true
	}
	return l.requests.Find(name)
}

// PackageState returns the state of name, looking at live packages, then
// the request queue, then the history.
func (l *Loader) PackageState(name string) State {
	if p := l.lookup(name); p != nil {
		return p.State()
	}
	if _, ok := l.requests.Find(name); ok {
		return StateQueued
	}
	if e, ok := l.history.find(name); ok {
		return e.State
	}
	return StateUnknown
}

// PackageInfo describes name.
func (l *Loader) PackageInfo(name string) (PackageInfo, bool) {
	if p := l.lookup(name); p != nil {
		info := PackageInfo{
			Name:     p.name,
			Serial:   p.serial,
			State:    p.State().String(),
			Priority: p.Priority(),
			Percent:  p.Percentage(),
		}
		if err := p.Err(); err != nil {
			info.Error = err.Error()
		}
		return info, true
	}
	if prio, ok := l.requests.Find(name); ok {
		return PackageInfo{Name: name, State: StateQueued.String(), Priority: prio}, true
	}
	if e, ok := l.history.find(name); ok {
		return PackageInfo{
			Name:       e.Name,
			Serial:     e.Serial,
			State:      e.StateName,
			Percent:    e.Percent,
			Error:      e.Error,
			FinishedAt: e.FinishedAt,
		}, true
	}
	return PackageInfo{}, false
}

// QueuedPackages returns the names of queued requests in consumption order.
func (l *Loader) QueuedPackages() []string {
	return l.requests.Names()
}

// History returns finished packages, oldest first.
func (l *Loader) History() []HistoryEntry {
	return l.history.list()
}

// Status returns a snapshot of the loader.
func (l *Loader) Status() Status {
	return Status{
		Strategy:        l.strategy.Name(),
		Multithreaded:   l.strategy.Multithreaded(),
		Started:         l.started.Load(),
		Closed:          l.closed.Load(),
		Suspended:       l.IsSuspended(),
		SuspendCount:    l.suspendCount.Load(),
		Queued:          l.requests.Len(),
		Events:          int(l.eventCount.Load()),
		InFlight:        l.inFlight.len(),
		Loaded:          l.loaded.len(),
		PendingRequests: l.pending.len(),
		Live:            l.arena.len(),
		Created:         l.created.Load(),
		Succeeded:       l.succeeded.Load(),
		Failed:          l.failed.Load(),
		Canceled:        l.canceled.Load(),
		Ticks:           l.ticks.Load(),
	}
}
