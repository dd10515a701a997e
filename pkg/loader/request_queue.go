package loader

import "sync"

// InsertMode selects where a request lands among requests of equal priority.
type InsertMode int

const (
	// InsertBeforeMatching puts a request ahead of queued requests with the
	// same priority, so the most recent request wins ties.
	InsertBeforeMatching InsertMode = iota
	// InsertAfterMatching puts a request behind queued requests with the
	// same priority, keeping their relative order.
	InsertAfterMatching
)

// Request is a queued load request.
type Request struct {
	Name       string
	Priority   int32
	RequestIDs []int32
	Callbacks  []Callback
}

// RequestQueue holds pending requests in descending priority order.
// Requests are consumed from the front.
type RequestQueue struct {
	mu       sync.Mutex
	requests []*Request
}

// NewRequestQueue creates an empty request queue.
func NewRequestQueue() *RequestQueue {
	return &RequestQueue{}
}

// Insert places r according to mode.
func (q *RequestQueue) Insert(r *Request, mode InsertMode) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.insertLocked(r, mode)
}

func (q *RequestQueue) insertLocked(r *Request, mode InsertMode) {
	idx := len(q.requests)
	for i, queued := range q.requests {
		if (mode == InsertBeforeMatching && queued.Priority <= r.Priority) ||
			(mode == InsertAfterMatching && queued.Priority < r.Priority) {
			idx = i
			break
		}
	}
	q.requests = append(q.requests, nil)
	copy(q.requests[idx+1:], q.requests[idx:])
	q.requests[idx] = r
}

// Add queues a request for name. If one is already queued the request id and
// callback merge into it, and its priority is raised if needed by moving it
// behind the requests it now ties with. Add reports whether a merge happened.
func (q *RequestQueue) Add(name string, priority int32, requestID int32, cb Callback) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, queued := range q.requests {
		if queued.Name != name {
			continue
		}
		queued.RequestIDs = append(queued.RequestIDs, requestID)
		if cb != nil {
			queued.Callbacks = append(queued.Callbacks, cb)
		}
		if priority > queued.Priority {
			q.requests = append(q.requests[:i], q.requests[i+1:]...)
			queued.Priority = priority
			q.insertLocked(queued, InsertAfterMatching)
		}
		return true
	}

	r := &Request{Name: name, Priority: priority, RequestIDs: []int32{requestID}}
	if cb != nil {
		r.Callbacks = []Callback{cb}
	}
	q.insertLocked(r, InsertBeforeMatching)
	return false
}

// Pop removes up to n requests from the front. n <= 0 removes all of them.
func (q *RequestQueue) Pop(n int) []*Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || n > len(q.requests) {
		n = len(q.requests)
	}
	if n == 0 {
		return nil
	}
	out := make([]*Request, n)
	copy(out, q.requests[:n])
	q.requests = append(q.requests[:0], q.requests[n:]...)
	return out
}

// Drain removes every queued request.
func (q *RequestQueue) Drain() []*Request {
	return q.Pop(0)
}

// Find returns the priority of a queued request for name.
func (q *RequestQueue) Find(name string) (int32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, r := range q.requests {
		if r.Name == name {
			return r.Priority, true
		}
	}
	return 0, false
}

// Names returns the queued package names in consumption order.
func (q *RequestQueue) Names() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.requests))
	for i, r := range q.requests {
		out[i] = r.Name
	}
	return out
}

// Len returns the number of queued requests.
func (q *RequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}
