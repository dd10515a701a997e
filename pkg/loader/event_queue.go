package loader

import (
	"container/heap"
	"math"
)

// Event-system priorities. Stages that start or unblock work run ahead of
// ordinary stage events of the same user priority.
const (
	SystemPriorityDefault int32 = 0
	SystemPriorityMax     int32 = math.MaxInt32
)

// Payload identifies the work an event performs: one stage of one package.
type Payload struct {
	Stage  Stage
	Handle Handle
}

// EventContext executes popped events.
type EventContext interface {
	ExecuteEvent(Payload)
}

type event struct {
	userPriority   int32
	packageSerial  uint64
	systemPriority int32
	serial         uint64
	payload        Payload
}

// before reports whether a runs before b: higher user priority, then higher
// system priority, then higher package serial, then lower event serial.
func (a *event) before(b *event) bool {
	if a.userPriority != b.userPriority {
		return a.userPriority > b.userPriority
	}
	if a.systemPriority != b.systemPriority {
		return a.systemPriority > b.systemPriority
	}
	if a.packageSerial != b.packageSerial {
		return a.packageSerial > b.packageSerial
	}
	return a.serial < b.serial
}

type eventHeap []*event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].before(h[j]) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(*event)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// EventQueue is a binary max-heap of stage events.
//
// It is not safe for concurrent use; the loader side owns it.
type EventQueue struct {
	events     eventHeap
	nextSerial uint64
}

// NewEventQueue creates an empty event queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{}
}

// AddEvent queues payload.
func (q *EventQueue) AddEvent(userPriority int32, packageSerial uint64, systemPriority int32, payload Payload) {
	q.nextSerial++
	heap.Push(&q.events, &event{
		userPriority:   userPriority,
		packageSerial:  packageSerial,
		systemPriority: systemPriority,
		serial:         q.nextSerial,
		payload:        payload,
	})
}

// PopAndExecute runs the highest event. It returns false when the queue is
// empty.
func (q *EventQueue) PopAndExecute(ec EventContext) bool {
	if len(q.events) == 0 {
		return false
	}
	e := heap.Pop(&q.events).(*event)
	ec.ExecuteEvent(e.payload)
	return true
}

// PopMatchingAndExecute runs the highest event whose payload satisfies
// match, leaving every other event queued.
func (q *EventQueue) PopMatchingAndExecute(match func(Payload) bool, ec EventContext) bool {
	var skipped []*event
	var found *event
	for len(q.events) > 0 {
		e := heap.Pop(&q.events).(*event)
		if match(e.payload) {
			found = e
			break
		}
		skipped = append(skipped, e)
	}
	for _, e := range skipped {
		heap.Push(&q.events, e)
	}
	if found == nil {
		return false
	}
	ec.ExecuteEvent(found.payload)
	return true
}

// Reprioritize raises the user priority of every queued event of a package
// to priority. Events already at or above it are left alone.
func (q *EventQueue) Reprioritize(packageSerial uint64, priority int32) int {
	changed := 0
	for _, e := range q.events {
		if e.packageSerial == packageSerial && e.userPriority < priority {
			e.userPriority = priority
			changed++
		}
	}
	if changed > 0 {
		heap.Init(&q.events)
	}
	return changed
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	return len(q.events)
}

// Clear drops every queued event.
func (q *EventQueue) Clear() {
	q.events = nil
}
