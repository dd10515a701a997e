package loader

// Result is the outcome passed to completion callbacks.
type Result int

const (
	Succeeded Result = iota
	Failed
	Canceled
)

func (r Result) String() string {
	switch r {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Callback is invoked once on the owning goroutine when a requested package
// finishes. err is nil on success.
type Callback func(name string, result Result, err error)

// TickResult is returned by TickAsyncLoading.
type TickResult int

const (
	// TickComplete means no work is left (or the flushed request finished).
	TickComplete TickResult = iota
	// TickTimeOut means work remains, either because the budget ran out or
	// because the loader is suspended.
	TickTimeOut
)

func (r TickResult) String() string {
	if r == TickComplete {
		return "complete"
	}
	return "timeout"
}

// State is the externally visible state of a package.
type State int32

const (
	StateUnknown State = iota
	StateQueued
	StateLoading
	StateWaitingForPostLoad
	StateReadyForPostLoad
	StateLoaded
	StateFailed
	StateCanceled
)

var stateNames = [...]string{
	StateUnknown:            "unknown",
	StateQueued:             "queued",
	StateLoading:            "loading",
	StateWaitingForPostLoad: "waiting_for_postload",
	StateReadyForPostLoad:   "ready_for_postload",
	StateLoaded:             "loaded",
	StateFailed:             "failed",
	StateCanceled:           "canceled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions happen from s.
func (s State) Terminal() bool {
	return s == StateLoaded || s == StateFailed || s == StateCanceled
}

func resultState(r Result) State {
	switch r {
	case Succeeded:
		return StateLoaded
	case Canceled:
		return StateCanceled
	default:
		return StateFailed
	}
}
