package loader

import "time"

// Metrics receives loader measurements. Implementations live in
// pkg/metrics; a nil Metrics disables collection.
type Metrics interface {
	// ObserveStage records the time one stage event took.
	ObserveStage(stage string, duration time.Duration)

	// RecordResult records a finished package and its total load time.
	RecordResult(result string, duration time.Duration)

	// RecordTick records one TickAsyncLoading call.
	RecordTick(result string, duration time.Duration)

	// RecordCycle counts a detected dependency cycle.
	RecordCycle()

	// SetQueueDepth reports the sizes of the loader collections.
	SetQueueDepth(queued, events, inFlight, loaded int)
}
