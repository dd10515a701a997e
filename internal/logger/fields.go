package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Package Loading
	// ========================================================================
	KeyPackage   = "package"    // Package name: /Game/Hero
	KeySerial    = "serial"     // Package serial number
	KeyStage     = "stage"      // State machine stage
	KeyState     = "state"      // Package state: loading, loaded, failed
	KeyPriority  = "priority"   // Effective load priority
	KeyRequestID = "request_id" // Load request id
	KeyResult    = "result"     // Completion result: succeeded, failed, canceled
	KeyImports   = "imports"    // Number of imports
	KeyExports   = "exports"    // Number of exports
	KeyDepends   = "depends_on" // Dependency package name
	KeyCycle     = "cycle"      // Packages on a dependency cycle
	KeyPercent   = "percent"    // Load percentage

	// ========================================================================
	// Loader Controller
	// ========================================================================
	KeyTickResult     = "tick_result"     // complete or timeout
	KeyEventsExecuted = "events_executed" // Events run during a tick
	KeyQueued         = "queued"          // Requests waiting in the request queue
	KeyInFlight       = "in_flight"       // Packages being loaded
	KeySuspendCount   = "suspend_count"   // Outstanding suspend calls

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyOperation  = "operation"   // Sub-operation type for complex operations
	KeySize       = "size"        // Payload size in bytes

	// ========================================================================
	// Storage Backend
	// ========================================================================
	KeyStoreType = "store_type" // Store type: memory, fs, s3, badger, sql
	KeyBucket    = "bucket"     // Cloud bucket name
	KeyKey       = "key"        // Object key in storage
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Package returns a slog.Attr for a package name
func Package(name string) slog.Attr {
	return slog.String(KeyPackage, name)
}

// Serial returns a slog.Attr for a package serial number
func Serial(serial uint64) slog.Attr {
	return slog.Uint64(KeySerial, serial)
}

// Stage returns a slog.Attr for a state machine stage
func Stage(name string) slog.Attr {
	return slog.String(KeyStage, name)
}

// State returns a slog.Attr for a package state
func State(name string) slog.Attr {
	return slog.String(KeyState, name)
}

// Priority returns a slog.Attr for a load priority
func Priority(p int32) slog.Attr {
	return slog.Int(KeyPriority, int(p))
}

// RequestID returns a slog.Attr for a load request id
func RequestID(id int32) slog.Attr {
	return slog.Int(KeyRequestID, int(id))
}

// Result returns a slog.Attr for a completion result
func Result(r string) slog.Attr {
	return slog.String(KeyResult, r)
}

// DependsOn returns a slog.Attr for a dependency name
func DependsOn(name string) slog.Attr {
	return slog.String(KeyDepends, name)
}

// Cycle returns a slog.Attr listing the packages on a cycle
func Cycle(names []string) slog.Attr {
	return slog.Any(KeyCycle, names)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Operation returns a slog.Attr for a sub-operation name
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// StoreType returns a slog.Attr for store type
func StoreType(t string) slog.Attr {
	return slog.String(KeyStoreType, t)
}

// Bucket returns a slog.Attr for a cloud bucket name
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}
