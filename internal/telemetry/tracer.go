package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for loader operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Package attributes
	// ========================================================================
	AttrPackage       = "loader.package"
	AttrPackageSerial = "loader.package.serial"
	AttrPriority      = "loader.priority"
	AttrStage         = "loader.stage"
	AttrRequestID     = "loader.request_id"
	AttrResult        = "loader.result"
	AttrImports       = "loader.imports"
	AttrExports       = "loader.exports"
	AttrMultithreaded = "loader.multithreaded"
	AttrTimeLimited   = "loader.time_limited"
	AttrTickResult    = "loader.tick_result"

	// ========================================================================
	// Storage backend attributes
	// ========================================================================
	AttrStoreType = "store.type"
	AttrOperation = "store.operation"
	AttrSize      = "store.size"
	AttrBucket    = "storage.bucket"
	AttrKey       = "storage.key"
)

// Span names. Store spans are named "store.<operation>".
const (
	SpanLoaderTick     = "loader.tick"
	SpanLoaderStage    = "loader.stage"
	SpanLoaderFinalize = "loader.finalize"
	SpanLoaderCancel   = "loader.cancel"
	SpanLoaderFlush    = "loader.flush"
)

// Package returns an attribute for a package name
func Package(name string) attribute.KeyValue {
	return attribute.String(AttrPackage, name)
}

// PackageSerial returns an attribute for a package serial number
func PackageSerial(serial uint64) attribute.KeyValue {
	return attribute.Int64(AttrPackageSerial, int64(serial))
}

// Priority returns an attribute for a load priority
func Priority(p int32) attribute.KeyValue {
	return attribute.Int(AttrPriority, int(p))
}

// Stage returns an attribute for a state machine stage
func Stage(name string) attribute.KeyValue {
	return attribute.String(AttrStage, name)
}

// RequestID returns an attribute for a load request id
func RequestID(id int32) attribute.KeyValue {
	return attribute.Int(AttrRequestID, int(id))
}

// Result returns an attribute for a load result
func Result(r string) attribute.KeyValue {
	return attribute.String(AttrResult, r)
}

// Imports returns an attribute for the number of imports
func Imports(n int) attribute.KeyValue {
	return attribute.Int(AttrImports, n)
}

// Exports returns an attribute for the number of exports
func Exports(n int) attribute.KeyValue {
	return attribute.Int(AttrExports, n)
}

// TickResult returns an attribute for a tick result
func TickResult(r string) attribute.KeyValue {
	return attribute.String(AttrTickResult, r)
}

// StoreType returns an attribute for store type
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// Operation returns an attribute for a store operation
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// Size returns an attribute for a payload size
func Size(n int) attribute.KeyValue {
	return attribute.Int(AttrSize, n)
}

// Bucket returns an attribute for S3 bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for a storage key
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// StartStageSpan starts a span for one state machine stage of a package.
func StartStageSpan(ctx context.Context, pkg, stage string, priority int32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Package(pkg),
		Stage(stage),
		Priority(priority),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanLoaderStage, trace.WithAttributes(allAttrs...))
}

// StartStoreSpan starts a span for a package store operation.
func StartStoreSpan(ctx context.Context, operation, storeType, pkg string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		StoreType(storeType),
		Operation(operation),
	}
	if pkg != "" {
		allAttrs = append(allAttrs, Package(pkg))
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "store."+operation, trace.WithAttributes(allAttrs...))
}
