package loader

import "errors"

var (
	// ErrMissingImport is returned when an import names an object its
	// package does not export.
	ErrMissingImport = errors.New("missing import")

	// ErrDependencyFailed is returned when a package cannot finish because a
	// package it imports from failed.
	ErrDependencyFailed = errors.New("dependency failed")

	// ErrDependencyCycle is returned for every package on a dependency cycle.
	ErrDependencyCycle = errors.New("dependency cycle")

	// ErrStalled is returned for packages that stopped making progress with
	// no cycle to explain it.
	ErrStalled = errors.New("package load stalled")

	// ErrCanceled is passed to callbacks of loads discarded by a cancel.
	ErrCanceled = errors.New("load canceled")

	// ErrInvalidName is returned when queuing a package with an empty name.
	ErrInvalidName = errors.New("invalid package name")

	// ErrLoaderClosed is returned by operations on a stopped loader.
	ErrLoaderClosed = errors.New("loader closed")

	// ErrNotSuspended is returned by ResumeLoading without a matching
	// SuspendLoading.
	ErrNotSuspended = errors.New("loader not suspended")

	// ErrSuspended is returned when flushing a suspended loader, which could
	// never complete.
	ErrSuspended = errors.New("loader suspended")

	// ErrStartFailed is returned when the loader worker cannot start.
	ErrStartFailed = errors.New("loader start failed")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("loader already started")
)
