// Package store defines where serialized packages live.
//
// A package is addressed by its name (for example "/Game/Hero") and stored
// as an opaque blob. The linker layer decodes the blob; stores never look
// inside it.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by Store implementations.
var (
	// ErrPackageNotFound is returned when a requested package doesn't exist.
	ErrPackageNotFound = errors.New("package not found")

	// ErrStoreClosed is returned when operations are attempted on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrInvalidName is returned for names that cannot be mapped to a key.
	ErrInvalidName = errors.New("invalid package name")
)

// Store defines the interface for package storage backends.
type Store interface {
	// ReadPackage returns the serialized bytes of a package.
	// Returns ErrPackageNotFound if the package doesn't exist.
	ReadPackage(ctx context.Context, name string) ([]byte, error)

	// WritePackage stores (or replaces) a package.
	WritePackage(ctx context.Context, name string, data []byte) error

	// DeletePackage removes a package.
	// Returns nil if the package doesn't exist.
	DeletePackage(ctx context.Context, name string) error

	// ListPackages returns all package names in sorted order.
	ListPackages(ctx context.Context) ([]string, error)

	// HealthCheck verifies the store is accessible and operational.
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// ValidateName checks that a package name can be used as a storage key.
// Names are slash separated, must not be empty and must not contain
// relative path elements.
func ValidateName(name string) error {
	trimmed := strings.Trim(name, "/")
	if trimmed == "" {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, part := range strings.Split(trimmed, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

// Key returns the storage key for a package name: the name without its
// leading slash.
func Key(name string) string {
	return strings.TrimPrefix(name, "/")
}

// NameFromKey is the inverse of Key.
func NameFromKey(key string) string {
	return "/" + key
}
