// Package objects holds the in-memory objects produced by package loads and
// the registry that keeps loaded objects addressable by path.
package objects

import (
	"sync/atomic"
)

// Object flags.
const (
	flagSerialized uint32 = 1 << iota
	flagPostLoaded
	flagRegistered
)

// Object is one export of a package.
//
// An Object is created as a placeholder when its package sets up exports,
// filled in when the export is deserialized, and post-loaded on the owning
// goroutine before it is registered. Flags are atomic because placeholders
// are bound into other packages while their owner is still loading.
type Object struct {
	Package string
	Name    string
	Class   string

	// Data and Refs are written once during deserialization.
	Data []byte
	Refs []*Object

	flags atomic.Uint32
}

// New creates an unserialized placeholder.
func New(pkg, name, class string) *Object {
	return &Object{Package: pkg, Name: name, Class: class}
}

// Path returns the fully qualified object path: "<package>.<name>".
func (o *Object) Path() string {
	return Path(o.Package, o.Name)
}

// Path joins a package name and object name.
func Path(pkg, name string) string {
	return pkg + "." + name
}

// IsSerialized reports whether the export data has been deserialized.
func (o *Object) IsSerialized() bool {
	return o.flags.Load()&flagSerialized != 0
}

// MarkSerialized flags the object as deserialized.
func (o *Object) MarkSerialized() {
	o.setFlag(flagSerialized)
}

// IsPostLoaded reports whether PostLoad has run on the object.
func (o *Object) IsPostLoaded() bool {
	return o.flags.Load()&flagPostLoaded != 0
}

// IsRegistered reports whether the object is visible in a Registry.
func (o *Object) IsRegistered() bool {
	return o.flags.Load()&flagRegistered != 0
}

func (o *Object) setFlag(f uint32) {
	for {
		old := o.flags.Load()
		if o.flags.CompareAndSwap(old, old|f) {
			return
		}
	}
}
