package objects

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotSerialized is returned when post-loading an object whose data,
	// or the data of an object it references, was never deserialized.
	ErrNotSerialized = errors.New("object not serialized")

	// ErrAlreadyRegistered is returned when a package is registered twice.
	ErrAlreadyRegistered = errors.New("package already registered")
)

// Registry keeps every loaded object addressable by package and name.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	objects  map[string]*Object
	packages map[string][]*Object
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		objects:  make(map[string]*Object),
		packages: make(map[string][]*Object),
	}
}

// FindPackage reports whether pkg is resident.
func (r *Registry) FindPackage(pkg string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.packages[pkg]
	return ok
}

// FindObject returns a resident object or nil.
func (r *Registry) FindObject(pkg, name string) *Object {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objects[Path(pkg, name)]
}

// PostLoad finalizes an object. Every referenced object must at least be
// serialized; referenced objects need not be post-loaded yet.
func (r *Registry) PostLoad(obj *Object) error {
	if !obj.IsSerialized() {
		return fmt.Errorf("%w: %s", ErrNotSerialized, obj.Path())
	}
	for _, ref := range obj.Refs {
		if ref == nil || !ref.IsSerialized() {
			path := "<nil>"
			if ref != nil {
				path = ref.Path()
			}
			return fmt.Errorf("%w: %s referenced by %s", ErrNotSerialized, path, obj.Path())
		}
	}
	obj.setFlag(flagPostLoaded)
	return nil
}

// Register makes a package and its objects resident.
func (r *Registry) Register(pkg string, objs []*Object) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.packages[pkg]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, pkg)
	}

	list := make([]*Object, len(objs))
	copy(list, objs)
	r.packages[pkg] = list
	for _, obj := range list {
		r.objects[obj.Path()] = obj
		obj.setFlag(flagRegistered)
	}
	return nil
}

// Unregister removes a package and its objects. It is a no-op for unknown
// packages.
func (r *Registry) Unregister(pkg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, obj := range r.packages[pkg] {
		delete(r.objects, obj.Path())
	}
	delete(r.packages, pkg)
}

// Objects returns the objects of a resident package.
func (r *Registry) Objects(pkg string) []*Object {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.packages[pkg]
	out := make([]*Object, len(list))
	copy(out, list)
	return out
}

// Packages returns the sorted names of all resident packages.
func (r *Registry) Packages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.packages))
	for name := range r.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of resident objects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}
