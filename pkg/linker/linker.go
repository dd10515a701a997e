package linker

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/asyncload/pkg/objects"
	"github.com/marmos91/asyncload/pkg/store"
)

var (
	// ErrPackageTooLarge is returned when a stored package exceeds the
	// configured size limit.
	ErrPackageTooLarge = errors.New("package too large")

	// ErrUnboundImport is returned when an export is deserialized before
	// an import it references was bound.
	ErrUnboundImport = errors.New("import not bound")

	// ErrNotFinished is returned when the import or export tables are used
	// before Finish succeeded.
	ErrNotFinished = errors.New("linker not finished")
)

// Linker resolves the import and export tables of one package.
//
// Finish must succeed before any other table method is used. Linkers are
// driven by a single goroutine; objects they hand out may be shared.
type Linker interface {
	Name() string

	// Finish reads and decodes the package summary.
	Finish(ctx context.Context) error

	Imports() []Import
	ImportedPackages() []string
	ExportCount() int

	// BindImport resolves import i to obj.
	BindImport(i int, obj *objects.Object)

	// CreateExport allocates the placeholder for export i.
	CreateExport(i int) *objects.Object

	// FindExport returns a created export by name, or nil.
	FindExport(name string) *objects.Object

	// SerializeExport deserializes export i and resolves its references.
	SerializeExport(i int) error

	// Exports returns the created exports in table order.
	Exports() []*objects.Object
}

// Factory creates linkers by package name.
type Factory interface {
	NewLinker(name string) (Linker, error)
}

// StoreFactory creates linkers that read manifests from a package store.
type StoreFactory struct {
	Store store.Store

	// MaxPackageSize rejects packages larger than this many bytes.
	// Zero disables the check.
	MaxPackageSize int64
}

// NewStoreFactory creates a factory over s.
func NewStoreFactory(s store.Store, maxPackageSize int64) *StoreFactory {
	return &StoreFactory{Store: s, MaxPackageSize: maxPackageSize}
}

// NewLinker returns an unfinished linker for name.
func (f *StoreFactory) NewLinker(name string) (Linker, error) {
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	return &StoreLinker{name: name, store: f.Store, maxSize: f.MaxPackageSize}, nil
}

// StoreLinker is the Linker backed by a package store.
type StoreLinker struct {
	name    string
	store   store.Store
	maxSize int64

	manifest *Manifest
	imports  []*objects.Object
	exports  []*objects.Object
}

// Name returns the package name.
func (l *StoreLinker) Name() string {
	return l.name
}

// Finish reads the package from the store and validates its tables.
func (l *StoreLinker) Finish(ctx context.Context) error {
	data, err := l.store.ReadPackage(ctx, l.name)
	if err != nil {
		return fmt.Errorf("read %s: %w", l.name, err)
	}
	if l.maxSize > 0 && int64(len(data)) > l.maxSize {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrPackageTooLarge, l.name, len(data), l.maxSize)
	}

	m, err := Decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", l.name, err)
	}
	if err := m.Validate(l.name); err != nil {
		return err
	}

	l.manifest = m
	l.imports = make([]*objects.Object, len(m.Imports))
	l.exports = make([]*objects.Object, len(m.Exports))
	return nil
}

// Imports returns the import table.
func (l *StoreLinker) Imports() []Import {
	if l.manifest == nil {
		return nil
	}
	return l.manifest.Imports
}

// ImportedPackages returns the distinct imported package names.
func (l *StoreLinker) ImportedPackages() []string {
	if l.manifest == nil {
		return nil
	}
	return l.manifest.ImportedPackages()
}

// ExportCount returns the number of exports.
func (l *StoreLinker) ExportCount() int {
	if l.manifest == nil {
		return 0
	}
	return len(l.manifest.Exports)
}

// BindImport resolves import i.
func (l *StoreLinker) BindImport(i int, obj *objects.Object) {
	l.imports[i] = obj
}

// CreateExport allocates (once) the placeholder for export i.
func (l *StoreLinker) CreateExport(i int) *objects.Object {
	if l.exports[i] == nil {
		exp := l.manifest.Exports[i]
		l.exports[i] = objects.New(l.name, exp.Name, exp.Class)
	}
	return l.exports[i]
}

// FindExport returns a created export by name.
func (l *StoreLinker) FindExport(name string) *objects.Object {
	for _, obj := range l.exports {
		if obj != nil && obj.Name == name {
			return obj
		}
	}
	return nil
}

// SerializeExport fills in export i from the manifest.
func (l *StoreLinker) SerializeExport(i int) error {
	if l.manifest == nil {
		return ErrNotFinished
	}

	exp := l.manifest.Exports[i]
	obj := l.CreateExport(i)

	refs := make([]*objects.Object, 0, len(exp.Refs)+len(exp.Locals))
	for _, r := range exp.Refs {
		if l.imports[r] == nil {
			imp := l.manifest.Imports[r]
			return fmt.Errorf("%w: %s.%s needed by %s", ErrUnboundImport, imp.Package, imp.Object, obj.Path())
		}
		refs = append(refs, l.imports[r])
	}
	for _, local := range exp.Locals {
		refs = append(refs, l.CreateExport(local))
	}

	obj.Data = []byte(exp.Data)
	obj.Refs = refs
	obj.MarkSerialized()
	return nil
}

// Exports returns the created exports.
func (l *StoreLinker) Exports() []*objects.Object {
	out := make([]*objects.Object, 0, len(l.exports))
	for _, obj := range l.exports {
		if obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

var (
	_ Linker  = (*StoreLinker)(nil)
	_ Factory = (*StoreFactory)(nil)
)
