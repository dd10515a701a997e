// Package linker reads serialized packages and resolves their import and
// export tables.
//
// A package is stored as a YAML manifest:
//
//	name: /Game/Hero
//	imports:
//	  - package: /Game/Textures
//	    object: HeroDiffuse
//	exports:
//	  - name: HeroMesh
//	    class: StaticMesh
//	    data: "..."
//	    refs: [0]     # indexes into imports
//	    locals: [1]   # indexes into exports
package linker

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMalformedPackage is returned when a manifest cannot be decoded or is
// internally inconsistent.
var ErrMalformedPackage = errors.New("malformed package")

// Import references an object exported by another package.
type Import struct {
	Package string `yaml:"package"`
	Object  string `yaml:"object"`
}

// Export describes one object defined by the package.
type Export struct {
	Name   string `yaml:"name"`
	Class  string `yaml:"class"`
	Data   string `yaml:"data,omitempty"`
	Refs   []int  `yaml:"refs,omitempty,flow"`
	Locals []int  `yaml:"locals,omitempty,flow"`
}

// Manifest is the decoded form of a package.
type Manifest struct {
	Name    string   `yaml:"name"`
	Imports []Import `yaml:"imports,omitempty"`
	Exports []Export `yaml:"exports,omitempty"`
}

// Decode parses a manifest. Unknown fields are rejected.
func Decode(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPackage, err)
	}
	return &m, nil
}

// Encode serializes a manifest.
func Encode(m *Manifest) ([]byte, error) {
	return yaml.Marshal(m)
}

// Validate checks the manifest against the name it was loaded under.
// An empty Name is filled in.
func (m *Manifest) Validate(name string) error {
	if m.Name == "" {
		m.Name = name
	}
	if m.Name != name {
		return fmt.Errorf("%w: manifest name %q does not match %q", ErrMalformedPackage, m.Name, name)
	}

	for i, imp := range m.Imports {
		if imp.Package == "" || imp.Object == "" {
			return fmt.Errorf("%w: import %d is incomplete", ErrMalformedPackage, i)
		}
		if imp.Package == name {
			return fmt.Errorf("%w: import %d references its own package", ErrMalformedPackage, i)
		}
	}

	seen := make(map[string]struct{}, len(m.Exports))
	for i, exp := range m.Exports {
		if exp.Name == "" {
			return fmt.Errorf("%w: export %d has no name", ErrMalformedPackage, i)
		}
		if _, dup := seen[exp.Name]; dup {
			return fmt.Errorf("%w: duplicate export %q", ErrMalformedPackage, exp.Name)
		}
		seen[exp.Name] = struct{}{}

		for _, r := range exp.Refs {
			if r < 0 || r >= len(m.Imports) {
				return fmt.Errorf("%w: export %q references import %d of %d", ErrMalformedPackage, exp.Name, r, len(m.Imports))
			}
		}
		for _, l := range exp.Locals {
			if l < 0 || l >= len(m.Exports) {
				return fmt.Errorf("%w: export %q references export %d of %d", ErrMalformedPackage, exp.Name, l, len(m.Exports))
			}
		}
	}

	return nil
}

// ImportedPackages returns the distinct packages imported, in first-use order.
func (m *Manifest) ImportedPackages() []string {
	seen := make(map[string]struct{}, len(m.Imports))
	var out []string
	for _, imp := range m.Imports {
		if _, ok := seen[imp.Package]; ok {
			continue
		}
		seen[imp.Package] = struct{}{}
		out = append(out, imp.Package)
	}
	return out
}
