package linker

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/asyncload/pkg/objects"
	"github.com/marmos91/asyncload/pkg/store"
	"github.com/marmos91/asyncload/pkg/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const heroManifest = `
name: /Game/Hero
imports:
  - package: /Game/Textures
    object: Diffuse
  - package: /Game/Textures
    object: Normal
  - package: /Game/Sounds
    object: Step
exports:
  - name: Mesh
    class: StaticMesh
    data: mesh-bytes
    refs: [0, 1]
    locals: [1]
  - name: Footsteps
    class: SoundCue
    refs: [2]
`

func TestDecodeAndValidate(t *testing.T) {
	m, err := Decode([]byte(heroManifest))
	require.NoError(t, err)
	require.NoError(t, m.Validate("/Game/Hero"))

	assert.Len(t, m.Imports, 3)
	assert.Len(t, m.Exports, 2)
	assert.Equal(t, []string{"/Game/Textures", "/Game/Sounds"}, m.ImportedPackages())
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte("name: /A\nbogus: true\n"))
	assert.ErrorIs(t, err, ErrMalformedPackage)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		manifest Manifest
		wantErr  bool
	}{
		{"empty name filled", Manifest{}, false},
		{"name mismatch", Manifest{Name: "/B"}, true},
		{"self import", Manifest{Imports: []Import{{Package: "/A", Object: "X"}}}, true},
		{"incomplete import", Manifest{Imports: []Import{{Package: "/B"}}}, true},
		{"unnamed export", Manifest{Exports: []Export{{Class: "C"}}}, true},
		{"duplicate export", Manifest{Exports: []Export{{Name: "X"}, {Name: "X"}}}, true},
		{"ref out of range", Manifest{Exports: []Export{{Name: "X", Refs: []int{0}}}}, true},
		{"local out of range", Manifest{Exports: []Export{{Name: "X", Locals: []int{1}}}}, true},
		{"valid", Manifest{
			Imports: []Import{{Package: "/B", Object: "Y"}},
			Exports: []Export{{Name: "X", Refs: []int{0}, Locals: []int{0}}},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.manifest
			err := m.Validate("/A")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedPackage)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, "/A", m.Name)
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	m, err := Decode([]byte(heroManifest))
	require.NoError(t, err)

	data, err := Encode(m)
	require.NoError(t, err)

	again, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, m, again)
}

func newFactory(t *testing.T, maxSize int64, pkgs map[string]string) *StoreFactory {
	t.Helper()
	s := memory.New()
	for name, body := range pkgs {
		require.NoError(t, s.WritePackage(context.Background(), name, []byte(body)))
	}
	return NewStoreFactory(s, maxSize)
}

func TestStoreLinkerFinish(t *testing.T) {
	f := newFactory(t, 0, map[string]string{"/Game/Hero": heroManifest})

	l, err := f.NewLinker("/Game/Hero")
	require.NoError(t, err)
	assert.Equal(t, "/Game/Hero", l.Name())
	assert.Zero(t, l.ExportCount())

	require.NoError(t, l.Finish(context.Background()))
	assert.Equal(t, 2, l.ExportCount())
	assert.Len(t, l.Imports(), 3)
	assert.Equal(t, []string{"/Game/Textures", "/Game/Sounds"}, l.ImportedPackages())
}

func TestStoreLinkerErrors(t *testing.T) {
	f := newFactory(t, 16, map[string]string{
		"/Big": heroManifest,
		"/Bad": "exports: [",
	})
	ctx := context.Background()

	l, err := f.NewLinker("/Missing")
	require.NoError(t, err)
	assert.ErrorIs(t, l.Finish(ctx), store.ErrPackageNotFound)

	l, err = f.NewLinker("/Big")
	require.NoError(t, err)
	assert.ErrorIs(t, l.Finish(ctx), ErrPackageTooLarge)

	l, err = f.NewLinker("/Bad")
	require.NoError(t, err)
	assert.ErrorIs(t, l.Finish(ctx), ErrMalformedPackage)

	_, err = f.NewLinker("")
	assert.ErrorIs(t, err, store.ErrInvalidName)
}

func TestStoreLinkerSerialize(t *testing.T) {
	f := newFactory(t, 0, map[string]string{"/Game/Hero": heroManifest})
	l, err := f.NewLinker("/Game/Hero")
	require.NoError(t, err)
	require.NoError(t, l.Finish(context.Background()))

	mesh := l.CreateExport(0)
	assert.Same(t, mesh, l.CreateExport(0))
	assert.Same(t, mesh, l.FindExport("Mesh"))
	assert.Nil(t, l.FindExport("Footsteps"))
	assert.False(t, mesh.IsSerialized())

	err = l.SerializeExport(0)
	assert.True(t, errors.Is(err, ErrUnboundImport))

	diffuse := objects.New("/Game/Textures", "Diffuse", "Texture")
	normal := objects.New("/Game/Textures", "Normal", "Texture")
	l.BindImport(0, diffuse)
	l.BindImport(1, normal)

	require.NoError(t, l.SerializeExport(0))
	assert.True(t, mesh.IsSerialized())
	assert.Equal(t, []byte("mesh-bytes"), mesh.Data)
	require.Len(t, mesh.Refs, 3)
	assert.Same(t, diffuse, mesh.Refs[0])
	assert.Same(t, normal, mesh.Refs[1])
	assert.Same(t, l.FindExport("Footsteps"), mesh.Refs[2])

	assert.Len(t, l.Exports(), 2)
}

func TestSerializeBeforeFinish(t *testing.T) {
	l := &StoreLinker{name: "/A"}
	assert.ErrorIs(t, l.SerializeExport(0), ErrNotFinished)
}
