package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestCollectManifests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Game", "Hero.yaml"), `
imports:
  - {package: /Game/Base, object: Mesh}
exports:
  - {name: Hero, class: Character, refs: [0]}
`)
	writeFile(t, filepath.Join(dir, "Game", "Base.yml"), `
name: /Game/Base
exports:
  - {name: Mesh, class: StaticMesh}
`)
	writeFile(t, filepath.Join(dir, "README.md"), "not a manifest")

	files, err := collectManifests(dir, "/")
	require.NoError(t, err)
	require.Len(t, files, 2)

	names := map[string]int{}
	for _, f := range files {
		names[f.name] = len(f.m.Exports)
		assert.Equal(t, f.name, f.m.Name)
		assert.Contains(t, string(f.data), "name: "+f.name)
	}
	assert.Equal(t, map[string]int{"/Game/Hero": 1, "/Game/Base": 1}, names)
}

func TestCollectManifests_NameMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Hero.yaml"), `
name: /Other
exports:
  - {name: Hero, class: Character}
`)

	_, err := collectManifests(dir, "/")
	assert.Error(t, err)
}

func TestCollectManifests_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Hero.yaml"), "unknown_field: 1\n")

	_, err := collectManifests(dir, "/")
	assert.Error(t, err)
}

func TestManifestName(t *testing.T) {
	assert.Equal(t, "/Game/Hero", manifestName("/", "Game/Hero"))
	assert.Equal(t, "/Game/Hero", manifestName("", "Game/Hero"))
	assert.Equal(t, "/Content/Game/Hero", manifestName("/Content/", "Game/Hero"))
	assert.Equal(t, "/Content/Hero", manifestName("/Content", "Hero"))
}
