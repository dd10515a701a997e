package config

import (
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func property(t *testing.T, s *jsonschema.Schema, path ...string) *jsonschema.Schema {
	t.Helper()
	for _, name := range path {
		require.NotNil(t, s.Properties, "no properties above %s", name)
		next, ok := s.Properties.Get(name)
		require.True(t, ok, "missing property %s", name)
		s = next
	}
	return s
}

func TestBuildSchema(t *testing.T) {
	schema := buildSchema()
	assert.Equal(t, "AsyncLoad Configuration", schema.Title)

	for _, section := range []string{"logging", "api", "loader", "store", "metrics", "telemetry"} {
		property(t, schema, section)
	}

	storeType := property(t, schema, "store", "type")
	assert.Equal(t, []any{"memory", "fs", "s3", "badger", "sql"}, storeType.Enum)

	format := property(t, schema, "logging", "format")
	assert.Equal(t, []any{"text", "json"}, format.Enum)
}

func TestBuildSchema_CustomTypes(t *testing.T) {
	schema := buildSchema()

	timeLimit := property(t, schema, "loader", "time_limit")
	assert.Equal(t, "string", timeLimit.Type)
	assert.Regexp(t, durationPattern, "16ms")
	assert.Regexp(t, durationPattern, "1m30s")
	assert.NotRegexp(t, durationPattern, "16")

	size := property(t, schema, "loader", "max_package_size")
	require.Len(t, size.OneOf, 2)
	assert.Equal(t, "integer", size.OneOf[0].Type)
	for _, ok := range []string{"64Mi", "100MB", "1.5Gi", "512"} {
		assert.Regexp(t, byteSizePattern, ok)
	}
	assert.NotRegexp(t, byteSizePattern, "lots")
}

func TestSetEnumMissingPath(t *testing.T) {
	schema := buildSchema()
	assert.NotPanics(t, func() {
		setEnum(schema, enumOf("x"), "store", "nope", "deeper")
	})
}
