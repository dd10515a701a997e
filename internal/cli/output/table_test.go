package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintTable(t *testing.T) {
	table := NewTableData("Package", "State")
	table.AddRow("/Game/Hero", "loaded")
	table.AddRow("/Game/Arena", "failed")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, table))

	out := buf.String()
	assert.Contains(t, out, "PACKAGE")
	assert.Contains(t, out, "/Game/Hero")
	assert.Contains(t, out, "failed")
	assert.NotContains(t, out, "|")
}

func TestSimpleTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SimpleTable(&buf, [][2]string{
		{"Strategy", "worker"},
		{"Queued", "3"},
	}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"Strategy:", "worker"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"Queued:", "3"}, strings.Fields(lines[1]))
	assert.Equal(t, strings.Index(lines[0], "worker"), strings.Index(lines[1], "3"), "values share a column")
}

func TestProgress(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{-1, "-"},
		{0, "[----------]   0%"},
		{55, "[#####-----]  55%"},
		{100, "[##########] 100%"},
		{250, "[##########] 100%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Progress(tt.percent), "percent %v", tt.percent)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "dependency...", Truncate("dependency cycle detected", 13))
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "unchanged", Truncate("unchanged", 0))
}
