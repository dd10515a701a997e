package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterCompletions(t *testing.T) {
	names := []string{"/Game/Hero", "/Game/Maps/Arena", "/Engine/Core"}

	assert.Equal(t, []string{"/Game/Hero", "/Game/Maps/Arena"}, filterCompletions(names, nil, "/Game"))
	assert.Equal(t, []string{"/Game/Maps/Arena"}, filterCompletions(names, []string{"/Game/Hero"}, "/Game"))
	assert.Empty(t, filterCompletions(names, nil, "/Missing"))
	assert.Len(t, filterCompletions(names, nil, ""), 3)
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			var buf bytes.Buffer
			completionCmd.SetOut(&buf)
			t.Cleanup(func() { completionCmd.SetOut(nil) })

			require.NoError(t, completionCmd.RunE(completionCmd, []string{shell}))
			assert.Contains(t, buf.String(), "asyncload")
		})
	}
}
