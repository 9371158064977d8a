package aichat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePrompt(t *testing.T) {
	data := []byte("---\nlanguage: EN\npriming: Ready.\n---\n\nSystem text here.\n")
	p, err := ParsePrompt("test.md", data)
	require.NoError(t, err)
	require.Equal(t, "en", p.Language)
	require.Equal(t, "Ready.", p.Priming)
	require.Equal(t, "System text here.", p.System)
}

func TestParsePromptErrors(t *testing.T) {
	_, err := ParsePrompt("empty.md", []byte("  \n"))
	require.Error(t, err)

	_, err = ParsePrompt("nolang.md", []byte("---\npriming: x\n---\nbody"))
	require.Error(t, err)

	_, err = ParsePrompt("nobody.md", []byte("---\nlanguage: id\n---\n"))
	require.Error(t, err)
}

func TestNewPromptSetRequiresDefault(t *testing.T) {
	_, err := NewPromptSet([]*Prompt{{Language: "en", System: "x"}})
	require.Error(t, err)

	set, err := NewPromptSet([]*Prompt{{Language: "id", System: "x"}})
	require.NoError(t, err)
	require.Equal(t, "id", set.ForLanguage("unknown").Language)
}
