package envfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReader(t *testing.T) {
	in := `# comment
ANTHROPIC_API_KEY=sk-ant-123
export OPENAI_BASE_URL='https://api.example.com/v1'
QUOTED="a=b"

not a pair
=novalue
`
	got, err := ParseReader(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"ANTHROPIC_API_KEY": "sk-ant-123",
		"OPENAI_BASE_URL":   "https://api.example.com/v1",
		"QUOTED":            "a=b",
	}, got)
}

func TestParse_MissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "missing.env"))
	assert.True(t, os.IsNotExist(err))
}

func TestUnquote_Mismatched(t *testing.T) {
	assert.Equal(t, `"abc'`, unquote(`"abc'`))
	assert.Equal(t, `x`, unquote(`x`))
}
