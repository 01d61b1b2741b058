package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spock/internal/parse"
	"spock/internal/token"
)

func macroBody(t *testing.T, src string) []parse.Statement {
	t.Helper()
	s, err := parse.Parse(token.Tokenize(src))
	require.NoError(t, err)
	require.Len(t, s.Macros, 1)
	return s.Macros[0].Body
}

func TestTopologicalDeterminism(t *testing.T) {
	body := macroBody(t, "@Test theory begin\n@c @a Add @b\n@a X Is Y\n@b Y Is Z\nend")
	sorted, err := Sort(body)
	require.NoError(t, err)

	got := names(sorted)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestTopologicalOrderIsStableAcrossRuns(t *testing.T) {
	body := macroBody(t, "@Test theory begin\n@c @a Add @b\n@a X Is Y\n@b Y Is Z\nend")
	first, err := Sort(body)
	require.NoError(t, err)
	second, err := Sort(body)
	require.NoError(t, err)
	assert.Equal(t, names(first), names(second))
}

func TestCycleDetection(t *testing.T) {
	body := macroBody(t, "@Test theory begin\n@a @b Is X\n@b @a Is Y\nend")
	_, err := Sort(body)
	require.Error(t, err)
	var derr *Error
	require.ErrorAs(t, err, &derr)
	assert.NotEmpty(t, derr.Cycle)
}

func TestIndependentStatementsOrderedByLine(t *testing.T) {
	body := macroBody(t, "@Test theory begin\n@b X Is Y\n@a X Is Z\nend")
	sorted, err := Sort(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, names(sorted))
}

func TestExternalReferencesIgnored(t *testing.T) {
	body := macroBody(t, "@Test theory begin\n@a Truth Is False\nend")
	sorted, err := Sort(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names(sorted))
}
