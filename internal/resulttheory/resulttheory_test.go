package resulttheory

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spock/internal/config"
	"spock/internal/exec"
	"spock/internal/numeric"
	"spock/internal/session"
	"spock/internal/tracelog"
	"spock/internal/vectorspace"
)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Dimensions = 64
	return session.New(cfg, map[string]session.TypedValue{})
}

func unitVector(dim int) vectorspace.Vector {
	seed := uint32(7)
	space := vectorspace.NewSpace(dim, config.Float64, config.Gaussian, &seed)
	return vectorspace.Normalise(space.CreateRandom())
}

func TestAssembleExtractsSemanticFactsAndRelations(t *testing.T) {
	sess := newSession(t)
	sess.SetSymbol("result", session.NumericValue(numeric.Make(42)))

	tr := tracelog.StartTrace(t.Name())
	defer tracelog.Discard(t.Name())

	require.NoError(t, tracelog.LogStep(t.Name(), tracelog.Step{DSLStatement: exec.AutoGeneratedComment("concept1")}))
	require.NoError(t, tracelog.LogStep(t.Name(), tracelog.Step{Verb: "Is", SubjectRef: "Socrates", ObjectRef: "Mortal", ResultRef: "fact1"}))
	require.NoError(t, tracelog.LogStep(t.Name(), tracelog.Step{Verb: "Add", SubjectRef: "a", ObjectRef: "b", ResultRef: "sum"}))
	require.NoError(t, tracelog.LogStep(t.Name(), tracelog.Step{Verb: "Bind", SubjectRef: "concept1", ObjectRef: "b", ResultRef: "bound"}))

	score := 0.87654321
	out := Assemble(tr, sess, &score)

	assert.Contains(t, out, "@fact Socrates Is Mortal")
	assert.Contains(t, out, "@rel a Add b")
	assert.NotContains(t, out, "concept1 Bind")
	assert.Contains(t, out, "@scalar result HasValue 42")
	assert.Contains(t, out, "@confidence fact HasTruth 0.8765")
}

func TestFindResultSymbolFallsBackToLastVectorStep(t *testing.T) {
	sess := newSession(t)
	sess.SetSymbol("concept", session.VectorValue(unitVector(64)))

	tr := tracelog.StartTrace(t.Name())
	defer tracelog.Discard(t.Name())
	require.NoError(t, tracelog.LogStep(t.Name(), tracelog.Step{Verb: "Identity", SubjectRef: "concept", ObjectRef: "concept", ResultRef: "concept"}))

	out := Assemble(tr, sess, nil)
	assert.Contains(t, out, "@fact concept Is concept")
}

func TestAssembleErrorProducesParsableErrorMacro(t *testing.T) {
	out := AssembleError(errors.New(`theory not found: "Base"`))

	assert.True(t, strings.HasPrefix(out, "@Error theory begin"))
	assert.True(t, strings.HasSuffix(out, "end"))

	summary, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "error", summary.Type)
	assert.Equal(t, `theory not found: "Base"`, summary.ErrorMessage)
}

func TestParseRoundTripsAssembleOutput(t *testing.T) {
	sess := newSession(t)
	tr := tracelog.StartTrace(t.Name())
	defer tracelog.Discard(t.Name())
	require.NoError(t, tracelog.LogStep(t.Name(), tracelog.Step{Verb: "Causes", SubjectRef: "Rain", ObjectRef: "WetGround"}))

	score := 0.5
	out := Assemble(tr, sess, &score)

	summary, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "ok", summary.Type)
	require.Len(t, summary.Facts(), 1)
	assert.Equal(t, "Rain", summary.Facts()[0].Subject)

	confidence, ok := summary.Confidence()
	require.True(t, ok)
	assert.InDelta(t, 0.5, confidence, 1e-9)
}
