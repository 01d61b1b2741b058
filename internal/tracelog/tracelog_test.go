package tracelog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogStepAccumulatesInOrder(t *testing.T) {
	tr := StartTrace("t1")
	defer Discard("t1")

	require.NoError(t, LogStep("t1", Step{DSLStatement: "@a Identity Truth Truth", Verb: "Identity"}))
	require.NoError(t, LogStep("t1", Step{DSLStatement: "@b Negate a a", Verb: "Negate"}))

	steps := tr.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, "Identity", steps[0].Verb)
	assert.Equal(t, "Negate", steps[1].Verb)
}

func TestEndTraceIsIdempotent(t *testing.T) {
	StartTrace("t2")
	defer Discard("t2")
	require.NoError(t, LogStep("t2", Step{DSLStatement: "@a Identity Truth Truth"}))

	first, err := EndTrace("t2")
	require.NoError(t, err)
	second, err := EndTrace("t2")
	require.NoError(t, err)

	assert.Equal(t, first.Steps(), second.Steps())
	assert.True(t, second.Done)
}

func TestLogStepAfterEndFails(t *testing.T) {
	StartTrace("t3")
	defer Discard("t3")
	_, err := EndTrace("t3")
	require.NoError(t, err)

	err = LogStep("t3", Step{DSLStatement: "@a Identity Truth Truth"})
	assert.Error(t, err)
}

func TestLogStepUnknownTraceFails(t *testing.T) {
	err := LogStep("nope", Step{})
	assert.ErrorIs(t, err, ErrUnknownTrace)
}

func TestToScriptJoinsDSLStatements(t *testing.T) {
	StartTrace("t4")
	defer Discard("t4")
	require.NoError(t, LogStep("t4", Step{DSLStatement: "@a Identity Truth Truth"}))
	require.NoError(t, LogStep("t4", Step{DSLStatement: "@b Negate a a"}))
	tr, err := EndTrace("t4")
	require.NoError(t, err)

	assert.Equal(t, "@a Identity Truth Truth\n@b Negate a a", ToScript(tr))
}

func TestToScriptDetailedAppendsMetadataComment(t *testing.T) {
	StartTrace("t5")
	defer Discard("t5")
	require.NoError(t, LogStep("t5", Step{DSLStatement: "@a Identity Truth Truth", Verb: "Identity", SubjectRef: "Truth", ObjectRef: "Truth", ResultRef: "a"}))
	tr, err := EndTrace("t5")
	require.NoError(t, err)

	detailed := ToScriptDetailed(tr)
	assert.Contains(t, detailed, "@a Identity Truth Truth")
	assert.Contains(t, detailed, "# verb=Identity subject=Truth object=Truth result=a")
}
