package engine

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spock/internal/config"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Dimensions = 64
	cfg.WorkingFolder = t.TempDir()
	cfg.TheoriesPath = filepath.Join(cfg.WorkingFolder, "theories")
	cfg.SymbolicCrossCheck = true
	seed := uint32(7)
	cfg.RandomSeed = &seed

	e, err := CreateEngine(Options{Config: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown() })
	return e
}

func TestCreateEngineGeneratesTruthOnFirstStart(t *testing.T) {
	e := newTestEngine(t)

	globals := e.GetGlobalSymbols()
	truth, ok := globals["Truth"]
	require.True(t, ok)
	assert.InDelta(t, 1.0, vectorNorm(truth.Vector.Data), 1e-6)

	_, ok = globals["False"]
	assert.True(t, ok)
	_, ok = globals["Zero"]
	assert.True(t, ok)
}

func TestCreateEngineReloadsTruthVerbatimOnSecondStart(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Dimensions = 64
	cfg.WorkingFolder = t.TempDir()
	cfg.TheoriesPath = filepath.Join(cfg.WorkingFolder, "theories")

	first, err := CreateEngine(Options{Config: cfg})
	require.NoError(t, err)
	firstTruth := first.GetGlobalSymbols()["Truth"]
	require.NoError(t, first.Shutdown())

	second, err := CreateEngine(Options{Config: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Shutdown() })

	secondTruth := second.GetGlobalSymbols()["Truth"]
	for i := range firstTruth.Vector.Data {
		assert.InDelta(t, firstTruth.Vector.Data[i], secondTruth.Vector.Data[i], 1e-9)
	}
}

func TestSeedBuiltinsInstallsBaseLogic(t *testing.T) {
	e := newTestEngine(t)
	names, err := e.ListTheories()
	require.NoError(t, err)
	assert.Contains(t, names, "BaseLogic")
}

func TestSessionApiAskComputesScoreAgainstTruth(t *testing.T) {
	e := newTestEngine(t)
	sess, err := e.CreateSession()
	require.NoError(t, err)
	api := e.NewSessionApi(sess)

	result := api.Ask(context.Background(), "@result Truth Identity Truth\n")

	require.True(t, result.Success)
	assert.InDelta(t, 1.0, result.Score, 1e-6)
	assert.Contains(t, result.ResultTheory, "@confidence")
}

func TestSessionApiLearnPersistsTheory(t *testing.T) {
	e := newTestEngine(t)
	sess, err := e.CreateSession()
	require.NoError(t, err)
	api := e.NewSessionApi(sess)

	result := api.Learn(context.Background(), "@a Truth Identity Truth\n@saved Snapshot Persist Snapshot\n")

	require.True(t, result.Success)
	names, err := e.ListTheories()
	require.NoError(t, err)
	assert.Contains(t, names, "Snapshot")
}

func TestSessionApiReportsScriptErrorsWithoutGoError(t *testing.T) {
	e := newTestEngine(t)
	sess, err := e.CreateSession()
	require.NoError(t, err)
	api := e.NewSessionApi(sess)

	result := api.Ask(context.Background(), "@out Truth Frobnicate Truth\n")

	assert.False(t, result.Success)
	assert.Equal(t, 0.0, result.Score)
	assert.Contains(t, result.ResultTheory, "@Error")
}

func TestSessionApiExplainKeepsResultTheoryFacts(t *testing.T) {
	e := newTestEngine(t)
	sess, err := e.CreateSession("BaseLogic")
	require.NoError(t, err)
	api := e.NewSessionApi(sess)

	result := api.Explain(context.Background(), "@result Socrates Is Mortal\n")

	require.True(t, result.Success)
	assert.Contains(t, result.ResultTheory, "@fact Socrates Is Mortal")
}

func vectorNorm(data []float64) float64 {
	var sum float64
	for _, x := range data {
		sum += x * x
	}
	return math.Sqrt(sum)
}
