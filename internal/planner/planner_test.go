package planner

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"spock/internal/config"
	"spock/internal/session"
	"spock/internal/vectorspace"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeIndex is a brute-force VectorIndex good enough to exercise
// Planner.bestCandidate without pulling in a real sqlite-vec table.
type fakeIndex struct {
	vectors map[string]vectorspace.Vector
}

func newFakeIndex() *fakeIndex { return &fakeIndex{vectors: make(map[string]vectorspace.Vector)} }

func (f *fakeIndex) Upsert(name string, v vectorspace.Vector) error {
	f.vectors[name] = v
	return nil
}

func (f *fakeIndex) Nearest(ctx context.Context, v vectorspace.Vector, k int) ([]session.NamedVector, error) {
	out := make([]session.NamedVector, 0, len(f.vectors))
	for name, vec := range f.vectors {
		sim, err := vectorspace.CosineSimilarity(v, vec)
		if err != nil {
			continue
		}
		out = append(out, session.NamedVector{Name: name, Distance: 1 - sim})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (f *fakeIndex) Close() error { return nil }

func unit(dim int, axis int) vectorspace.Vector {
	data := make([]float64, dim)
	data[axis] = 1
	return vectorspace.Vector{Data: data, Type: config.Float64}
}

func newTestSession(t *testing.T, dim int) (*session.Session, *fakeIndex) {
	t.Helper()
	idx := newFakeIndex()
	sess := session.New(config.DefaultConfig(), map[string]session.TypedValue{}).WithVectorIndex(idx)
	return sess, idx
}

func TestPlanConvergesTowardsGoal(t *testing.T) {
	dim := 4
	sess, idx := newTestSession(t, dim)

	goal := unit(dim, 1)
	sess.SetSymbol("step", session.VectorValue(goal))
	require.NoError(t, idx.Upsert("step", goal))

	space := vectorspace.NewSpace(dim, config.Float64, config.Gaussian, nil)
	cfg := config.DefaultConfig()
	cfg.PlanningEpsilon = 0.2
	cfg.MaxPlanningSteps = 10
	p := New(space, cfg)

	current := unit(dim, 0)
	result, err := p.Plan(context.Background(), sess, current, goal)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Less(t, result.FinalDistance, cfg.PlanningEpsilon)
}

func TestPlanFailsWithNoCandidates(t *testing.T) {
	dim := 4
	sess, _ := newTestSession(t, dim)

	space := vectorspace.NewSpace(dim, config.Float64, config.Gaussian, nil)
	cfg := config.DefaultConfig()
	cfg.MaxPlanningSteps = 2
	p := New(space, cfg)

	current := unit(dim, 0)
	goal := unit(dim, 1)
	_, err := p.Plan(context.Background(), sess, current, goal)
	assert.ErrorIs(t, err, ErrPlanFailure)
}

func TestSolveConvergesOnSingleConstraint(t *testing.T) {
	dim := 4
	space := vectorspace.NewSpace(dim, config.Float64, config.Gaussian, nil)
	cfg := config.DefaultConfig()
	cfg.PlanningEpsilon = 0.05
	cfg.MaxPlanningSteps = 200
	p := New(space, cfg)

	target := unit(dim, 1)
	constraints := []Constraint{{Name: "c1", Vector: target, MinSimilarity: 0.9}}

	start := unit(dim, 0)
	result, err := p.Solve(context.Background(), start, constraints)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Violations)

	sim, err := vectorspace.CosineSimilarity(result.Value, target)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sim, 0.9-cfg.PlanningEpsilon)
}

func TestSolveReportsViolationsWhenUnreachable(t *testing.T) {
	dim := 4
	space := vectorspace.NewSpace(dim, config.Float64, config.Gaussian, nil)
	cfg := config.DefaultConfig()
	cfg.MaxPlanningSteps = 3
	p := New(space, cfg)

	a := unit(dim, 1)
	b := unit(dim, 2)
	constraints := []Constraint{
		{Name: "a", Vector: a, MinSimilarity: 0.99},
		{Name: "b", Vector: b, MinSimilarity: 0.99},
	}

	start := unit(dim, 0)
	_, err := p.Solve(context.Background(), start, constraints)
	assert.ErrorIs(t, err, ErrPlanFailure)
}
