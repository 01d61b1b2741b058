package vectorspace

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spock/internal/config"
)

func vec(xs ...float64) Vector { return Vector{Data: xs, Type: config.Float64} }

func TestAddCommutative(t *testing.T) {
	a, b := vec(1, 2), vec(3, 4)
	ab, err := Add(a, b)
	require.NoError(t, err)
	ba, err := Add(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab.Data, ba.Data)
	assert.Equal(t, []float64{4, 6}, ab.Data)
}

func TestHadamardCommutative(t *testing.T) {
	a, b := vec(1, 2), vec(3, 4)
	ab, err := Hadamard(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 8}, ab.Data)
}

func TestNegateInvolution(t *testing.T) {
	a := vec(1, -2, 3)
	neg := Scale(a, -1)
	assert.Equal(t, []float64{-1, 2, -3}, neg.Data)
	back := Scale(neg, -1)
	assert.Equal(t, a.Data, back.Data)
}

func TestNormaliseUnitNorm(t *testing.T) {
	v := vec(3, 4)
	n := Normalise(v)
	assert.InDelta(t, 1.0, Norm(n), 1e-9)
}

func TestNormaliseZeroStaysZero(t *testing.T) {
	z := Vector{Data: make([]float64, 4), Type: config.Float64}
	n := Normalise(z)
	for _, x := range n.Data {
		assert.False(t, math.IsNaN(x))
		assert.Equal(t, 0.0, x)
	}
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	a, b := vec(1, 0), vec(0, 1)
	c, err := CosineSimilarity(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, c, 1e-12)
}

func TestCosineSimilarityIdentical(t *testing.T) {
	a, b := vec(1, 0), vec(1, 0)
	c, err := CosineSimilarity(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c, 1e-12)
}

func TestDimensionMismatch(t *testing.T) {
	_, err := Add(vec(1, 2), vec(1, 2, 3))
	require.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = Dot(vec(1, 2), vec(1, 2, 3))
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestRandomGaussianVectorsAreNearOrthogonal(t *testing.T) {
	s := NewSpace(256, config.Float64, config.Gaussian, uint32Ptr(42))
	a := s.CreateRandom()
	b := s.CreateRandom()
	c, err := CosineSimilarity(a, b)
	require.NoError(t, err)
	assert.Less(t, math.Abs(c), 0.2)
}

func TestDeterministicSeed(t *testing.T) {
	s1 := NewSpace(64, config.Float64, config.Gaussian, uint32Ptr(7))
	s2 := NewSpace(64, config.Float64, config.Gaussian, uint32Ptr(7))
	assert.Equal(t, s1.CreateRandom().Data, s2.CreateRandom().Data)
}

func TestBipolarGeneration(t *testing.T) {
	s := NewSpace(128, config.Float64, config.Bipolar, uint32Ptr(1))
	v := s.CreateRandom()
	for _, x := range v.Data {
		assert.True(t, x == 1 || x == -1)
	}
}

func uint32Ptr(v uint32) *uint32 { return &v }
