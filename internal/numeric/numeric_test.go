package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRequiresMatchingUnits(t *testing.T) {
	a := AttachUnit(Make(1), "m")
	b := AttachUnit(Make(2), "m")
	sum, err := Add(a, b)
	require.NoError(t, err)
	assert.Equal(t, 3.0, sum.Value)
	assert.Equal(t, "m", sum.Unit)

	_, err = Add(a, AttachUnit(Make(1), "kg"))
	require.ErrorIs(t, err, ErrUnitIncompatibility)
}

func TestMulComposesKnownUnits(t *testing.T) {
	a := AttachUnit(Make(2), "m")
	b := AttachUnit(Make(3), "m")
	out, err := Mul(a, b)
	require.NoError(t, err)
	assert.Equal(t, 6.0, out.Value)
	assert.Equal(t, "m²", out.Unit)
}

func TestMulUnknownCompositionIsOpaqueProduct(t *testing.T) {
	a := AttachUnit(Make(2), "volt")
	b := AttachUnit(Make(3), "ampere")
	out, err := Mul(a, b)
	require.NoError(t, err)
	assert.Equal(t, "volt*ampere", out.Unit)
}

func TestDivCancelsMatchingUnits(t *testing.T) {
	a := AttachUnit(Make(10), "m")
	b := AttachUnit(Make(2), "m")
	out, err := Div(a, b)
	require.NoError(t, err)
	assert.Equal(t, 5.0, out.Value)
	assert.Equal(t, "", out.Unit)
}

func TestDivByZeroFails(t *testing.T) {
	_, err := Div(Make(1), Make(0))
	require.ErrorIs(t, err, ErrArithmetic)
}

func TestProjectUnit(t *testing.T) {
	n := AttachUnit(Make(5), "W")
	assert.Equal(t, "W", ProjectUnit(n))
}
