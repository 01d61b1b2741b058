// Package numeric implements NumericKernel (spec.md §4.3): measured
// real values carrying an optional symbolic unit, with a small
// table-driven unit-composition algebra.
package numeric

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnitIncompatibility is returned when addition or subtraction is
// attempted across two different units (a dimensionless operand against
// a unit-carrying one counts as different).
var ErrUnitIncompatibility = errors.New("numeric: unit incompatibility")

// ErrArithmetic is returned for divide-by-zero or non-finite results.
var ErrArithmetic = errors.New("numeric: arithmetic error")

// Numeric is a measured real value with an optional unit symbol. An
// empty Unit denotes a dimensionless quantity.
type Numeric struct {
	Value float64
	Unit  string
}

// Make constructs a dimensionless Numeric.
func Make(n float64) Numeric { return Numeric{Value: n} }

// AttachUnit returns n with its unit symbol replaced.
func AttachUnit(n Numeric, unit string) Numeric {
	return Numeric{Value: n.Value, Unit: unit}
}

// ProjectUnit returns n's unit symbol.
func ProjectUnit(n Numeric) string { return n.Unit }

// Add requires identical units; a dimensionless operand does not combine
// with a unit-carrying one.
func Add(a, b Numeric) (Numeric, error) {
	if a.Unit != b.Unit {
		return Numeric{}, fmt.Errorf("%w: %q vs %q", ErrUnitIncompatibility, a.Unit, b.Unit)
	}
	return Numeric{Value: a.Value + b.Value, Unit: a.Unit}, nil
}

// Sub requires matching units, like Add.
func Sub(a, b Numeric) (Numeric, error) {
	if a.Unit != b.Unit {
		return Numeric{}, fmt.Errorf("%w: %q vs %q", ErrUnitIncompatibility, a.Unit, b.Unit)
	}
	return Numeric{Value: a.Value - b.Value, Unit: a.Unit}, nil
}

// Mul composes units via the canonical rewrite table, falling back to an
// opaque product string for unrecognized compositions (spec.md §9).
func Mul(a, b Numeric) (Numeric, error) {
	v := a.Value * b.Value
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Numeric{}, fmt.Errorf("%w: non-finite result", ErrArithmetic)
	}
	return Numeric{Value: v, Unit: composeUnit(a.Unit, b.Unit, "*")}, nil
}

// Div cancels matching units (m/m -> dimensionless) or composes via the
// table; division by zero fails with ErrArithmetic.
func Div(a, b Numeric) (Numeric, error) {
	if b.Value == 0 {
		return Numeric{}, fmt.Errorf("%w: division by zero", ErrArithmetic)
	}
	v := a.Value / b.Value
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Numeric{}, fmt.Errorf("%w: non-finite result", ErrArithmetic)
	}
	if a.Unit == b.Unit {
		return Numeric{Value: v}, nil
	}
	return Numeric{Value: v, Unit: composeUnit(a.Unit, b.Unit, "/")}, nil
}

// unitRules is the canonical rewrite table (spec.md §4.3): a small set of
// known compositions. Anything not listed here falls back to an opaque
// product/quotient string rather than inventing a rule.
var unitRules = map[string]string{
	"m*m":     "m²",
	"m/s":     "m_per_s",
	"kg*m/s²": "N",
	"N*m":     "J",
	"J/s":     "W",
}

func composeUnit(a, b, op string) string {
	if a == "" && b == "" {
		return ""
	}
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	key := a + op + b
	if rewritten, ok := unitRules[key]; ok {
		return rewritten
	}
	return key
}
