package exec

import (
	"spock/internal/numeric"
	"spock/internal/primitives"
	"spock/internal/session"
)

// kernelVerb applies one of the eight kernel verbs (spec.md §4.2) when
// the operands' kinds match what it expects; matched=false means this
// tier has nothing to say about this (verb, operand-kinds) combination,
// so dispatch should fall through to the next tier rather than fail.
func kernelVerb(verb string, subject, object session.TypedValue) (result session.TypedValue, matched bool, err error) {
	switch verb {
	case "Add":
		if subject.Kind != session.KindVector || object.Kind != session.KindVector {
			return session.TypedValue{}, false, nil
		}
		v, err := primitives.Add(subject.Vector, object.Vector)
		return session.VectorValue(v), true, err
	case "Bind":
		if subject.Kind != session.KindVector || object.Kind != session.KindVector {
			return session.TypedValue{}, false, nil
		}
		v, err := primitives.Bind(subject.Vector, object.Vector)
		return session.VectorValue(v), true, err
	case "Negate":
		if subject.Kind != session.KindVector {
			return session.TypedValue{}, false, nil
		}
		return session.VectorValue(primitives.Negate(subject.Vector)), true, nil
	case "Distance":
		if subject.Kind != session.KindVector || object.Kind != session.KindVector {
			return session.TypedValue{}, false, nil
		}
		d, err := primitives.Distance(subject.Vector, object.Vector)
		return session.ScalarValue(d), true, err
	case "Move":
		if subject.Kind != session.KindVector || object.Kind != session.KindVector {
			return session.TypedValue{}, false, nil
		}
		v, err := primitives.Move(subject.Vector, object.Vector)
		return session.VectorValue(v), true, err
	case "Modulate":
		if subject.Kind != session.KindVector {
			return session.TypedValue{}, false, nil
		}
		var operand interface{}
		switch object.Kind {
		case session.KindScalar:
			operand = object.Scalar
		case session.KindVector:
			operand = object.Vector
		default:
			return session.TypedValue{}, false, nil
		}
		v, err := primitives.Modulate(subject.Vector, operand)
		return session.VectorValue(v), true, err
	case "Identity":
		if subject.Kind != session.KindVector {
			return session.TypedValue{}, false, nil
		}
		return session.VectorValue(primitives.Identity(subject.Vector)), true, nil
	case "Normalise":
		if subject.Kind != session.KindVector {
			return session.TypedValue{}, false, nil
		}
		return session.VectorValue(primitives.Normalise(subject.Vector)), true, nil
	default:
		return session.TypedValue{}, false, nil
	}
}

// numericVerb applies one of NumericKernel's operations (spec.md §4.3).
// AttachUnit is handled separately in the executor's statement loop
// since its object token is a raw unit symbol, never a resolved value
// (see DESIGN.md's internal/exec entry).
func numericVerb(verb string, subject, object session.TypedValue) (result session.TypedValue, matched bool, err error) {
	switch verb {
	case "Add":
		if subject.Kind != session.KindNumeric || object.Kind != session.KindNumeric {
			return session.TypedValue{}, false, nil
		}
		n, err := numeric.Add(subject.Numeric, object.Numeric)
		return session.NumericValue(n), true, err
	case "Sub":
		if subject.Kind != session.KindNumeric || object.Kind != session.KindNumeric {
			return session.TypedValue{}, false, nil
		}
		n, err := numeric.Sub(subject.Numeric, object.Numeric)
		return session.NumericValue(n), true, err
	case "Mul":
		if subject.Kind != session.KindNumeric || object.Kind != session.KindNumeric {
			return session.TypedValue{}, false, nil
		}
		n, err := numeric.Mul(subject.Numeric, object.Numeric)
		return session.NumericValue(n), true, err
	case "Div":
		if subject.Kind != session.KindNumeric || object.Kind != session.KindNumeric {
			return session.TypedValue{}, false, nil
		}
		n, err := numeric.Div(subject.Numeric, object.Numeric)
		return session.NumericValue(n), true, err
	case "ProjectUnit":
		if subject.Kind != session.KindNumeric {
			return session.TypedValue{}, false, nil
		}
		return session.StringValue(numeric.ProjectUnit(subject.Numeric)), true, nil
	default:
		return session.TypedValue{}, false, nil
	}
}
