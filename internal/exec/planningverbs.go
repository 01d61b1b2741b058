package exec

import (
	"context"
	"fmt"

	"spock/internal/planner"
	"spock/internal/session"
)

// invokePlanningVerb answers for "Plan" and "Solve". Plan's two
// operands map directly onto Plan(current, goal). Solve's signature
// (state, constraints[]) does not fit the ternary statement shape, so
// the object names a theory whose cached vector Symbols become the
// constraint set: each vector-kind symbol named N becomes a Constraint
// named N with minSimilarity 0.8, unless a sibling SCALAR symbol named
// "N_minSimilarity" overrides it (DESIGN.md's internal/planner entry
// records this as an Open Question resolution).
func (e *Executor) invokePlanningVerb(ctx context.Context, sess *session.Session, verb, subjectToken, objectToken string) (session.TypedValue, error) {
	switch verb {
	case "Plan":
		current, err := e.resolveOperand(sess, subjectToken, "")
		if err != nil {
			return session.TypedValue{}, err
		}
		goal, err := e.resolveOperand(sess, objectToken, "")
		if err != nil {
			return session.TypedValue{}, err
		}
		if current.Kind != session.KindVector || goal.Kind != session.KindVector {
			return session.TypedValue{}, fmt.Errorf("exec: Plan requires two vector operands, got %s and %s", current.Kind, goal.Kind)
		}
		result, err := e.planner.Plan(ctx, sess, current.Vector, goal.Vector)
		if result != nil {
			return session.PlanValue(result), err
		}
		return session.TypedValue{}, err

	case "Solve":
		state, err := e.resolveOperand(sess, subjectToken, "")
		if err != nil {
			return session.TypedValue{}, err
		}
		if state.Kind != session.KindVector {
			return session.TypedValue{}, fmt.Errorf("exec: Solve requires a vector state operand, got %s", state.Kind)
		}
		theoryName := rawName(objectToken)
		desc, err := e.store.Load(theoryName)
		if err != nil {
			return session.TypedValue{}, err
		}
		constraints := constraintsFromSymbols(desc.Symbols)
		result, err := e.planner.Solve(ctx, state.Vector, constraints)
		if result != nil {
			return session.SolutionValue(result), err
		}
		return session.TypedValue{}, err

	default:
		return session.TypedValue{}, fmt.Errorf("%w: %s", ErrVerbNotFound, verb)
	}
}

func constraintsFromSymbols(symbols map[string]session.TypedValue) []planner.Constraint {
	var out []planner.Constraint
	for name, tv := range symbols {
		if tv.Kind != session.KindVector {
			continue
		}
		minSimilarity := 0.8
		if override, ok := symbols[name+"_minSimilarity"]; ok && override.Kind == session.KindScalar {
			minSimilarity = override.Scalar
		}
		out = append(out, planner.Constraint{Name: name, Vector: tv.Vector, MinSimilarity: minSimilarity})
	}
	return out
}
