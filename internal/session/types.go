// Package session implements SessionManager (spec.md §4.7): the typed
// value union, local/overlay/global symbol resolution, and session
// lifecycle (creation, overlay push/pop, child-session snapshotting).
package session

import (
	"spock/internal/numeric"
	"spock/internal/parse"
	"spock/internal/vectorspace"
)

// Kind tags a TypedValue variant (spec.md §3).
type Kind string

const (
	KindVector   Kind = "VECTOR"
	KindScalar   Kind = "SCALAR"
	KindNumeric  Kind = "NUMERIC"
	KindMacro    Kind = "MACRO"
	KindPlan     Kind = "PLAN"
	KindSolution Kind = "SOLUTION"
	KindString   Kind = "STRING"
	KindFact     Kind = "FACT"
	KindTheory   Kind = "THEORY"
)

// Fact is the {subject, verb, object, truth?} variant.
type Fact struct {
	Subject string
	Verb    string
	Object  string
	Truth   *float64
}

// PlanResult is the {steps, trace, finalDistance, success} variant
// produced by Planner.Plan.
type PlanResult struct {
	Steps         []string
	Trace         []string
	FinalDistance float64
	Success       bool
	TotalSteps    int
}

// SolutionResult is the {value, violations[], success} variant produced
// by Planner.Solve.
type SolutionResult struct {
	Value      vectorspace.Vector
	Violations []string
	Success    bool
	TotalSteps int
}

// TheoryHandle is an opaque THEORY-kind descriptor handle: just enough
// for the session layer to reference a theory without importing
// theorystore (which would create an import cycle, since theorystore
// overlays are consulted through the session).
type TheoryHandle struct {
	Name      string
	VersionID string
}

// TypedValue is a tagged union; exactly one field is meaningful,
// selected by Kind. This is a plain struct, never an interface{} bag
// (spec.md §9 Design Note).
type TypedValue struct {
	Kind     Kind
	Vector   vectorspace.Vector
	Scalar   float64
	Numeric  numeric.Numeric
	Macro    *parse.Macro
	Plan     *PlanResult
	Solution *SolutionResult
	String   string
	Fact     *Fact
	Theory   *TheoryHandle
}

func VectorValue(v vectorspace.Vector) TypedValue { return TypedValue{Kind: KindVector, Vector: v} }
func ScalarValue(s float64) TypedValue            { return TypedValue{Kind: KindScalar, Scalar: s} }
func NumericValue(n numeric.Numeric) TypedValue   { return TypedValue{Kind: KindNumeric, Numeric: n} }
func MacroValue(m *parse.Macro) TypedValue        { return TypedValue{Kind: KindMacro, Macro: m} }
func PlanValue(p *PlanResult) TypedValue          { return TypedValue{Kind: KindPlan, Plan: p} }
func SolutionValue(s *SolutionResult) TypedValue  { return TypedValue{Kind: KindSolution, Solution: s} }
func StringValue(s string) TypedValue             { return TypedValue{Kind: KindString, String: s} }
func FactValue(f *Fact) TypedValue                { return TypedValue{Kind: KindFact, Fact: f} }
func TheoryValue(t *TheoryHandle) TypedValue       { return TypedValue{Kind: KindTheory, Theory: t} }
