package exec

import (
	"fmt"
	"sort"

	"spock/internal/parse"
	"spock/internal/primitives"
	"spock/internal/session"
)

// invokeEvaluate is the canonical truth projector (spec.md §4.10):
// cosine similarity of subject against object (conventionally the
// global Truth constant), mapped to [0,1].
func invokeEvaluate(subject, object session.TypedValue) (session.TypedValue, error) {
	if subject.Kind != session.KindVector || object.Kind != session.KindVector {
		return session.TypedValue{}, fmt.Errorf("exec: Evaluate requires two vector operands, got %s and %s", subject.Kind, object.Kind)
	}
	score, err := primitives.Distance(subject.Vector, object.Vector)
	if err != nil {
		return session.TypedValue{}, err
	}
	return session.ScalarValue(score), nil
}

// invokePersist snapshots every vector-kind local symbol sess currently
// holds into a self-referential theory (one "@name name Identity name"
// statement per symbol, mirroring Remember's own round-tripping
// convention) and saves it under theoryName.
func (e *Executor) invokePersist(sess *session.Session, theoryName string) (session.TypedValue, error) {
	locals := sess.LocalSymbols()
	names := make([]string, 0, len(locals))
	for name, tv := range locals {
		if tv.Kind == session.KindVector {
			names = append(names, name)
		}
	}
	sort.Strings(names) // deterministic Persist output across runs

	script := &parse.Script{}
	for _, name := range names {
		script.Statements = append(script.Statements, parse.Statement{
			Declaration: "@" + name,
			Subject:     name,
			Verb:        "Identity",
			Object:      name,
		})
	}
	source := parse.Serialize(script)

	desc, err := e.store.Save(theoryName, source)
	if err != nil {
		return session.TypedValue{}, err
	}
	for _, name := range names {
		desc.Symbols[name] = locals[name]
	}
	return session.TheoryValue(&session.TheoryHandle{Name: desc.Name, VersionID: desc.VersionID}), nil
}
