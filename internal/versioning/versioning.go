// Package versioning implements TheoryVersioning (spec.md §4.9): the
// UseTheory/Remember/BranchTheory/MergeTheory verbs, branch-name
// parsing, and the five merge conflict strategies.
package versioning

import (
	"errors"
	"fmt"
	"strings"

	"spock/internal/logging"
	"spock/internal/parse"
	"spock/internal/primitives"
	"spock/internal/session"
	"spock/internal/theorystore"
)

// MergeStrategy selects how a declaration-name conflict between two
// theories is resolved during MergeTheory (spec.md §4.9).
type MergeStrategy string

const (
	StrategyTarget    MergeStrategy = "target"
	StrategySource    MergeStrategy = "source"
	StrategyBoth      MergeStrategy = "both"
	StrategyConsensus MergeStrategy = "consensus"
	StrategyFail      MergeStrategy = "fail"
)

// ErrMergeConflict is raised by the "fail" strategy, naming the
// clashing declaration.
var ErrMergeConflict = errors.New("versioning: merge conflict")

// ParseBranchName splits a branch-qualified theory name on the FIRST
// "__" only, so "base__a__b" parses to base="base", branch="a__b"
// (spec.md §4.9). ok is false when name contains no "__".
func ParseBranchName(name string) (base, branch string, ok bool) {
	idx := strings.Index(name, "__")
	if idx < 0 {
		return name, "", false
	}
	return name[:idx], name[idx+len("__"):], true
}

// BranchTheory deep-copies baseName's source AST into a new theory
// named "baseName__branchSuffix", recording parentVersionID. When
// lineage is non-nil, the new version is also recorded into the
// versioning lineage index (SPEC_FULL.md §6.3) so IsAncestor/
// VersionsAfter see it without waiting for the next full rebuild.
func BranchTheory(store *theorystore.Store, lineage *Manager, baseName, branchSuffix string) (*theorystore.Descriptor, error) {
	base, err := store.Load(baseName)
	if err != nil {
		return nil, err
	}
	branchName := baseName + "__" + branchSuffix

	// Re-parsing the source text (rather than reusing base.AST) gives a
	// structurally independent copy: no slice or pointer in the new
	// descriptor's AST aliases the original's.
	desc, err := store.SaveBranch(branchName, base.Source, base.VersionID)
	if err != nil {
		return nil, err
	}
	if err := recordLineage(lineage, desc); err != nil {
		return nil, err
	}
	logging.VersioningDebug("branched %q -> %q (parent=%s)", baseName, branchName, base.VersionID)
	return desc, nil
}

// recordLineage records desc with lineage when lineage is non-nil,
// tolerating callers (tests, one-off tools) that don't care about
// ancestry tracking.
func recordLineage(lineage *Manager, desc *theorystore.Descriptor) error {
	if lineage == nil {
		return nil
	}
	return lineage.Record(desc)
}

// MergeTheory writes a new descriptor under targetName containing the
// union of statements and verb macros from target and source, resolving
// declaration-name conflicts per strategy.
func MergeTheory(store *theorystore.Store, lineage *Manager, targetName, sourceName string, strategy MergeStrategy) (*theorystore.Descriptor, error) {
	target, err := store.Load(targetName)
	if err != nil {
		return nil, err
	}
	source, err := store.Load(sourceName)
	if err != nil {
		return nil, err
	}

	stmts, consensusValues, err := mergeStatements(target.AST.Statements, source.AST.Statements, target.Symbols, source.Symbols, strategy)
	if err != nil {
		return nil, err
	}
	macros, err := mergeMacros(target.AST.Macros, source.AST.Macros, strategy)
	if err != nil {
		return nil, err
	}

	merged := &parse.Script{Statements: stmts, Macros: macros}
	mergedSource := parse.Serialize(merged)

	desc, err := store.SaveMerge(targetName, mergedSource, []string{target.VersionID, source.VersionID})
	if err != nil {
		return nil, err
	}
	for name, v := range consensusValues {
		desc.Symbols[name] = v
	}
	if err := recordLineage(lineage, desc); err != nil {
		return nil, err
	}
	logging.VersioningDebug("merged %q<-%q via %s strategy", targetName, sourceName, strategy)
	return desc, nil
}

func declName(s string) string { return strings.TrimPrefix(s, "@") }

func mergeStatements(targetStmts, sourceStmts []parse.Statement, targetSymbols, sourceSymbols map[string]session.TypedValue, strategy MergeStrategy) ([]parse.Statement, map[string]session.TypedValue, error) {
	sourceByName := make(map[string]parse.Statement, len(sourceStmts))
	for _, s := range sourceStmts {
		sourceByName[declName(s.Declaration)] = s
	}
	consumed := make(map[string]bool, len(sourceStmts))
	consensusValues := make(map[string]session.TypedValue)

	var merged []parse.Statement
	for _, ts := range targetStmts {
		name := declName(ts.Declaration)
		ss, conflict := sourceByName[name]
		if !conflict {
			merged = append(merged, ts)
			continue
		}
		consumed[name] = true

		resolved, extra, consensus, err := resolveStatementConflict(name, ts, ss, targetSymbols, sourceSymbols, strategy)
		if err != nil {
			return nil, nil, err
		}
		merged = append(merged, resolved)
		if extra != nil {
			merged = append(merged, *extra)
		}
		if consensus != nil {
			consensusValues[name] = *consensus
		}
	}
	for _, ss := range sourceStmts {
		name := declName(ss.Declaration)
		if consumed[name] {
			continue
		}
		merged = append(merged, ss)
	}
	return merged, consensusValues, nil
}

// resolveStatementConflict applies strategy to one clashing declaration
// name, returning the resolved statement (always non-nil), an optional
// extra statement (only "both" produces one, the renamed source side),
// and an optional consensus value: the statement text can't carry a raw
// vector literal (the DSL has no vector-literal syntax), so a computed
// consensus value is surfaced separately for the caller to stash onto
// the merged descriptor's cached Symbols map.
func resolveStatementConflict(name string, target, src parse.Statement, targetSymbols, sourceSymbols map[string]session.TypedValue, strategy MergeStrategy) (parse.Statement, *parse.Statement, *session.TypedValue, error) {
	switch strategy {
	case StrategyTarget:
		return target, nil, nil, nil
	case StrategySource:
		return src, nil, nil, nil
	case StrategyBoth:
		renamed := src
		renamed.Declaration = "@" + name + "_merged"
		return target, &renamed, nil, nil
	case StrategyConsensus:
		tv, tok := targetSymbols[name]
		sv, sok := sourceSymbols[name]
		if tok && sok && tv.Kind == session.KindVector && sv.Kind == session.KindVector {
			sum, err := primitives.Add(tv.Vector, sv.Vector)
			if err != nil {
				return parse.Statement{}, nil, nil, fmt.Errorf("versioning: consensus merge of %q: %w", name, err)
			}
			consensus := session.VectorValue(primitives.Normalise(sum))
			return target, nil, &consensus, nil
		}
		// Non-vector values (or values not yet cached on either side):
		// consensus degrades to target, per spec.md §9 Open Question.
		return target, nil, nil, nil
	case StrategyFail:
		return parse.Statement{}, nil, nil, fmt.Errorf("%w: %q", ErrMergeConflict, name)
	default:
		return parse.Statement{}, nil, nil, fmt.Errorf("versioning: unknown merge strategy %q", strategy)
	}
}

func mergeMacros(targetMacros, sourceMacros []parse.Macro, strategy MergeStrategy) ([]parse.Macro, error) {
	sourceByName := make(map[string]parse.Macro, len(sourceMacros))
	for _, m := range sourceMacros {
		sourceByName[declName(m.Name)] = m
	}
	consumed := make(map[string]bool, len(sourceMacros))

	var merged []parse.Macro
	for _, tm := range targetMacros {
		name := declName(tm.Name)
		sm, conflict := sourceByName[name]
		if !conflict {
			merged = append(merged, tm)
			continue
		}
		consumed[name] = true

		switch strategy {
		case StrategyTarget, StrategyConsensus:
			merged = append(merged, tm)
		case StrategySource:
			merged = append(merged, sm)
		case StrategyBoth:
			renamed := sm
			renamed.Name = "@" + name + "_merged"
			merged = append(merged, tm, renamed)
		case StrategyFail:
			return nil, fmt.Errorf("%w: %q", ErrMergeConflict, name)
		default:
			return nil, fmt.Errorf("versioning: unknown merge strategy %q", strategy)
		}
	}
	for _, sm := range sourceMacros {
		name := declName(sm.Name)
		if consumed[name] {
			continue
		}
		merged = append(merged, sm)
	}
	return merged, nil
}

// UseTheory overlays name's theory onto sess, making its symbols and
// verb macros visible to subsequent resolution.
func UseTheory(sess *session.Session, store *theorystore.Store, name string) (*theorystore.Descriptor, error) {
	desc, err := store.Load(name)
	if err != nil {
		return nil, err
	}
	sess.OverlayTheory(desc)
	logging.VersioningDebug("session %s: used theory %q", sess.ID, name)
	return desc, nil
}

// Remember persists value under symbolName into theoryName: it caches
// the resolved value on the descriptor's in-memory Symbols map (so the
// same engine's later NearestSymbols/MergeTheory consensus lookups see
// it) and appends a self-referential declaration statement to the
// theory's DSL source so the binding round-trips as text too.
func Remember(store *theorystore.Store, lineage *Manager, theoryName, symbolName string, value session.TypedValue) (*theorystore.Descriptor, error) {
	desc, err := store.Load(theoryName)
	if err != nil {
		return nil, err
	}

	appended := *desc.AST
	appended.Statements = append(append([]parse.Statement{}, appended.Statements...), parse.Statement{
		Declaration: "@" + symbolName,
		Subject:     symbolName,
		Verb:        "Identity",
		Object:      symbolName,
	})
	newSource := parse.Serialize(&appended)

	saved, err := store.SaveBranch(theoryName, newSource, desc.VersionID)
	if err != nil {
		return nil, err
	}
	saved.Symbols[symbolName] = value
	if err := recordLineage(lineage, saved); err != nil {
		return nil, err
	}
	logging.VersioningDebug("remembered %q into theory %q", symbolName, theoryName)
	return saved, nil
}
