// Package symbolic implements the Mangle cross-check bridge
// (SPEC_FULL.md §6.1): a Datalog schema mirroring ResultTheory's fixed
// semantic-verb set, plus rule-closure re-derivation (e.g. transitive
// Implies) over facts the vector engine already stated. This never
// overrides a vector result — it only annotates one.
package symbolic

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	_ "github.com/google/mangle/packages"
	"github.com/google/mangle/parse"

	"spock/internal/logging"
	"spock/internal/session"
)

// SemanticVerbs is the fixed set ResultTheory extracts as `@fact` lines
// (spec.md §4.13); every verb in this list has a matching EDB predicate
// below.
var SemanticVerbs = []string{
	"Is", "Has", "Implies", "Causes", "Before", "After", "Contains", "HasNumericValue",
}

var verbToPredicate = map[string]string{
	"Is":              "is",
	"Has":             "has",
	"Implies":         "implies",
	"Causes":          "causes",
	"Before":          "before",
	"After":           "after",
	"Contains":        "contains",
	"HasNumericValue": "hasNumericValue",
}

// schemaSource declares the base EDB predicates plus transitive-closure
// rules over Implies and Causes, following the teacher's edge/path
// closure pattern (an IDB predicate layered over a pure-EDB one, never
// both in the same predicate).
const schemaSource = `
Decl is(Subject, Object) bound [/string, /string].
Decl has(Subject, Object) bound [/string, /string].
Decl implies(Subject, Object) bound [/string, /string].
Decl causes(Subject, Object) bound [/string, /string].
Decl before(Subject, Object) bound [/string, /string].
Decl after(Subject, Object) bound [/string, /string].
Decl contains(Subject, Object) bound [/string, /string].
Decl hasNumericValue(Subject, Value) bound [/string, /number].
Decl impliesClosure(Subject, Object) bound [/string, /string].
Decl causesClosure(Subject, Object) bound [/string, /string].

impliesClosure(X, Y) :- implies(X, Y).
impliesClosure(X, Z) :- implies(X, Y), impliesClosure(Y, Z).
causesClosure(X, Y) :- causes(X, Y).
causesClosure(X, Z) :- causes(X, Y), causesClosure(Y, Z).
`

// Engine wraps a single-schema Mangle fact store scoped to this
// project's semantic-verb EDB. It is not safe for concurrent Assert/
// CrossCheck calls on the same instance; callers serialize per session.
type Engine struct {
	mu             sync.Mutex
	store          factstore.FactStoreWithRemove
	programInfo    *analysis.ProgramInfo
	predicateIndex map[string]ast.PredicateSym
	queryContext   *mengine.QueryContext
}

// New builds an Engine with the fixed semantic-verb schema loaded.
func New() (*Engine, error) {
	unit, err := parse.Unit(strings.NewReader(schemaSource))
	if err != nil {
		return nil, fmt.Errorf("symbolic: parse schema: %w", err)
	}

	programInfo, err := analysis.AnalyzeOneUnit(parse.SourceUnit{Clauses: unit.Clauses, Decls: unit.Decls}, nil)
	if err != nil {
		return nil, fmt.Errorf("symbolic: analyze schema: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()
	predicateIndex := make(map[string]ast.PredicateSym, len(programInfo.Decls))
	predToDecl := make(map[ast.PredicateSym]*ast.Decl, len(programInfo.Decls))
	for sym, decl := range programInfo.Decls {
		predicateIndex[sym.Symbol] = sym
		predToDecl[sym] = decl
	}
	predToRules := make(map[ast.PredicateSym][]ast.Clause)
	for _, clause := range programInfo.Rules {
		predToRules[clause.Head.Predicate] = append(predToRules[clause.Head.Predicate], clause)
	}

	return &Engine{
		store:          store,
		programInfo:    programInfo,
		predicateIndex: predicateIndex,
		queryContext: &mengine.QueryContext{
			PredToRules: predToRules,
			PredToDecl:  predToDecl,
			Store:       store,
		},
	}, nil
}

func factAtom(e *Engine, f session.Fact) (ast.Atom, bool) {
	predicate, ok := verbToPredicate[f.Verb]
	if !ok {
		return ast.Atom{}, false
	}
	sym, ok := e.predicateIndex[predicate]
	if !ok {
		return ast.Atom{}, false
	}
	return ast.Atom{Predicate: sym, Args: []ast.BaseTerm{ast.String(f.Subject), ast.String(f.Object)}}, true
}

// CrossCheck asserts every fact in the semantic-verb set as a Mangle
// EDB atom, evaluates the closure rules, and returns whether evaluation
// succeeded plus any derived fact not already present among the input
// facts (e.g. a transitively-implied pair the vector engine never
// explicitly stated).
func (e *Engine) CrossCheck(facts []session.Fact) (bool, []session.Fact, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]bool, len(facts))
	for _, f := range facts {
		atom, ok := factAtom(e, f)
		if !ok {
			continue
		}
		seen[atom.String()] = true
		e.store.Add(atom)
	}

	if _, err := mengine.EvalProgramWithStats(e.programInfo, e.store); err != nil {
		logging.SymbolicWarn("mangle evaluation failed: %v", err)
		return false, nil, fmt.Errorf("symbolic: evaluate closure rules: %w", err)
	}

	var derived []session.Fact
	for _, closureName := range []string{"impliesClosure", "causesClosure"} {
		sym, ok := e.predicateIndex[closureName]
		if !ok {
			continue
		}
		err := e.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
			if seen[atom.String()] {
				return nil
			}
			subject, object, ok := stringArgs(atom)
			if !ok {
				return nil
			}
			verb := "Implies"
			if closureName == "causesClosure" {
				verb = "Causes"
			}
			derived = append(derived, session.Fact{Subject: subject, Verb: verb, Object: object})
			return nil
		})
		if err != nil {
			return false, nil, fmt.Errorf("symbolic: read %s: %w", closureName, err)
		}
	}

	logging.SymbolicDebug("cross-check asserted %d facts, derived %d new", len(facts), len(derived))
	return true, derived, nil
}

func stringArgs(atom ast.Atom) (string, string, bool) {
	if len(atom.Args) != 2 {
		return "", "", false
	}
	a, aok := atom.Args[0].(ast.Constant)
	b, bok := atom.Args[1].(ast.Constant)
	if !aok || !bok {
		return "", "", false
	}
	return constantToString(a), constantToString(b), true
}

func constantToString(c ast.Constant) string {
	return strings.Trim(c.String(), `"`)
}

// Reset clears all asserted facts, leaving the schema loaded. Useful
// between sessions that share one Engine instance.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = factstore.NewSimpleInMemoryStore()
	e.queryContext.Store = e.store
}
