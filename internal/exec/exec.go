// Package exec implements Executor (spec.md §4.10): verb dispatch,
// macro registration, dependency-ordered statement execution, magic
// variable binding inside verb macros, and per-statement trace
// emission.
package exec

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"spock/internal/config"
	"spock/internal/depgraph"
	"spock/internal/logging"
	"spock/internal/numeric"
	"spock/internal/parse"
	"spock/internal/planner"
	"spock/internal/session"
	"spock/internal/theorystore"
	"spock/internal/tracelog"
	"spock/internal/vectorspace"
	"spock/internal/versioning"
)

// numberPattern mirrors the tokenizer's literal rule (spec.md §4.4):
// an optionally-signed integer or decimal.
var numberPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Executor owns dispatch for one engine: the theory store theory verbs
// write through, the planner Plan/Solve verbs delegate to, and the
// vector space unknown bare identifiers are auto-generated from.
type Executor struct {
	store   *theorystore.Store
	lineage *versioning.Manager
	planner *planner.Planner
	space   *vectorspace.Space
	cfg     *config.Config
}

// New builds an Executor. space must be the same Space the engine used
// to generate Truth/False/Zero, so auto-generated concepts share their
// dimension and element type. lineage may be nil, in which case
// BranchTheory/MergeTheory/Remember run without recording into the
// versioning lineage index.
func New(store *theorystore.Store, lineage *versioning.Manager, p *planner.Planner, space *vectorspace.Space, cfg *config.Config) *Executor {
	return &Executor{store: store, lineage: lineage, planner: p, space: space, cfg: cfg}
}

// topLevelItem is either a top-level statement or a top-level macro,
// tagged so Run can replay them in source order (spec.md §5: "across
// macros in a script, order is source order").
type topLevelItem struct {
	line  int
	stmt  *parse.Statement
	macro *parse.Macro
}

// Run executes script under sess, emitting every statement (including
// ones nested inside executed macro bodies) to the trace named
// traceID, which must already be open via tracelog.StartTrace. Run
// does not call EndTrace; the caller decides when the trace closes.
func (e *Executor) Run(ctx context.Context, sess *session.Session, script *parse.Script, traceID string) error {
	items := make([]topLevelItem, 0, len(script.Statements)+len(script.Macros))
	for i := range script.Statements {
		items = append(items, topLevelItem{line: script.Statements[i].Line, stmt: &script.Statements[i]})
	}
	for i := range script.Macros {
		items = append(items, topLevelItem{line: script.Macros[i].Line, macro: &script.Macros[i]})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].line < items[j].line })

	for _, item := range items {
		switch {
		case item.stmt != nil:
			if err := e.executeMacroBody(ctx, sess, []parse.Statement{*item.stmt}, traceID, 0); err != nil {
				return err
			}
		case item.macro != nil:
			if err := e.registerOrRunMacro(ctx, sess, *item.macro, traceID, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// registerOrRunMacro handles one top-level macro per its Kind (spec.md
// §4.10 step 1): verb macros install into the session's verb table;
// theory macros execute their body in a fresh child scope and the
// resulting symbols/nested verb macros become a session overlay;
// session macros execute immediately in a child scope that is then
// discarded entirely.
func (e *Executor) registerOrRunMacro(ctx context.Context, sess *session.Session, m parse.Macro, traceID string, depth int) error {
	switch m.Kind {
	case parse.KindVerb:
		sess.RegisterVerbMacro(m)
		logging.ExecutorDebug("registered verb macro %q", m.Name)
		return nil

	case parse.KindTheory:
		child := sess.NewChild()
		if err := e.executeMacroBody(ctx, child, m.Body, traceID, depth); err != nil {
			return err
		}
		ov := &inlineOverlay{name: rawName(m.Name), symbols: child.LocalSymbols(), macros: verbMacrosByName(m.NestedMacros)}
		sess.OverlayTheory(ov)
		logging.ExecutorDebug("installed inline theory macro %q as session overlay", m.Name)
		return nil

	case parse.KindSession:
		child := sess.NewChild()
		if err := e.executeMacroBody(ctx, child, m.Body, traceID, depth); err != nil {
			return err
		}
		logging.ExecutorDebug("ran and discarded session macro %q", m.Name)
		return nil

	default:
		return fmt.Errorf("exec: unknown macro kind %q", m.Kind)
	}
}

func verbMacrosByName(macros []parse.Macro) map[string]parse.Macro {
	out := make(map[string]parse.Macro, len(macros))
	for _, m := range macros {
		if m.Kind == parse.KindVerb {
			out[rawName(m.Name)] = m
		}
	}
	return out
}

// inlineOverlay adapts a theory macro's executed body into a
// session.Overlay, the same shape theorystore.Descriptor implements for
// persisted theories.
type inlineOverlay struct {
	name    string
	symbols map[string]session.TypedValue
	macros  map[string]parse.Macro
}

func (o *inlineOverlay) OverlayName() string                  { return o.name }
func (o *inlineOverlay) OverlaySymbols() map[string]session.TypedValue { return o.symbols }
func (o *inlineOverlay) OverlayMacros() map[string]parse.Macro { return o.macros }

// executeMacroBody builds the dependency graph for body, topologically
// sorts it, then executes each statement in that order (spec.md §4.10
// step 3).
func (e *Executor) executeMacroBody(ctx context.Context, sess *session.Session, body []parse.Statement, traceID string, depth int) error {
	if depth > e.cfg.MaxRecursion {
		return ErrMaxRecursionExceeded
	}
	ordered, err := depgraph.Sort(body)
	if err != nil {
		return err
	}
	for _, stmt := range ordered {
		if err := e.executeStatement(ctx, sess, stmt, traceID, depth); err != nil {
			return err
		}
	}
	return nil
}

// executeStatement resolves subject/object, dispatches the verb through
// the precedence tiers, stores the result, and emits a trace step
// (spec.md §4.10 step 4).
func (e *Executor) executeStatement(ctx context.Context, sess *session.Session, stmt parse.Statement, traceID string, depth int) error {
	result, subjectRef, objectRef, err := e.evaluateStatement(ctx, sess, stmt, traceID, depth)
	if err != nil {
		return fmt.Errorf("exec: %s: %w", dslLine(stmt), err)
	}

	name := rawName(stmt.Declaration)
	sess.SetSymbol(name, result)

	if traceID != "" {
		_ = tracelog.LogStep(traceID, tracelog.Step{
			DSLStatement: dslLine(stmt),
			SubjectRef:   subjectRef,
			Verb:         stmt.Verb,
			ObjectRef:    objectRef,
			ResultRef:    name,
			Output:       summarize(result),
		})
	}
	return nil
}

// evaluateStatement applies one statement's verb, special-casing the
// handful of verbs whose object token is a raw name rather than a
// resolved value (DESIGN.md's internal/exec entry explains why).
func (e *Executor) evaluateStatement(ctx context.Context, sess *session.Session, stmt parse.Statement, traceID string, depth int) (session.TypedValue, string, string, error) {
	if theoryVerbNames[stmt.Verb] {
		v, err := e.invokeTheoryVerb(sess, stmt.Verb, stmt.Subject, stmt.Object)
		return v, rawName(stmt.Subject), rawName(stmt.Object), err
	}
	if stmt.Verb == "Plan" || stmt.Verb == "Solve" {
		v, err := e.invokePlanningVerb(ctx, sess, stmt.Verb, stmt.Subject, stmt.Object)
		return v, rawName(stmt.Subject), rawName(stmt.Object), err
	}
	if stmt.Verb == "Persist" {
		v, err := e.invokePersist(sess, rawName(stmt.Subject))
		return v, rawName(stmt.Subject), rawName(stmt.Object), err
	}
	if stmt.Verb == "AttachUnit" {
		subject, err := e.resolveOperand(sess, stmt.Subject, traceID)
		if err != nil {
			return session.TypedValue{}, "", "", err
		}
		if subject.Kind != session.KindNumeric {
			return session.TypedValue{}, "", "", fmt.Errorf("exec: AttachUnit requires a numeric subject, got %s", subject.Kind)
		}
		unit := rawName(stmt.Object)
		return session.NumericValue(numeric.AttachUnit(subject.Numeric, unit)), stmt.Subject, unit, nil
	}

	subject, err := e.resolveOperand(sess, stmt.Subject, traceID)
	if err != nil {
		return session.TypedValue{}, "", "", err
	}
	object, err := e.resolveOperand(sess, stmt.Object, traceID)
	if err != nil {
		return session.TypedValue{}, "", "", err
	}

	v, err := e.dispatchValueVerb(ctx, sess, stmt.Verb, subject, object, traceID, depth)
	return v, stmt.Subject, stmt.Object, err
}

// dispatchValueVerb walks kernel -> numeric -> special (Evaluate) ->
// user-defined verb macros, in that precedence order (spec.md §4.10
// step 3). Theory and planning verbs are handled earlier in
// evaluateStatement since their object tokens are raw names.
func (e *Executor) dispatchValueVerb(ctx context.Context, sess *session.Session, verb string, subject, object session.TypedValue, traceID string, depth int) (session.TypedValue, error) {
	if v, matched, err := kernelVerb(verb, subject, object); matched {
		return v, err
	}
	if v, matched, err := numericVerb(verb, subject, object); matched {
		return v, err
	}
	if verb == "Evaluate" {
		return invokeEvaluate(subject, object)
	}
	if macro, ok := sess.ResolveMacro(verb); ok {
		return e.invokeVerbMacro(ctx, sess, macro, subject, object, traceID, depth)
	}
	return session.TypedValue{}, fmt.Errorf("%w: %s", ErrVerbNotFound, verb)
}

// invokeVerbMacro runs a user-defined verb macro in a fresh child scope
// with $subject/$object bound to the caller's resolved operands,
// returning the @result it declares (spec.md §4.10's "User-defined verb
// invocation" paragraph). Its body's statements are traced into the
// same traceID as the caller: a verb macro invocation is not a trace
// boundary, just a scope boundary.
func (e *Executor) invokeVerbMacro(ctx context.Context, sess *session.Session, macro parse.Macro, subject, object session.TypedValue, traceID string, depth int) (session.TypedValue, error) {
	child := sess.NewChild()
	child.SetSymbol("$subject", subject)
	child.SetSymbol("$object", object)

	if err := e.executeMacroBody(ctx, child, macro.Body, traceID, depth+1); err != nil {
		return session.TypedValue{}, err
	}
	result, ok := child.Resolve("result")
	if !ok {
		return session.TypedValue{}, fmt.Errorf("%w: verb macro %q", ErrMissingResult, macro.Name)
	}
	return result, nil
}

// resolveOperand resolves a subject/object token to a value: numeric
// literals construct a dimensionless Numeric directly; anything already
// known resolves through the session; a bare identifier (no @, no $)
// that resolves to nothing gets auto-generated as a fresh random unit
// vector (spec.md §4.7); @ and $ forms never auto-generate. When traceID
// is open, auto-generation is itself logged as a trace step (spec.md
// §9: "should also emit a trace entry `# auto-generated: <name>` so
// replay is faithful") — ResultTheory reads these back out to tell a
// user-named symbol from an auto-generated one (spec.md §4.13's `@rel`
// rule).
func (e *Executor) resolveOperand(sess *session.Session, token, traceID string) (session.TypedValue, error) {
	if n, ok := parseNumericLiteral(token); ok {
		return session.NumericValue(numeric.Make(n)), nil
	}
	if tv, ok := sess.Resolve(token); ok {
		return tv, nil
	}
	if isDecorated(token) {
		return session.TypedValue{}, fmt.Errorf("%w: %s", ErrSymbolResolution, token)
	}

	v := vectorspace.Normalise(e.space.CreateRandom())
	tv := session.VectorValue(v)
	sess.SetSymbol(token, tv)
	logging.ExecutorDebug("auto-generated: %s", token)
	if traceID != "" {
		_ = tracelog.LogStep(traceID, tracelog.Step{DSLStatement: AutoGeneratedComment(token)})
	}
	return tv, nil
}

// AutoGeneratedComment renders the trace comment emitted when token is
// auto-generated, and is also used by internal/resulttheory to detect
// which names in a trace were auto-generated rather than user-named.
func AutoGeneratedComment(token string) string {
	return "# auto-generated: " + token
}

func parseNumericLiteral(token string) (float64, bool) {
	if !numberPattern.MatchString(token) {
		return 0, false
	}
	n, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDecorated(token string) bool {
	return len(token) > 0 && (token[0] == '@' || token[0] == '$')
}

func dslLine(stmt parse.Statement) string {
	return fmt.Sprintf("%s %s %s %s", stmt.Declaration, stmt.Subject, stmt.Verb, stmt.Object)
}

func summarize(tv session.TypedValue) string {
	switch tv.Kind {
	case session.KindVector:
		return fmt.Sprintf("vector[%d]", tv.Vector.Dim())
	case session.KindScalar:
		return fmt.Sprintf("%.4f", tv.Scalar)
	case session.KindNumeric:
		if tv.Numeric.Unit == "" {
			return fmt.Sprintf("%v", tv.Numeric.Value)
		}
		return fmt.Sprintf("%v%s", tv.Numeric.Value, tv.Numeric.Unit)
	case session.KindString:
		return tv.String
	case session.KindTheory:
		return tv.Theory.Name
	case session.KindPlan:
		return fmt.Sprintf("plan(success=%v,steps=%d)", tv.Plan.Success, tv.Plan.TotalSteps)
	case session.KindSolution:
		return fmt.Sprintf("solution(success=%v)", tv.Solution.Success)
	default:
		return string(tv.Kind)
	}
}
