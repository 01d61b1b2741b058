package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"spock/internal/parse"
	"spock/internal/primitives"
	"spock/internal/resulttheory"
	"spock/internal/session"
	"spock/internal/token"
	"spock/internal/tracelog"
)

// Result is the envelope every SessionApi method returns (spec.md
// §4.14).
type Result struct {
	Success        bool
	Score          float64
	ResultTheory   string
	ExecutionTrace string
}

// SessionApi wraps a running session as the seven DSL entry points
// spec.md §4.14 names.
type SessionApi struct {
	engine  *Engine
	session *session.Session
}

// NewSessionApi wraps sess, created via Engine.CreateSession, as a
// SessionApi.
func (e *Engine) NewSessionApi(sess *session.Session) *SessionApi {
	return &SessionApi{engine: e, session: sess}
}

// Learn runs dsl, typically one or more UseTheory/Remember/Persist
// statements that grow the session's or a theory's symbol table.
func (s *SessionApi) Learn(ctx context.Context, dsl string) Result { return s.run(ctx, dsl) }

// Ask runs dsl and reports how closely its result projects onto Truth.
func (s *SessionApi) Ask(ctx context.Context, dsl string) Result { return s.run(ctx, dsl) }

// Prove runs dsl; callers read Success plus a high Score as a proof
// that the asserted relation holds under the current theory.
func (s *SessionApi) Prove(ctx context.Context, dsl string) Result { return s.run(ctx, dsl) }

// Plan runs dsl (typically a single `Plan` verb statement) and returns
// the envelope around its PLAN-kind result.
func (s *SessionApi) Plan(ctx context.Context, dsl string) Result { return s.run(ctx, dsl) }

// Solve runs dsl (typically a single `Solve` verb statement) and
// returns the envelope around its SOLUTION-kind result.
func (s *SessionApi) Solve(ctx context.Context, dsl string) Result { return s.run(ctx, dsl) }

// Summarise runs dsl, then additionally mines the session's vector
// index for the nearest named neighbors of the result vector
// (SPEC_FULL.md §6.2), appended to the execution trace as comments.
func (s *SessionApi) Summarise(ctx context.Context, dsl string) Result {
	result, trace := s.runTraced(ctx, dsl)
	if !result.Success {
		return result
	}

	_, value, ok := resulttheory.ResultValue(trace, s.session)
	if !ok || value.Kind != session.KindVector {
		return result
	}
	neighbors, err := s.session.NearestSymbols(ctx, value.Vector, s.engine.cfg.CandidateLimit)
	if err != nil || len(neighbors) == 0 {
		return result
	}

	var b strings.Builder
	b.WriteString(result.ExecutionTrace)
	b.WriteString("\n# nearest-neighbors:")
	for _, n := range neighbors {
		fmt.Fprintf(&b, "\n#   %s (%.4f)", n.Name, n.Distance)
	}
	result.ExecutionTrace = b.String()
	return result
}

// Explain runs dsl and, when the symbolic cross-check bridge is
// enabled and derives facts the vector engine did not explicitly
// assert, appends an `# also-derivable:` comment block to the
// execution trace (SPEC_FULL.md §6.1). This never changes Score or
// Success, and never alters ResultTheory's clean facts.
func (s *SessionApi) Explain(ctx context.Context, dsl string) Result {
	result := s.run(ctx, dsl)
	if !result.Success || s.engine.symbolic == nil {
		return result
	}

	summary, err := resulttheory.Parse(result.ResultTheory)
	if err != nil {
		return result
	}
	facts := make([]session.Fact, 0, len(summary.Facts()))
	for _, f := range summary.Facts() {
		facts = append(facts, session.Fact{Subject: f.Subject, Verb: f.Verb, Object: f.Object})
	}
	if len(facts) == 0 {
		return result
	}

	_, derived, err := s.engine.symbolic.CrossCheck(facts)
	if err != nil || len(derived) == 0 {
		return result
	}

	var b strings.Builder
	b.WriteString(result.ExecutionTrace)
	b.WriteString("\n# also-derivable:")
	for _, f := range derived {
		fmt.Fprintf(&b, "\n#   %s %s %s", f.Subject, f.Verb, f.Object)
	}
	result.ExecutionTrace = b.String()
	return result
}

// IsAncestor reports whether ancestorVersionID appears anywhere in
// versionID's parent chain, per the engine's versioning lineage index
// (SPEC_FULL.md §6.3).
func (s *SessionApi) IsAncestor(ctx context.Context, ancestorVersionID, versionID string) (bool, error) {
	return s.engine.IsAncestor(ctx, ancestorVersionID, versionID)
}

// VersionsAfter returns the version ids of every theory version
// recorded strictly after t, ordered oldest to newest.
func (s *SessionApi) VersionsAfter(ctx context.Context, t time.Time) ([]string, error) {
	return s.engine.VersionsAfter(ctx, t)
}

// run parses and executes dsl under a fresh trace, returning the
// uniform envelope. Script-level errors never surface as a Go error
// (spec.md §7): they produce Success=false with an @Error resultTheory
// and whatever partial trace was recorded.
func (s *SessionApi) run(ctx context.Context, dsl string) Result {
	result, _ := s.runTraced(ctx, dsl)
	return result
}

// runTraced is run's implementation, additionally returning the
// completed trace so callers that need to inspect it further
// (Summarise's nearest-neighbor lookup, Explain's fact extraction)
// don't have to re-execute dsl.
func (s *SessionApi) runTraced(ctx context.Context, dsl string) (Result, *tracelog.Trace) {
	traceID := uuid.NewString()
	tracelog.StartTrace(traceID)

	script, err := parse.Parse(token.Tokenize(dsl))
	if err != nil {
		trace, _ := tracelog.EndTrace(traceID)
		return errorResult(err, trace), trace
	}

	runErr := s.engine.executor.Run(ctx, s.session, script, traceID)
	trace, _ := tracelog.EndTrace(traceID)
	if runErr != nil {
		return errorResult(runErr, trace), trace
	}

	score := s.score(trace)
	return Result{
		Success:        true,
		Score:          score,
		ResultTheory:   resulttheory.Assemble(trace, s.session, &score),
		ExecutionTrace: tracelog.ToScriptDetailed(trace),
	}, trace
}

func errorResult(err error, trace *tracelog.Trace) Result {
	var traceText string
	if trace != nil {
		traceText = tracelog.ToScriptDetailed(trace)
	}
	return Result{
		Success:        false,
		Score:          0,
		ResultTheory:   resulttheory.AssembleError(err),
		ExecutionTrace: traceText,
	}
}

func (s *SessionApi) score(trace *tracelog.Trace) float64 {
	_, value, ok := resulttheory.ResultValue(trace, s.session)
	if !ok || value.Kind != session.KindVector {
		return 0
	}
	truth, ok := s.session.Resolve("Truth")
	if !ok || truth.Kind != session.KindVector {
		return 0
	}
	score, err := primitives.Distance(value.Vector, truth.Vector)
	if err != nil {
		return 0
	}
	return score
}
