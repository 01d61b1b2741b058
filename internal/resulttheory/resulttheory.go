// Package resulttheory implements ResultTheory (spec.md §4.13): it
// assembles the clean conclusion macro from a completed trace plus the
// session's final symbol state, and can recover that same macro back
// into structured form (parseResultTheory).
package resulttheory

import (
	"fmt"
	"strconv"
	"strings"

	"spock/internal/exec"
	"spock/internal/session"
	"spock/internal/symbolic"
	"spock/internal/tracelog"
)

// relationalKernelVerbs are the binary kernel verbs whose result vector
// represents a relation between two named concepts (spec.md §4.13's
// "kernel relation verbs (Bind, Add, Blend)"). The eight kernel verbs
// (spec.md §4.2) have no verb literally named Blend; DESIGN.md records
// the decision to read it as Modulate, the other polymorphic
// two-operand kernel verb. Distance is excluded: it relates two
// concepts but yields a scalar, not a concept-to-concept link.
var relationalKernelVerbs = map[string]bool{
	"Add":      true,
	"Bind":     true,
	"Move":     true,
	"Modulate": true,
}

var semanticVerbSet = func() map[string]bool {
	out := make(map[string]bool, len(symbolic.SemanticVerbs))
	for _, v := range symbolic.SemanticVerbs {
		out[v] = true
	}
	return out
}()

// Entry is one line of an assembled ResultTheory: a fixed DSL-shaped
// directive (fact/rel/scalar/confidence/error/success) with its three
// positional tokens.
type Entry struct {
	Directive string
	Subject   string
	Verb      string
	Object    string
}

func (e Entry) String() string {
	return fmt.Sprintf("@%s %s %s %s", e.Directive, e.Subject, e.Verb, e.Object)
}

// Summary is parseResultTheory's recovered form: {type, facts[], truth,
// confidence}.
type Summary struct {
	Type         string // "ok" or "error"
	Entries      []Entry
	Truth        *float64
	ErrorMessage string
}

// Facts returns every @fact entry.
func (s *Summary) Facts() []Entry { return s.entriesOf("fact") }

// Rels returns every @rel entry.
func (s *Summary) Rels() []Entry { return s.entriesOf("rel") }

// Confidence returns the @confidence entry's attached truth value, if
// present.
func (s *Summary) Confidence() (float64, bool) {
	for _, e := range s.Entries {
		if e.Directive == "confidence" {
			if v, err := strconv.ParseFloat(e.Object, 64); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func (s *Summary) entriesOf(directive string) []Entry {
	var out []Entry
	for _, e := range s.Entries {
		if e.Directive == directive {
			out = append(out, e)
		}
	}
	return out
}

// Assemble walks trace and sess's final local symbols to build the
// clean result macro (spec.md §4.13). score, when non-nil, is the
// already-computed truth projection (spec.md §4.14); Assemble only
// formats it, it never computes it.
func Assemble(trace *tracelog.Trace, sess *session.Session, score *float64) string {
	autoGenerated := autoGeneratedNames(trace)

	var lines []string
	for _, step := range trace.Steps() {
		if semanticVerbSet[step.Verb] {
			lines = append(lines, Entry{Directive: "fact", Subject: step.SubjectRef, Verb: step.Verb, Object: step.ObjectRef}.String())
			continue
		}
		if relationalKernelVerbs[step.Verb] && !autoGenerated[step.SubjectRef] && !autoGenerated[step.ObjectRef] {
			lines = append(lines, Entry{Directive: "rel", Subject: step.SubjectRef, Verb: step.Verb, Object: step.ObjectRef}.String())
		}
	}

	if name, value, ok := findResultSymbol(trace, sess); ok {
		lines = append(lines, resultEntry(name, value).String())
	}

	if score != nil {
		lines = append(lines, Entry{Directive: "confidence", Subject: "fact", Verb: "HasTruth", Object: truncate4(*score)}.String())
	}

	return strings.Join(lines, "\n")
}

// resultEntry renders the @result-set rule: a vector result is recorded
// as the self-referential fact "@fact name Is name" (echoing the
// "@name name Identity name" statements internal/exec's Persist and
// versioning's Remember write); a numeric/scalar result is recorded as
// @scalar result HasValue N.
func resultEntry(name string, value session.TypedValue) Entry {
	switch value.Kind {
	case session.KindNumeric:
		return Entry{Directive: "scalar", Subject: "result", Verb: "HasValue", Object: formatFloat(value.Numeric.Value)}
	case session.KindScalar:
		return Entry{Directive: "scalar", Subject: "result", Verb: "HasValue", Object: formatFloat(value.Scalar)}
	default:
		return Entry{Directive: "fact", Subject: name, Verb: "Is", Object: name}
	}
}

// ResultValue exposes findResultSymbol's resolution to internal/engine,
// which needs the same symbol to compute SessionApi's score (spec.md
// §4.14: "score is computed by finding the result vector... then the
// last declared VECTOR symbol").
func ResultValue(trace *tracelog.Trace, sess *session.Session) (name string, value session.TypedValue, ok bool) {
	return findResultSymbol(trace, sess)
}

// findResultSymbol implements spec.md §4.14's resolution order: prefer
// a symbol declared "result" (this covers both the literal @result
// declaration and the spec's "$result" fallback, since
// session.Session.Resolve already strips both @ and $ prefixes down to
// the same bare key); otherwise the most recently traced statement
// whose declared result is still a VECTOR in the session's current
// state.
func findResultSymbol(trace *tracelog.Trace, sess *session.Session) (string, session.TypedValue, bool) {
	if v, ok := sess.Resolve("result"); ok {
		return "result", v, true
	}
	steps := trace.Steps()
	for i := len(steps) - 1; i >= 0; i-- {
		ref := steps[i].ResultRef
		if ref == "" {
			continue
		}
		if v, ok := sess.Resolve(ref); ok && v.Kind == session.KindVector {
			return ref, v, true
		}
	}
	return "", session.TypedValue{}, false
}

// autoGeneratedNames collects every name the executor logged as
// auto-generated in this trace (exec.AutoGeneratedComment), so the
// @rel rule can tell a user-named operand from one the executor
// invented on first use.
func autoGeneratedNames(trace *tracelog.Trace) map[string]bool {
	prefix := exec.AutoGeneratedComment("")
	out := make(map[string]bool)
	for _, step := range trace.Steps() {
		if name, ok := strings.CutPrefix(step.DSLStatement, prefix); ok {
			out[name] = true
		}
	}
	return out
}

// AssembleError builds the Errors-path `@Error` macro (spec.md §4.13).
func AssembleError(err error) string {
	escaped := strconv.Quote(err.Error())
	var b strings.Builder
	b.WriteString("@Error theory begin\n")
	fmt.Fprintf(&b, "%s\n", Entry{Directive: "error", Subject: "message", Verb: "HasValue", Object: escaped})
	fmt.Fprintf(&b, "%s\n", Entry{Directive: "success", Subject: "result", Verb: "HasValue", Object: "false"})
	b.WriteString("end")
	return b.String()
}

func truncate4(f float64) string {
	return strconv.FormatFloat(float64(int64(f*10000))/10000, 'f', 4, 64)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Parse is parseResultTheory (spec.md §4.13): it recovers
// {type, facts[], truth, confidence} from the string form Assemble or
// AssembleError produced. Object tokens may themselves contain spaces
// (an escaped error message), so each line is split into at most four
// fields rather than tokenized like DSL source.
func Parse(text string) (*Summary, error) {
	summary := &Summary{Type: "ok"}
	for _, raw := range strings.Split(strings.TrimSpace(text), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || line == "end" {
			continue
		}
		if strings.HasPrefix(line, "@Error") {
			summary.Type = "error"
			continue
		}
		entry, ok := parseLine(line)
		if !ok {
			return nil, fmt.Errorf("resulttheory: cannot parse line %q", line)
		}
		summary.Entries = append(summary.Entries, entry)
		switch entry.Directive {
		case "confidence":
			if v, err := strconv.ParseFloat(entry.Object, 64); err == nil {
				summary.Truth = &v
			}
		case "error":
			if unquoted, err := strconv.Unquote(entry.Object); err == nil {
				summary.ErrorMessage = unquoted
			} else {
				summary.ErrorMessage = entry.Object
			}
		}
	}
	return summary, nil
}

func parseLine(line string) (Entry, bool) {
	if !strings.HasPrefix(line, "@") {
		return Entry{}, false
	}
	parts := strings.SplitN(line, " ", 4)
	if len(parts) < 4 {
		return Entry{}, false
	}
	return Entry{Directive: strings.TrimPrefix(parts[0], "@"), Subject: parts[1], Verb: parts[2], Object: parts[3]}, true
}
