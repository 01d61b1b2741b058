// Package tracelog implements TraceLogger (spec.md §4.12): a
// process-wide table of in-flight and completed execution traces, keyed
// by context id, replayable back to DSL text.
package tracelog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"spock/internal/logging"
)

// ErrUnknownTrace is returned by LogStep/EndTrace for an id that was
// never started (or was started in a different process instance).
var ErrUnknownTrace = errors.New("tracelog: unknown trace id")

// Step is one executed statement, recorded in execution order.
type Step struct {
	DSLStatement string // the literal source line
	SubjectRef   string
	Verb         string
	ObjectRef    string
	ResultRef    string
	Output       string // human-readable summary of the result value
}

// Trace is an ordered sequence of steps for one execution context.
// Once Done is true the Steps slice is never mutated again.
type Trace struct {
	ID   string
	Done bool

	mu    sync.Mutex
	steps []Step
}

// Steps returns a defensive copy of the recorded steps.
func (t *Trace) Steps() []Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Step, len(t.steps))
	copy(out, t.steps)
	return out
}

var (
	mu     sync.Mutex
	traces = make(map[string]*Trace)
)

// StartTrace opens a new trace under id, replacing any prior completed
// trace of the same id (traces are one-shot per execution context).
func StartTrace(id string) *Trace {
	mu.Lock()
	defer mu.Unlock()
	t := &Trace{ID: id}
	traces[id] = t
	logging.TraceDebug("started trace %s", id)
	return t
}

// LogStep appends a step to the trace named id. It is a no-op error
// (not a panic) to log into a trace that has already ended or was never
// started — callers that race a shutdown should see this as recoverable.
func LogStep(id string, step Step) error {
	mu.Lock()
	t, ok := traces[id]
	mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrace, id)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Done {
		return fmt.Errorf("tracelog: trace %s already ended", id)
	}
	t.steps = append(t.steps, step)
	logging.TraceDebug("trace %s: step %q", id, step.DSLStatement)
	return nil
}

// EndTrace finalizes the trace, returning its immutable snapshot.
// Idempotent: a second call returns the same completed trace unchanged.
func EndTrace(id string) (*Trace, error) {
	mu.Lock()
	t, ok := traces[id]
	mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrace, id)
	}
	t.mu.Lock()
	t.Done = true
	t.mu.Unlock()
	logging.TraceDebug("ended trace %s (%d steps)", id, len(t.steps))
	return t, nil
}

// Discard removes a trace from the process-wide table without finalizing
// it, freeing the slot once a caller has extracted what it needs.
func Discard(id string) {
	mu.Lock()
	delete(traces, id)
	mu.Unlock()
}

// ToScript joins every step's DSLStatement, in insertion order, with
// newlines: a minimal replayable rendering of the trace.
func ToScript(t *Trace) string {
	steps := t.Steps()
	lines := make([]string, len(steps))
	for i, s := range steps {
		lines[i] = s.DSLStatement
	}
	return strings.Join(lines, "\n")
}

// ToScriptDetailed is like ToScript but appends a trailing comment to
// every line naming the resolved verb, operand refs, and result ref —
// enough to re-derive the kernel-op shape without re-running the script.
func ToScriptDetailed(t *Trace) string {
	steps := t.Steps()
	lines := make([]string, len(steps))
	for i, s := range steps {
		comment := fmt.Sprintf("# verb=%s subject=%s object=%s result=%s", s.Verb, s.SubjectRef, s.ObjectRef, s.ResultRef)
		if s.Output != "" {
			comment += fmt.Sprintf(" output=%s", s.Output)
		}
		lines[i] = s.DSLStatement + "\n" + comment
	}
	return strings.Join(lines, "\n")
}
