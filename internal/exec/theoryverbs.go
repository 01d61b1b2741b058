package exec

import (
	"fmt"
	"strings"

	"spock/internal/session"
	"spock/internal/versioning"
)

// theoryVerbNames lists every verb name this tier answers for, so
// evaluateStatement's precedence walk can stop here before falling through to
// special/user-defined verbs.
var theoryVerbNames = map[string]bool{
	"UseTheory":      true,
	"BranchTheory":   true,
	"Remember":       true,
	"MergeTarget":    true,
	"MergeSource":    true,
	"MergeBoth":      true,
	"MergeConsensus": true,
	"MergeFail":      true,
}

var mergeStrategyByVerb = map[string]versioning.MergeStrategy{
	"MergeTarget":    versioning.StrategyTarget,
	"MergeSource":    versioning.StrategySource,
	"MergeBoth":      versioning.StrategyBoth,
	"MergeConsensus": versioning.StrategyConsensus,
	"MergeFail":      versioning.StrategyFail,
}

// invokeTheoryVerb wires the four TheoryVersioning verbs onto the DSL's
// fixed ternary statement shape (subject, verb, object). Each of these
// verbs naturally takes more than two logical arguments (a theory name,
// a merge strategy, a value to remember); see DESIGN.md's
// internal/exec entry for how each extra argument is folded in:
//   - UseTheory:    subject = theory name (raw token, not resolved
//     through the session); object is conventionally the same token.
//   - BranchTheory: subject = base theory name, object = branch suffix
//     (both raw tokens).
//   - Remember:     subject = theory name (raw token), object = the
//     name of an already-resolved session symbol whose current value
//     is what gets remembered.
//   - MergeTarget/MergeSource/MergeBoth/MergeConsensus/MergeFail: the
//     strategy is folded into the verb name itself; subject = target
//     theory name, object = source theory name (both raw tokens).
func (e *Executor) invokeTheoryVerb(sess *session.Session, verb, subjectToken, objectToken string) (session.TypedValue, error) {
	switch verb {
	case "UseTheory":
		name := rawName(subjectToken)
		desc, err := versioning.UseTheory(sess, e.store, name)
		if err != nil {
			return session.TypedValue{}, err
		}
		return session.TheoryValue(&session.TheoryHandle{Name: desc.Name, VersionID: desc.VersionID}), nil

	case "BranchTheory":
		base := rawName(subjectToken)
		suffix := rawName(objectToken)
		desc, err := versioning.BranchTheory(e.store, e.lineage, base, suffix)
		if err != nil {
			return session.TypedValue{}, err
		}
		return session.TheoryValue(&session.TheoryHandle{Name: desc.Name, VersionID: desc.VersionID}), nil

	case "Remember":
		theoryName := rawName(subjectToken)
		symbolName := rawName(objectToken)
		value, ok := sess.Resolve(symbolName)
		if !ok {
			return session.TypedValue{}, fmt.Errorf("%w: %s", ErrSymbolResolution, objectToken)
		}
		desc, err := versioning.Remember(e.store, e.lineage, theoryName, symbolName, value)
		if err != nil {
			return session.TypedValue{}, err
		}
		return session.TheoryValue(&session.TheoryHandle{Name: desc.Name, VersionID: desc.VersionID}), nil

	default:
		strategy, ok := mergeStrategyByVerb[verb]
		if !ok {
			return session.TypedValue{}, fmt.Errorf("%w: %s", ErrVerbNotFound, verb)
		}
		target := rawName(subjectToken)
		source := rawName(objectToken)
		desc, err := versioning.MergeTheory(e.store, e.lineage, target, source, strategy)
		if err != nil {
			return session.TypedValue{}, err
		}
		return session.TheoryValue(&session.TheoryHandle{Name: desc.Name, VersionID: desc.VersionID}), nil
	}
}

// rawName strips the @/$ decoration from a token without resolving it
// through the session: theory/branch/merge names are identifiers, not
// vector-bearing symbols.
func rawName(token string) string {
	return strings.TrimPrefix(strings.TrimPrefix(token, "@"), "$")
}
