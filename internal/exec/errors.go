package exec

import "errors"

// Sentinel errors matching spec.md §7's taxonomy for everything the
// executor itself is responsible for raising (parse/depgraph/numeric/
// theorystore/versioning/planner errors propagate as-is, wrapped).
var (
	// ErrVerbNotFound means a verb name matched no kernel, numeric,
	// planning, theory, special, or user-defined verb.
	ErrVerbNotFound = errors.New("exec: verb not found")

	// ErrSymbolResolution means a magic variable ($subject/$object) or
	// an explicit @-prefixed reference could not be resolved. Unlike a
	// bare identifier, these are never auto-generated.
	ErrSymbolResolution = errors.New("exec: symbol resolution failed")

	// ErrMissingResult means a verb macro body completed without
	// declaring @result.
	ErrMissingResult = errors.New("exec: missing result")

	// ErrMaxRecursionExceeded guards against unbounded user-verb-macro
	// recursion (cfg.MaxRecursion).
	ErrMaxRecursionExceeded = errors.New("exec: max recursion exceeded")
)
