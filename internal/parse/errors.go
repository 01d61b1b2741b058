package parse

import "fmt"

// Error is a ParseError carrying one or two offending line numbers.
type Error struct {
	Message string
	Line    int
	OtherLine int // first declaration's line for SSA duplicate-declaration pairs; 0 otherwise
}

func (e *Error) Error() string {
	if e.OtherLine != 0 {
		return fmt.Sprintf("parse error: %s (lines %d and %d)", e.Message, e.Line, e.OtherLine)
	}
	return fmt.Sprintf("parse error: %s (line %d)", e.Message, e.Line)
}

func newError(line int, format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Line: line}
}

func newDuplicateError(name string, first, second int) *Error {
	return &Error{
		Message:   fmt.Sprintf("duplicate declaration %q", name),
		Line:      second,
		OtherLine: first,
	}
}
