package normalize

import "fmt"

// fatalError is the compiler-bug channel of spec.md §7: a precondition
// a transfer function expects the caller's IR to satisfy but doesn't.
// Run recovers it one frame up, attaches the function name, and
// re-panics, so the abort still propagates but is attributable to the
// function whose IR violated a precondition.
type fatalError struct {
	msg string
	fn  string
}

func (e *fatalError) Error() string {
	if e.fn == "" {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.fn, e.msg)
}

// fatal raises a compiler-bug precondition failure: a constant where a
// location is expected, an unsupported static-branch predicate or
// subject, a yielded convention at a function boundary, an unrecognized
// opcode, or an operand, location or Value that breaks the pass's own
// bookkeeping invariants. The stack-leak and non-canonical-Value checks
// are not routed through here: they panic directly in packages context
// and state.
func fatal(format string, args ...interface{}) {
	panic(&fatalError{msg: fmt.Sprintf(format, args...)})
}
