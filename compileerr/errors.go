// Package compileerr defines the fatal error kinds produced by each stage
// of the compiler. None of them are recovered from: the first one returned
// by any stage ends the compilation (see cmd/tcc).
package compileerr

import (
	"fmt"
	"text/scanner"
)

// LexError reports an unrecognised byte in the source.
type LexError struct {
	Pos scanner.Position
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s: lex error: %s", e.Pos, e.Msg)
}

// ParseError reports an unexpected token.
type ParseError struct {
	Pos scanner.Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error: %s", e.Pos, e.Msg)
}

// SemanticError reports use of an undeclared variable, or break/continue
// outside of a loop.
type SemanticError struct {
	Pos scanner.Position
	Msg string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s: semantic error: %s", e.Pos, e.Msg)
}

// InternalInvariant indicates a bug in the compiler itself rather than in
// the user's input: a read of a TAC temporary before any write to it, or an
// unhandled variant in an exhaustive switch. It is always raised via panic
// and recovered exactly once, at the top of the pipeline.
type InternalInvariant struct {
	Msg string
}

func (e *InternalInvariant) Error() string {
	return "internal invariant violated: " + e.Msg
}

// Fail panics with an *InternalInvariant, for use at exhaustive-switch
// default cases and other states an implementer believes unreachable.
func Fail(format string, args ...interface{}) {
	panic(&InternalInvariant{Msg: fmt.Sprintf(format, args...)})
}
