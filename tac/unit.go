package tac

import (
	"fmt"
	"text/scanner"

	"github.com/ericwu2003/tcc/compileerr"
)

// loopLabels records the Jmp targets that Break/Continue resolve to
// inside the nearest enclosing loop.
type loopLabels struct {
	Break    string
	Continue string
}

// Unit threads everything lowering needs to stay reentrant across
// functions: two monotonic counters (temp id, label id), the lexical
// scope stack, and the loop-label stack. All three are fields of one
// struct passed by pointer through every lowering function, never
// package-level globals, so that lowering multiple functions (or
// multiple programs in the same test binary) never cross-contaminates
// counters.
type Unit struct {
	nextTemp  int
	nextLabel int
	scopes    []map[string]Ident
	loops     []loopLabels
	inMain    bool
}

// NewUnit returns a Unit with its counters zeroed, ready to lower a
// whole program. Counters are NOT reset between functions: every
// temporary and label minted across an entire compilation is unique.
func NewUnit() *Unit {
	return &Unit{}
}

// BeginFunction resets the lexical and loop stacks for a new function
// body, pushing a fresh scope for its parameters. The temp/label
// counters are left untouched. isMain marks whether "return" inside
// this function should lower to a process-terminating Exit (the
// program's single entry point, spec.md's original scope) or to a
// normal function return (SPEC_FULL.md §11's multi-function addition).
func (u *Unit) BeginFunction(isMain bool) {
	u.scopes = []map[string]Ident{{}}
	u.loops = nil
	u.inMain = isMain
}

// InMain reports whether the function currently being lowered is the
// program's entry point.
func (u *Unit) InMain() bool { return u.inMain }

// NewTemp mints a fresh, never-reused identifier of the given size.
func (u *Unit) NewTemp(sz Size) Ident {
	id := Ident{ID: u.nextTemp, Size: sz}
	u.nextTemp++
	return id
}

// NewLabel mints a fresh label name built from prefix, unique across the
// whole compilation.
func (u *Unit) NewLabel(prefix string) string {
	n := u.nextLabel
	u.nextLabel++
	return fmt.Sprintf(".L%s%d", prefix, n)
}

// PushScope opens a new lexical scope, e.g. on entry to a compound
// statement or a for loop's own init clause.
func (u *Unit) PushScope() {
	u.scopes = append(u.scopes, map[string]Ident{})
}

// PopScope closes the innermost lexical scope.
func (u *Unit) PopScope() {
	u.scopes = u.scopes[:len(u.scopes)-1]
}

// Declare binds name to id in the innermost scope. Redeclaration within
// the same scope is a SemanticError.
func (u *Unit) Declare(name string, id Ident, pos scanner.Position) error {
	top := u.scopes[len(u.scopes)-1]
	if _, exists := top[name]; exists {
		return &compileerr.SemanticError{Pos: pos, Msg: "redeclaration of " + name + " in the same scope"}
	}
	top[name] = id
	return nil
}

// Resolve looks name up from the innermost scope outward.
func (u *Unit) Resolve(name string, pos scanner.Position) (Ident, error) {
	for i := len(u.scopes) - 1; i >= 0; i-- {
		if id, ok := u.scopes[i][name]; ok {
			return id, nil
		}
	}
	return Ident{}, &compileerr.SemanticError{Pos: pos, Msg: "undeclared variable " + name}
}

// PushLoop registers the break/continue targets for a newly entered
// loop body.
func (u *Unit) PushLoop(breakLabel, continueLabel string) {
	u.loops = append(u.loops, loopLabels{Break: breakLabel, Continue: continueLabel})
}

// PopLoop discards the innermost loop's break/continue targets.
func (u *Unit) PopLoop() {
	u.loops = u.loops[:len(u.loops)-1]
}

// BreakLabel returns the Jmp target for a break statement at pos, or a
// SemanticError if pos is not lexically inside a loop.
func (u *Unit) BreakLabel(pos scanner.Position) (string, error) {
	if len(u.loops) == 0 {
		return "", &compileerr.SemanticError{Pos: pos, Msg: "break statement not within a loop"}
	}
	return u.loops[len(u.loops)-1].Break, nil
}

// ContinueLabel returns the Jmp target for a continue statement at pos,
// or a SemanticError if pos is not lexically inside a loop.
func (u *Unit) ContinueLabel(pos scanner.Position) (string, error) {
	if len(u.loops) == 0 {
		return "", &compileerr.SemanticError{Pos: pos, Msg: "continue statement not within a loop"}
	}
	return u.loops[len(u.loops)-1].Continue, nil
}
