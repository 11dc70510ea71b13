package tac_test

import (
	"strings"
	"testing"

	"github.com/ericwu2003/tcc/parser"
	"github.com/ericwu2003/tcc/tac"
	"github.com/ericwu2003/tcc/token"
)

func lower(t *testing.T, src string) (*tac.Program, error) {
	t.Helper()
	toks, err := token.Lex("t.c", strings.NewReader(src))
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return tac.LowerProgram(prog)
}

func countKind(instrs []tac.Instr, k tac.InstrKind) int {
	n := 0
	for _, in := range instrs {
		if in.Kind == k {
			n++
		}
	}
	return n
}

// TestMainFallsOffEndReturnsZero checks spec.md §9's recommended safety
// net: a function body with no explicit return still terminates.
func TestMainFallsOffEndReturnsZero(t *testing.T) {
	prog, err := lower(t, "int main() { int x = 1; }")
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	instrs := prog.Functions[0].Instrs
	last := instrs[len(instrs)-1]
	if last.Kind != tac.IExit {
		t.Fatalf("expected trailing IExit, got %v", last.Kind)
	}
	if last.A.Kind != tac.ValLit || last.A.Imm != 0 {
		t.Errorf("expected implicit return value 0, got %+v", last.A)
	}
}

// TestNonMainFallsOffEndUsesFuncReturn checks the same safety net for a
// non-entry-point function, which must not terminate the process.
func TestNonMainFallsOffEndUsesFuncReturn(t *testing.T) {
	prog, err := lower(t, "int f() { int x = 1; } int main() { return f(); }")
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	fInstrs := prog.Functions[0].Instrs
	last := fInstrs[len(fInstrs)-1]
	if last.Kind != tac.IFuncReturn {
		t.Fatalf("expected trailing IFuncReturn in f, got %v", last.Kind)
	}
}

// TestShortCircuitAndUsesLabelPair checks that && lowers via a label pair
// rather than evaluating its right operand unconditionally (spec.md §4.1).
func TestShortCircuitAndUsesLabelPair(t *testing.T) {
	prog, err := lower(t, "int main() { return (0 && (1/0)) == 0; }")
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	instrs := prog.Functions[0].Instrs
	if countKind(instrs, tac.IJmpZero)+countKind(instrs, tac.IJmpNotZero) == 0 {
		t.Errorf("expected at least one conditional jump lowering &&, got none in %+v", instrs)
	}
	if countKind(instrs, tac.ILabel) < 2 {
		t.Errorf("expected at least two labels for &&, got %d in %+v", countKind(instrs, tac.ILabel), instrs)
	}
}

// TestTernaryUsesLabelPair checks that ?: lowers via two labels, matching
// the short-circuit lowering style (spec.md §4.1).
func TestTernaryUsesLabelPair(t *testing.T) {
	prog, err := lower(t, "int main() { int a = 5; int b = 7; return a < b ? a : b; }")
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	instrs := prog.Functions[0].Instrs
	if countKind(instrs, tac.ILabel) < 2 {
		t.Errorf("expected at least two labels for ternary, got %d in %+v", countKind(instrs, tac.ILabel), instrs)
	}
}

// TestBreakOutsideLoopIsSemanticError checks spec.md §7's error taxonomy:
// break/continue outside a loop is a SemanticError, not a parse error.
func TestBreakOutsideLoopIsSemanticError(t *testing.T) {
	_, err := lower(t, "int main() { break; return 0; }")
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if !strings.Contains(err.Error(), "semantic error") {
		t.Errorf("expected a semantic error, got %v", err)
	}
}

// TestRedeclarationInSameScopeIsSemanticError checks spec.md §3's
// redeclaration rule.
func TestRedeclarationInSameScopeIsSemanticError(t *testing.T) {
	_, err := lower(t, "int main() { int a = 1; int a = 2; return a; }")
	if err == nil || !strings.Contains(err.Error(), "semantic error") {
		t.Errorf("expected a semantic error on redeclaration, got %v", err)
	}
}

// TestUndeclaredVariableIsSemanticError checks spec.md §3's use-before-
// declaration rule.
func TestUndeclaredVariableIsSemanticError(t *testing.T) {
	_, err := lower(t, "int main() { return x; }")
	if err == nil || !strings.Contains(err.Error(), "semantic error") {
		t.Errorf("expected a semantic error on undeclared variable, got %v", err)
	}
}

// TestPrefixAndPostfixIncDecDiffer checks that i++ and ++i lower to
// different instruction shapes: postfix yields the pre-increment value,
// prefix yields the post-increment value (spec.md §4.1).
func TestPrefixAndPostfixIncDecDiffer(t *testing.T) {
	prog, err := lower(t, "int main() { int i = 3; return (i++) + (++i); }")
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	instrs := prog.Functions[0].Instrs
	nBin := countKind(instrs, tac.IBinOp)
	if nBin == 0 {
		t.Errorf("expected at least one BinOp lowering +, got %+v", instrs)
	}
	// The sum is the only BinOp with an identifier as its right operand
	// (the increments add a literal 1). Its left operand (i++) must be a
	// saved copy of i's old value, its right operand (++i) i itself.
	var sum *tac.Instr
	for k := range instrs {
		if instrs[k].Kind == tac.IBinOp && instrs[k].B.Kind == tac.ValVar {
			sum = &instrs[k]
		}
	}
	if sum == nil || sum.A.Kind != tac.ValVar || sum.A.Ident == sum.B.Ident {
		t.Errorf("expected i++ and ++i to yield different operands, got %+v", instrs)
	}
}

// TestArrayIndexOnNestedExpressionIsRejected checks the narrow-scope
// restriction (SPEC_FULL.md §11): indexing is only wired for a direct
// array variable, not a chained or nested index expression.
func TestArrayIndexOnNestedExpressionIsRejected(t *testing.T) {
	_, err := lower(t, "int main() { int a[2] = {1,2}; return a[0][0]; }")
	if err == nil {
		t.Errorf("expected an error indexing a non-array expression, got nil")
	}
}

// TestMissingMainIsSemanticError checks that a program with no "main"
// function fails lowering up front (SPEC_FULL.md §11 requires an entry
// point), rather than letting codegen/asmtext emit a call to an
// undefined label.
func TestMissingMainIsSemanticError(t *testing.T) {
	_, err := lower(t, "int f() { return 0; }")
	if err == nil || !strings.Contains(err.Error(), "semantic error") {
		t.Errorf("expected a semantic error for a program with no main, got %v", err)
	}
}
