package codegen_test

import (
	"strings"
	"testing"

	"github.com/ericwu2003/tcc/codegen"
	"github.com/ericwu2003/tcc/parser"
	"github.com/ericwu2003/tcc/tac"
	"github.com/ericwu2003/tcc/token"
)

func genProgram(t *testing.T, src string) []codegen.Func {
	t.Helper()
	toks, err := token.Lex("t.c", strings.NewReader(src))
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	prog, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	unit, err := tac.LowerProgram(prog)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	funcs, err := codegen.GenProgram(unit)
	if err != nil {
		t.Fatalf("gen: %v", err)
	}
	return funcs
}

// TestFrameBytesIsSixteenByteAligned checks spec.md §9's call-site
// realignment requirement: a stack frame whose size isn't already a
// multiple of 16 must be rounded up so that parity-padded Push/Pop alone
// suffices at call sites, with no AddImm/Lea adjustment needed.
func TestFrameBytesIsSixteenByteAligned(t *testing.T) {
	funcs := genProgram(t, "int main() { int a = 1; int b = 2; int c = 3; return a + b + c; }")
	for _, fn := range funcs {
		if fn.FrameBytes%16 != 0 {
			t.Errorf("function %s has unaligned frame size %d", fn.Name, fn.FrameBytes)
		}
	}
}

// TestLabelsAreUnique checks that every label minted across a whole
// compiled unit is distinct, even across multiple functions sharing one
// Unit (spec.md §4.1/§4.3).
func TestLabelsAreUnique(t *testing.T) {
	funcs := genProgram(t, `
		int f() { int i = 0; while (i < 3) { i = i + 1; } return i; }
		int main() { int j = 0; for (int i = 0; i < 3; i = i + 1) { j = j + i; } return f() + j; }
	`)
	seen := map[string]bool{}
	for _, fn := range funcs {
		for _, in := range fn.Instrs {
			if in.Kind != codegen.XLabel {
				continue
			}
			if seen[in.Label] {
				t.Errorf("label %q minted more than once", in.Label)
			}
			seen[in.Label] = true
		}
	}
}

// TestPushPopBalanced checks stack neutrality at call sites: in every
// function, the Pushes of call arguments and alignment padding are
// matched by as many Pops, so a call site never leaves rsp shifted
// relative to its caller's expectation. The frame's own push/pop of rbp
// is not counted: every return sequence and the trailing epilogue each
// pop rbp once, against the single push in the prologue.
func TestPushPopBalanced(t *testing.T) {
	funcs := genProgram(t, "int f(int a, int b, int c, int d, int e, int f, int g) { return a; } int main() { return f(1,2,3,4,5,6,7); }")
	for _, fn := range funcs {
		pushes, pops := 0, 0
		for _, in := range fn.Instrs {
			switch {
			case in.Kind == codegen.XPush && in.Src != codegen.RegLoc(codegen.Rbp):
				pushes++
			case in.Kind == codegen.XPop && in.Dst != codegen.RegLoc(codegen.Rbp):
				pops++
			}
		}
		if pushes != pops {
			t.Errorf("function %s: %d pushes but %d pops", fn.Name, pushes, pops)
		}
	}
}

// TestComparisonUsesMappedConditionCode checks spec.md §4.4's
// BinOp-to-condition-code mapping for each comparison operator.
func TestComparisonUsesMappedConditionCode(t *testing.T) {
	cases := []struct {
		op   string
		want codegen.CC
	}{
		{"==", codegen.CCE},
		{"!=", codegen.CCNE},
		{"<", codegen.CCL},
		{"<=", codegen.CCLE},
		{">", codegen.CCG},
		{">=", codegen.CCGE},
	}
	for _, tc := range cases {
		t.Run(tc.op, func(t *testing.T) {
			src := "int main() { int a = 1; int b = 2; return a " + tc.op + " b; }"
			funcs := genProgram(t, src)
			found := false
			for _, in := range funcs[0].Instrs {
				if in.Kind == codegen.XSetCC && in.CC == tc.want {
					found = true
				}
			}
			if !found {
				t.Errorf("expected a SetCC with condition code %v for operator %q", tc.want, tc.op)
			}
		})
	}
}

// TestEveryFunctionEndsInExitOrRet checks that main's body always ends in
// the exit syscall and every other function's body always ends in a ret,
// matching SPEC_FULL.md §11's multi-function addition. The fixed
// two-instruction epilogue (mov rsp, rbp; pop rbp) is appended after
// every body, so the body's last instruction is third from the end.
func TestEveryFunctionEndsInExitOrRet(t *testing.T) {
	funcs := genProgram(t, "int f() { return 1; } int main() { return f(); }")
	for _, fn := range funcs {
		var want codegen.InstrKind
		if fn.Name == "main" {
			want = codegen.XSyscall
		} else {
			want = codegen.XRet
		}
		last := fn.Instrs[len(fn.Instrs)-3]
		if last.Kind != want {
			t.Errorf("function %s: last body instruction is %v, want %v", fn.Name, last.Kind, want)
		}
	}
}

// TestRunProgramMatchesExpectedExitCodes exercises the in-process
// interpreter across spec.md §8's scenarios (same cases the end-to-end
// CLI test covers, checked again here at the codegen/interp boundary).
func TestRunProgramMatchesExpectedExitCodes(t *testing.T) {
	cases := []struct {
		src  string
		want int
	}{
		{"int main() { return 2 + 3 * 4; }", 14},
		{"int main() { int i = 3; return (i++) + (++i); }", 8},
		{"int f(int n) { if (n == 0) return 0; return n + f(n - 1); } int main() { return f(5); }", 15},
		{"int main() { int a[3] = {1,2,3}; return a[0]*a[1]; }", 2},
	}
	for _, tc := range cases {
		funcs := genProgram(t, tc.src)
		got, err := codegen.RunProgram(funcs)
		if err != nil {
			t.Fatalf("RunProgram(%q): %v", tc.src, err)
		}
		if got != tc.want {
			t.Errorf("RunProgram(%q) = %d, want %d", tc.src, got, tc.want)
		}
	}
}

// TestArrayElementsDoNotOverlap checks that adjacent array elements
// occupy distinct, non-clobbering storage: a 3-element array's last
// element must not overrun into whatever scalar slot sits below its
// reserved region.
func TestArrayElementsDoNotOverlap(t *testing.T) {
	funcs := genProgram(t, "int main() { int guard = 99; int a[3] = {1,2,3}; return a[0] + a[1]*10 + a[2]*100 + (guard - 99); }")
	got, err := codegen.RunProgram(funcs)
	if err != nil {
		t.Fatalf("RunProgram: %v", err)
	}
	// main's result is a process exit status, truncated to its low 8 bits.
	if want := 321 & 0xff; got != want {
		t.Errorf("RunProgram = %d, want %d (adjacent array elements or the guard slot were clobbered)", got, want)
	}
}

// TestFunctionReturnValueIsNotTruncated checks that only main's process-
// terminating exit truncates to 8 bits; an ordinary function's return
// value must survive full-width back to its caller.
func TestFunctionReturnValueIsNotTruncated(t *testing.T) {
	funcs := genProgram(t, "int f() { return 256; } int main() { return f() == 256; }")
	got, err := codegen.RunProgram(funcs)
	if err != nil {
		t.Fatalf("RunProgram: %v", err)
	}
	if got != 1 {
		t.Errorf("RunProgram = %d, want 1 (f()'s return value should not be masked to 8 bits)", got)
	}
}
