package main

import (
	"strings"
	"testing"

	"github.com/ericwu2003/tcc/codegen"
	"github.com/ericwu2003/tcc/parser"
	"github.com/ericwu2003/tcc/tac"
	"github.com/ericwu2003/tcc/token"
)

// pipelineRun lexes, parses, lowers and generates src, then interprets the
// result in process, returning the exit code a real assembled/linked
// binary would produce.
func pipelineRun(t *testing.T, src string) int {
	t.Helper()
	toks, err := token.Lex("test.c", strings.NewReader(src))
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
		t.Fatalf("codegen: %v", err)
	}
	code, err := codegen.RunProgram(funcs)
	if err != nil {
		t.Fatalf("interp: %v", err)
	}
	return code
}

func TestEndToEndScenarios(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want int
	}{
		{"literal-return", "int main() { return 0; }", 0},
		{"arithmetic-precedence", "int main() { return 2 + 3 * 4; }", 14},
		{"ternary-min", "int main() { int a = 5; int b = 7; return a < b ? a : b; }", 5},
		{"for-loop-sum", "int main() { int x = 0; for (int i = 0; i < 10; i = i + 1) x = x + i; return x; }", 45},
		{"while-loop-fib", "int main() { int a = 0; int b = 1; int i = 0; while (i < 6) { int t = a + b; a = b; b = t; i = i + 1; } return a; }", 8},
		{"incdec-combo", "int main() { int i = 3; return (i++) + (++i); }", 8},
		{"short-circuit-div-by-zero", "int main() { return (0 && (1/0)) == 0; }", 1},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel() // the pipeline keeps no mutable package state (tac.Unit is per-call), so concurrent compiles must not interfere
			got := pipelineRun(t, tc.src)
			if got != tc.want {
				t.Errorf("%s: got exit code %d, want %d", tc.src, got, tc.want)
			}
		})
	}
}

func TestCompileEmitsAssemblyText(t *testing.T) {
	var sb strings.Builder
	r := strings.NewReader("int main() { return 7; }")
	if err := Compile("lit.c", r, &sb); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	out := sb.String()
	for _, want := range []string{".global _start", "main:", "syscall"} {
		if !strings.Contains(out, want) {
			t.Errorf("assembly output missing %q:\n%s", want, out)
		}
	}
}
