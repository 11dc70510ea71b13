package asmtext

import (
	"strings"
	"testing"

	"github.com/ericwu2003/tcc/codegen"
)

func TestEmitBasicExit(t *testing.T) {
	fn := codegen.Func{
		Name:       "main",
		FrameBytes: 0,
		Instrs: []codegen.Instr{
			codegen.MovImm(codegen.RegLoc(codegen.Rdi), 42),
			codegen.MovImm(codegen.RegLoc(codegen.Rax), 60),
			codegen.Syscall(),
		},
	}

	var sb strings.Builder
	if err := Emit(&sb, []codegen.Func{fn}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		".global _start",
		"_start:",
		"call main",
		"main:",
		"mov $42, %rdi",
		"mov $60, %rax",
		"syscall",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "intel_syntax") {
		t.Errorf("output should not request Intel syntax, got:\n%s", out)
	}
}

func TestEmitEveryInstrKind(t *testing.T) {
	fn := codegen.Func{
		Name: "f",
		Instrs: []codegen.Instr{
			codegen.Push(codegen.RegLoc(codegen.Rax)),
			codegen.Pop(codegen.RegLoc(codegen.Rbx)),
			codegen.Mov(codegen.RegLoc(codegen.Rax), codegen.RegLoc(codegen.Rbx)),
			codegen.MovImm(codegen.RegLoc(codegen.Rax), 1),
			codegen.Add(codegen.RegLoc(codegen.Rax), codegen.RegLoc(codegen.Rbx)),
			codegen.Sub(codegen.RegLoc(codegen.Rax), codegen.RegLoc(codegen.Rbx)),
			codegen.IMul(codegen.RegLoc(codegen.Rax), codegen.RegLoc(codegen.Rbx)),
			codegen.SubImm(codegen.RegLoc(codegen.Rsp), 16),
			codegen.Cdq(),
			codegen.Idiv(codegen.RegLoc(codegen.Rbx)),
			codegen.LabelI(".Ltest0"),
			codegen.Jmp(".Ltest0"),
			codegen.JmpCC(codegen.CCE, ".Ltest0"),
			codegen.SetCC(codegen.CCL, codegen.RegLoc(codegen.Rax)),
			codegen.Test(codegen.RegLoc(codegen.Rax), codegen.RegLoc(codegen.Rax)),
			codegen.Cmp(codegen.RegLoc(codegen.Rax), codegen.RegLoc(codegen.Rbx)),
			codegen.Not(codegen.RegLoc(codegen.Rax)),
			codegen.Neg(codegen.RegLoc(codegen.Rax)),
			codegen.Mov(codegen.IndirectLoc(codegen.Rdi), codegen.RegLoc(codegen.Rsi)),
			codegen.Call("g"),
			codegen.Ret(),
		},
	}

	var sb strings.Builder
	if err := Emit(&sb, []codegen.Func{fn}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"push %rax",
		"pop %rbx",
		"mov %rbx, %rax",
		"mov $1, %rax",
		"add %rbx, %rax",
		"sub %rbx, %rax",
		"imul %rbx, %rax",
		"sub $16, %rsp",
		"cdq",
		"idiv %rbx",
		".Ltest0:",
		"jmp .Ltest0",
		"je .Ltest0",
		"setl %al",
		"test %rax, %rax",
		"cmp %rbx, %rax",
		"not %rax",
		"neg %rax",
		"mov %rsi, (%rdi)",
		"call g",
		"ret",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q, got:\n%s", want, out)
		}
	}
}
