// Package asmtext turns a codegen.Func list into GNU-assembler text, AT&T
// syntax, treated as a mechanical stringification of the instruction IR
// (spec.md §2: "assembly syntax emission... is OUT of scope" for the
// core, i.e. it carries no design decisions of its own) — the inverse of
// the teacher's asm.Disassemble (decode an instruction to text); here we
// encode one instead, one IR node to one or two lines.
package asmtext

import (
	"fmt"
	"io"

	"github.com/ericwu2003/tcc/codegen"
	"github.com/ericwu2003/tcc/compileerr"
	ioutilx "github.com/ericwu2003/tcc/internal/ioutil"
)

// Emit writes funcs as a complete, assemblable .s file to w. The process
// entry point is a tiny _start that calls "main" — main never returns,
// since every path through it ends in the exit syscall, so no matching
// `ret` is needed back in _start.
func Emit(w io.Writer, funcs []codegen.Func) error {
	ew := ioutilx.NewErrWriter(w)

	fmt.Fprintln(ew, ".text")
	fmt.Fprintln(ew, ".global _start")
	fmt.Fprintln(ew)
	fmt.Fprintln(ew, "_start:")
	fmt.Fprintln(ew, "    call main")
	fmt.Fprintln(ew)

	for _, fn := range funcs {
		emitFunc(ew, fn)
	}

	return ew.Err
}

func emitFunc(w io.Writer, fn codegen.Func) {
	fmt.Fprintf(w, "%s:\n", fn.Name)
	for _, in := range fn.Instrs {
		emitInstr(w, in)
	}
	fmt.Fprintln(w)
}

// reg renders a register operand in AT&T syntax: %name.
func reg(r codegen.Reg) string { return "%" + r.String() }

// regLow8 renders a register's low-byte alias, used by SetCC.
func regLow8(r codegen.Reg) string { return "%" + r.Low8() }

// loc renders an operand location in AT&T syntax: %reg, $imm is handled
// by the caller (immediates aren't Locs), (%reg) for register-indirect,
// and off(%rbp) for a frame-relative slot.
func loc(l codegen.Loc) string {
	switch {
	case l.IsReg:
		return reg(l.Reg)
	case l.IsIndirect:
		return fmt.Sprintf("(%s)", reg(l.Reg))
	case l.Offset >= 0:
		return fmt.Sprintf("-%d(%%rbp)", l.Offset)
	default:
		return fmt.Sprintf("%d(%%rbp)", -l.Offset)
	}
}

// emitInstr renders one instruction. Two-operand forms are printed
// source-then-destination, the AT&T convention (the reverse of the
// Intel-style "dst, src" that codegen.Instr's field names describe
// semantically; the field names never change, only the printed order).
func emitInstr(w io.Writer, in codegen.Instr) {
	switch in.Kind {
	case codegen.XPush:
		fmt.Fprintf(w, "    push %s\n", loc(in.Src))
	case codegen.XPop:
		fmt.Fprintf(w, "    pop %s\n", loc(in.Dst))
	case codegen.XMov:
		fmt.Fprintf(w, "    mov %s, %s\n", loc(in.Src), loc(in.Dst))
	case codegen.XMovImm:
		fmt.Fprintf(w, "    mov $%d, %s\n", in.Imm, loc(in.Dst))
	case codegen.XAdd:
		fmt.Fprintf(w, "    add %s, %s\n", loc(in.Src), loc(in.Dst))
	case codegen.XSub:
		fmt.Fprintf(w, "    sub %s, %s\n", loc(in.Src), loc(in.Dst))
	case codegen.XIMul:
		fmt.Fprintf(w, "    imul %s, %s\n", loc(in.Src), loc(in.Dst))
	case codegen.XSubImm:
		fmt.Fprintf(w, "    sub $%d, %s\n", in.Imm, loc(in.Dst))
	case codegen.XCdq:
		fmt.Fprintln(w, "    cdq")
	case codegen.XIdiv:
		fmt.Fprintf(w, "    idiv %s\n", loc(in.Src))
	case codegen.XLabel:
		fmt.Fprintf(w, "%s:\n", in.Label)
	case codegen.XJmp:
		fmt.Fprintf(w, "    jmp %s\n", in.Label)
	case codegen.XJmpCC:
		fmt.Fprintf(w, "    j%s %s\n", in.CC, in.Label)
	case codegen.XSetCC:
		fmt.Fprintf(w, "    set%s %s\n", in.CC, lowByteOperand(in.Dst))
	case codegen.XTest:
		fmt.Fprintf(w, "    test %s, %s\n", loc(in.Src), loc(in.Dst))
	case codegen.XCmp:
		fmt.Fprintf(w, "    cmp %s, %s\n", loc(in.Src), loc(in.Dst))
	case codegen.XNot:
		fmt.Fprintf(w, "    not %s\n", loc(in.Dst))
	case codegen.XNeg:
		fmt.Fprintf(w, "    neg %s\n", loc(in.Dst))
	case codegen.XCall:
		fmt.Fprintf(w, "    call %s\n", in.Func)
	case codegen.XSyscall:
		fmt.Fprintln(w, "    syscall")
	case codegen.XRet:
		fmt.Fprintln(w, "    ret")
	default:
		compileerr.Fail("unknown x86 instruction kind %d in emitter", int(in.Kind))
	}
}

// lowByteOperand renders a register operand's low-byte alias for SetCC,
// which can only ever target a register (spec.md §4.4's expansion table
// always stores SetCC's result into a scratch register).
func lowByteOperand(l codegen.Loc) string {
	if !l.IsReg {
		compileerr.Fail("SetCC destination %v is not a register", l)
	}
	return regLow8(l.Reg)
}
