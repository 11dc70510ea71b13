// Package codegen turns allocated TAC into a linear x86-64 instruction
// IR (spec.md §4.4), then either an assembly-text emitter (package
// asmtext) or the in-process interpreter below (interp.go) consumes it.
package codegen

import (
	"fmt"

	"github.com/ericwu2003/tcc/ast"
	"github.com/ericwu2003/tcc/compileerr"
)

// Reg names a 64-bit general-purpose register.
type Reg int

// The registers this generator ever names. RAX/RDX are reserved for
// division and syscall return/number; RDI/RSI are the common scratch
// pair (spec.md §4.4); RCX, R8, R9 round out the first six System V
// integer argument registers; R10/R11 are extra call-clobbered scratch.
const (
	Rax Reg = iota
	Rbx
	Rcx
	Rdx
	Rsi
	Rdi
	Rbp
	Rsp
	R8
	R9
	R10
	R11
)

var regNames = map[Reg]string{
	Rax: "rax", Rbx: "rbx", Rcx: "rcx", Rdx: "rdx",
	Rsi: "rsi", Rdi: "rdi", Rbp: "rbp", Rsp: "rsp",
	R8: "r8", R9: "r9", R10: "r10", R11: "r11",
}

func (r Reg) String() string {
	if n, ok := regNames[r]; ok {
		return n
	}
	compileerr.Fail("unknown register %d", int(r))
	return ""
}

// Low8 returns the low-byte sub-register name, used by SetCC.
func (r Reg) Low8() string {
	switch r {
	case Rax:
		return "al"
	case Rbx:
		return "bl"
	case Rcx:
		return "cl"
	case Rdx:
		return "dl"
	case Rsi:
		return "sil"
	case Rdi:
		return "dil"
	case R8:
		return "r8b"
	case R9:
		return "r9b"
	case R10:
		return "r10b"
	case R11:
		return "r11b"
	}
	compileerr.Fail("register %v has no low8 alias used by this generator", r)
	return ""
}

// ArgRegs holds the first six System V integer argument registers, in
// order.
var ArgRegs = []Reg{Rdi, Rsi, Rdx, Rcx, R8, R9}

// Loc is an operand location: a register, a frame-relative memory
// address rbp - Offset, or a register-indirect memory address [Reg]
// (the latter used only to dereference an array base-pointer value
// held in a scratch register — a supplemented addressing mode, since
// spec.md's Loc in §4.4 only ever names frame slots). A negative Offset
// addresses upward from rbp, used for a caller's stack-passed arguments
// beyond the sixth (spec.md §9's elaboration of the call ABI).
type Loc struct {
	IsReg      bool
	IsIndirect bool
	Reg        Reg
	Offset     int
}

// RegLoc builds a register operand.
func RegLoc(r Reg) Loc { return Loc{IsReg: true, Reg: r} }

// MemLoc builds a frame-relative memory operand at rbp - offset.
func MemLoc(offset int) Loc { return Loc{Offset: offset} }

// IndirectLoc builds a register-indirect memory operand [r].
func IndirectLoc(r Reg) Loc { return Loc{IsIndirect: true, Reg: r} }

func (l Loc) String() string {
	switch {
	case l.IsReg:
		return l.Reg.String()
	case l.IsIndirect:
		return fmt.Sprintf("[%s]", l.Reg)
	case l.Offset >= 0:
		return fmt.Sprintf("[rbp-%d]", l.Offset)
	default:
		return fmt.Sprintf("[rbp+%d]", -l.Offset)
	}
}

// CC is a condition code, mapped from ast.BinOp comparison operators
// (spec.md §4.4).
type CC int

// Condition codes.
const (
	CCE CC = iota
	CCNE
	CCL
	CCLE
	CCG
	CCGE
)

var ccNames = map[CC]string{
	CCE: "e", CCNE: "ne", CCL: "l", CCLE: "le", CCG: "g", CCGE: "ge",
}

func (cc CC) String() string { return ccNames[cc] }

// ccFor maps a comparison BinOp to its condition code, and reports
// whether op is a comparison at all.
func ccFor(op ast.BinOp) (CC, bool) {
	switch op {
	case ast.BinEquals:
		return CCE, true
	case ast.BinNotEquals:
		return CCNE, true
	case ast.BinLessThan:
		return CCL, true
	case ast.BinLessThanEq:
		return CCLE, true
	case ast.BinGreaterThan:
		return CCG, true
	case ast.BinGreaterThanEq:
		return CCGE, true
	default:
		return 0, false
	}
}

// InstrKind discriminates the x86 instruction variants listed in
// spec.md §4.4.
type InstrKind int

// Instruction variants.
const (
	XPush InstrKind = iota
	XPop
	XMov
	XMovImm
	XAdd
	XSub
	XIMul
	XSubImm
	XCdq
	XIdiv
	XLabel
	XJmp
	XJmpCC
	XSetCC
	XTest
	XCmp
	XNot
	XNeg
	XCall
	XSyscall
	// XRet is a necessary, minimal extension beyond spec.md §4.4's
	// closed X86Instr enumeration: that list was specified for a
	// single-function program terminated only via Exit, which never
	// needs to return control to a caller. SPEC_FULL.md §11's
	// multi-function addition does.
	XRet
)

// Instr is a tagged union over every x86 instruction variant this
// generator emits.
type Instr struct {
	Kind InstrKind

	Dst Loc
	Src Loc
	Imm int64

	Label string // XLabel, XJmp, XJmpCC target
	CC    CC     // XJmpCC, XSetCC

	Func string // XCall
}

func Push(src Loc) Instr          { return Instr{Kind: XPush, Src: src} }
func Pop(dst Loc) Instr           { return Instr{Kind: XPop, Dst: dst} }
func Mov(dst, src Loc) Instr      { return Instr{Kind: XMov, Dst: dst, Src: src} }
func MovImm(dst Loc, n int64) Instr { return Instr{Kind: XMovImm, Dst: dst, Imm: n} }
func Add(dst, src Loc) Instr      { return Instr{Kind: XAdd, Dst: dst, Src: src} }
func Sub(dst, src Loc) Instr      { return Instr{Kind: XSub, Dst: dst, Src: src} }
func IMul(dst, src Loc) Instr     { return Instr{Kind: XIMul, Dst: dst, Src: src} }
func SubImm(dst Loc, n int64) Instr { return Instr{Kind: XSubImm, Dst: dst, Imm: n} }
func Cdq() Instr                  { return Instr{Kind: XCdq} }
func Idiv(src Loc) Instr          { return Instr{Kind: XIdiv, Src: src} }
func LabelI(name string) Instr    { return Instr{Kind: XLabel, Label: name} }
func Jmp(name string) Instr       { return Instr{Kind: XJmp, Label: name} }
func JmpCC(cc CC, name string) Instr { return Instr{Kind: XJmpCC, CC: cc, Label: name} }
func SetCC(cc CC, dst Loc) Instr  { return Instr{Kind: XSetCC, CC: cc, Dst: dst} }
func Test(dst, src Loc) Instr     { return Instr{Kind: XTest, Dst: dst, Src: src} }
func Cmp(dst, src Loc) Instr      { return Instr{Kind: XCmp, Dst: dst, Src: src} }
func Not(dst Loc) Instr           { return Instr{Kind: XNot, Dst: dst} }
func Neg(dst Loc) Instr           { return Instr{Kind: XNeg, Dst: dst} }
func Call(fn string) Instr        { return Instr{Kind: XCall, Func: fn} }
func Syscall() Instr              { return Instr{Kind: XSyscall} }
func Ret() Instr                  { return Instr{Kind: XRet} }

// Func is one function's generated instruction stream.
type Func struct {
	Name       string
	FrameBytes int
	Instrs     []Instr
}
