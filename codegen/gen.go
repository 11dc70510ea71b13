package codegen

import (
	"github.com/ericwu2003/tcc/ast"
	"github.com/ericwu2003/tcc/compileerr"
	"github.com/ericwu2003/tcc/tac"
)

// exitSyscallNumber is the Linux x86-64 syscall number for exit (spec.md
// §1: process termination is always via the exit syscall).
const exitSyscallNumber = 60

// GenProgram lowers every function's TAC into an x86-64 instruction
// stream, one Allocator pass per function (spec.md §4.4).
func GenProgram(prog *tac.Program) ([]Func, error) {
	out := make([]Func, 0, len(prog.Functions))
	for _, fn := range prog.Functions {
		f, err := genFunction(fn)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, nil
}

func genFunction(fn tac.Function) (*Func, error) {
	alloc := Build(fn.Instrs, fn.Params...)

	g := &gen{alloc: alloc}
	g.emit(Push(RegLoc(Rbp)))
	g.emit(Mov(RegLoc(Rbp), RegLoc(Rsp)))
	if alloc.FrameBytes() > 0 {
		g.emit(SubImm(RegLoc(Rsp), int64(alloc.FrameBytes())))
	}

	for i, p := range fn.Params {
		dst := alloc.Loc(p)
		if i < len(ArgRegs) {
			g.emit(Mov(dst, RegLoc(ArgRegs[i])))
		} else {
			// Arrived on the caller's stack above the return address,
			// per the overflow-argument convention genCall below uses.
			overflowIdx := i - len(ArgRegs)
			g.emit(Mov(RegLoc(Rdi), MemLoc(-(16 + 8*overflowIdx))))
			g.emit(Mov(dst, RegLoc(Rdi)))
		}
	}

	for _, instr := range fn.Instrs {
		if err := g.genInstr(instr); err != nil {
			return nil, err
		}
	}

	g.emit(Mov(RegLoc(Rsp), RegLoc(Rbp)))
	g.emit(Pop(RegLoc(Rbp)))

	return &Func{Name: fn.Name, FrameBytes: alloc.FrameBytes(), Instrs: g.instrs}, nil
}

// gen accumulates one function's instruction stream.
type gen struct {
	alloc  *Allocator
	instrs []Instr
}

func (g *gen) emit(i Instr) { g.instrs = append(g.instrs, i) }

// load emits the instructions to load v into register r, per spec.md
// §4.4's "loading a value v into register R" rule.
func (g *gen) load(v tac.Val, r Reg) {
	if v.Kind == tac.ValLit {
		g.emit(MovImm(RegLoc(r), v.Imm))
		return
	}
	g.emit(Mov(RegLoc(r), g.alloc.Loc(v.Ident)))
}

func (g *gen) store(dst tac.Ident, r Reg) {
	g.emit(Mov(g.alloc.Loc(dst), RegLoc(r)))
}

func (g *gen) genInstr(instr tac.Instr) error {
	switch instr.Kind {
	case tac.IExit:
		g.load(instr.A, Rdi)
		g.emit(MovImm(RegLoc(Rax), exitSyscallNumber))
		g.emit(Syscall())
	case tac.IFuncReturn:
		g.load(instr.A, Rax)
		g.emit(Mov(RegLoc(Rsp), RegLoc(Rbp)))
		g.emit(Pop(RegLoc(Rbp)))
		g.emit(Ret())
	case tac.ICopy:
		g.load(instr.A, Rdi)
		g.store(instr.Dst, Rdi)
	case tac.IBinOp:
		return g.genBinOp(instr)
	case tac.IUnOp:
		return g.genUnOp(instr)
	case tac.ILabel:
		g.emit(LabelI(instr.Label))
	case tac.IJmp:
		g.emit(Jmp(instr.Label))
	case tac.IJmpZero:
		g.load(instr.A, Rdi)
		g.emit(Test(RegLoc(Rdi), RegLoc(Rdi)))
		g.emit(JmpCC(CCE, instr.Label))
	case tac.IJmpNotZero:
		g.load(instr.A, Rdi)
		g.emit(Test(RegLoc(Rdi), RegLoc(Rdi)))
		g.emit(JmpCC(CCNE, instr.Label))
	case tac.ICall:
		g.genCall(instr)
	case tac.IDerefStore:
		g.emit(Mov(RegLoc(Rdi), g.alloc.Loc(instr.Ptr)))
		g.load(instr.A, Rsi)
		g.emit(Mov(IndirectLoc(Rdi), RegLoc(Rsi)))
	case tac.IDerefLoad:
		g.emit(Mov(RegLoc(Rdi), g.alloc.Loc(instr.Ptr)))
		g.emit(Mov(RegLoc(Rsi), IndirectLoc(Rdi)))
		g.store(instr.Dst, Rsi)
	case tac.IAllocArray:
		g.genAllocArray(instr)
	default:
		compileerr.Fail("unknown TacInstr kind %d in codegen", int(instr.Kind))
	}
	return nil
}

// genAllocArray computes the address of the array's reserved region
// (rbp - offset) and stores it into the base identifier's own scalar
// slot, establishing pointer semantics for the rest of ArrInitExpr/Index
// lowering. Built only from Mov and SubImm, both already in spec.md
// §4.4's instruction vocabulary — no Lea needed.
func (g *gen) genAllocArray(instr tac.Instr) {
	off := g.alloc.ArrayBaseOffset(instr.Dst)
	g.emit(Mov(RegLoc(Rdi), RegLoc(Rbp)))
	if off != 0 {
		g.emit(SubImm(RegLoc(Rdi), int64(off)))
	}
	g.store(instr.Dst, Rdi)
}

func (g *gen) genBinOp(instr tac.Instr) error {
	if cc, ok := ccFor(instr.BinOp); ok {
		g.load(instr.A, Rdi)
		g.load(instr.B, Rsi)
		g.emit(Cmp(RegLoc(Rdi), RegLoc(Rsi)))
		g.emit(MovImm(RegLoc(Rdi), 0))
		g.emit(SetCC(cc, RegLoc(Rdi)))
		g.store(instr.Dst, Rdi)
		return nil
	}
	switch instr.BinOp {
	case ast.BinPlus:
		g.load(instr.A, Rdi)
		g.load(instr.B, Rsi)
		g.emit(Add(RegLoc(Rdi), RegLoc(Rsi)))
		g.store(instr.Dst, Rdi)
	case ast.BinMinus:
		g.load(instr.A, Rdi)
		g.load(instr.B, Rsi)
		g.emit(Sub(RegLoc(Rdi), RegLoc(Rsi)))
		g.store(instr.Dst, Rdi)
	case ast.BinMultiply:
		g.load(instr.A, Rdi)
		g.load(instr.B, Rsi)
		g.emit(IMul(RegLoc(Rdi), RegLoc(Rsi)))
		g.store(instr.Dst, Rdi)
	case ast.BinDivide:
		g.load(instr.A, Rax)
		g.emit(Cdq())
		g.load(instr.B, Rdi)
		g.emit(Idiv(RegLoc(Rdi)))
		g.store(instr.Dst, Rax)
	case ast.BinModulus:
		g.load(instr.A, Rax)
		g.emit(Cdq())
		g.load(instr.B, Rdi)
		g.emit(Idiv(RegLoc(Rdi)))
		g.store(instr.Dst, Rdx)
	default:
		compileerr.Fail("unknown BinOp %d in codegen", int(instr.BinOp))
	}
	return nil
}

func (g *gen) genUnOp(instr tac.Instr) error {
	switch instr.UnOp {
	case ast.UnNegation:
		g.load(instr.A, Rdi)
		g.emit(Neg(RegLoc(Rdi)))
		g.store(instr.Dst, Rdi)
	case ast.UnBitwiseComplement:
		g.load(instr.A, Rdi)
		g.emit(Not(RegLoc(Rdi)))
		g.store(instr.Dst, Rdi)
	case ast.UnLogicalNot:
		g.load(instr.A, Rdi)
		g.emit(Test(RegLoc(Rdi), RegLoc(Rdi)))
		g.emit(MovImm(RegLoc(Rdi), 0))
		g.emit(SetCC(CCE, RegLoc(Rdi)))
		g.store(instr.Dst, Rdi)
	default:
		compileerr.Fail("unknown UnOp %d in codegen", int(instr.UnOp))
	}
	return nil
}

// genCall implements the System V integer calling convention for the
// first six arguments and a stack-spill-plus-16-byte-realignment
// convention for the rest (spec.md §9's recommendation). Overflow
// arguments are pushed in reverse order so the leftmost overflow
// argument ends up at [rsp] at the call site, then popped off (into a
// scratch register, discarding the value) after the call returns to
// restore the stack pointer — built only from Push/Pop, already in
// spec.md §4.4's instruction vocabulary.
func (g *gen) genCall(instr tac.Instr) {
	overflow := instr.Args
	if len(overflow) > len(ArgRegs) {
		overflow = overflow[len(ArgRegs):]
	} else {
		overflow = nil
	}

	if len(overflow)%2 != 0 {
		g.emit(Push(RegLoc(Rax))) // alignment padding; value is irrelevant
	}
	for i := len(overflow) - 1; i >= 0; i-- {
		g.load(overflow[i], Rdi)
		g.emit(Push(RegLoc(Rdi)))
	}

	regArgs := instr.Args
	if len(regArgs) > len(ArgRegs) {
		regArgs = regArgs[:len(ArgRegs)]
	}
	for i, a := range regArgs {
		g.load(a, ArgRegs[i])
	}

	g.emit(Call(instr.Func))

	popCount := len(overflow)
	if len(overflow)%2 != 0 {
		popCount++
	}
	for i := 0; i < popCount; i++ {
		g.emit(Pop(RegLoc(Rdi)))
	}

	if instr.HasDst {
		g.store(instr.Dst, Rax)
	}
}
