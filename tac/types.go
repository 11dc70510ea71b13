// Package tac lowers an ast.Program into three-address code: a linear
// list of instructions referencing temporaries identified by (numeric
// id, size). This is THE CORE of the compiler (spec.md §1): expression
// evaluation ordering, short-circuit control flow, ternary control flow,
// increment/decrement semantics, function calls, and array-initializer
// lowering all live here, grounded on
// original_source/src/tac/expr.rs and array_init_expr.rs.
package tac

import (
	"fmt"

	"github.com/ericwu2003/tcc/ast"
	"github.com/ericwu2003/tcc/compileerr"
)

// Size is the width of a temporary or literal. The zero value is Byte;
// Dword (int) is the language's only user-visible width, Quad is used
// internally for array base-address pointers.
type Size int

// Size variants, ordered so that comparison implements the tie-break
// rule from spec.md §4.1: Quad > Dword > Word > Byte.
const (
	Byte Size = iota
	Word
	Dword
	Quad
)

// DefaultSize is used when no sibling or suggestion determines a bare
// integer literal's size (spec.md §4.1).
const DefaultSize = Dword

// Bytes returns the storage width of s in bytes.
func (s Size) Bytes() int {
	switch s {
	case Byte:
		return 1
	case Word:
		return 2
	case Dword:
		return 4
	case Quad:
		return 8
	}
	compileerr.Fail("unknown size %d", int(s))
	return 0
}

// maxSize implements the Quad > Dword > Word > Byte tie-break.
func maxSize(a, b Size) Size {
	if a > b {
		return a
	}
	return b
}

// Ident is a TAC identifier: a (unique numeric id, size) pair. Identifiers
// are created monotonically by Unit and are never reused within a
// compilation; every identifier must be written before it is read (spec.md
// §3), a property checked defensively by the allocator.
type Ident struct {
	ID   int
	Size Size
}

func (id Ident) String() string {
	return fmt.Sprintf("t%d", id.ID)
}

// ValKind discriminates the two TAC value variants.
type ValKind int

// Value variants.
const (
	ValLit ValKind = iota
	ValVar
)

// Val is a TAC value: either an immediate literal or a reference to an
// identifier.
type Val struct {
	Kind  ValKind
	Imm   int64
	Size  Size // meaningful when Kind == ValLit
	Ident Ident
}

// Lit builds an immediate literal value of the given size.
func Lit(v int64, sz Size) Val { return Val{Kind: ValLit, Imm: v, Size: sz} }

// VarVal builds a value referencing identifier id.
func VarVal(id Ident) Val { return Val{Kind: ValVar, Ident: id} }

// SizeOf returns the size that would be used to hold v.
func (v Val) SizeOf() Size {
	if v.Kind == ValLit {
		return v.Size
	}
	return v.Ident.Size
}

// InstrKind discriminates the TAC instruction variants of spec.md §3.
type InstrKind int

// Instruction variants. DerefLoad is a supplemented addition (SPEC_FULL.md
// §11): spec.md's DerefStore has no symmetric load, but reading an array
// element needs one.
const (
	IExit InstrKind = iota
	IFuncReturn
	IBinOp
	IUnOp
	ICopy
	ILabel
	IJmp
	IJmpZero
	IJmpNotZero
	ICall
	IDerefStore
	IDerefLoad
	IAllocArray
)

// Instr is a tagged union over every TAC instruction variant. Only the
// fields relevant to Kind are populated.
type Instr struct {
	Kind InstrKind

	Dst    Ident // BinOp/UnOp/Copy/DerefLoad/AllocArray destination; Call destination when HasDst
	HasDst bool  // Call only

	A Val // BinOp lhs; UnOp/Copy/Exit/JmpZero/JmpNotZero/DerefStore operand
	B Val // BinOp rhs

	BinOp ast.BinOp
	UnOp  ast.UnOp

	Label string // Label/Jmp/JmpZero/JmpNotZero target

	Func string // Call
	Args []Val  // Call

	Ptr   Ident // DerefStore/DerefLoad
	Bytes int   // AllocArray: total contiguous bytes to reserve
}

// Constructors. These exist so that call sites read like the instruction
// they build, mirroring the Rust TacInstr variant constructors in
// original_source/src/tac/expr.rs.

func ExitInstr(v Val) Instr { return Instr{Kind: IExit, A: v} }

// FuncReturnInstr returns from a non-entry-point function with v as its
// result (a supplemented multi-function addition, SPEC_FULL.md §11):
// unlike IExit, this terminates only the current call, not the process.
func FuncReturnInstr(v Val) Instr { return Instr{Kind: IFuncReturn, A: v} }

func BinOpInstr(dst Ident, a, b Val, op ast.BinOp) Instr {
	return Instr{Kind: IBinOp, Dst: dst, A: a, B: b, BinOp: op}
}

func UnOpInstr(dst Ident, v Val, op ast.UnOp) Instr {
	return Instr{Kind: IUnOp, Dst: dst, A: v, UnOp: op}
}

func CopyInstr(dst Ident, src Val) Instr { return Instr{Kind: ICopy, Dst: dst, A: src} }

func LabelInstr(name string) Instr { return Instr{Kind: ILabel, Label: name} }

func JmpInstr(name string) Instr { return Instr{Kind: IJmp, Label: name} }

func JmpZeroInstr(name string, v Val) Instr { return Instr{Kind: IJmpZero, Label: name, A: v} }

func JmpNotZeroInstr(name string, v Val) Instr { return Instr{Kind: IJmpNotZero, Label: name, A: v} }

func CallInstr(fn string, args []Val, dst *Ident) Instr {
	i := Instr{Kind: ICall, Func: fn, Args: args}
	if dst != nil {
		i.Dst = *dst
		i.HasDst = true
	}
	return i
}

func DerefStoreInstr(ptr Ident, v Val) Instr { return Instr{Kind: IDerefStore, Ptr: ptr, A: v} }

func DerefLoadInstr(dst Ident, ptr Ident) Instr { return Instr{Kind: IDerefLoad, Dst: dst, Ptr: ptr} }

func AllocArrayInstr(dst Ident, bytes int) Instr {
	return Instr{Kind: IAllocArray, Dst: dst, Bytes: bytes}
}

func valIdent(v Val) []Ident {
	if v.Kind == ValVar {
		return []Ident{v.Ident}
	}
	return nil
}

// ReadIdents returns the identifiers this instruction reads, in read
// order. Used by the allocator's single forward pass (spec.md §4.3).
func (i Instr) ReadIdents() []Ident {
	switch i.Kind {
	case IExit, IFuncReturn, IUnOp, ICopy, IJmpZero, IJmpNotZero:
		return valIdent(i.A)
	case IBinOp:
		return append(valIdent(i.A), valIdent(i.B)...)
	case ILabel, IJmp, IAllocArray:
		return nil
	case ICall:
		var ids []Ident
		for _, a := range i.Args {
			ids = append(ids, valIdent(a)...)
		}
		return ids
	case IDerefStore:
		return append([]Ident{i.Ptr}, valIdent(i.A)...)
	case IDerefLoad:
		return []Ident{i.Ptr}
	default:
		compileerr.Fail("unknown TacInstr kind %d in ReadIdents", int(i.Kind))
		return nil
	}
}

// WrittenIdent returns the identifier this instruction defines, if any.
func (i Instr) WrittenIdent() (Ident, bool) {
	switch i.Kind {
	case IBinOp, IUnOp, ICopy, IDerefLoad, IAllocArray:
		return i.Dst, true
	case ICall:
		return i.Dst, i.HasDst
	default:
		return Ident{}, false
	}
}
