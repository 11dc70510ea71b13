package tac

import (
	"github.com/ericwu2003/tcc/ast"
	"github.com/ericwu2003/tcc/compileerr"
)

// elemPtrSize is the size tag attached to every array base-address
// pointer and to the literal used to step one along an array, grounded
// on original_source/src/tac/array_init_expr.rs's pointer-threading
// design (spec.md §9's "declared extension point").
const elemPtrSize = Quad

// scalarElemBytes is the stride between two scalar array elements,
// matching ast.VarType.NumBytes's leaf case: every element access moves
// a full 64-bit register (codegen's DerefStore/DerefLoad), so the stride
// between elements must be 8, not the 4-byte Dword width a bare int
// value is sized at everywhere else.
const scalarElemBytes = 8

// LowerArrayDeclare lowers "int name[dims...] (= init)?" by reserving a
// contiguous region for the array and, if an initializer is present,
// threading a pointer through it element by element.
func LowerArrayDeclare(s *ast.Stmt, u *Unit) ([]Instr, error) {
	base := u.NewTemp(elemPtrSize)
	if err := u.Declare(s.Name, base, s.Pos); err != nil {
		return nil, err
	}
	instrs := []Instr{AllocArrayInstr(base, s.Type.NumBytes())}
	if s.Init == nil {
		return instrs, nil
	}
	// Thread a copy of the base pointer, so that base itself still points
	// at element 0 once the initializer has advanced past the last one.
	ptr := u.NewTemp(elemPtrSize)
	instrs = append(instrs, CopyInstr(ptr, VarVal(base)))
	initInstrs, err := lowerArrInitExpr(s.Type, s.Init, ptr, u)
	if err != nil {
		return nil, err
	}
	return append(instrs, initInstrs...), nil
}

// lowerArrInitExpr walks a (possibly nested) ExprArrInit, threading a
// pointer to the "current" element through a running Copy + pointer
// advance, storing scalar elements via DerefStore and recursing into a
// fresh pointer copy for nested array elements. This is the direct
// Go-idiom rendering of generate_arr_init_expr_tac in
// original_source/src/tac/array_init_expr.rs.
func lowerArrInitExpr(ty ast.VarType, initExpr *ast.Expr, ptr Ident, u *Unit) ([]Instr, error) {
	if ty.Elem == nil {
		return nil, &compileerr.SemanticError{Pos: initExpr.Pos, Msg: "initializer braces used on a non-array declaration"}
	}
	elemBytes := int64(ty.Elem.NumBytes())

	var instrs []Instr
	for _, elem := range initExpr.Elems {
		if elem.Kind == ast.ExprArrInit {
			if !ty.Elem.IsArray() {
				return nil, &compileerr.SemanticError{Pos: elem.Pos, Msg: "nested initializer brace for a scalar array element"}
			}
			nested := u.NewTemp(elemPtrSize)
			instrs = append(instrs, CopyInstr(nested, VarVal(ptr)))
			innerInstrs, err := lowerArrInitExpr(*ty.Elem, elem, nested, u)
			if err != nil {
				return nil, err
			}
			instrs = append(instrs, innerInstrs...)
		} else {
			exprInstrs, val, err := LowerExpr(elem, u, nil, nil)
			if err != nil {
				return nil, err
			}
			instrs = append(instrs, exprInstrs...)
			instrs = append(instrs, DerefStoreInstr(ptr, val))
		}
		instrs = append(instrs, BinOpInstr(ptr, VarVal(ptr), Lit(elemBytes, elemPtrSize), ast.BinPlus))
	}
	return instrs, nil
}

// lowerIndexRead lowers "array[index]" by computing the target address
// (base + index*elemBytes) and loading from it. Scope is deliberately
// narrow: only indexing directly into a declared array variable is
// supported, not a chain of nested index expressions, since this
// language carries no static type checker to resolve the element type
// of an arbitrary sub-expression.
func lowerIndexRead(e *ast.Expr, u *Unit, target *Ident, suggested *Size) ([]Instr, Val, error) {
	instrs, addr, err := lowerElementAddress(e, u)
	if err != nil {
		return nil, Val{}, err
	}
	var dst Ident
	if target != nil {
		dst = *target
	} else {
		dst = u.NewTemp(sizeOrDefault(suggested))
	}
	instrs = append(instrs, DerefLoadInstr(dst, addr))
	return instrs, VarVal(dst), nil
}

// lowerIndexAssign lowers "array[index] = value".
func lowerIndexAssign(e *ast.Expr, u *Unit, target *Ident) ([]Instr, Val, error) {
	instrs, addr, err := lowerElementAddress(e, u)
	if err != nil {
		return nil, Val{}, err
	}
	valInstrs, val, err := LowerExpr(e.Value, u, nil, nil)
	if err != nil {
		return nil, Val{}, err
	}
	instrs = append(instrs, valInstrs...)
	instrs = append(instrs, DerefStoreInstr(addr, val))
	if target != nil {
		instrs = append(instrs, CopyInstr(*target, val))
		return instrs, VarVal(*target), nil
	}
	return instrs, val, nil
}

// lowerElementAddress lowers e.Array[e.Index] down to a fresh pointer
// identifier holding the element's address.
func lowerElementAddress(e *ast.Expr, u *Unit) ([]Instr, Ident, error) {
	if e.Array.Kind != ast.ExprVar {
		return nil, Ident{}, &compileerr.SemanticError{Pos: e.Pos, Msg: "array indexing is only supported directly on a declared array variable"}
	}
	base, err := u.Resolve(e.Array.Name, e.Array.Pos)
	if err != nil {
		return nil, Ident{}, err
	}
	idxInstrs, idxVal, err := LowerExpr(e.Index, u, nil, nil)
	if err != nil {
		return nil, Ident{}, err
	}
	instrs := append([]Instr{}, idxInstrs...)

	offset := u.NewTemp(elemPtrSize)
	instrs = append(instrs, BinOpInstr(offset, idxVal, Lit(scalarElemBytes, elemPtrSize), ast.BinMultiply))

	addr := u.NewTemp(elemPtrSize)
	instrs = append(instrs, BinOpInstr(addr, VarVal(base), VarVal(offset), ast.BinPlus))

	return instrs, addr, nil
}
