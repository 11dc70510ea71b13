package tac

import (
	"github.com/ericwu2003/tcc/ast"
)

// getExprSize infers the size an expression's result would occupy
// without lowering it, used to size a target temporary before recursing.
// It returns (size, false) when the expression gives no information on
// its own (a bare integer literal), mirroring get_expr_size in
// original_source/src/tac/expr.rs: declared size for variables and
// self-referential ops, the max of children for BinOp/Ternary, the
// default size for calls, and unknown for bare literals.
func getExprSize(e *ast.Expr, u *Unit) (Size, bool) {
	switch e.Kind {
	case ast.ExprVar, ast.ExprAssign, ast.ExprPrefixInc, ast.ExprPrefixDec,
		ast.ExprPostfixInc, ast.ExprPostfixDec:
		if id, err := u.Resolve(e.Name, e.Pos); err == nil {
			return id.Size, true
		}
		return DefaultSize, false
	case ast.ExprBinOp:
		a, aok := getExprSize(e.LHS, u)
		b, bok := getExprSize(e.RHS, u)
		switch {
		case aok && bok:
			return maxSize(a, b), true
		case aok:
			return a, true
		case bok:
			return b, true
		default:
			return DefaultSize, false
		}
	case ast.ExprTernary:
		a, aok := getExprSize(e.Then, u)
		b, bok := getExprSize(e.Else, u)
		switch {
		case aok && bok:
			return maxSize(a, b), true
		case aok:
			return a, true
		case bok:
			return b, true
		default:
			return DefaultSize, false
		}
	case ast.ExprUnOp:
		return getExprSize(e.Value, u)
	case ast.ExprCall, ast.ExprIndex:
		return DefaultSize, true
	default:
		return DefaultSize, false
	}
}

func sizeOrDefault(suggested *Size) Size {
	if suggested != nil {
		return *suggested
	}
	return DefaultSize
}

// LowerExpr lowers e into a list of TAC instructions plus the TAC value
// holding its result. target, when non-nil, forces the result into that
// identifier (e.g. assignment's lhs); suggested, when non-nil and target
// is nil, sizes a fresh temporary that would otherwise fall back to
// DefaultSize. When target is supplied the returned Val is always
// VarVal(*target).
func LowerExpr(e *ast.Expr, u *Unit, target *Ident, suggested *Size) ([]Instr, Val, error) {
	switch e.Kind {
	case ast.ExprIntLit:
		return lowerIntLit(e, u, target, suggested)
	case ast.ExprVar:
		return lowerVar(e, u, target)
	case ast.ExprAssign:
		return lowerAssign(e, u, target)
	case ast.ExprUnOp:
		return lowerUnOp(e, u, target, suggested)
	case ast.ExprBinOp:
		if e.BinOp.IsShortCircuit() {
			return lowerShortCircuit(e, u, target)
		}
		return lowerBinOp(e, u, target, suggested)
	case ast.ExprTernary:
		return lowerTernary(e, u, target, suggested)
	case ast.ExprCall:
		return lowerCall(e, u, target)
	case ast.ExprPrefixInc:
		return lowerIncDec(e, u, target, ast.BinPlus, true)
	case ast.ExprPrefixDec:
		return lowerIncDec(e, u, target, ast.BinMinus, true)
	case ast.ExprPostfixInc:
		return lowerIncDec(e, u, target, ast.BinPlus, false)
	case ast.ExprPostfixDec:
		return lowerIncDec(e, u, target, ast.BinMinus, false)
	case ast.ExprIndex:
		return lowerIndexRead(e, u, target, suggested)
	case ast.ExprIndexAssign:
		return lowerIndexAssign(e, u, target)
	default:
		panic("tac: LowerExpr called on a non-expression kind; ExprArrInit is lowered by lowerArrInitExpr")
	}
}

func lowerIntLit(e *ast.Expr, u *Unit, target *Ident, suggested *Size) ([]Instr, Val, error) {
	if target != nil {
		return []Instr{CopyInstr(*target, Lit(e.IntVal, target.Size))}, VarVal(*target), nil
	}
	return nil, Lit(e.IntVal, sizeOrDefault(suggested)), nil
}

func lowerVar(e *ast.Expr, u *Unit, target *Ident) ([]Instr, Val, error) {
	id, err := u.Resolve(e.Name, e.Pos)
	if err != nil {
		return nil, Val{}, err
	}
	if target != nil {
		return []Instr{CopyInstr(*target, VarVal(id))}, VarVal(*target), nil
	}
	return nil, VarVal(id), nil
}

// lowerAssign lowers "name = value", lowering value directly into name's
// own identifier as its target (so no spurious Copy is emitted), then
// copying into the outer target if one was supplied.
func lowerAssign(e *ast.Expr, u *Unit, target *Ident) ([]Instr, Val, error) {
	id, err := u.Resolve(e.Name, e.Pos)
	if err != nil {
		return nil, Val{}, err
	}
	sz := id.Size
	instrs, val, err := LowerExpr(e.Value, u, &id, &sz)
	if err != nil {
		return nil, Val{}, err
	}
	if target != nil {
		instrs = append(instrs, CopyInstr(*target, val))
		return instrs, VarVal(*target), nil
	}
	return instrs, val, nil
}

func lowerUnOp(e *ast.Expr, u *Unit, target *Ident, suggested *Size) ([]Instr, Val, error) {
	var finalTemp Ident
	if target != nil {
		finalTemp = *target
	} else {
		sz, ok := getExprSize(e.Value, u)
		if !ok {
			sz = sizeOrDefault(suggested)
		}
		finalTemp = u.NewTemp(sz)
	}
	instrs, val, err := LowerExpr(e.Value, u, nil, nil)
	if err != nil {
		return nil, Val{}, err
	}
	instrs = append(instrs, UnOpInstr(finalTemp, val, e.UnOp))
	return instrs, VarVal(finalTemp), nil
}

func lowerBinOp(e *ast.Expr, u *Unit, target *Ident, suggested *Size) ([]Instr, Val, error) {
	var finalTemp Ident
	if target != nil {
		finalTemp = *target
	} else {
		aSz, aok := getExprSize(e.LHS, u)
		bSz, bok := getExprSize(e.RHS, u)
		var sz Size
		switch {
		case aok && bok:
			sz = maxSize(aSz, bSz)
		case aok:
			sz = aSz
		case bok:
			sz = bSz
		default:
			sz = sizeOrDefault(suggested)
		}
		finalTemp = u.NewTemp(sz)
	}
	aInstrs, aVal, err := LowerExpr(e.LHS, u, nil, nil)
	if err != nil {
		return nil, Val{}, err
	}
	bInstrs, bVal, err := LowerExpr(e.RHS, u, nil, nil)
	if err != nil {
		return nil, Val{}, err
	}
	instrs := append(aInstrs, bInstrs...)
	instrs = append(instrs, BinOpInstr(finalTemp, aVal, bVal, e.BinOp))
	return instrs, VarVal(finalTemp), nil
}

// lowerShortCircuit lowers && and || via a pair of labels rather than
// via BinOp, so that the right operand is only evaluated when its value
// can change the result (spec.md §4.1).
func lowerShortCircuit(e *ast.Expr, u *Unit, target *Ident) ([]Instr, Val, error) {
	var result Ident
	if target != nil {
		result = *target
	} else {
		result = u.NewTemp(DefaultSize)
	}

	aInstrs, aVal, err := LowerExpr(e.LHS, u, nil, nil)
	if err != nil {
		return nil, Val{}, err
	}

	// spec.md §4.1's literal sequence computes the right operand's
	// truthiness via BinOp(t', b, Lit(0), NotEquals); this lowers it with
	// a second JmpZero/JmpNotZero instead, an equivalent 0/1 result
	// reached with one more instruction (see DESIGN.md).
	isAnd := e.BinOp == ast.BinLogicalAnd
	branch := u.NewLabel("short_circuit")
	end := u.NewLabel("end")

	instrs := append([]Instr{}, aInstrs...)
	// && branches to branch (-> result 0) as soon as a is false;
	// || branches to branch (-> result 1) as soon as a is true.
	if isAnd {
		instrs = append(instrs, JmpZeroInstr(branch, aVal))
	} else {
		instrs = append(instrs, JmpNotZeroInstr(branch, aVal))
	}

	bInstrs, bVal, err := LowerExpr(e.RHS, u, nil, nil)
	if err != nil {
		return nil, Val{}, err
	}
	instrs = append(instrs, bInstrs...)
	if isAnd {
		instrs = append(instrs, JmpZeroInstr(branch, bVal))
		instrs = append(instrs, CopyInstr(result, Lit(1, DefaultSize)))
	} else {
		instrs = append(instrs, JmpNotZeroInstr(branch, bVal))
		instrs = append(instrs, CopyInstr(result, Lit(0, DefaultSize)))
	}
	instrs = append(instrs, JmpInstr(end))
	instrs = append(instrs, LabelInstr(branch))
	if isAnd {
		instrs = append(instrs, CopyInstr(result, Lit(0, DefaultSize)))
	} else {
		instrs = append(instrs, CopyInstr(result, Lit(1, DefaultSize)))
	}
	instrs = append(instrs, LabelInstr(end))

	return instrs, VarVal(result), nil
}

func lowerTernary(e *ast.Expr, u *Unit, target *Ident, suggested *Size) ([]Instr, Val, error) {
	var result Ident
	if target != nil {
		result = *target
	} else {
		aSz, aok := getExprSize(e.Then, u)
		bSz, bok := getExprSize(e.Else, u)
		var sz Size
		switch {
		case aok && bok:
			sz = maxSize(aSz, bSz)
		case aok:
			sz = aSz
		case bok:
			sz = bSz
		default:
			sz = sizeOrDefault(suggested)
		}
		result = u.NewTemp(sz)
	}

	condInstrs, condVal, err := LowerExpr(e.Cond, u, nil, nil)
	if err != nil {
		return nil, Val{}, err
	}
	elseLabel := u.NewLabel("ternary_else")
	end := u.NewLabel("ternary_end")

	instrs := append([]Instr{}, condInstrs...)
	instrs = append(instrs, JmpZeroInstr(elseLabel, condVal))

	thenInstrs, thenVal, err := LowerExpr(e.Then, u, &result, nil)
	if err != nil {
		return nil, Val{}, err
	}
	instrs = append(instrs, thenInstrs...)
	_ = thenVal
	instrs = append(instrs, JmpInstr(end))

	instrs = append(instrs, LabelInstr(elseLabel))
	elseInstrs, elseVal, err := LowerExpr(e.Else, u, &result, nil)
	if err != nil {
		return nil, Val{}, err
	}
	instrs = append(instrs, elseInstrs...)
	_ = elseVal
	instrs = append(instrs, LabelInstr(end))

	return instrs, VarVal(result), nil
}

// lowerCall evaluates arguments left to right, then emits Call. A
// destination identifier is always allocated, even if its value is
// later discarded by a caller lowering a bare expression statement,
// since every call expression must still produce a TAC value under the
// generic lowering contract.
func lowerCall(e *ast.Expr, u *Unit, target *Ident) ([]Instr, Val, error) {
	var instrs []Instr
	args := make([]Val, 0, len(e.Args))
	for _, a := range e.Args {
		argInstrs, val, err := LowerExpr(a, u, nil, nil)
		if err != nil {
			return nil, Val{}, err
		}
		instrs = append(instrs, argInstrs...)
		args = append(args, val)
	}
	var dst Ident
	if target != nil {
		dst = *target
	} else {
		dst = u.NewTemp(DefaultSize)
	}
	instrs = append(instrs, CallInstr(e.Name, args, &dst))
	return instrs, VarVal(dst), nil
}

// lowerIncDec lowers both prefix and postfix ++/--. Prefix yields the
// post-increment value; postfix yields the pre-increment value, so the
// old value is saved into a fresh temporary before the variable is
// mutated.
func lowerIncDec(e *ast.Expr, u *Unit, target *Ident, op ast.BinOp, prefix bool) ([]Instr, Val, error) {
	id, err := u.Resolve(e.Name, e.Pos)
	if err != nil {
		return nil, Val{}, err
	}

	var instrs []Instr
	var resultVal Val
	if prefix {
		instrs = append(instrs, BinOpInstr(id, VarVal(id), Lit(1, id.Size), op))
		resultVal = VarVal(id)
	} else {
		old := u.NewTemp(id.Size)
		instrs = append(instrs, CopyInstr(old, VarVal(id)))
		instrs = append(instrs, BinOpInstr(id, VarVal(id), Lit(1, id.Size), op))
		resultVal = VarVal(old)
	}

	if target != nil {
		instrs = append(instrs, CopyInstr(*target, resultVal))
		return instrs, VarVal(*target), nil
	}
	return instrs, resultVal, nil
}
