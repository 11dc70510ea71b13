package tac

import (
	"text/scanner"

	"github.com/ericwu2003/tcc/ast"
	"github.com/ericwu2003/tcc/compileerr"
)

// Function holds one function's lowered instruction stream, as produced
// by LowerProgram.
type Function struct {
	Name   string
	Params []Ident
	Instrs []Instr
}

// Program is the lowered form of an ast.Program: one instruction stream
// per function, used by the allocator and codegen to emit one assembly
// routine per function.
type Program struct {
	Functions []Function
}

// LowerProgram lowers every function in prog, in declaration order. A
// single Unit is shared across all of them so that temporary ids and
// label names stay unique across the whole compiled unit, while each
// function gets its own fresh lexical and loop-label stacks. prog must
// declare a "main" function (SPEC_FULL.md §11's required entry point);
// otherwise this returns a SemanticError rather than letting codegen
// emit a "call main" to an undefined label.
func LowerProgram(prog *ast.Program) (*Program, error) {
	if _, ok := prog.EntryPoint(); !ok {
		var pos scanner.Position
		if len(prog.Functions) > 0 {
			pos = prog.Functions[0].Pos
		}
		return nil, &compileerr.SemanticError{Pos: pos, Msg: "program has no main function"}
	}
	u := NewUnit()
	out := &Program{}
	for _, fn := range prog.Functions {
		lowered, err := lowerFunction(fn, u)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, *lowered)
	}
	return out, nil
}

func lowerFunction(fn *ast.Function, u *Unit) (*Function, error) {
	isMain := fn.Name == "main"
	u.BeginFunction(isMain)
	var instrs []Instr
	params := make([]Ident, 0, len(fn.Params))
	for _, p := range fn.Params {
		id := u.NewTemp(DefaultSize)
		if err := u.Declare(p.Name, id, fn.Pos); err != nil {
			return nil, err
		}
		params = append(params, id)
	}
	for _, s := range fn.Body {
		stmtInstrs, err := lowerStmt(s, u)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, stmtInstrs...)
	}
	// A function falling off its closing brace without a return
	// terminates with an implicit "return 0" (spec.md §9's recommended
	// safety net, generalized from main to every function).
	if isMain {
		instrs = append(instrs, ExitInstr(Lit(0, DefaultSize)))
	} else {
		instrs = append(instrs, FuncReturnInstr(Lit(0, DefaultSize)))
	}
	return &Function{Name: fn.Name, Params: params, Instrs: instrs}, nil
}

func lowerStmt(s *ast.Stmt, u *Unit) ([]Instr, error) {
	switch s.Kind {
	case ast.StmtReturn:
		instrs, val, err := LowerExpr(s.Expr, u, nil, nil)
		if err != nil {
			return nil, err
		}
		if u.InMain() {
			return append(instrs, ExitInstr(val)), nil
		}
		return append(instrs, FuncReturnInstr(val)), nil
	case ast.StmtDeclare:
		return lowerDeclare(s, u)
	case ast.StmtExpr:
		instrs, _, err := LowerExpr(s.Expr, u, nil, nil)
		return instrs, err
	case ast.StmtIf:
		return lowerIf(s, u)
	case ast.StmtWhile:
		return lowerWhile(s, u)
	case ast.StmtFor:
		return lowerFor(s, u)
	case ast.StmtCompound:
		return lowerCompound(s, u)
	case ast.StmtBreak:
		label, err := u.BreakLabel(s.Pos)
		if err != nil {
			return nil, err
		}
		return []Instr{JmpInstr(label)}, nil
	case ast.StmtContinue:
		label, err := u.ContinueLabel(s.Pos)
		if err != nil {
			return nil, err
		}
		return []Instr{JmpInstr(label)}, nil
	case ast.StmtEmpty:
		return nil, nil
	default:
		compileerr.Fail("unknown StmtKind %d", int(s.Kind))
		return nil, nil
	}
}

func lowerDeclare(s *ast.Stmt, u *Unit) ([]Instr, error) {
	if s.Type.IsArray() {
		return LowerArrayDeclare(s, u)
	}
	id := u.NewTemp(DefaultSize)
	if err := u.Declare(s.Name, id, s.Pos); err != nil {
		return nil, err
	}
	if s.Init == nil {
		return nil, nil
	}
	instrs, _, err := LowerExpr(s.Init, u, &id, nil)
	return instrs, err
}

func lowerCompound(s *ast.Stmt, u *Unit) ([]Instr, error) {
	u.PushScope()
	defer u.PopScope()
	var instrs []Instr
	for _, inner := range s.Stmts {
		innerInstrs, err := lowerStmt(inner, u)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, innerInstrs...)
	}
	return instrs, nil
}

func lowerIf(s *ast.Stmt, u *Unit) ([]Instr, error) {
	condInstrs, condVal, err := LowerExpr(s.Cond, u, nil, nil)
	if err != nil {
		return nil, err
	}
	elseLabel := u.NewLabel("else")
	end := u.NewLabel("if_end")

	instrs := append([]Instr{}, condInstrs...)
	instrs = append(instrs, JmpZeroInstr(elseLabel, condVal))

	thenInstrs, err := lowerStmt(s.Then, u)
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, thenInstrs...)

	if s.Else != nil {
		instrs = append(instrs, JmpInstr(end))
		instrs = append(instrs, LabelInstr(elseLabel))
		elseInstrs, err := lowerStmt(s.Else, u)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, elseInstrs...)
		instrs = append(instrs, LabelInstr(end))
	} else {
		instrs = append(instrs, LabelInstr(elseLabel))
	}
	return instrs, nil
}

func lowerWhile(s *ast.Stmt, u *Unit) ([]Instr, error) {
	top := u.NewLabel("while_top")
	end := u.NewLabel("while_end")

	condInstrs, condVal, err := LowerExpr(s.Cond, u, nil, nil)
	if err != nil {
		return nil, err
	}

	instrs := []Instr{LabelInstr(top)}
	instrs = append(instrs, condInstrs...)
	instrs = append(instrs, JmpZeroInstr(end, condVal))

	u.PushLoop(end, top)
	bodyInstrs, err := lowerStmt(s.Body, u)
	u.PopLoop()
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, bodyInstrs...)
	instrs = append(instrs, JmpInstr(top))
	instrs = append(instrs, LabelInstr(end))
	return instrs, nil
}

// lowerFor desugars into the equivalent while loop, except that continue
// must still run the post expression before re-testing the condition
// (spec.md §4.2's for-loop edge case), so the loop's continue target is
// its own post-label rather than the condition check.
func lowerFor(s *ast.Stmt, u *Unit) ([]Instr, error) {
	u.PushScope()
	defer u.PopScope()

	var instrs []Instr
	if s.ForInit != nil {
		initInstrs, err := lowerStmt(s.ForInit, u)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, initInstrs...)
	}

	top := u.NewLabel("for_top")
	post := u.NewLabel("for_post")
	end := u.NewLabel("for_end")

	instrs = append(instrs, LabelInstr(top))
	if s.Cond != nil {
		condInstrs, condVal, err := LowerExpr(s.Cond, u, nil, nil)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, condInstrs...)
		instrs = append(instrs, JmpZeroInstr(end, condVal))
	}

	u.PushLoop(end, post)
	bodyInstrs, err := lowerStmt(s.Body, u)
	u.PopLoop()
	if err != nil {
		return nil, err
	}
	instrs = append(instrs, bodyInstrs...)

	instrs = append(instrs, LabelInstr(post))
	if s.ForPost != nil {
		postInstrs, _, err := LowerExpr(s.ForPost, u, nil, nil)
		if err != nil {
			return nil, err
		}
		instrs = append(instrs, postInstrs...)
	}
	instrs = append(instrs, JmpInstr(top))
	instrs = append(instrs, LabelInstr(end))
	return instrs, nil
}
