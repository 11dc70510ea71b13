package parser

import (
	"strconv"

	"github.com/ericwu2003/tcc/ast"
	"github.com/ericwu2003/tcc/compileerr"
	"github.com/ericwu2003/tcc/token"
)

// Parse turns a token stream into an ast.Program: a sequence of function
// definitions, each beginning with a type keyword (spec.md §7: "function
// definition not beginning with a type" is a ParseError).
func Parse(toks []token.Token) (*ast.Program, error) {
	c := newCursor(toks)
	prog := &ast.Program{}
	for !c.peekKind(token.EOF) {
		fn, err := c.parseFunction()
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

func (c *cursor) parseFunction() (*ast.Function, error) {
	start := c.peek()
	if _, err := c.expect(token.KwInt); err != nil {
		return nil, &compileerr.ParseError{Pos: start.Pos, Msg: "function definition must begin with a type"}
	}
	name, err := c.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []ast.Param
	if !c.peekKind(token.RParen) {
		for {
			if _, err := c.expect(token.KwInt); err != nil {
				return nil, err
			}
			pname, err := c.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Param{Name: pname.Text, Type: ast.VarType{}})
			if c.peekKind(token.Comma) {
				c.next()
				continue
			}
			break
		}
	}
	if _, err := c.expect(token.RParen); err != nil {
		return nil, err
	}
	if _, err := c.expect(token.LBrace); err != nil {
		return nil, err
	}
	var body []*ast.Stmt
	for !c.peekKind(token.RBrace) {
		s, err := c.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, s)
	}
	if _, err := c.expect(token.RBrace); err != nil {
		return nil, err
	}
	return &ast.Function{Name: name.Text, Params: params, Body: body, Pos: start.Pos}, nil
}

func (c *cursor) parseStatement() (*ast.Stmt, error) {
	t := c.peek()
	switch t.Kind {
	case token.KwReturn:
		c.next()
		e, err := c.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return &ast.Stmt{Kind: ast.StmtReturn, Pos: t.Pos, Expr: e}, nil
	case token.KwInt:
		s, err := c.parseDeclare()
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return s, nil
	case token.KwIf:
		return c.parseIf()
	case token.KwWhile:
		return c.parseWhile()
	case token.KwFor:
		return c.parseFor()
	case token.LBrace:
		return c.parseCompound()
	case token.KwBreak:
		c.next()
		if _, err := c.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return &ast.Stmt{Kind: ast.StmtBreak, Pos: t.Pos}, nil
	case token.KwContinue:
		c.next()
		if _, err := c.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return &ast.Stmt{Kind: ast.StmtContinue, Pos: t.Pos}, nil
	case token.Semicolon:
		c.next()
		return &ast.Stmt{Kind: ast.StmtEmpty, Pos: t.Pos}, nil
	default:
		e, err := c.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return &ast.Stmt{Kind: ast.StmtExpr, Pos: t.Pos, Expr: e}, nil
	}
}

func (c *cursor) parseCompound() (*ast.Stmt, error) {
	start, err := c.expect(token.LBrace)
	if err != nil {
		return nil, err
	}
	var stmts []*ast.Stmt
	for !c.peekKind(token.RBrace) {
		s, err := c.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := c.expect(token.RBrace); err != nil {
		return nil, err
	}
	return &ast.Stmt{Kind: ast.StmtCompound, Pos: start.Pos, Stmts: stmts}, nil
}

func (c *cursor) parseIf() (*ast.Stmt, error) {
	start, _ := c.expect(token.KwIf)
	if _, err := c.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := c.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.RParen); err != nil {
		return nil, err
	}
	then, err := c.parseStatement()
	if err != nil {
		return nil, err
	}
	s := &ast.Stmt{Kind: ast.StmtIf, Pos: start.Pos, Cond: cond, Then: then}
	if c.peekKind(token.KwElse) {
		c.next()
		els, err := c.parseStatement()
		if err != nil {
			return nil, err
		}
		s.Else = els
	}
	return s, nil
}

func (c *cursor) parseWhile() (*ast.Stmt, error) {
	start, _ := c.expect(token.KwWhile)
	if _, err := c.expect(token.LParen); err != nil {
		return nil, err
	}
	cond, err := c.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := c.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.Stmt{Kind: ast.StmtWhile, Pos: start.Pos, Cond: cond, Body: body}, nil
}

// parseFor implements the three-clause for loop, each clause
// independently optional except the body, grounded on
// original_source/src/parser/for_loop_parser.rs.
func (c *cursor) parseFor() (*ast.Stmt, error) {
	start, _ := c.expect(token.KwFor)
	if _, err := c.expect(token.LParen); err != nil {
		return nil, err
	}

	var init *ast.Stmt
	switch {
	case c.peekKind(token.KwInt):
		d, err := c.parseDeclare()
		if err != nil {
			return nil, err
		}
		init = d
	case c.peekKind(token.Semicolon):
		init = &ast.Stmt{Kind: ast.StmtEmpty, Pos: c.peek().Pos}
	default:
		e, err := c.parseExpr()
		if err != nil {
			return nil, err
		}
		init = &ast.Stmt{Kind: ast.StmtExpr, Pos: e.Pos, Expr: e}
	}
	if _, err := c.expect(token.Semicolon); err != nil {
		return nil, err
	}

	var cond *ast.Expr
	if !c.peekKind(token.Semicolon) {
		var err error
		cond, err = c.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := c.expect(token.Semicolon); err != nil {
		return nil, err
	}

	var post *ast.Expr
	if !c.peekKind(token.RParen) {
		var err error
		post, err = c.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := c.expect(token.RParen); err != nil {
		return nil, err
	}

	body, err := c.parseStatement()
	if err != nil {
		return nil, err
	}

	return &ast.Stmt{Kind: ast.StmtFor, Pos: start.Pos, ForInit: init, Cond: cond, ForPost: post, Body: body}, nil
}

// parseDeclare parses "int name (\[len\])* (= initializer)?" without
// consuming the trailing semicolon, so that it can also serve as the
// init clause of a for loop.
func (c *cursor) parseDeclare() (*ast.Stmt, error) {
	start, err := c.expect(token.KwInt)
	if err != nil {
		return nil, err
	}
	nameTok, err := c.expect(token.Ident)
	if err != nil {
		return nil, err
	}

	var dims []int
	for c.peekKind(token.LBracket) {
		c.next()
		lenTok, err := c.expect(token.IntLit)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(lenTok.Text)
		if err != nil || n <= 0 {
			return nil, &compileerr.ParseError{Pos: lenTok.Pos, Msg: "array length must be a positive integer"}
		}
		dims = append(dims, n)
		if _, err := c.expect(token.RBracket); err != nil {
			return nil, err
		}
	}
	ty := buildArrayType(dims)

	s := &ast.Stmt{Kind: ast.StmtDeclare, Pos: start.Pos, Name: nameTok.Text, Type: ty}
	if c.peekKind(token.Assign) {
		c.next()
		if ty.IsArray() {
			init, err := c.parseArrInit(ty)
			if err != nil {
				return nil, err
			}
			s.Init = init
		} else {
			init, err := c.parseExpr()
			if err != nil {
				return nil, err
			}
			s.Init = init
		}
	}
	return s, nil
}

// buildArrayType builds a (possibly nested) ast.VarType from a list of
// array dimensions written left to right, e.g. "a[2][3]" -> dims [2, 3]
// yields an array of 2 arrays of 3 ints.
func buildArrayType(dims []int) ast.VarType {
	t := ast.VarType{}
	for i := len(dims) - 1; i >= 0; i-- {
		elem := t
		t = ast.VarType{Elem: &elem, Len: dims[i]}
	}
	return t
}

// parseArrInit parses a brace-delimited, comma-separated initializer list
// for an array type, recursing into nested brace lists for nested array
// types, per spec.md §4.1's ArrInitExpr rule.
func (c *cursor) parseArrInit(ty ast.VarType) (*ast.Expr, error) {
	start, err := c.expect(token.LBrace)
	if err != nil {
		return nil, err
	}
	var elems []*ast.Expr
	if !c.peekKind(token.RBrace) {
		for {
			var e *ast.Expr
			var err error
			if ty.Elem.IsArray() && c.peekKind(token.LBrace) {
				e, err = c.parseArrInit(*ty.Elem)
			} else {
				e, err = c.parseExpr()
			}
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if c.peekKind(token.Comma) {
				c.next()
				continue
			}
			break
		}
	}
	if _, err := c.expect(token.RBrace); err != nil {
		return nil, err
	}
	return &ast.Expr{Kind: ast.ExprArrInit, Pos: start.Pos, Elems: elems}, nil
}
