package parser

import (
	"strconv"

	"github.com/ericwu2003/tcc/ast"
	"github.com/ericwu2003/tcc/compileerr"
	"github.com/ericwu2003/tcc/token"
)

// parseExpr parses a full expression, starting at the assignment level
// (the lowest precedence, matching BinOpPrecedenceLevel::lowest_level()
// in original_source's expr_parser.rs).
func (c *cursor) parseExpr() (*ast.Expr, error) {
	return c.parseAssignment()
}

func (c *cursor) parseAssignment() (*ast.Expr, error) {
	left, err := c.parseTernary()
	if err != nil {
		return nil, err
	}

	var compound ast.BinOp
	var isCompound bool
	switch c.peek().Kind {
	case token.Assign:
	case token.PlusAssign:
		compound, isCompound = ast.BinPlus, true
	case token.MinusAssign:
		compound, isCompound = ast.BinMinus, true
	case token.StarAssign:
		compound, isCompound = ast.BinMultiply, true
	case token.SlashAssign:
		compound, isCompound = ast.BinDivide, true
	case token.PercentAssign:
		compound, isCompound = ast.BinModulus, true
	default:
		return left, nil
	}

	pos := c.peek().Pos
	c.next() // consume the assignment operator

	rhs, err := c.parseAssignment()
	if err != nil {
		return nil, err
	}
	if isCompound {
		rhs = &ast.Expr{Kind: ast.ExprBinOp, Pos: pos, BinOp: compound, LHS: left, RHS: rhs}
	}

	switch left.Kind {
	case ast.ExprVar:
		return &ast.Expr{Kind: ast.ExprAssign, Pos: pos, Name: left.Name, Value: rhs}, nil
	case ast.ExprIndex:
		return &ast.Expr{Kind: ast.ExprIndexAssign, Pos: pos, Array: left.Array, Index: left.Index, Value: rhs}, nil
	default:
		return nil, &compileerr.ParseError{Pos: pos, Msg: "left-hand side of assignment must be a variable or array element"}
	}
}

func (c *cursor) parseTernary() (*ast.Expr, error) {
	cond, err := c.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if !c.peekKind(token.Question) {
		return cond, nil
	}
	pos := c.next().Pos
	then, err := c.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := c.expect(token.Colon); err != nil {
		return nil, err
	}
	els, err := c.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ast.Expr{Kind: ast.ExprTernary, Pos: pos, Cond: cond, Then: then, Else: els}, nil
}

func (c *cursor) parseLogicalOr() (*ast.Expr, error) {
	left, err := c.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for c.peekKind(token.OrOr) {
		pos := c.next().Pos
		right, err := c.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.ExprBinOp, Pos: pos, BinOp: ast.BinLogicalOr, LHS: left, RHS: right}
	}
	return left, nil
}

func (c *cursor) parseLogicalAnd() (*ast.Expr, error) {
	left, err := c.parseEquality()
	if err != nil {
		return nil, err
	}
	for c.peekKind(token.AndAnd) {
		pos := c.next().Pos
		right, err := c.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.ExprBinOp, Pos: pos, BinOp: ast.BinLogicalAnd, LHS: left, RHS: right}
	}
	return left, nil
}

func (c *cursor) parseEquality() (*ast.Expr, error) {
	left, err := c.parseRelational()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch c.peek().Kind {
		case token.Eq:
			op = ast.BinEquals
		case token.Ne:
			op = ast.BinNotEquals
		default:
			return left, nil
		}
		pos := c.next().Pos
		right, err := c.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.ExprBinOp, Pos: pos, BinOp: op, LHS: left, RHS: right}
	}
}

func (c *cursor) parseRelational() (*ast.Expr, error) {
	left, err := c.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch c.peek().Kind {
		case token.Lt:
			op = ast.BinLessThan
		case token.Le:
			op = ast.BinLessThanEq
		case token.Gt:
			op = ast.BinGreaterThan
		case token.Ge:
			op = ast.BinGreaterThanEq
		default:
			return left, nil
		}
		pos := c.next().Pos
		right, err := c.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.ExprBinOp, Pos: pos, BinOp: op, LHS: left, RHS: right}
	}
}

func (c *cursor) parseAdditive() (*ast.Expr, error) {
	left, err := c.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch c.peek().Kind {
		case token.Plus:
			op = ast.BinPlus
		case token.Minus:
			op = ast.BinMinus
		default:
			return left, nil
		}
		pos := c.next().Pos
		right, err := c.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.ExprBinOp, Pos: pos, BinOp: op, LHS: left, RHS: right}
	}
}

func (c *cursor) parseMultiplicative() (*ast.Expr, error) {
	left, err := c.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch c.peek().Kind {
		case token.Star:
			op = ast.BinMultiply
		case token.Slash:
			op = ast.BinDivide
		case token.Percent:
			op = ast.BinModulus
		default:
			return left, nil
		}
		pos := c.next().Pos
		right, err := c.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Expr{Kind: ast.ExprBinOp, Pos: pos, BinOp: op, LHS: left, RHS: right}
	}
}

func (c *cursor) parseUnary() (*ast.Expr, error) {
	switch c.peek().Kind {
	case token.Minus:
		pos := c.next().Pos
		operand, err := c.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprUnOp, Pos: pos, UnOp: ast.UnNegation, Value: operand}, nil
	case token.Tilde:
		pos := c.next().Pos
		operand, err := c.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprUnOp, Pos: pos, UnOp: ast.UnBitwiseComplement, Value: operand}, nil
	case token.Not:
		pos := c.next().Pos
		operand, err := c.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprUnOp, Pos: pos, UnOp: ast.UnLogicalNot, Value: operand}, nil
	case token.Inc:
		pos := c.next().Pos
		name, err := c.expectIdentName()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprPrefixInc, Pos: pos, Name: name}, nil
	case token.Dec:
		pos := c.next().Pos
		name, err := c.expectIdentName()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprPrefixDec, Pos: pos, Name: name}, nil
	default:
		return c.parsePostfix()
	}
}

// expectIdentName consumes an identifier token, returning a ParseError
// with a message tailored to ++/-- prefix position (spec.md §7: "non-
// identifier after ++/--").
func (c *cursor) expectIdentName() (string, error) {
	t := c.peek()
	if t.Kind != token.Ident {
		return "", &compileerr.ParseError{Pos: t.Pos, Msg: "expected identifier after ++/--, got " + t.Kind.String()}
	}
	c.next()
	return t.Text, nil
}

func (c *cursor) parsePostfix() (*ast.Expr, error) {
	e, err := c.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch c.peek().Kind {
		case token.Inc:
			pos := c.next().Pos
			if e.Kind != ast.ExprVar {
				return nil, &compileerr.ParseError{Pos: pos, Msg: "operand of postfix ++ must be a variable"}
			}
			e = &ast.Expr{Kind: ast.ExprPostfixInc, Pos: pos, Name: e.Name}
		case token.Dec:
			pos := c.next().Pos
			if e.Kind != ast.ExprVar {
				return nil, &compileerr.ParseError{Pos: pos, Msg: "operand of postfix -- must be a variable"}
			}
			e = &ast.Expr{Kind: ast.ExprPostfixDec, Pos: pos, Name: e.Name}
		case token.LBracket:
			pos := c.next().Pos
			idx, err := c.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := c.expect(token.RBracket); err != nil {
				return nil, err
			}
			e = &ast.Expr{Kind: ast.ExprIndex, Pos: pos, Array: e, Index: idx}
		default:
			return e, nil
		}
	}
}

func (c *cursor) parsePrimary() (*ast.Expr, error) {
	t := c.peek()
	switch t.Kind {
	case token.IntLit:
		c.next()
		v, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return nil, &compileerr.ParseError{Pos: t.Pos, Msg: "invalid integer literal " + t.Text}
		}
		return &ast.Expr{Kind: ast.ExprIntLit, Pos: t.Pos, IntVal: v}, nil
	case token.Ident:
		c.next()
		if c.peekKind(token.LParen) {
			return c.parseCallArgs(t)
		}
		return &ast.Expr{Kind: ast.ExprVar, Pos: t.Pos, Name: t.Text}, nil
	case token.LParen:
		c.next()
		e, err := c.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := c.expect(token.RParen); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, &compileerr.ParseError{Pos: t.Pos, Msg: "expected an expression, got " + t.Kind.String()}
	}
}

func (c *cursor) parseCallArgs(nameTok token.Token) (*ast.Expr, error) {
	if _, err := c.expect(token.LParen); err != nil {
		return nil, err
	}
	var args []*ast.Expr
	if !c.peekKind(token.RParen) {
		for {
			arg, err := c.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
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
	return &ast.Expr{Kind: ast.ExprCall, Pos: nameTok.Pos, Name: nameTok.Text, Args: args}, nil
}
