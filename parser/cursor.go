// Package parser turns a token.Token stream into an ast.Program by
// recursive descent with a single token of lookahead, grounded on
// original_source's parser.rs / expr_parser.rs / for_loop_parser.rs. The
// resulting ast.Program is specified as data (spec.md §3); this package
// supplies the external producer spec.md treats as a given.
package parser

import (
	"github.com/ericwu2003/tcc/compileerr"
	"github.com/ericwu2003/tcc/token"
)

// cursor wraps a token slice with a single cursor position, mirroring the
// Rust TokenCursor used throughout original_source/src/parser.rs.
type cursor struct {
	toks []token.Token
	pos  int
}

func newCursor(toks []token.Token) *cursor {
	return &cursor{toks: toks}
}

// peek returns the current token without consuming it.
func (c *cursor) peek() token.Token {
	return c.toks[c.pos]
}

// peekKind reports whether the current token has the given kind.
func (c *cursor) peekKind(k token.Kind) bool {
	return c.peek().Kind == k
}

// next consumes and returns the current token.
func (c *cursor) next() token.Token {
	t := c.toks[c.pos]
	if c.pos < len(c.toks)-1 {
		c.pos++
	}
	return t
}

// expect consumes the current token if it has kind k, else returns a
// *compileerr.ParseError.
func (c *cursor) expect(k token.Kind) (token.Token, error) {
	t := c.peek()
	if t.Kind != k {
		return t, &compileerr.ParseError{
			Pos: t.Pos,
			Msg: "expected " + k.String() + ", got " + t.Kind.String(),
		}
	}
	return c.next(), nil
}
