package token

import (
	"fmt"
	"io"
	"text/scanner"
	"unicode"

	"github.com/ericwu2003/tcc/compileerr"
)

func isIdentRune(ch rune, i int) bool {
	if i == 0 {
		return unicode.IsLetter(ch)
	}
	return unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

// Lex scans the full contents of r into a token stream. name is used only
// to populate positions in diagnostics (it should be the source file
// name). Comments "// ..." are recognised and discarded by text/scanner
// itself; whitespace is insensitive throughout.
//
// Lex stops at the first unrecognised byte and returns a *compileerr.LexError.
func Lex(name string, r io.Reader) ([]Token, error) {
	var s scanner.Scanner
	s.Init(r)
	s.Filename = name
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanComments | scanner.SkipComments
	s.IsIdentRune = isIdentRune

	var lexErr *compileerr.LexError
	s.Error = func(sc *scanner.Scanner, msg string) {
		if lexErr == nil {
			pos := sc.Position
			if !pos.IsValid() {
				pos = sc.Pos()
			}
			lexErr = &compileerr.LexError{Pos: pos, Msg: msg}
		}
	}

	var toks []Token
	for tok := s.Scan(); tok != scanner.EOF; tok = s.Scan() {
		if lexErr != nil {
			return nil, lexErr
		}
		pos := s.Position
		if !pos.IsValid() {
			pos = s.Pos()
		}
		switch tok {
		case scanner.Ident:
			text := s.TokenText()
			if kw, ok := keywords[text]; ok {
				toks = append(toks, Token{Kind: kw, Text: text, Pos: pos})
			} else {
				toks = append(toks, Token{Kind: Ident, Text: text, Pos: pos})
			}
		case scanner.Int:
			toks = append(toks, Token{Kind: IntLit, Text: s.TokenText(), Pos: pos})
		default:
			k, text, err := lexOperator(&s, tok)
			if err != nil {
				return nil, &compileerr.LexError{Pos: pos, Msg: err.Error()}
			}
			toks = append(toks, Token{Kind: k, Text: text, Pos: pos})
		}
	}
	if lexErr != nil {
		return nil, lexErr
	}
	toks = append(toks, Token{Kind: EOF, Pos: s.Position})
	return toks, nil
}

// lexOperator classifies a single-rune token already consumed by the
// scanner, looking one rune ahead (via Peek/Next) to recognise the
// two-character operators in the token set.
func lexOperator(s *scanner.Scanner, ch rune) (Kind, string, error) {
	two := func(next rune, k Kind, text string) (Kind, string, bool) {
		if s.Peek() == next {
			s.Next()
			return k, text, true
		}
		return 0, "", false
	}
	switch ch {
	case '(':
		return LParen, "(", nil
	case ')':
		return RParen, ")", nil
	case '{':
		return LBrace, "{", nil
	case '}':
		return RBrace, "}", nil
	case '[':
		return LBracket, "[", nil
	case ']':
		return RBracket, "]", nil
	case ';':
		return Semicolon, ";", nil
	case ',':
		return Comma, ",", nil
	case ':':
		return Colon, ":", nil
	case '?':
		return Question, "?", nil
	case '~':
		return Tilde, "~", nil
	case '+':
		if k, t, ok := two('+', Inc, "++"); ok {
			return k, t, nil
		}
		if k, t, ok := two('=', PlusAssign, "+="); ok {
			return k, t, nil
		}
		return Plus, "+", nil
	case '-':
		if k, t, ok := two('-', Dec, "--"); ok {
			return k, t, nil
		}
		if k, t, ok := two('=', MinusAssign, "-="); ok {
			return k, t, nil
		}
		return Minus, "-", nil
	case '*':
		if k, t, ok := two('=', StarAssign, "*="); ok {
			return k, t, nil
		}
		return Star, "*", nil
	case '/':
		if k, t, ok := two('=', SlashAssign, "/="); ok {
			return k, t, nil
		}
		return Slash, "/", nil
	case '%':
		if k, t, ok := two('=', PercentAssign, "%="); ok {
			return k, t, nil
		}
		return Percent, "%", nil
	case '=':
		if k, t, ok := two('=', Eq, "=="); ok {
			return k, t, nil
		}
		return Assign, "=", nil
	case '!':
		if k, t, ok := two('=', Ne, "!="); ok {
			return k, t, nil
		}
		return Not, "!", nil
	case '<':
		if k, t, ok := two('=', Le, "<="); ok {
			return k, t, nil
		}
		return Lt, "<", nil
	case '>':
		if k, t, ok := two('=', Ge, ">="); ok {
			return k, t, nil
		}
		return Gt, ">", nil
	case '&':
		if k, t, ok := two('&', AndAnd, "&&"); ok {
			return k, t, nil
		}
		return 0, "", fmt.Errorf("unrecognised byte %q", ch)
	case '|':
		if k, t, ok := two('|', OrOr, "||"); ok {
			return k, t, nil
		}
		return 0, "", fmt.Errorf("unrecognised byte %q", ch)
	default:
		return 0, "", fmt.Errorf("unrecognised byte %q", ch)
	}
}
