package ilio

import (
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokIdent    // bare words: il, extern, global, func, entry, const, br, etc.
	tokTemp     // %name
	tokGlobal   // @name
	tokLabelRef // ^name
	tokInt
	tokFloat
	tokString
	tokLParen
	tokRParen
	tokLBrace
	tokRBrace
	tokComma
	tokColon
	tokArrow // ->
	tokEquals
	tokDot // leading '.' directives like .loc
	tokAt  // standalone '@' (rare)
)

type token struct {
	kind tokenKind
	text string
	line uint32
	col  uint32
}

// lexer turns normalized IL text into a flat token stream. Only newlines are
// structurally significant (an instruction never spans multiple lines); all
// other whitespace is insignificant.
type lexer struct {
	src  []byte
	pos  int
	line uint32
	col  uint32
}

func newLexer(text string) *lexer {
	return &lexer{src: normalize([]byte(text)), line: 1, col: 1}
}

func (lx *lexer) peekByte() byte {
	if lx.pos >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos]
}

func (lx *lexer) advance() byte {
	c := lx.src[lx.pos]
	lx.pos++
	if c == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return c
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.' || c == '$'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (lx *lexer) skipLineSpaceAndComments() {
	for lx.pos < len(lx.src) {
		c := lx.peekByte()
		if c == ' ' || c == '\t' || c == '\r' {
			lx.advance()
			continue
		}
		if c == ';' { // line comment
			for lx.pos < len(lx.src) && lx.peekByte() != '\n' {
				lx.advance()
			}
			continue
		}
		break
	}
}

// next returns the next token, skipping insignificant whitespace/comments
// but preserving newlines as real tokens.
func (lx *lexer) next() token {
	lx.skipLineSpaceAndComments()
	startLine, startCol := lx.line, lx.col
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, line: startLine, col: startCol}
	}

	c := lx.peekByte()
	switch {
	case c == '\n':
		lx.advance()
		return token{kind: tokNewline, line: startLine, col: startCol}
	case c == '(':
		lx.advance()
		return token{kind: tokLParen, line: startLine, col: startCol}
	case c == ')':
		lx.advance()
		return token{kind: tokRParen, line: startLine, col: startCol}
	case c == '{':
		lx.advance()
		return token{kind: tokLBrace, line: startLine, col: startCol}
	case c == '}':
		lx.advance()
		return token{kind: tokRBrace, line: startLine, col: startCol}
	case c == ',':
		lx.advance()
		return token{kind: tokComma, line: startLine, col: startCol}
	case c == ':':
		lx.advance()
		return token{kind: tokColon, line: startLine, col: startCol}
	case c == '=':
		lx.advance()
		return token{kind: tokEquals, line: startLine, col: startCol}
	case c == '-':
		if lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '>' {
			lx.advance()
			lx.advance()
			return token{kind: tokArrow, line: startLine, col: startCol}
		}
		return lx.lexNumber(startLine, startCol)
	case c == '%':
		lx.advance()
		return lx.lexSigilName(tokTemp, startLine, startCol)
	case c == '@':
		lx.advance()
		return lx.lexSigilName(tokGlobal, startLine, startCol)
	case c == '^':
		lx.advance()
		return lx.lexSigilName(tokLabelRef, startLine, startCol)
	case c == '"':
		return lx.lexString(startLine, startCol)
	case c == '.':
		// '.loc' directive vs a float with leading dot (not produced by
		// our own serializer, but tolerated on input).
		if lx.pos+1 < len(lx.src) && isIdentStart(lx.src[lx.pos+1]) {
			lx.advance()
			return token{kind: tokDot, line: startLine, col: startCol}
		}
		return lx.lexNumber(startLine, startCol)
	case isDigit(c):
		return lx.lexNumber(startLine, startCol)
	case isIdentStart(c):
		start := lx.pos
		for lx.pos < len(lx.src) && isIdentCont(lx.peekByte()) {
			lx.advance()
		}
		return token{kind: tokIdent, text: string(lx.src[start:lx.pos]), line: startLine, col: startCol}
	default:
		lx.advance()
		return token{kind: tokIdent, text: string(c), line: startLine, col: startCol}
	}
}

func (lx *lexer) lexSigilName(kind tokenKind, line, col uint32) token {
	start := lx.pos
	for lx.pos < len(lx.src) && isIdentCont(lx.peekByte()) {
		lx.advance()
	}
	return token{kind: kind, text: string(lx.src[start:lx.pos]), line: line, col: col}
}

func (lx *lexer) lexNumber(line, col uint32) token {
	start := lx.pos
	if lx.peekByte() == '-' {
		lx.advance()
	}
	isFloat := false
	for lx.pos < len(lx.src) && (isDigit(lx.peekByte()) || lx.peekByte() == '.') {
		if lx.peekByte() == '.' {
			isFloat = true
		}
		lx.advance()
	}
	text := string(lx.src[start:lx.pos])
	if isFloat {
		return token{kind: tokFloat, text: text, line: line, col: col}
	}
	return token{kind: tokInt, text: text, line: line, col: col}
}

// hexDigit decodes one hexadecimal digit of a \xNN string escape, reporting
// false for any other byte.
func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// lexString scans a C-style escaped string literal, decoding \n \t \r \\ \"
// and \xNN byte escapes so embedded zero bytes survive the round trip.
func (lx *lexer) lexString(line, col uint32) token {
	lx.advance() // opening quote
	var b strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.peekByte()
		if c == '"' {
			lx.advance()
			break
		}
		if c == '\\' {
			lx.advance()
			esc := lx.advance()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case 'x':
				hi, okHi := hexDigit(lx.peekByte())
				if okHi {
					lx.advance()
					lo, okLo := hexDigit(lx.peekByte())
					if okLo {
						lx.advance()
						b.WriteByte(hi<<4 | lo)
						continue
					}
					b.WriteByte(hi)
					continue
				}
				b.WriteByte('x')
			default:
				b.WriteByte(esc)
			}
			continue
		}
		b.WriteByte(lx.advance())
	}
	return token{kind: tokString, text: b.String(), line: line, col: col}
}
