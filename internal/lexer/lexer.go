// Package lexer turns a byte buffer into a token stream for the parser.
// It performs implicit semicolon insertion, numeric/string/char literal
// decoding and comment skipping (spec §4.1).
package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/willow-lang/willow/internal/storage"
	"github.com/willow-lang/willow/internal/token"
)

// ErrorHandler is invoked for every malformed input the lexer encounters. The
// lexer never returns a partially-formed token: on error it still produces
// ILLEGAL or a best-effort token and keeps scanning so the caller can collect
// every error in one pass.
type ErrorHandler func(pos token.Position, msg string)

// Lexer tokenizes a single source file. It keeps a one-token lookahead and
// the previous token kind so Advance can perform implicit semicolon
// insertion (spec §4.1).
type Lexer struct {
	filename string
	src      []byte
	err      ErrorHandler
	arena    *storage.Arena

	cur  rune // current rune, -1 at EOF
	off  int  // byte offset of cur
	roff int  // byte offset right after cur
	line int
	col  int

	prevTok token.Token // kind of the most recently returned token

	// buffered lookahead: the token Peek()/Advance() report.
	tok token.Token
	val token.Value

	// when implicit-semicolon insertion defers a real token, it is stashed
	// here and replayed on the next Advance instead of being rescanned.
	pendingTok token.Token
	pendingVal token.Value
	hasPending bool

	// Debug is updated on every Advance with the (file, func, line) triple the
	// code generator snapshots per emitted instruction (spec §4.1, §4.5).
	Debug token.File
}

// New creates a lexer over src, reporting filename in positions and errors.
func New(filename string, src []byte, err ErrorHandler) *Lexer {
	l := &Lexer{
		filename: filename,
		src:      src,
		err:      err,
		arena:    storage.NewArena(len(src) / 4),
		line:     1,
		col:      0,
		prevTok:  token.ILLEGAL,
	}
	l.Debug = token.File{Name: filename, Func: "<unknown>", Line: 0}
	l.advanceRune()
	l.Advance() // prime the first token
	return l
}

// Peek returns the current lookahead token and its value without consuming
// it.
func (l *Lexer) Peek() (token.Token, token.Value) { return l.tok, l.val }

// Expect consumes the current token if it matches want, returning its value.
// Otherwise it reports a parse error and does not advance.
func (l *Lexer) Expect(want token.Token) (token.Value, bool) {
	if l.tok != want {
		l.errorf(l.val.Pos, "expected %s, found %s", want.GoString(), l.tok.GoString())
		return token.Value{}, false
	}
	v := l.val
	l.Advance()
	return v, true
}

// Advance consumes the current lookahead token and scans the next one,
// applying implicit semicolon insertion: a newline becomes a SEMI token iff
// the token being left behind is one of the kinds in
// Token.EndsImplicitSemicolon (spec §4.1).
func (l *Lexer) Advance() {
	l.prevTok = l.tok

	if l.hasPending {
		l.tok, l.val = l.pendingTok, l.pendingVal
		l.hasPending = false
		line, _ := l.val.Pos.LineCol()
		l.Debug.Line = line
		return
	}

	sawNewline := l.skipWhitespaceAndComments()
	if sawNewline && l.prevTok.EndsImplicitSemicolon() {
		// defer the real token to the next Advance call.
		pos := token.MakePos(l.line, l.col)
		tok, val := l.scanOne()
		l.pendingTok, l.pendingVal = tok, val
		l.hasPending = true
		l.tok = token.SEMI
		l.val = token.Value{Raw: ";", Pos: pos}
		l.Debug.Line, _ = l.val.Pos.LineCol()
		return
	}

	l.tok, l.val = l.scanOne()
	l.Debug.Line, _ = l.val.Pos.LineCol()
}

func (l *Lexer) errorf(pos token.Pos, format string, args ...any) {
	line, col := pos.LineCol()
	if l.err != nil {
		l.err(token.Position{Filename: l.filename, Line: line, Column: col}, fmt.Sprintf(format, args...))
	}
}

func (l *Lexer) errorAt(line, col int, msg string) {
	if l.err != nil {
		l.err(token.Position{Filename: l.filename, Line: line, Column: col}, msg)
	}
}

// advanceRune reads the next rune into l.cur, tracking line/col.
func (l *Lexer) advanceRune() {
	if l.cur == '\n' {
		l.line++
		l.col = 0
	}
	if l.roff >= len(l.src) {
		l.off = len(l.src)
		l.cur = -1
		return
	}
	l.off = l.roff
	r, w := rune(l.src[l.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(l.src[l.roff:])
		if r == utf8.RuneError && w == 1 {
			l.errorAt(l.line, l.col+1, "illegal UTF-8 encoding")
		}
	}
	l.roff += w
	l.cur = r
	l.col++
}

func (l *Lexer) peekByte() byte {
	if l.roff < len(l.src) {
		return l.src[l.roff]
	}
	return 0
}

func (l *Lexer) advanceIf(b byte) bool {
	if l.cur == rune(b) {
		l.advanceRune()
		return true
	}
	return false
}

// skipWhitespaceAndComments advances past spaces, tabs, CR, newlines and
// line comments ("// ..."), reporting whether a newline was crossed.
func (l *Lexer) skipWhitespaceAndComments() bool {
	sawNewline := false
	for {
		switch {
		case l.cur == '\n':
			sawNewline = true
			l.advanceRune()
		case l.cur == ' ' || l.cur == '\t' || l.cur == '\r':
			l.advanceRune()
		case l.cur == '/' && l.peekByte() == '/':
			for l.cur != '\n' && l.cur != -1 {
				l.advanceRune()
			}
		case l.cur == '/' && l.peekByte() == '*':
			l.advanceRune()
			l.advanceRune()
			closed := false
			for l.cur != -1 {
				if l.cur == '\n' {
					sawNewline = true
				}
				if l.cur == '*' && l.peekByte() == '/' {
					l.advanceRune()
					l.advanceRune()
					closed = true
					break
				}
				l.advanceRune()
			}
			if !closed {
				l.errorAt(l.line, l.col, "comment not terminated")
			}
		default:
			return sawNewline
		}
	}
}

func isLetter(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// scanOne scans exactly one token starting at the current rune, which must
// not be whitespace or the start of a comment (callers ensure this via
// skipWhitespaceAndComments).
func (l *Lexer) scanOne() (token.Token, token.Value) {
	pos := token.MakePos(l.line, l.col)

	switch cur := l.cur; {
	case isLetter(cur):
		lit := l.ident()
		return token.Lookup(lit), token.Value{Raw: lit, Pos: pos}

	case isDigit(cur) || (cur == '.' && isDigit(rune(l.peekByte()))):
		return l.number(pos)

	case cur == '"' || cur == '\'':
		return l.stringOrChar(pos, byte(cur))
	}

	switch l.cur {
	case -1:
		return token.EOF, token.Value{Pos: pos}
	case ';':
		l.advanceRune()
		return token.SEMI, token.Value{Raw: ";", Pos: pos}
	case '(':
		l.advanceRune()
		return token.LPAREN, token.Value{Raw: "(", Pos: pos}
	case ')':
		l.advanceRune()
		return token.RPAREN, token.Value{Raw: ")", Pos: pos}
	case '[':
		l.advanceRune()
		return token.LBRACK, token.Value{Raw: "[", Pos: pos}
	case ']':
		l.advanceRune()
		return token.RBRACK, token.Value{Raw: "]", Pos: pos}
	case '{':
		l.advanceRune()
		return token.LBRACE, token.Value{Raw: "{", Pos: pos}
	case '}':
		l.advanceRune()
		return token.RBRACE, token.Value{Raw: "}", Pos: pos}
	case ',':
		l.advanceRune()
		return token.COMMA, token.Value{Raw: ",", Pos: pos}
	case '~':
		l.advanceRune()
		return token.TILDE, token.Value{Raw: "~", Pos: pos}
	case ':':
		l.advanceRune()
		if l.advanceIf(':') {
			return token.COLONCOLON, token.Value{Raw: "::", Pos: pos}
		}
		return token.COLON, token.Value{Raw: ":", Pos: pos}
	case '.':
		l.advanceRune()
		return token.DOT, token.Value{Raw: ".", Pos: pos}
	case '+':
		l.advanceRune()
		if l.advanceIf('+') {
			return token.INC, token.Value{Raw: "++", Pos: pos}
		}
		if l.advanceIf('=') {
			return token.PLUS_EQ, token.Value{Raw: "+=", Pos: pos}
		}
		return token.PLUS, token.Value{Raw: "+", Pos: pos}
	case '-':
		l.advanceRune()
		if l.advanceIf('-') {
			return token.DEC, token.Value{Raw: "--", Pos: pos}
		}
		if l.advanceIf('=') {
			return token.MINUS_EQ, token.Value{Raw: "-=", Pos: pos}
		}
		if l.advanceIf('>') {
			return token.ARROW, token.Value{Raw: "->", Pos: pos}
		}
		return token.MINUS, token.Value{Raw: "-", Pos: pos}
	case '*':
		l.advanceRune()
		if l.advanceIf('=') {
			return token.STAR_EQ, token.Value{Raw: "*=", Pos: pos}
		}
		return token.STAR, token.Value{Raw: "*", Pos: pos}
	case '/':
		l.advanceRune()
		if l.advanceIf('=') {
			return token.SLASH_EQ, token.Value{Raw: "/=", Pos: pos}
		}
		return token.SLASH, token.Value{Raw: "/", Pos: pos}
	case '%':
		l.advanceRune()
		if l.advanceIf('=') {
			return token.PERCENT_EQ, token.Value{Raw: "%=", Pos: pos}
		}
		return token.PERCENT, token.Value{Raw: "%", Pos: pos}
	case '&':
		l.advanceRune()
		if l.advanceIf('&') {
			return token.LAND, token.Value{Raw: "&&", Pos: pos}
		}
		if l.advanceIf('=') {
			return token.AMP_EQ, token.Value{Raw: "&=", Pos: pos}
		}
		return token.AMPERSAND, token.Value{Raw: "&", Pos: pos}
	case '|':
		l.advanceRune()
		if l.advanceIf('|') {
			return token.LOR, token.Value{Raw: "||", Pos: pos}
		}
		if l.advanceIf('=') {
			return token.PIPE_EQ, token.Value{Raw: "|=", Pos: pos}
		}
		return token.PIPE, token.Value{Raw: "|", Pos: pos}
	case '^':
		l.advanceRune()
		if l.advanceIf('=') {
			return token.CARET_EQ, token.Value{Raw: "^=", Pos: pos}
		}
		return token.CARET, token.Value{Raw: "^", Pos: pos}
	case '!':
		l.advanceRune()
		if l.advanceIf('=') {
			return token.NEQ, token.Value{Raw: "!=", Pos: pos}
		}
		return token.NOT, token.Value{Raw: "!", Pos: pos}
	case '=':
		l.advanceRune()
		if l.advanceIf('=') {
			return token.EQL, token.Value{Raw: "==", Pos: pos}
		}
		return token.EQ, token.Value{Raw: "=", Pos: pos}
	case '<':
		l.advanceRune()
		if l.advanceIf('<') {
			if l.advanceIf('=') {
				return token.LTLT_EQ, token.Value{Raw: "<<=", Pos: pos}
			}
			return token.LTLT, token.Value{Raw: "<<", Pos: pos}
		}
		if l.advanceIf('=') {
			return token.LE, token.Value{Raw: "<=", Pos: pos}
		}
		return token.LT, token.Value{Raw: "<", Pos: pos}
	case '>':
		l.advanceRune()
		if l.advanceIf('>') {
			if l.advanceIf('=') {
				return token.GTGT_EQ, token.Value{Raw: ">>=", Pos: pos}
			}
			return token.GTGT, token.Value{Raw: ">>", Pos: pos}
		}
		if l.advanceIf('=') {
			return token.GE, token.Value{Raw: ">=", Pos: pos}
		}
		return token.GT, token.Value{Raw: ">", Pos: pos}
	}

	cur := l.cur
	l.advanceRune()
	l.errorf(pos, "illegal character %#U", cur)
	return token.ILLEGAL, token.Value{Raw: string(cur), Pos: pos}
}

func (l *Lexer) ident() string {
	start := l.off
	for isLetter(l.cur) || isDigit(l.cur) {
		l.advanceRune()
	}
	return l.arena.Intern(string(l.src[start:l.off]))
}
