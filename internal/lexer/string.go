package lexer

import (
	"github.com/willow-lang/willow/internal/token"
)

// stringOrChar scans either a double-quoted string literal (with escapes,
// newline terminates with error) or a single-quoted character literal.
// Escape codes honoured: \0 \a \b \f \n \r \t \v \xHH and any other escaped
// character stands for itself (spec §4.1).
func (l *Lexer) stringOrChar(pos token.Pos, quote byte) (token.Token, token.Value) {
	l.advanceRune() // consume opening quote

	// Length-prediction pre-pass: scan to the closing quote once to compute
	// the exact decoded size, then decode into a buffer sized exactly once
	// (spec §4.1's "length-prediction pre-pass").
	n := l.predictLength(quote)
	buf := l.arena.Bytes(n)
	w := 0

	for {
		if l.cur == -1 {
			l.errorf(pos, "string literal not terminated")
			break
		}
		if l.cur == '\n' {
			l.errorf(pos, "string literal not terminated (newline in string)")
			break
		}
		if byte(l.cur) == quote {
			l.advanceRune()
			break
		}
		if l.cur == '\\' {
			r := l.escape()
			w += encodeRune(buf[w:], r)
			continue
		}
		r := l.cur
		l.advanceRune()
		w += encodeRune(buf[w:], r)
	}

	decoded := string(buf[:w])
	if quote == '\'' {
		rs := []rune(decoded)
		if len(rs) != 1 {
			l.errorf(pos, "invalid character literal")
		}
		var v int64
		if len(rs) > 0 {
			v = int64(rs[0])
		}
		return token.CHAR, token.Value{Raw: decoded, Pos: pos, Int: v, Str: decoded}
	}
	return token.STRING, token.Value{Raw: decoded, Pos: pos, Str: decoded}
}

// predictLength scans ahead (without consuming) to compute the exact decoded
// byte length of the literal starting at the current rune, so the arena
// allocates storage once instead of growing incrementally.
func (l *Lexer) predictLength(quote byte) int {
	save := *l
	n := 0
	for {
		if l.cur == -1 || l.cur == '\n' || byte(l.cur) == quote {
			break
		}
		if l.cur == '\\' {
			r := l.escape()
			n += runeLen(r)
			continue
		}
		n += runeLen(l.cur)
		l.advanceRune()
	}
	*l = save
	return n
}

func runeLen(r rune) int {
	if r < 0x80 {
		return 1
	}
	if r < 0x800 {
		return 2
	}
	if r < 0x10000 {
		return 3
	}
	return 4
}

func encodeRune(buf []byte, r rune) int {
	var tmp [4]byte
	n := 0
	switch {
	case r < 0x80:
		tmp[0] = byte(r)
		n = 1
	default:
		s := string(r)
		n = copy(tmp[:], s)
	}
	copy(buf, tmp[:n])
	return n
}

// escape consumes a backslash escape sequence and returns the rune it
// denotes. The caller has confirmed l.cur == '\\'.
func (l *Lexer) escape() rune {
	l.advanceRune() // consume backslash
	c := l.cur
	switch c {
	case '0':
		l.advanceRune()
		return 0
	case 'a':
		l.advanceRune()
		return 7
	case 'b':
		l.advanceRune()
		return 8
	case 'f':
		l.advanceRune()
		return 12
	case 'n':
		l.advanceRune()
		return '\n'
	case 'r':
		l.advanceRune()
		return '\r'
	case 't':
		l.advanceRune()
		return '\t'
	case 'v':
		l.advanceRune()
		return 11
	case 'x':
		l.advanceRune()
		var v int
		for i := 0; i < 2 && isHexDigit(l.cur); i++ {
			v = v*16 + hexVal(l.cur)
			l.advanceRune()
		}
		return rune(v)
	case -1:
		return -1
	default:
		// any other escaped character stands for itself.
		l.advanceRune()
		return c
	}
}

func hexVal(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10
	default:
		return 0
	}
}
