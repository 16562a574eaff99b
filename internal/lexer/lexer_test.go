package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/willow-lang/willow/internal/lexer"
	"github.com/willow-lang/willow/internal/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, []token.Value) {
	t.Helper()
	var errs []string
	l := lexer.New("test.wl", []byte(src), func(pos token.Position, msg string) {
		errs = append(errs, msg)
	})
	var toks []token.Token
	var vals []token.Value
	for {
		tok, val := l.Peek()
		toks = append(toks, tok)
		vals = append(vals, val)
		if tok == token.EOF {
			break
		}
		l.Advance()
	}
	require.Empty(t, errs)
	return toks, vals
}

func TestIdentsAndKeywords(t *testing.T) {
	toks, _ := scanAll(t, "fn main for x")
	require.Equal(t, []token.Token{token.FN, token.IDENT, token.FOR, token.IDENT, token.EOF}, toks)
}

func TestImplicitSemicolonInsertion(t *testing.T) {
	// a newline after an identifier inserts a semicolon; a newline after an
	// operator like '+' does not (spec §4.1 / §8 invariant 6).
	toks, _ := scanAll(t, "x\ny + \nz")
	require.Equal(t, []token.Token{
		token.IDENT, token.SEMI,
		token.IDENT, token.PLUS, token.IDENT,
		token.EOF,
	}, toks)
}

func TestImplicitSemicolonAfterBreakContinueReturn(t *testing.T) {
	toks, _ := scanAll(t, "break\ncontinue\nreturn\n")
	require.Equal(t, []token.Token{
		token.BREAK, token.SEMI,
		token.CONTINUE, token.SEMI,
		token.RETURN, token.SEMI,
		token.EOF,
	}, toks)
}

func TestNumbers(t *testing.T) {
	toks, vals := scanAll(t, "123 0x1A 3.14 1_000 0xFF_00")
	require.Equal(t, []token.Token{token.INT, token.INT, token.FLOAT, token.INT, token.INT, token.EOF}, toks)
	require.Equal(t, int64(123), vals[0].Int)
	require.Equal(t, int64(0x1A), vals[1].Int)
	require.InDelta(t, 3.14, vals[2].Float, 1e-9)
	require.Equal(t, int64(1000), vals[3].Int)
	require.Equal(t, int64(0xFF00), vals[4].Int)
}

func TestStringEscapes(t *testing.T) {
	toks, vals := scanAll(t, `"a\nb\x41\tc"`)
	require.Equal(t, []token.Token{token.STRING, token.EOF}, toks)
	require.Equal(t, "a\nbA\tc", vals[0].Str)
}

func TestCharLiteral(t *testing.T) {
	toks, vals := scanAll(t, `'\n' 'x'`)
	require.Equal(t, []token.Token{token.CHAR, token.CHAR, token.EOF}, toks)
	require.Equal(t, int64('\n'), vals[0].Int)
	require.Equal(t, int64('x'), vals[1].Int)
}

func TestOperators(t *testing.T) {
	toks, _ := scanAll(t, "+ += ++ << <<= <= == != && ||")
	require.Equal(t, []token.Token{
		token.PLUS, token.PLUS_EQ, token.INC,
		token.LTLT, token.LTLT_EQ, token.LE,
		token.EQL, token.NEQ, token.LAND, token.LOR,
		token.EOF,
	}, toks)
}

func TestIllegalCharacterReportsError(t *testing.T) {
	var errs []string
	l := lexer.New("test.wl", []byte("x $ y"), func(pos token.Position, msg string) {
		errs = append(errs, msg)
	})
	for {
		tok, _ := l.Peek()
		if tok == token.EOF {
			break
		}
		l.Advance()
	}
	require.NotEmpty(t, errs)
}
