package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		require.NotEmpty(t, tok.String(), "token %d has no string repr", tok)
	}
}

func TestLookup(t *testing.T) {
	for tok := BREAK; tok < maxToken; tok++ {
		require.Equal(t, tok, Lookup(tok.String()))
	}
	require.Equal(t, IDENT, Lookup("notAKeyword"))
	require.Equal(t, IDENT, Lookup("funny"))
}

func TestEndsImplicitSemicolon(t *testing.T) {
	yes := []Token{IDENT, INT, UINT, FLOAT, CHAR, STRING, INC, DEC, RPAREN, RBRACK, RBRACE, CARET, BREAK, CONTINUE, RETURN, STR}
	set := make(map[Token]bool, len(yes))
	for _, tok := range yes {
		set[tok] = true
		require.True(t, tok.EndsImplicitSemicolon(), "%s", tok)
	}
	for tok := Token(0); tok < maxToken; tok++ {
		if !set[tok] {
			require.False(t, tok.EndsImplicitSemicolon(), "%s", tok)
		}
	}
}

func TestBinaryOpFromAssign(t *testing.T) {
	require.Equal(t, PLUS, PLUS_EQ.BinaryOpFromAssign())
	require.Equal(t, GTGT, GTGT_EQ.BinaryOpFromAssign())
	require.Equal(t, ILLEGAL, EQ.BinaryOpFromAssign())
}

func TestPos(t *testing.T) {
	p := MakePos(12, 34)
	line, col := p.LineCol()
	require.Equal(t, 12, line)
	require.Equal(t, 34, col)
	require.False(t, p.Unknown())
	require.True(t, Pos(0).Unknown())
}
