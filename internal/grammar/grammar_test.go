// Package grammar holds a machine-checked EBNF summary of the surface
// syntax internal/parser implements, verified with golang.org/x/exp/ebnf.
// There is no generated parser here for the grammar to be the single source
// of truth for — the parser is handwritten recursive descent — so this
// stays documentation checked for internal consistency (every referenced
// production exists, the start symbol is reachable) rather than a codegen
// input.
package grammar

import (
	"os"
	"testing"

	"golang.org/x/exp/ebnf"
)

func TestGrammarIsWellFormed(t *testing.T) {
	f, err := os.Open("grammar.ebnf")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	g, err := ebnf.Parse("grammar.ebnf", f)
	if err != nil {
		t.Fatal(err)
	}
	if err := ebnf.Verify(g, "Program"); err != nil {
		t.Fatal(err)
	}
}
