// Package difftest is a small pretty-diff helper for compiler/VM tests
// that compare a multi-line listing (bytecode disassembly, pointer dumps)
// against an expected rendering. There is no AST stage to snapshot and no
// golden-file workflow here (fixtures can't be authored without ever
// running the toolchain), so Listing takes its "want" inline from the
// calling test instead of reading a .want file.
package difftest

import (
	"testing"

	"github.com/kylelemons/godebug/diff"
)

// Listing fails t with a readable unified diff if got and want differ,
// naming label in the failure so a test with several listings in flight
// (e.g. before/after a pass) identifies which one mismatched.
func Listing(t *testing.T, label, want, got string) {
	t.Helper()
	if patch := diff.Diff(want, got); patch != "" {
		t.Errorf("diff %s:\n%s", label, patch)
	}
}
