package token

import (
	"go/scanner"
	gotoken "go/token"
)

// Error and ErrorList are the compile-time error types shared by the lexer,
// parser and code generator. They are aliases of the standard library's
// go/scanner types: the shape (a sorted list of position+message pairs with
// a combined Error() string) is already exactly what a single-pass compiler
// needs to accumulate every error found in one compile instead of stopping
// at the first one, so there is no reason to hand-roll an equivalent type.
type (
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

// toScannerPosition adapts a Position to the go/token position type that
// go/scanner.Error carries, filling only the fields go/scanner.Error prints.
func toScannerPosition(p Position) gotoken.Position {
	return gotoken.Position{Filename: p.Filename, Line: p.Line, Column: p.Column}
}

// AddError appends a compile error at pos to list.
func AddError(list *ErrorList, pos Position, msg string) {
	list.Add(toScannerPosition(pos), msg)
}
