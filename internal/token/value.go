package token

// Value carries the decoded payload of a token alongside its raw lexeme and
// position. Only the fields relevant to Token are meaningful: Int for INT,
// Uint for UINT, Float for FLOAT, and Str for CHAR/STRING.
type Value struct {
	Raw   string // the literal source text of the token
	Pos   Pos
	Int   int64
	Uint  uint64
	Float float64
	Str   string // decoded string/char value
}

// File associates a debug-info triple (file, function, line) with a
// position; it is what the code generator snapshots per emitted instruction
// (spec §4.1, §4.5).
type File struct {
	Name string
	Func string // "<unknown>" until a function body is being compiled
	Line int
}
