// Package filetest is the end-to-end test harness for spec §8's scenario
// table: compile and run a source snippet through the public embed
// package and assert on its observable stdout/exit behavior. There is no
// intermediate AST to dump here, so there is nothing for a Printer to walk
// and nothing for golden-file machinery to compare against; instead the
// harness drives one compiler phase (compile-then-run) and hands the
// caller back whatever it produced, so each test is a short assert rather
// than its own copy of the plumbing.
package filetest

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willow-lang/willow/embed"
)

// Result is everything one Run call observed.
type Result struct {
	Stdout     string
	CompileErr error
	RunErr     error
	Leaks      []string
	VM         *embed.VM
}

// Run compiles source and, if compilation succeeds, runs its `main` to
// completion, capturing process stdout for the duration of the run (spec
// §8's scenario table checks stdout verbatim). The VM is left open and
// returned so a caller can assert on its post-run state (Alive, Stats,
// LastError) before the test's own defer closes it.
func Run(t *testing.T, source string) Result {
	t.Helper()

	var res Result
	m := embed.New(embed.Config{}, func(msg string) {
		res.Leaks = append(res.Leaks, msg)
	})
	res.VM = m

	m.Init(t.Name(), []byte(source), 0, nil)

	if err := m.Compile(); err != nil {
		res.CompileErr = err
		return res
	}

	res.Stdout = captureStdout(t, func() {
		res.RunErr = m.Run()
	})
	return res
}

// captureStdout redirects os.Stdout to a pipe for the duration of fn,
// returning everything written to it. internal/builtin's printf family
// writes through fmt.Print directly (spec §4.9's builtins share the
// process, not a host-supplied writer, outside of the still-unimplemented
// fprintf file argument), so this is the only capture point available
// without changing that writing convention.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	out := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		out <- buf.String()
	}()

	fn()

	require.NoError(t, w.Close())
	return <-out
}
