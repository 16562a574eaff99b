// Package clicmd implements the willow binary's command surface: flag
// parsing via github.com/mna/mainer and environment overrides via
// github.com/caarlos0/env/v6, calling only the public embed package to do
// any actual compiling or running. The CLI contract here (spec §6: -stack,
// -asm, -check, -warn, -sandbox) is a set of flags on one action rather
// than a choice between several subcommands.
package clicmd

import (
	"context"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"

	"github.com/willow-lang/willow/embed"
)

const binName = "willow"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <path>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <path>
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and VM for the %[1]s embeddable scripting language.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --stack N                 Fiber stack size in slots (default %[2]d).
       --max-steps N             Abort after N dispatched instructions
                                 (default: unlimited).
       --asm                     Print the compiled bytecode listing
                                 instead of running it.
       --check                   Compile only; report every error found
                                 instead of stopping at the first, and
                                 never run the program.
       --warn                    Print compiler warnings to stderr.
       --sandbox                 Disable every host function registered
                                 via add-func, regardless of what the
                                 embedding host configured.

The --stack, --max-steps and --sandbox flags can also be set through the
WILLOW_STACK, WILLOW_MAX_STEPS and WILLOW_SANDBOX environment variables;
a variable that is set takes precedence over the flag.

More information on the %[1]s repository:
       https://github.com/willow-lang/willow
`, binName, embed.DefaultStackSize)
)

// Cmd is the mainer.Parser target: its exported fields are what -h/-v/...
// bind to (spec §6 CLI contract), and BuildVersion/BuildDate are filled in
// by cmd/willow's main() from ldflags.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Stack    int   `flag:"stack"`
	MaxSteps int64 `flag:"max-steps"`
	Asm      bool  `flag:"asm"`
	Check    bool  `flag:"check"`
	Warn     bool  `flag:"warn"`
	Sandbox  bool  `flag:"sandbox"`

	args []string
}

func (c *Cmd) SetArgs(args []string) { c.args = args }
func (c *Cmd) SetFlags(map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return fmt.Errorf("no source file specified")
	}
	return nil
}

// Main is the CLI entry point: parse flags, apply any WILLOW_STACK,
// WILLOW_MAX_STEPS or WILLOW_SANDBOX environment variable over the
// corresponding flag value, then compile and run (or just check/disassemble) exactly one file using
// the embed package.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	cfg := embed.Config{StackSize: c.Stack, MaxSteps: c.MaxSteps, Sandbox: c.Sandbox}
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(stdio.Stderr, "environment overrides: %s\n", err)
		return mainer.InvalidArgs
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.run(ctx, stdio, cfg); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return mainer.Failure
	}
	return mainer.Success
}

func (c *Cmd) run(_ context.Context, stdio mainer.Stdio, cfg embed.Config) error {
	path := c.args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var warn func(string, int, int, string)
	if c.Warn {
		warn = func(filename string, line, col int, msg string) {
			fmt.Fprintf(stdio.Stderr, "%s:%d:%d: warning: %s\n", filename, line, col, msg)
		}
	}

	m := embed.New(cfg, func(leak string) {
		fmt.Fprintf(stdio.Stderr, "leak: %s\n", leak)
	})
	defer m.Close()

	m.Init(path, src, cfg.StackSize, warn)

	if c.Check {
		return c.check(m, stdio)
	}
	if err := m.Compile(); err != nil {
		return err
	}
	if c.Asm {
		return m.Disassemble(stdio.Stdout)
	}
	return m.Run()
}

// check compiles with -check semantics: report every accumulated error
// rather than stopping at the first (spec's widened "collect and return"
// compile-error model; see DESIGN.md), and never runs the program.
func (c *Cmd) check(m *embed.VM, stdio mainer.Stdio) error {
	err := m.Compile()
	if err == nil {
		return nil
	}
	for _, e := range m.CompileErrors() {
		fmt.Fprintln(stdio.Stderr, e)
	}
	return err
}
