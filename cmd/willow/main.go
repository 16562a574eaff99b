// Command willow is the compiler-and-VM driver: a thin wrapper around the
// public embed package (github.com/mna/mainer argument parsing,
// os.Exit(int(ExitCode))).
package main

import (
	"os"

	"github.com/mna/mainer"
	"github.com/willow-lang/willow/internal/clicmd"
)

var (
	// placeholder values, replaced on build
	version   = "{v}" // must be N.N[.N]
	buildDate = "{d}" // must be YYYY-mm-DD
)

func main() {
	c := clicmd.Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
