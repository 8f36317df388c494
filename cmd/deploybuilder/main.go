// Command deploybuilder prepares a web application for deployment: it builds
// the client bundle, bundles the server into the output directory and writes a
// minimal server entry when the server build did not produce one.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/deploybuilder/cmd/deploybuilder/commands"
	ferrors "git.home.luguber.info/inful/deploybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/deploybuilder/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], commands.NewGlobal()))
}

// run parses args, executes the selected command and returns the exit code.
func run(args []string, g *commands.Global) (code int) {
	cli := &commands.CLI{}
	exited := false

	parser, err := kong.New(cli,
		kong.Name("deploybuilder"),
		kong.Description("Build client and server bundles into a deployable output directory."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(g),
		kong.Writers(g.Stdout, g.Stderr),
		kong.Exit(func(c int) {
			exited = true
			code = c
		}),
	)
	if err != nil {
		_, _ = fmt.Fprintln(g.Stderr, err)
		return ferrors.ExitFailure
	}

	kctx, err := parser.Parse(args)
	if exited {
		return code
	}
	if err != nil {
		_, _ = fmt.Fprintf(g.Stderr, "deploybuilder: error: %v\n", err)
		return ferrors.ExitFailure
	}

	adapter := ferrors.NewCLIErrorAdapter(cli.Verbose, g.Logger).
		WithOutput(g.Stderr).
		WithExit(func(c int) { code = c })
	adapter.HandleError(kctx.Run(cli))
	return code
}
