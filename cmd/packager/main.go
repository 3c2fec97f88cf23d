// Command packager resolves a project description into build directories:
// it matches source files per build, optionally combines scripts, copies
// stale files into place and rewrites template markers.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/packager/cmd/packager/commands"
	ferrors "git.home.luguber.info/inful/packager/internal/foundation/errors"
	"git.home.luguber.info/inful/packager/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("packager"),
		kong.Description("Resolve, combine and copy web assets into per-build target directories."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)

	err := ctx.Run(&commands.Global{
		Context: context.Background(),
		Logger:  slog.Default(),
		Stdout:  os.Stdout,
	})
	os.Exit(ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).Report(err))
}
