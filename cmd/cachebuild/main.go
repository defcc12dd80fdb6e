package main

import (
	"git.home.luguber.info/inful/cachebuild/cmd/cachebuild/commands"
	"git.home.luguber.info/inful/cachebuild/internal/version"
	"github.com/alecthomas/kong"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("cachebuild"),
		kong.Description("Declarative build orchestration with incremental dependency caching"),
		kong.Vars{"version": version.String()},
	)
	err := ctx.Run(&commands.Global{})
	ctx.FatalIfErrorf(err)
}
