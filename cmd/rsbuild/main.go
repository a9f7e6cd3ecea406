package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/rsbuild/cmd/rsbuild/commands"
	"git.home.luguber.info/inful/rsbuild/internal/errors"
	"git.home.luguber.info/inful/rsbuild/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cli := &commands.CLI{}
	global := &commands.Global{}
	parser := kong.Parse(cli,
		kong.Name("rsbuild"),
		kong.Description("Build web projects through a plugin and config chain pipeline."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := parser.Run(global, cli)
	cancel()
	if err != nil {
		os.Exit(errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err))
	}
}
