package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/rsbuild/internal/bundler/esbuild"
	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/core"
	"git.home.luguber.info/inful/rsbuild/internal/logfields"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Watch    bool          `short:"w" help:"Rebuild when source files change"`
	Debounce time.Duration `help:"Quiet window before a watch rebuild" default:"100ms"`
}

func (b *BuildCmd) Run(ctx context.Context, root *CLI) error {
	defer root.WriteMetrics()

	builder, err := root.NewBuilder(config.ModeProduction, esbuild.New(esbuild.WithLogger(slog.Default())))
	if err != nil {
		return err
	}
	slog.Info("Starting build",
		logfields.Mode(string(builder.Mode())),
		logfields.Path(builder.RootPath()),
		slog.Bool("watch", b.Watch))

	result, err := builder.Build(ctx, core.BuildOptions{Watch: b.Watch, Debounce: b.Debounce})
	if result != nil {
		reportResult(result)
	}
	return closeBuilder(context.WithoutCancel(ctx), builder, err)
}

func reportResult(result *core.BuildResult) {
	for _, s := range result.Stats {
		for _, w := range s.Warnings {
			slog.Warn("Compilation warning", logfields.Environment(s.Environment), slog.String("warning", w))
		}
		slog.Info("Environment built",
			logfields.Environment(s.Environment),
			slog.Int("assets", len(s.Assets)),
			slog.Int("errors", len(s.Errors)),
			slog.Int("warnings", len(s.Warnings)))
	}
	if result.Status.IsSuccess() {
		fmt.Printf("Build succeeded in %s\n", result.Duration.Round(time.Millisecond))
		return
	}
	fmt.Printf("Build %s\n", result.Status)
	for _, e := range result.Errors() {
		fmt.Printf("  %s\n", e)
	}
}
