package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/rsbuild/internal/bundler/esbuild"
	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/inspect"
)

// InspectCmd implements the 'inspect' command.
type InspectCmd struct {
	Output string `short:"o" help:"Output directory, relative to the root (default: the dist path)"`
	Write  bool   `help:"Write the configs to disk; --no-write prints them" default:"true" negatable:""`
}

func (i *InspectCmd) Run(ctx context.Context, root *CLI) error {
	defer root.WriteMetrics()

	builder, err := root.NewBuilder(config.ModeDevelopment, nil)
	if err != nil {
		return err
	}
	res, err := inspect.Inspect(ctx, builder, inspect.Options{
		Verbose:     root.Verbose,
		OutputPath:  i.Output,
		WriteToDisk: i.Write,
		BundlerName: esbuild.Name,
	})
	if err != nil {
		return closeBuilder(ctx, builder, err)
	}
	if i.Write {
		fmt.Println("Inspect config succeeded, open the following files to view the content:")
		for _, f := range res.Files {
			fmt.Printf("  - %s\n", f)
		}
	} else {
		fmt.Printf("# %s\n%s", inspect.RsbuildConfigFile, res.RsbuildConfig)
		for n, env := range res.Environments {
			fmt.Printf("---\n# %s.config.%s.yaml\n%s", esbuild.Name, env, res.BundlerConfigs[n])
		}
	}
	return closeBuilder(ctx, builder, nil)
}
