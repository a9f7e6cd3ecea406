package commands

import (
	"context"
	"fmt"
	"os"

	"git.home.luguber.info/inful/rsbuild/internal/checksyntax"
	"git.home.luguber.info/inful/rsbuild/internal/errors"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Dir         string   `arg:"" help:"Directory with the built JavaScript and HTML files" type:"existingdir"`
	ECMAVersion int      `name:"ecma-version" help:"Target ECMAScript version (5, 2015..2024); overrides --targets"`
	Targets     []string `help:"Browserslist queries to derive the version from" sep:"none"`
	Exclude     []string `help:"Files to skip: glob, /regexp/ or expr:<predicate>"`
}

func (c *CheckCmd) Run(ctx context.Context, root *CLI) error {
	defer root.WriteMetrics()

	checker, err := checksyntax.NewChecker(checksyntax.Options{
		Targets:     c.Targets,
		ECMAVersion: c.ECMAVersion,
		Exclude:     c.Exclude,
		RootPath:    c.Dir,
		Recorder:    root.Recorder(),
		Output:      os.Stderr,
	})
	if err != nil {
		return errors.ValidationFailed("check", err.Error())
	}
	errs, err := checker.CheckDir(ctx, c.Dir)
	if err != nil {
		return errors.FileSystemError("check syntax", c.Dir, err)
	}
	if len(errs) > 0 {
		return errors.New(errors.CategorySyntax, errors.SeverityError,
			fmt.Sprintf("found %d syntax error(s) in %s", len(errs), c.Dir)).
			WithContext("errors", len(errs))
	}
	fmt.Printf("No syntax errors found in %s\n", c.Dir)
	return nil
}
