// Package esbuild runs frozen bundler configs with the esbuild Go API.
package esbuild

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/rsbuild/internal/bundler"
	"git.home.luguber.info/inful/rsbuild/internal/errors"
	"git.home.luguber.info/inful/rsbuild/internal/logfields"
)

// Name identifies the runner in build contexts and logs.
const Name = "esbuild"

const entryNamespace = "rsbuild-entry"

// Runner implements bundler.Runner.
type Runner struct {
	logger *slog.Logger
	write  bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithoutWrite keeps assets in memory instead of writing them to output.path.
func WithoutWrite() Option { return func(r *Runner) { r.write = false } }

// New returns a runner that writes assets to disk.
func New(opts ...Option) *Runner {
	r := &Runner{logger: slog.Default(), write: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name implements bundler.Runner.
func (r *Runner) Name() string { return Name }

// Run builds c's config once. Bundler diagnostics end up in the returned
// stats; an error is returned only when no compilation could be completed.
func (r *Runner) Run(ctx context.Context, c *bundler.Compiler) (*bundler.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	opts, err := Translate(c.Options, c.Plugins)
	if err != nil {
		return nil, errors.BundlerFailed(c.Name, err)
	}
	opts.Build.EntryPoints = make([]string, 0, len(opts.Entries))
	for _, name := range opts.EntryNames() {
		opts.Build.EntryPoints = append(opts.Build.EntryPoints, entryNamespace+":"+name)
	}
	opts.Build.Plugins = append(opts.Build.Plugins, entryPlugin(opts.Entries, opts.Build.AbsWorkingDir))

	comp, err := c.NewCompilation()
	if err != nil {
		return nil, errors.BundlerFailed(c.Name, err)
	}
	logger := comp.Logger

	result := api.Build(opts.Build)
	for _, msg := range result.Errors {
		comp.AddError(fmt.Errorf("%s", formatMessage(msg)))
	}
	for _, msg := range result.Warnings {
		comp.AddWarning(fmt.Errorf("%s", formatMessage(msg)))
	}

	for _, f := range result.OutputFiles {
		rel, err := filepath.Rel(opts.Build.Outdir, f.Path)
		if err != nil {
			return nil, errors.BundlerFailed(c.Name, err)
		}
		name := filepath.ToSlash(rel)
		if strings.HasSuffix(name, ".css") && opts.CSSFilename != "" {
			name = renameCSS(name, opts.CSSFilename)
		}
		comp.EmitAsset(name, bundler.RawSource(f.Contents))
	}

	if err := comp.Seal(ctx); err != nil {
		return nil, errors.BundlerFailed(c.Name, err)
	}

	if r.write && len(result.Errors) == 0 {
		if err := comp.WriteAssets(opts.Build.Outdir); err != nil {
			return nil, errors.FileSystemError("write assets", opts.Build.Outdir, err)
		}
	}

	stats := comp.Stats()
	stats.Duration = time.Since(start)
	logger.Debug("esbuild compilation finished",
		slog.Int("assets", len(stats.Assets)),
		slog.Int("errors", len(stats.Errors)),
		logfields.DurationMS(float64(stats.Duration.Microseconds())/1000),
	)
	if err := c.Hooks.Done.Call(stats); err != nil {
		return stats, errors.BundlerFailed(c.Name, err)
	}
	return stats, nil
}

// entryPlugin serves one virtual module per entry that imports the entry's
// files in order, so every entry is emitted under its configured name.
func entryPlugin(entries map[string][]string, root string) api.Plugin {
	return api.Plugin{
		Name: entryNamespace,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^" + entryNamespace + ":"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:      strings.TrimPrefix(args.Path, entryNamespace+":"),
						Namespace: entryNamespace,
					}, nil
				})
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: entryNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					files, ok := entries[args.Path]
					if !ok {
						return api.OnLoadResult{}, fmt.Errorf("unknown entry %q", args.Path)
					}
					contents := entryModule(files)
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: root,
						Loader:     api.LoaderJS,
					}, nil
				})
		},
	}
}

func entryModule(files []string) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "import %s;\n", strconv.Quote(filepath.ToSlash(f)))
	}
	return b.String()
}

func renameCSS(name, pattern string) string {
	base := strings.TrimSuffix(path.Base(name), ".css")
	return strings.ReplaceAll(pattern, "[name]", base)
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
}
