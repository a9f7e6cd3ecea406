// Package checksyntax checks emitted JavaScript, and the inline scripts of
// emitted HTML, against a target ECMAScript version.
//
// A Checker is a bundler compiler plugin. It taps every compilation at the
// analyse stage, parses the JavaScript and HTML assets concurrently and
// prints one grouped report per compilation. Syntax errors never fail a
// build; they are recorded as compilation warnings.
package checksyntax

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/rsbuild/internal/browserslist"
	"git.home.luguber.info/inful/rsbuild/internal/bundler"
	"git.home.luguber.info/inful/rsbuild/internal/logfields"
	"git.home.luguber.info/inful/rsbuild/internal/metrics"
)

// PluginName is the bundler plugin name of the checker.
const PluginName = "CheckSyntaxPlugin"

var (
	jsAsset   = regexp.MustCompile(`\.(?:js|mjs|cjs|jsx)$`)
	htmlAsset = regexp.MustCompile(`\.html?$`)
)

// Options configures a Checker. ECMAVersion wins over Targets.
type Options struct {
	// Enable is only read by Plugin; nil defers to the config.
	Enable      *bool    `mapstructure:"enable"`
	Targets     []string `mapstructure:"targets"`
	ECMAVersion int      `mapstructure:"ecmaVersion"`
	// Exclude takes the entries accepted by CompileExclude.
	Exclude  any    `mapstructure:"exclude"`
	RootPath string `mapstructure:"rootPath"`

	Logger   *slog.Logger     `mapstructure:"-"`
	Recorder metrics.Recorder `mapstructure:"-"`
	// Output receives the grouped report.
	Output io.Writer `mapstructure:"-"`
}

func defaultOptions() Options {
	return Options{
		Logger:   slog.Default(),
		Recorder: metrics.NoopRecorder{},
		Output:   os.Stderr,
	}
}

// Checker checks the assets of compilations.
type Checker struct {
	version  int
	exclude  *Exclude
	rootPath string
	logger   *slog.Logger
	recorder metrics.Recorder
	out      io.Writer

	mu     sync.Mutex
	errors []*ECMASyntaxError
}

// NewChecker validates opts and fills the defaults.
func NewChecker(opts Options) (*Checker, error) {
	if err := mergo.Merge(&opts, defaultOptions()); err != nil {
		return nil, fmt.Errorf("check syntax options: %w", err)
	}
	version := opts.ECMAVersion
	if version == 0 {
		version = browserslist.ESVersion(opts.Targets)
	}
	if version >= 6 && version <= 15 {
		// Edition numbers: 6 is ES2015.
		version += 2009
	}
	if version < MinECMAVersion || version > MaxECMAVersion || (version > MinECMAVersion && version < 2015) {
		return nil, fmt.Errorf("unsupported ecmaVersion %d", version)
	}
	exclude, err := CompileExclude(opts.Exclude)
	if err != nil {
		return nil, err
	}
	return &Checker{
		version:  version,
		exclude:  exclude,
		rootPath: opts.RootPath,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		out:      opts.Output,
	}, nil
}

// Constructor instantiates checkers from chain arguments: Options values,
// *Options or option maps. base supplies the fields a map cannot carry.
func Constructor(base Options) *bundler.Constructor {
	return &bundler.Constructor{
		Kind: PluginName,
		New: func(args ...any) (bundler.Plugin, error) {
			opts := base
			for _, arg := range args {
				switch t := arg.(type) {
				case Options:
					if err := mergo.Merge(&opts, t, mergo.WithOverride); err != nil {
						return nil, err
					}
				case *Options:
					if err := mergo.Merge(&opts, *t, mergo.WithOverride); err != nil {
						return nil, err
					}
				default:
					if err := mapstructure.Decode(arg, &opts); err != nil {
						return nil, fmt.Errorf("%s options: %w", PluginName, err)
					}
				}
			}
			return NewChecker(opts)
		},
	}
}

// PluginName implements bundler.Plugin.
func (*Checker) PluginName() string { return PluginName }

// ECMAVersion returns the version code is checked against.
func (c *Checker) ECMAVersion() int { return c.version }

// Apply implements bundler.CompilerPlugin.
func (c *Checker) Apply(compiler *bundler.Compiler) error {
	compiler.Hooks.Compilation.Tap(PluginName, func(comp *bundler.Compilation) error {
		comp.ProcessAssets(PluginName, bundler.ProcessAssetsStageAnalyse,
			func(ctx context.Context, assets map[string]bundler.Source) error {
				errs, err := c.run(ctx, comp.Environment, assets, comp.OutputPath)
				if err != nil {
					return err
				}
				for _, e := range errs {
					comp.AddWarning(e)
				}
				return nil
			})
		return nil
	})
	return nil
}

// Errors returns the errors of the last checked compilation.
func (c *Checker) Errors() []*ECMASyntaxError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ECMASyntaxError(nil), c.errors...)
}

// run checks one compilation, replaces the recorded errors and reports
// them.
func (c *Checker) run(ctx context.Context, environment string, assets map[string]bundler.Source, outputPath string) ([]*ECMASyntaxError, error) {
	start := time.Now()
	errs, units, err := c.check(ctx, assets, outputPath)
	if err != nil {
		return nil, err
	}
	c.recorder.ObserveSyntaxCheck(environment, units, time.Since(start))
	c.flush(environment, errs)
	return errs, nil
}

func (c *Checker) flush(environment string, errs []*ECMASyntaxError) {
	c.mu.Lock()
	c.errors = errs
	c.mu.Unlock()

	c.recorder.AddSyntaxErrors(environment, len(errs))
	if len(errs) == 0 {
		return
	}
	c.logger.Warn("Syntax check found errors",
		logfields.Environment(environment),
		slog.Int("errors", len(errs)),
		slog.String("target", versionName(c.version)))
	if err := WriteReport(c.out, errs, c.version); err != nil {
		c.logger.Error("Failed to write syntax report", logfields.Error(err))
	}
}

type codeUnit struct {
	path string
	code string
}

// Check parses the JavaScript and HTML assets concurrently and returns the
// sorted syntax errors. Assets matched by the exclude patterns, relative or
// joined to outputPath, are skipped.
func (c *Checker) Check(ctx context.Context, assets map[string]bundler.Source, outputPath string) ([]*ECMASyntaxError, error) {
	errs, _, err := c.check(ctx, assets, outputPath)
	return errs, err
}

func (c *Checker) check(ctx context.Context, assets map[string]bundler.Source, outputPath string) ([]*ECMASyntaxError, int, error) {
	var (
		mu    sync.Mutex
		errs  []*ECMASyntaxError
		units int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for name, src := range assets {
		isJS, isHTML := jsAsset.MatchString(name), htmlAsset.MatchString(name)
		if !isJS && !isHTML {
			continue
		}
		if c.excluded(name, outputPath) {
			c.logger.Debug("Syntax check skipped excluded asset", logfields.Asset(name))
			continue
		}
		name, src := name, src
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			code := string(src.Source())
			var list []codeUnit
			if isHTML {
				scripts, err := HTMLScripts(code)
				if err != nil {
					return fmt.Errorf("read scripts of %s: %w", name, err)
				}
				for _, s := range scripts {
					list = append(list, codeUnit{path: name, code: s})
				}
			} else {
				list = []codeUnit{{path: name, code: code}}
			}
			var found []*ECMASyntaxError
			for _, u := range list {
				if e := c.checkUnit(u); e != nil {
					found = append(found, e)
				}
			}
			mu.Lock()
			errs = append(errs, found...)
			units += len(list)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	sortErrors(errs)
	return errs, units, nil
}

// excluded matches the asset name, its absolute path and its path relative
// to the project root against the exclude patterns.
func (c *Checker) excluded(name, outputPath string) bool {
	paths := []string{name}
	if outputPath != "" {
		abs := filepath.Join(outputPath, filepath.FromSlash(name))
		paths = append(paths, abs)
		if c.rootPath != "" {
			if rel, err := filepath.Rel(c.rootPath, abs); err == nil && !strings.HasPrefix(rel, "..") {
				paths = append(paths, rel)
			}
		}
	}
	return c.exclude.Match(paths...)
}

func (c *Checker) checkUnit(u codeUnit) *ECMASyntaxError {
	issue := parseUnit(u.code, c.version)
	if issue == nil {
		return nil
	}
	return &ECMASyntaxError{
		Message: issue.message,
		Source:  Location{Path: u.path, Line: issue.line, Column: issue.column},
		Code:    snippet(u.code, issue.line, issue.column),
	}
}

// CheckDir checks the JavaScript and HTML files below dir as one
// compilation and reports the result.
func (c *Checker) CheckDir(ctx context.Context, dir string) ([]*ECMASyntaxError, error) {
	assets := make(map[string]bundler.Source)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || (!jsAsset.MatchString(p) && !htmlAsset.MatchString(p)) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		assets[filepath.ToSlash(rel)] = bundler.RawSource(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.run(ctx, "", assets, dir)
}
