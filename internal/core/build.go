package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/rsbuild/internal/bundler"
	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/errors"
	"git.home.luguber.info/inful/rsbuild/internal/logfields"
	"git.home.luguber.info/inful/rsbuild/internal/metrics"
	"git.home.luguber.info/inful/rsbuild/internal/plugin"
	"git.home.luguber.info/inful/rsbuild/internal/watch"
)

// BuildStatus represents the outcome of a build.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsSuccess returns true if every compilation finished without errors.
func (s BuildStatus) IsSuccess() bool { return s == BuildStatusSuccess }

// BuildOptions modifies a single Build call.
type BuildOptions struct {
	// Watch keeps rebuilding on source changes until ctx is done.
	Watch bool

	// Debounce is the watch quiet window; zero uses the watcher default.
	Debounce time.Duration
}

// BuildResult contains the outcome of the last compilation round.
type BuildResult struct {
	Status       BuildStatus
	Environments []string
	Stats        []*bundler.Stats
	// Rebuilds counts compilation rounds after the first in watch mode.
	Rebuilds  int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Errors returns every compilation error prefixed with its environment.
func (r *BuildResult) Errors() []string {
	var out []string
	for _, s := range r.Stats {
		for _, e := range s.Errors {
			out = append(out, s.Environment+": "+e)
		}
	}
	return out
}

// Build runs the full pipeline: configs, compilers, one bundler run per
// environment and the build lifecycle hooks. With opts.Watch it keeps
// rebuilding until ctx is cancelled and returns the last round's result.
func (b *Builder) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	if b.runner == nil {
		return nil, errors.InternalError("no bundler runner configured", nil)
	}
	start := time.Now()
	envs, err := b.InitConfigs(ctx)
	if err != nil {
		b.recorder.IncBuildOutcome(metrics.ResultFailed)
		return nil, err
	}

	names := make([]string, len(envs))
	configs := make([]config.Map, len(envs))
	for i, env := range envs {
		names[i] = env.Name
		configs[i] = env.BundlerConfig
	}

	err = b.hooks.OnBeforeCreateCompiler.Call(ctx, func(fn plugin.CompilerFunc) error {
		return fn(ctx, plugin.CompilerEvent{Environments: names, BundlerConfigs: configs})
	})
	if err != nil {
		return nil, err
	}
	compilers := make([]*bundler.Compiler, len(envs))
	for i, env := range envs {
		c, err := bundler.NewCompiler(env.Name, b.rootPath, env.BundlerConfig, b.logger)
		if err != nil {
			return nil, errors.BundlerFailed(env.Name, err)
		}
		compilers[i] = c
	}
	err = b.hooks.OnAfterCreateCompiler.Call(ctx, func(fn plugin.CompilerFunc) error {
		return fn(ctx, plugin.CompilerEvent{Environments: names, BundlerConfigs: configs, Compilers: compilers})
	})
	if err != nil {
		return nil, err
	}

	round := func(ctx context.Context, first bool) (*BuildResult, error) {
		res, err := b.compile(ctx, names, configs, compilers, first, opts.Watch)
		if res != nil {
			res.StartTime = start
		}
		return res, err
	}

	result, err := round(ctx, true)
	if !opts.Watch {
		return result, err
	}
	if err != nil {
		// A later edit may fix the compilation.
		if result == nil || result.Status != BuildStatusFailed {
			return result, err
		}
		b.logger.Error("Initial build failed", logfields.Error(err))
	}
	return b.watchAndRebuild(ctx, envs, opts, result, round)
}

// compile runs every compiler once, in parallel, between onBeforeBuild and
// onAfterBuild.
func (b *Builder) compile(ctx context.Context, names []string, configs []config.Map, compilers []*bundler.Compiler, first, isWatch bool) (*BuildResult, error) {
	started := time.Now()
	err := b.hooks.OnBeforeBuild.Call(ctx, func(fn plugin.BeforeBuildFunc) error {
		return fn(ctx, plugin.BuildEvent{
			Environments:   names,
			BundlerConfigs: configs,
			IsFirstCompile: first,
			IsWatch:        isWatch,
		})
	})
	if err != nil {
		return nil, err
	}

	stats := make([]*bundler.Stats, len(compilers))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range compilers {
		i, c := i, c
		g.Go(func() error {
			envStart := time.Now()
			s, err := b.runner.Run(gctx, c)
			b.recorder.ObserveBuildDuration(c.Name, time.Since(envStart))
			if err != nil {
				return err
			}
			stats[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			b.recorder.IncBuildOutcome(metrics.ResultCanceled)
			return &BuildResult{Status: BuildStatusCancelled, Environments: names}, err
		}
		b.recorder.IncBuildOutcome(metrics.ResultFailed)
		return nil, err
	}

	result := &BuildResult{
		Status:       BuildStatusSuccess,
		Environments: names,
		Stats:        stats,
		EndTime:      time.Now(),
	}
	result.Duration = result.EndTime.Sub(started)
	outcome := metrics.ResultSuccess
	for _, s := range stats {
		if s.HasErrors() {
			result.Status = BuildStatusFailed
			outcome = metrics.ResultFailed
		} else if s.HasWarnings() && outcome == metrics.ResultSuccess {
			outcome = metrics.ResultWarning
		}
	}
	b.recorder.IncBuildOutcome(outcome)

	ev := plugin.AfterBuildEvent{Stats: stats, IsFirstCompile: first}
	if err := b.hooks.OnAfterBuild.Call(ctx, func(fn plugin.AfterBuildFunc) error { return fn(ctx, ev) }); err != nil {
		return result, err
	}
	if b.mode == config.ModeDevelopment {
		if err := b.hooks.OnDevCompileDone.Call(ctx, func(fn plugin.AfterBuildFunc) error { return fn(ctx, ev) }); err != nil {
			return result, err
		}
	}

	b.logger.Info("Build finished",
		slog.String("status", string(result.Status)),
		slog.Int("environments", len(names)),
		logfields.DurationMS(float64(result.Duration.Microseconds())/1000))
	if result.Status == BuildStatusFailed {
		return result, errors.BundlerFailed(strings.Join(names, ","),
			fmt.Errorf("%d compilation error(s): %s", len(result.Errors()), strings.Join(result.Errors(), "; ")))
	}
	return result, nil
}

func (b *Builder) watchAndRebuild(ctx context.Context, envs []*Environment, opts BuildOptions,
	last *BuildResult, round func(context.Context, bool) (*BuildResult, error),
) (*BuildResult, error) {
	ignore := make([]string, 0, len(envs))
	for _, env := range envs {
		ignore = append(ignore, env.Normalized.DistDir(b.rootPath))
	}
	rebuilds := 0
	w, err := watch.New(watch.Config{
		Root:     b.rootPath,
		Ignore:   ignore,
		Debounce: opts.Debounce,
		Logger:   b.logger,
	}, func(ctx context.Context, changed []string) error {
		b.logger.Info("Rebuilding", slog.Int("changed", len(changed)))
		res, err := round(ctx, false)
		if res != nil {
			rebuilds++
			res.Rebuilds = rebuilds
			last = res
		}
		return err
	})
	if err != nil {
		return last, errors.FileSystemError("watch", b.rootPath, err)
	}
	if err := w.Start(ctx); err != nil {
		_ = w.Stop()
		return last, errors.FileSystemError("watch", b.rootPath, err)
	}
	<-ctx.Done()
	_ = w.Stop()
	<-w.Done()
	return last, nil
}

// Close fires onExit. Call it once when the process is about to exit.
func (b *Builder) Close(ctx context.Context, exitCode int) error {
	if !b.setUp() {
		return nil
	}
	return b.hooks.OnExit.Call(ctx, func(fn plugin.ExitFunc) error {
		return fn(ctx, plugin.ExitEvent{ExitCode: exitCode})
	})
}
