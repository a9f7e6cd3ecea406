package plugin

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"git.home.luguber.info/inful/rsbuild/internal/bundler"
	"git.home.luguber.info/inful/rsbuild/internal/chain"
	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/errors"
	"git.home.luguber.info/inful/rsbuild/internal/logfields"
	"git.home.luguber.info/inful/rsbuild/internal/metrics"
)

// HookName identifies one hook bus.
type HookName string

const (
	HookSetup                   HookName = "setup"
	HookModifyRsbuildConfig     HookName = "modifyRsbuildConfig"
	HookModifyEnvironmentConfig HookName = "modifyEnvironmentConfig"
	HookModifyBundlerChain      HookName = "modifyBundlerChain"
	HookModifyBundlerConfig     HookName = "modifyBundlerConfig"
	HookOnBeforeCreateCompiler  HookName = "onBeforeCreateCompiler"
	HookOnAfterCreateCompiler   HookName = "onAfterCreateCompiler"
	HookOnBeforeBuild           HookName = "onBeforeBuild"
	HookOnAfterBuild            HookName = "onAfterBuild"
	HookOnDevCompileDone        HookName = "onDevCompileDone"
	HookOnExit                  HookName = "onExit"
)

// HookNames lists every hook bus in pipeline order.
func HookNames() []HookName {
	return []HookName{
		HookModifyRsbuildConfig,
		HookModifyEnvironmentConfig,
		HookModifyBundlerChain,
		HookModifyBundlerConfig,
		HookOnBeforeCreateCompiler,
		HookOnAfterCreateCompiler,
		HookOnBeforeBuild,
		HookOnAfterBuild,
		HookOnDevCompileDone,
		HookOnExit,
	}
}

// Order places a tap within its hook. Taps of the same order run in plugin
// resolution order.
type Order int

const (
	OrderPre Order = iota - 1
	OrderDefault
	OrderPost
)

func (o Order) String() string {
	switch o {
	case OrderPre:
		return "pre"
	case OrderPost:
		return "post"
	default:
		return "default"
	}
}

// TapOption adjusts a single tap.
type TapOption func(*tapOptions)

type tapOptions struct{ order Order }

// WithOrder sets the tap's order class.
func WithOrder(o Order) TapOption { return func(t *tapOptions) { t.order = o } }

type tap[F any] struct {
	plugin string
	order  Order
	seq    int
	fn     F
}

// Bus is an ordered list of handlers for one hook. Handlers run one at a
// time; each finishes before the next starts.
type Bus[F any] struct {
	name     HookName
	logger   *slog.Logger
	recorder metrics.Recorder
	taps     []tap[F]
}

func newBus[F any](name HookName, logger *slog.Logger, rec metrics.Recorder) *Bus[F] {
	return &Bus[F]{name: name, logger: logger, recorder: rec}
}

// Name returns the hook name.
func (b *Bus[F]) Name() HookName { return b.name }

// Tap registers fn on behalf of plugin.
func (b *Bus[F]) Tap(plugin string, fn F, opts ...TapOption) {
	o := tapOptions{order: OrderDefault}
	for _, opt := range opts {
		opt(&o)
	}
	b.taps = append(b.taps, tap[F]{plugin: plugin, order: o.order, seq: len(b.taps), fn: fn})
	sort.SliceStable(b.taps, func(i, j int) bool {
		if b.taps[i].order != b.taps[j].order {
			return b.taps[i].order < b.taps[j].order
		}
		return b.taps[i].seq < b.taps[j].seq
	})
}

// Len returns the number of taps.
func (b *Bus[F]) Len() int { return len(b.taps) }

// Plugins lists the plugins with a tap, in execution order.
func (b *Bus[F]) Plugins() []string {
	out := make([]string, 0, len(b.taps))
	for _, t := range b.taps {
		out = append(out, t.plugin)
	}
	return out
}

// Call invokes every tap through invoke, in order. The first failure stops
// the bus and is returned as a hook error tagged with plugin and hook.
func (b *Bus[F]) Call(ctx context.Context, invoke func(fn F) error) error {
	for _, t := range b.taps {
		if err := ctx.Err(); err != nil {
			b.recorder.IncHookResult(string(b.name), metrics.ResultCanceled)
			return err
		}
		start := time.Now()
		err := invoke(t.fn)
		elapsed := time.Since(start)
		b.recorder.ObserveHookDuration(string(b.name), t.plugin, elapsed)
		b.logger.Debug("hook handler finished",
			logfields.Hook(string(b.name)),
			logfields.Plugin(t.plugin),
			logfields.DurationMS(float64(elapsed.Microseconds())/1000),
		)
		if err != nil {
			b.recorder.IncHookResult(string(b.name), metrics.ResultFailed)
			return errors.HookFailed(t.plugin, string(b.name), &HookError{Plugin: t.plugin, Hook: b.name, Err: err})
		}
	}
	b.recorder.IncHookResult(string(b.name), metrics.ResultSuccess)
	return nil
}

// ConfigUtils is passed to config modifying handlers.
type ConfigUtils struct {
	// Environment is empty for modifyRsbuildConfig.
	Environment string
}

// MergeConfig deep-merges configs with the normalizer's merge rules.
func (ConfigUtils) MergeConfig(configs ...config.Map) config.Map {
	return config.DeepMerge(configs...)
}

// EnvironmentContext describes the environment a chain or bundler config
// handler runs for.
type EnvironmentContext struct {
	Name       string
	Target     config.Target
	Mode       config.Mode
	// Normalized is a copy; changes do not reach the builder.
	Normalized *config.Normalized
	// Bundler offers the constructors handlers can Use on chain entries.
	Bundler *bundler.Catalog
}

// IsProd reports whether the environment builds in production mode.
func (e EnvironmentContext) IsProd() bool { return e.Mode == config.ModeProduction }

// IsDev reports whether the environment builds in development mode.
func (e EnvironmentContext) IsDev() bool { return e.Mode == config.ModeDevelopment }

// BuildEvent is passed to onBeforeBuild.
type BuildEvent struct {
	Environments   []string
	BundlerConfigs []config.Map
	IsFirstCompile bool
	IsWatch        bool
}

// CompilerEvent is passed to compiler creation hooks. Compilers is empty
// for onBeforeCreateCompiler.
type CompilerEvent struct {
	Environments   []string
	BundlerConfigs []config.Map
	Compilers      []*bundler.Compiler
}

// AfterBuildEvent is passed to onAfterBuild and onDevCompileDone.
type AfterBuildEvent struct {
	Stats          []*bundler.Stats
	IsFirstCompile bool
}

// ExitEvent is passed to onExit.
type ExitEvent struct {
	ExitCode int
}

type (
	ModifyRsbuildConfigFunc     func(ctx context.Context, cfg config.Map, u ConfigUtils) (config.Map, error)
	ModifyEnvironmentConfigFunc func(ctx context.Context, cfg config.Map, u ConfigUtils) (config.Map, error)
	ModifyBundlerChainFunc      func(ctx context.Context, c *chain.Chain, env EnvironmentContext) error
	ModifyBundlerConfigFunc     func(ctx context.Context, cfg config.Map, env EnvironmentContext) error
	CompilerFunc                func(ctx context.Context, ev CompilerEvent) error
	BeforeBuildFunc             func(ctx context.Context, ev BuildEvent) error
	AfterBuildFunc              func(ctx context.Context, ev AfterBuildEvent) error
	ExitFunc                    func(ctx context.Context, ev ExitEvent) error
)

// Hooks is the closed set of hook buses.
type Hooks struct {
	ModifyRsbuildConfig     *Bus[ModifyRsbuildConfigFunc]
	ModifyEnvironmentConfig *Bus[ModifyEnvironmentConfigFunc]
	ModifyBundlerChain      *Bus[ModifyBundlerChainFunc]
	ModifyBundlerConfig     *Bus[ModifyBundlerConfigFunc]
	OnBeforeCreateCompiler  *Bus[CompilerFunc]
	OnAfterCreateCompiler   *Bus[CompilerFunc]
	OnBeforeBuild           *Bus[BeforeBuildFunc]
	OnAfterBuild            *Bus[AfterBuildFunc]
	OnDevCompileDone        *Bus[AfterBuildFunc]
	OnExit                  *Bus[ExitFunc]
}

// NewHooks creates empty buses. A nil logger or recorder uses the defaults.
func NewHooks(logger *slog.Logger, rec metrics.Recorder) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	rec = metrics.OrNoop(rec)
	return &Hooks{
		ModifyRsbuildConfig:     newBus[ModifyRsbuildConfigFunc](HookModifyRsbuildConfig, logger, rec),
		ModifyEnvironmentConfig: newBus[ModifyEnvironmentConfigFunc](HookModifyEnvironmentConfig, logger, rec),
		ModifyBundlerChain:      newBus[ModifyBundlerChainFunc](HookModifyBundlerChain, logger, rec),
		ModifyBundlerConfig:     newBus[ModifyBundlerConfigFunc](HookModifyBundlerConfig, logger, rec),
		OnBeforeCreateCompiler:  newBus[CompilerFunc](HookOnBeforeCreateCompiler, logger, rec),
		OnAfterCreateCompiler:   newBus[CompilerFunc](HookOnAfterCreateCompiler, logger, rec),
		OnBeforeBuild:           newBus[BeforeBuildFunc](HookOnBeforeBuild, logger, rec),
		OnAfterBuild:            newBus[AfterBuildFunc](HookOnAfterBuild, logger, rec),
		OnDevCompileDone:        newBus[AfterBuildFunc](HookOnDevCompileDone, logger, rec),
		OnExit:                  newBus[ExitFunc](HookOnExit, logger, rec),
	}
}

// Counts returns the number of taps per hook.
func (h *Hooks) Counts() map[HookName]int {
	return map[HookName]int{
		HookModifyRsbuildConfig:     h.ModifyRsbuildConfig.Len(),
		HookModifyEnvironmentConfig: h.ModifyEnvironmentConfig.Len(),
		HookModifyBundlerChain:      h.ModifyBundlerChain.Len(),
		HookModifyBundlerConfig:     h.ModifyBundlerConfig.Len(),
		HookOnBeforeCreateCompiler:  h.OnBeforeCreateCompiler.Len(),
		HookOnAfterCreateCompiler:   h.OnAfterCreateCompiler.Len(),
		HookOnBeforeBuild:           h.OnBeforeBuild.Len(),
		HookOnAfterBuild:            h.OnAfterBuild.Len(),
		HookOnDevCompileDone:        h.OnDevCompileDone.Len(),
		HookOnExit:                  h.OnExit.Len(),
	}
}

// RunModifyConfig threads cfg through a config modifying bus. A handler
// returning nil keeps the config it was given.
func RunModifyConfig[F ~func(context.Context, config.Map, ConfigUtils) (config.Map, error)](
	ctx context.Context, b *Bus[F], cfg config.Map, u ConfigUtils,
) (config.Map, error) {
	cur := cfg
	err := b.Call(ctx, func(fn F) error {
		next, err := fn(ctx, cur, u)
		if err != nil {
			return err
		}
		if next != nil {
			cur = next
		}
		return nil
	})
	return cur, err
}
