package plugin

import (
	"log/slog"

	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/errors"
	"git.home.luguber.info/inful/rsbuild/internal/logfields"
)

// Host gives plugins read access to pipeline state owned by the builder.
type Host interface {
	// RsbuildConfig returns the current user-level config.
	RsbuildConfig() config.Map
	// NormalizedConfig returns env's normalized config once it exists.
	NormalizedConfig(env string) (*config.Normalized, bool)
	// PluginExists reports whether name survived resolution.
	PluginExists(name string) bool
}

// API is handed to a plugin's Setup. Taps registered through it are
// attributed to that plugin.
type API struct {
	plugin string
	hooks  *Hooks
	host   Host
	ctx    *Context
	logger *slog.Logger
}

// NewAPI returns the API for the named plugin.
func NewAPI(plugin string, hooks *Hooks, host Host, ctx *Context) *API {
	return &API{
		plugin: plugin,
		hooks:  hooks,
		host:   host,
		ctx:    ctx,
		logger: ctx.Logger.With(logfields.Plugin(plugin)),
	}
}

// PluginName returns the name taps are attributed to.
func (a *API) PluginName() string { return a.plugin }

// Context returns the shared build context.
func (a *API) Context() *Context { return a.ctx }

// Logger returns a logger tagged with the plugin name.
func (a *API) Logger() *slog.Logger { return a.logger }

// GetRsbuildConfig returns the current user-level config. Treat it as
// read-only; use ModifyRsbuildConfig to change it.
func (a *API) GetRsbuildConfig() config.Map { return a.host.RsbuildConfig() }

// GetNormalizedConfig returns env's normalized config. It is available from
// modifyBundlerChain on.
func (a *API) GetNormalizedConfig(env string) (*config.Normalized, bool) {
	return a.host.NormalizedConfig(env)
}

// IsPluginExists reports whether name is part of the resolved plugin set.
func (a *API) IsPluginExists(name string) bool { return a.host.PluginExists(name) }

// Expose publishes a value for other plugins.
func (a *API) Expose(id string, value any) { a.ctx.Expose(id, value) }

// UseExposed retrieves a value published by another plugin.
func (a *API) UseExposed(id string) (any, bool) { return a.ctx.UseExposed(id) }

func (a *API) ModifyRsbuildConfig(fn ModifyRsbuildConfigFunc, opts ...TapOption) {
	a.hooks.ModifyRsbuildConfig.Tap(a.plugin, fn, opts...)
}

func (a *API) ModifyEnvironmentConfig(fn ModifyEnvironmentConfigFunc, opts ...TapOption) {
	a.hooks.ModifyEnvironmentConfig.Tap(a.plugin, fn, opts...)
}

func (a *API) ModifyBundlerChain(fn ModifyBundlerChainFunc, opts ...TapOption) {
	a.hooks.ModifyBundlerChain.Tap(a.plugin, fn, opts...)
}

func (a *API) ModifyBundlerConfig(fn ModifyBundlerConfigFunc, opts ...TapOption) {
	a.hooks.ModifyBundlerConfig.Tap(a.plugin, fn, opts...)
}

func (a *API) OnBeforeCreateCompiler(fn CompilerFunc, opts ...TapOption) {
	a.hooks.OnBeforeCreateCompiler.Tap(a.plugin, fn, opts...)
}

func (a *API) OnAfterCreateCompiler(fn CompilerFunc, opts ...TapOption) {
	a.hooks.OnAfterCreateCompiler.Tap(a.plugin, fn, opts...)
}

func (a *API) OnBeforeBuild(fn BeforeBuildFunc, opts ...TapOption) {
	a.hooks.OnBeforeBuild.Tap(a.plugin, fn, opts...)
}

func (a *API) OnAfterBuild(fn AfterBuildFunc, opts ...TapOption) {
	a.hooks.OnAfterBuild.Tap(a.plugin, fn, opts...)
}

func (a *API) OnDevCompileDone(fn AfterBuildFunc, opts ...TapOption) {
	a.hooks.OnDevCompileDone.Tap(a.plugin, fn, opts...)
}

func (a *API) OnExit(fn ExitFunc, opts ...TapOption) {
	a.hooks.OnExit.Tap(a.plugin, fn, opts...)
}

// SetupAll runs Setup for each resolved plugin in order. A failure is
// tagged with the plugin name and hook "setup".
func SetupAll(res *Resolution, hooks *Hooks, host Host, ctx *Context) error {
	for _, p := range res.Plugins {
		name := p.Metadata().Name
		if err := p.Setup(NewAPI(name, hooks, host, ctx)); err != nil {
			return errors.HookFailed(name, string(HookSetup), &HookError{Plugin: name, Hook: HookSetup, Err: err})
		}
	}
	return nil
}
