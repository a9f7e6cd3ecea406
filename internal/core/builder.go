package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/rsbuild/internal/bundler"
	"git.home.luguber.info/inful/rsbuild/internal/chain"
	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/errors"
	"git.home.luguber.info/inful/rsbuild/internal/logfields"
	"git.home.luguber.info/inful/rsbuild/internal/metrics"
	"git.home.luguber.info/inful/rsbuild/internal/plugin"
)

// Options configures a Builder.
type Options struct {
	// RootPath is the project root. Relative paths resolve against the
	// working directory.
	RootPath string

	// Mode overrides the config file's mode. Empty uses the config value,
	// else production.
	Mode config.Mode

	// Config is the user config tree, usually from config.Load.
	Config config.Map

	// Env holds variables loaded from .env files. Its public variables are
	// layered below the user config's source.define.
	Env *config.Env

	// Environments limits the build to these environment names.
	Environments []string

	// Plugins are registered after the builtin plugins.
	Plugins []plugin.Plugin

	// Runner executes frozen bundler configs. Required for Build.
	Runner bundler.Runner

	// Catalog offers bundler plugin constructors to chain handlers. Nil uses
	// the default catalog plus the HTML plugin.
	Catalog *bundler.Catalog

	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Environment is the configuration state of one build environment.
type Environment struct {
	Name   string
	Target config.Target

	// Tree is the normalized config tree after modifyEnvironmentConfig.
	Tree       config.Map
	Normalized *config.Normalized
	Warnings   []string

	// Chain is the chain after every modifyBundlerChain handler ran.
	Chain *chain.Chain

	// BundlerConfig is the frozen config after modifyBundlerConfig.
	BundlerConfig config.Map
}

// Builder runs the build pipeline for one project.
type Builder struct {
	rootPath string
	mode     config.Mode
	user     config.Map
	env      *config.Env
	only     []string
	runner   bundler.Runner
	catalog  *bundler.Catalog
	recorder metrics.Recorder
	logger   *slog.Logger

	registry *plugin.Registry
	hooks    *plugin.Hooks
	pctx     *plugin.Context

	mu            sync.RWMutex
	resolution    *plugin.Resolution
	rsbuildConfig config.Map
	normalized    map[string]*config.Normalized
}

// New creates a builder with the builtin plugins and opts.Plugins
// registered. Plugins are resolved and set up on first use.
func New(opts Options) (*Builder, error) {
	root := opts.RootPath
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.FileSystemError("resolve root", opts.RootPath, err)
	}

	user := config.CloneMap(opts.Config)
	if user == nil {
		user = config.Map{}
	}
	mode := opts.Mode
	if mode == "" {
		mode, err = config.ParseMode(config.LookupString(user, "mode"), config.ModeProduction)
		if err != nil {
			return nil, errors.ValidationFailed("mode", err.Error())
		}
	}
	if r := config.LookupString(user, "root"); r != "" {
		root = config.ResolvePath(root, r)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	buildID := uuid.NewString()
	logger = logger.With(logfields.BuildID(buildID))

	catalog := opts.Catalog
	if catalog == nil {
		catalog = bundler.DefaultCatalog()
		catalog.Add(HTMLPluginConstructor)
	}
	runnerName := ""
	if opts.Runner != nil {
		runnerName = opts.Runner.Name()
	}
	recorder := metrics.OrNoop(opts.Recorder)

	b := &Builder{
		rootPath:   root,
		mode:       mode,
		user:       user,
		env:        opts.Env,
		only:       opts.Environments,
		runner:     opts.Runner,
		catalog:    catalog,
		recorder:   recorder,
		logger:     logger,
		registry:   plugin.NewRegistry(),
		hooks:      plugin.NewHooks(logger, recorder),
		pctx:       plugin.NewContext(root, mode, buildID, runnerName, logger),
		normalized: make(map[string]*config.Normalized),
	}
	for _, p := range BuiltinPlugins() {
		if err := b.registry.Register(p); err != nil {
			return nil, err
		}
	}
	if err := b.AddPlugins(opts.Plugins...); err != nil {
		return nil, err
	}
	return b, nil
}

// AddPlugins registers plugins. It fails once plugins have been set up.
func (b *Builder) AddPlugins(plugins ...plugin.Plugin) error {
	if b.setUp() {
		return fmt.Errorf("plugins cannot be added after setup")
	}
	for _, p := range plugins {
		if err := b.registry.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// ReplacePlugin registers p in place of a plugin with the same name.
func (b *Builder) ReplacePlugin(p plugin.Plugin) error {
	if b.setUp() {
		return fmt.Errorf("plugins cannot be replaced after setup")
	}
	return b.registry.Register(p, plugin.WithReplace())
}

// RemovePlugins unregisters plugins by name.
func (b *Builder) RemovePlugins(names ...string) {
	for _, n := range names {
		b.registry.Unregister(n)
	}
}

// RootPath returns the absolute project root.
func (b *Builder) RootPath() string { return b.rootPath }

// Mode returns the build mode.
func (b *Builder) Mode() config.Mode { return b.mode }

// Context returns the context shared with plugins.
func (b *Builder) Context() *plugin.Context { return b.pctx }

// Hooks returns the hook buses.
func (b *Builder) Hooks() *plugin.Hooks { return b.hooks }

// Logger returns the builder's logger.
func (b *Builder) Logger() *slog.Logger { return b.logger }

// RsbuildConfig implements plugin.Host.
func (b *Builder) RsbuildConfig() config.Map {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.rsbuildConfig != nil {
		return b.rsbuildConfig
	}
	return b.user
}

// NormalizedConfig implements plugin.Host. It returns a copy.
func (b *Builder) NormalizedConfig(env string) (*config.Normalized, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.normalized[env]
	return n.Clone(), ok
}

// PluginExists implements plugin.Host. Before resolution it reports
// registration.
func (b *Builder) PluginExists(name string) bool {
	b.mu.RLock()
	res := b.resolution
	b.mu.RUnlock()
	if res == nil {
		return b.registry.Has(name)
	}
	for _, n := range res.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// PluginNames returns the resolved plugin order, resolving if needed.
func (b *Builder) PluginNames(ctx context.Context) ([]string, error) {
	if err := b.setup(ctx); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.resolution.Names(), nil
}

func (b *Builder) setUp() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.resolution != nil
}

// setup resolves the plugin order and runs every Setup once.
func (b *Builder) setup(ctx context.Context) error {
	if b.setUp() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := b.registry.Resolve()
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		b.logger.Warn(w)
	}
	b.mu.Lock()
	b.resolution = res
	b.mu.Unlock()

	b.logger.Debug("Plugins resolved", slog.Any("plugins", res.Names()))
	if err := plugin.SetupAll(res, b.hooks, b, b.pctx); err != nil {
		return err
	}
	return nil
}
