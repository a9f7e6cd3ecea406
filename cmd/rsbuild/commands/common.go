package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/rsbuild/internal/bundler"
	"git.home.luguber.info/inful/rsbuild/internal/checksyntax"
	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/core"
	"git.home.luguber.info/inful/rsbuild/internal/errors"
	"git.home.luguber.info/inful/rsbuild/internal/logfields"
	"git.home.luguber.info/inful/rsbuild/internal/metrics"
	"git.home.luguber.info/inful/rsbuild/internal/plugin"
	"git.home.luguber.info/inful/rsbuild/internal/plugins/preact"
)

// Global carries state set up once flags are parsed.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Root         string           `short:"r" help:"Project root directory" default:"." type:"path"`
	Config       string           `short:"c" help:"Configuration file, relative to the root (default: rsbuild.config.yaml)"`
	Mode         string           `short:"m" help:"Build mode (development|production|none). Precedence: --mode > NODE_ENV > config > command default."`
	Environments []string         `name:"environment" short:"e" help:"Only handle these environments" sep:","`
	Verbose      bool             `short:"v" help:"Enable verbose logging and detailed inspect output"`
	LogFormat    string           `name:"log-format" help:"Log output format" enum:"text,json" default:"text"`
	MetricsFile  string           `name:"metrics-file" help:"Write Prometheus metrics to this file on exit"`
	Version      kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the project for every environment"`
	Inspect InspectCmd `cmd:"" help:"Write the resolved Rsbuild and bundler configs"`
	Check   CheckCmd   `cmd:"" help:"Check the syntax of an existing output directory"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`

	recorder *metrics.PrometheusRecorder
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	g.Logger = logger
	return nil
}

// Recorder returns the metrics recorder. Without --metrics-file metrics are
// discarded.
func (c *CLI) Recorder() metrics.Recorder {
	if c.MetricsFile == "" {
		return metrics.NoopRecorder{}
	}
	if c.recorder == nil {
		c.recorder = metrics.NewPrometheusRecorder(prom.NewRegistry())
	}
	return c.recorder
}

// WriteMetrics writes the gathered metrics when --metrics-file is set.
func (c *CLI) WriteMetrics() {
	if c.recorder == nil {
		return
	}
	path := config.ResolvePath(c.Root, c.MetricsFile)
	if err := c.recorder.WriteTextfile(path); err != nil {
		slog.Warn("Failed to write metrics", logfields.Path(path), logfields.Error(err))
		return
	}
	slog.Debug("Metrics written", logfields.Path(path))
}

// ResolveMode picks the mode from --mode, NODE_ENV, the config file's mode
// and def, in that order.
func (c *CLI) ResolveMode(cfg config.Map, def config.Mode) (config.Mode, error) {
	for _, candidate := range []struct{ source, value string }{
		{"--mode", c.Mode},
		{"NODE_ENV", os.Getenv("NODE_ENV")},
		{"mode", config.LookupString(cfg, "mode")},
	} {
		if candidate.value == "" {
			continue
		}
		mode, err := config.ParseMode(candidate.value, def)
		if err != nil {
			return "", errors.ValidationFailed(candidate.source, err.Error())
		}
		return mode, nil
	}
	return def, nil
}

// LoadConfig finds and reads the configuration file. A missing default file
// yields an empty config.
func (c *CLI) LoadConfig() (string, config.Map, error) {
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return "", nil, errors.FileSystemError("resolve root", c.Root, err)
	}
	path, ok, err := config.FindConfigFile(root, c.Config)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		slog.Debug("No configuration file found, using defaults", logfields.Path(root))
		return root, config.Map{}, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", nil, err
	}
	slog.Debug("Loaded configuration", logfields.Path(path))
	return root, cfg, nil
}

// NewBuilder loads the project configuration and .env files and returns a
// builder with the configured plugins.
func (c *CLI) NewBuilder(def config.Mode, runner bundler.Runner) (*core.Builder, error) {
	root, cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}
	mode, err := c.ResolveMode(cfg, def)
	if err != nil {
		return nil, err
	}
	env, err := config.LoadEnv(root, mode)
	if err != nil {
		return nil, err
	}
	for _, f := range env.Files {
		slog.Debug("Loaded env file", logfields.Path(f))
	}
	plugins, err := c.Plugins(cfg)
	if err != nil {
		return nil, err
	}
	return core.New(core.Options{
		RootPath:     root,
		Mode:         mode,
		Config:       cfg,
		Env:          env,
		Environments: c.Environments,
		Plugins:      plugins,
		Runner:       runner,
		Recorder:     c.Recorder(),
		Logger:       slog.Default(),
	})
}

type pluginFactory func(c *CLI) (plugin.Plugin, error)

// pluginCatalog lists the plugins a config file can enable by name.
var pluginCatalog = map[string]pluginFactory{
	"check-syntax": func(c *CLI) (plugin.Plugin, error) {
		return checksyntax.Plugin(checksyntax.Options{Recorder: c.Recorder()}), nil
	},
	"preact": func(*CLI) (plugin.Plugin, error) {
		return preact.Plugin(preact.Options{})
	},
}

// PluginNames returns the names accepted in the plugins list.
func PluginNames() []string {
	return []string{"check-syntax", "preact"}
}

// Plugins instantiates the plugins named in cfg's plugins list. The syntax
// checker is also added when checkSyntax is enabled.
func (c *CLI) Plugins(cfg config.Map) ([]plugin.Plugin, error) {
	var names []string
	if list, ok := cfg["plugins"].([]any); ok {
		for _, item := range list {
			name, ok := item.(string)
			if !ok {
				return nil, errors.ValidationFailed("plugins", fmt.Sprintf("entry %v is not a plugin name", item))
			}
			names = append(names, strings.TrimPrefix(name, "rsbuild:"))
		}
	}
	if checkSyntaxEnabled(cfg) {
		names = append(names, "check-syntax")
	}

	seen := make(map[string]bool)
	var out []plugin.Plugin
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		factory, ok := pluginCatalog[name]
		if !ok {
			return nil, errors.ValidationFailed("plugins",
				fmt.Sprintf("unknown plugin %q (available: %s)", name, strings.Join(PluginNames(), ", ")))
		}
		p, err := factory(c)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func checkSyntaxEnabled(cfg config.Map) bool {
	switch v := cfg["checkSyntax"].(type) {
	case bool:
		return v
	case map[string]any:
		enabled, _ := v["enable"].(bool)
		return enabled
	}
	return false
}

// exitCode maps a command result to the code passed to onExit handlers.
func exitCode(err error) int {
	return errors.NewCLIErrorAdapter(false, slog.Default()).ExitCodeFor(err)
}

// closeBuilder fires onExit and joins its error with err.
func closeBuilder(ctx context.Context, b *core.Builder, err error) error {
	if cerr := b.Close(ctx, exitCode(err)); cerr != nil && err == nil {
		return cerr
	}
	return err
}
