package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/rsbuild/internal/browserslist"
	"git.home.luguber.info/inful/rsbuild/internal/bundler"
	"git.home.luguber.info/inful/rsbuild/internal/chain"
	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/logfields"
	"git.home.luguber.info/inful/rsbuild/internal/plugin"
)

// Builtin plugin names.
const (
	PluginBasic    = "rsbuild:basic"
	PluginEntry    = "rsbuild:entry"
	PluginOutput   = "rsbuild:output"
	PluginResolve  = "rsbuild:resolve"
	PluginDefine   = "rsbuild:define"
	PluginTarget   = "rsbuild:target"
	PluginMinimize = "rsbuild:minimize"
	PluginSWC      = "rsbuild:swc"
	PluginHTML     = "rsbuild:html"
	PluginTools    = "rsbuild:tools"
)

// DefaultEntry is used when source.entry is empty.
var DefaultEntry = map[string][]string{"index": {"./src/index.js"}}

// DefaultExtensions are the resolve extensions seeded into every chain.
var DefaultExtensions = []string{".ts", ".tsx", ".mjs", ".js", ".jsx", ".json"}

// BuiltinPlugins returns the plugins that seed the chain from the
// normalized config, in registration order.
func BuiltinPlugins() []plugin.Plugin {
	return []plugin.Plugin{
		plugin.New(PluginBasic, setupBasic),
		plugin.New(PluginEntry, setupEntry),
		plugin.New(PluginOutput, setupOutput),
		plugin.New(PluginResolve, setupResolve),
		plugin.New(PluginDefine, setupDefine),
		plugin.New(PluginTarget, setupTarget),
		plugin.New(PluginMinimize, setupMinimize),
		plugin.New(PluginSWC, setupSWC),
		plugin.New(PluginHTML, setupHTML).WithPre(PluginOutput),
		plugin.New(PluginTools, setupTools),
	}
}

func setupBasic(api *plugin.API) error {
	root := api.Context().RootPath
	api.ModifyBundlerChain(func(_ context.Context, c *chain.Chain, env plugin.EnvironmentContext) error {
		c.Root().
			Set("name", env.Name).
			Set("mode", string(env.Mode)).
			Set("context", root)
		if env.Normalized.Output.SourceMap {
			c.Root().Set("devtool", "source-map")
		} else {
			c.Root().Set("devtool", false)
		}
		return nil
	})
	return nil
}

func setupEntry(api *plugin.API) error {
	api.ModifyBundlerChain(func(_ context.Context, c *chain.Chain, env plugin.EnvironmentContext) error {
		entries := env.Normalized.Source.Entry
		if len(entries) == 0 {
			entries = DefaultEntry
		}
		node := c.Object("entry")
		for _, name := range sortedKeys(entries) {
			files := make([]any, 0, len(env.Normalized.Source.PreEntry)+len(entries[name]))
			for _, f := range env.Normalized.Source.PreEntry {
				files = append(files, f)
			}
			for _, f := range entries[name] {
				files = append(files, f)
			}
			node.Set(name, files)
		}
		return nil
	})
	return nil
}

func setupOutput(api *plugin.API) error {
	root := api.Context().RootPath
	api.ModifyBundlerChain(func(_ context.Context, c *chain.Chain, env plugin.EnvironmentContext) error {
		out := env.Normalized.Output
		c.Object("output").
			Set("path", env.Normalized.DistDir(root)).
			Set("filename", path.Join(out.DistPath.JS, "[name].js")).
			Set("cssFilename", path.Join(out.DistPath.CSS, "[name].css")).
			Set("publicPath", out.AssetPrefix)
		return nil
	})
	api.OnBeforeBuild(func(_ context.Context, ev plugin.BuildEvent) error {
		if !ev.IsFirstCompile {
			return nil
		}
		for _, name := range ev.Environments {
			n, ok := api.GetNormalizedConfig(name)
			if !ok || !n.Output.CleanDistPath {
				continue
			}
			if err := cleanDist(root, n.DistDir(root)); err != nil {
				return err
			}
			api.Logger().Debug("Cleaned dist directory", logfields.Path(n.DistDir(root)))
		}
		return nil
	})
	return nil
}

// cleanDist removes dist when it lies inside root.
func cleanDist(root, dist string) error {
	rel, err := filepath.Rel(root, dist)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("refusing to clean dist path %s outside the project root", dist)
	}
	return os.RemoveAll(dist)
}

func setupResolve(api *plugin.API) error {
	api.ModifyBundlerChain(func(_ context.Context, c *chain.Chain, env plugin.EnvironmentContext) error {
		resolve := c.Object("resolve")
		alias := resolve.Object("alias")
		for k, v := range env.Normalized.Source.Alias {
			alias.Set(k, v)
		}
		exts := make([]any, 0, len(DefaultExtensions))
		for _, e := range DefaultExtensions {
			exts = append(exts, e)
		}
		resolve.Set("extensions", exts)
		return nil
	})
	return nil
}

// defineValue renders a source.define value as a JavaScript expression.
// Strings are taken as code; other values are JSON encoded.
func defineValue(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Defines returns the global replacements for env: the builtin mode values
// followed by source.define.
func Defines(env plugin.EnvironmentContext) (map[string]any, error) {
	n := env.Normalized
	mode := string(env.Mode)
	defs := map[string]any{
		"process.env.NODE_ENV":         strconv.Quote(mode),
		"import.meta.env.MODE":         strconv.Quote(mode),
		"import.meta.env.DEV":          strconv.FormatBool(env.IsDev()),
		"import.meta.env.PROD":         strconv.FormatBool(env.IsProd()),
		"import.meta.env.BASE_URL":     strconv.Quote(n.Server.Base),
		"import.meta.env.ASSET_PREFIX": strconv.Quote(strings.TrimSuffix(n.Output.AssetPrefix, "/")),
	}
	for k, v := range n.Source.Define {
		s, err := defineValue(v)
		if err != nil {
			return nil, fmt.Errorf("source.define.%s: %w", k, err)
		}
		defs[k] = s
	}
	return defs, nil
}

func setupDefine(api *plugin.API) error {
	api.ModifyBundlerChain(func(_ context.Context, c *chain.Chain, env plugin.EnvironmentContext) error {
		defs, err := Defines(env)
		if err != nil {
			return err
		}
		ctor, ok := env.Bundler.Get(bundler.DefinePluginConstructor.Kind)
		if !ok {
			ctor = bundler.DefinePluginConstructor
		}
		c.Plugin(bundler.PluginDefine).Use(ctor, defs)
		return nil
	})
	return nil
}

func bundlerTarget(t config.Target) string {
	switch t {
	case config.TargetNode:
		return "node"
	case config.TargetWebWorker:
		return "webworker"
	default:
		return "web"
	}
}

func setupTarget(api *plugin.API) error {
	api.ModifyBundlerChain(func(_ context.Context, c *chain.Chain, env plugin.EnvironmentContext) error {
		es := browserslist.ESVersion(env.Normalized.Output.OverrideBrowserslist)
		c.Root().Set("target", []any{bundlerTarget(env.Target), browserslist.ESTarget(es)})
		return nil
	})
	return nil
}

func setupMinimize(api *plugin.API) error {
	api.ModifyBundlerChain(func(_ context.Context, c *chain.Chain, env plugin.EnvironmentContext) error {
		c.Object("optimization").Set("minimize", env.Normalized.Output.Minify)
		return nil
	})
	return nil
}

func setupSWC(api *plugin.API) error {
	api.ModifyBundlerChain(func(_ context.Context, c *chain.Chain, env plugin.EnvironmentContext) error {
		targets := make([]any, 0, len(env.Normalized.Output.OverrideBrowserslist))
		for _, q := range env.Normalized.Output.OverrideBrowserslist {
			targets = append(targets, q)
		}
		for _, r := range []struct {
			name, test, syntax string
		}{
			{bundler.RuleJS, `\.(?:js|mjs|cjs|jsx)$`, "ecmascript"},
			{bundler.RuleTS, `\.(?:ts|mts|cts|tsx)$`, "typescript"},
		} {
			opts := config.DeepMerge(config.Map{
				"jsc": config.Map{
					"parser": config.Map{"syntax": r.syntax, "jsx": r.syntax == "ecmascript", "tsx": r.syntax == "typescript"},
					"transform": config.Map{
						"react": config.Map{"runtime": "automatic"},
					},
				},
				"env": config.Map{"targets": targets},
			}, env.Normalized.Tools.SWC)
			rule := c.Rule(r.name).Set("test", r.test)
			rule.Entry("use", bundler.UseSWC).
				Set("loader", bundler.LoaderSWC).
				Set("options", map[string]any(opts))
		}
		return nil
	})
	return nil
}

func setupHTML(api *plugin.API) error {
	api.ModifyBundlerChain(func(_ context.Context, c *chain.Chain, env plugin.EnvironmentContext) error {
		n := env.Normalized
		if !n.HTML.Enable || env.Target != config.TargetWeb {
			return nil
		}
		entries := n.Source.Entry
		if len(entries) == 0 {
			entries = DefaultEntry
		}
		names := make([]any, 0, len(entries))
		for _, name := range sortedKeys(entries) {
			names = append(names, name)
		}
		template := ""
		if n.HTML.Template != "" {
			template = config.ResolvePath(api.Context().RootPath, n.HTML.Template)
		}
		ctor, ok := env.Bundler.Get(HTMLPluginConstructor.Kind)
		if !ok {
			ctor = HTMLPluginConstructor
		}
		c.Plugin(bundler.PluginHTML).Use(ctor, map[string]any{
			"entries":       names,
			"title":         n.HTML.Title,
			"mountId":       n.HTML.MountID,
			"template":      template,
			"publicPath":    n.Output.AssetPrefix,
			"jsFilename":    path.Join(n.Output.DistPath.JS, "[name].js"),
			"cssFilename":   path.Join(n.Output.DistPath.CSS, "[name].css"),
			"htmlDir":       n.Output.DistPath.HTML,
			"inlineScripts": n.Output.InlineScripts,
		})
		return nil
	})
	return nil
}

// setupTools deep-merges tools.bundler into each frozen config after every
// other handler.
func setupTools(api *plugin.API) error {
	api.ModifyBundlerConfig(func(_ context.Context, cfg config.Map, env plugin.EnvironmentContext) error {
		extra := env.Normalized.Tools.Bundler
		if len(extra) == 0 {
			return nil
		}
		merged := config.DeepMerge(cfg, extra)
		for k := range cfg {
			if _, ok := merged[k]; !ok {
				delete(cfg, k)
			}
		}
		for k, v := range merged {
			cfg[k] = v
		}
		return nil
	}, plugin.WithOrder(plugin.OrderPost))
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
