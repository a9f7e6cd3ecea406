package esbuild

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"git.home.luguber.info/inful/rsbuild/internal/bundler"
)

// Options is the subset of a frozen bundler config the runner understands,
// already translated into esbuild terms.
type Options struct {
	Build   api.BuildOptions
	Entries map[string][]string
	// CSSFilename renames emitted stylesheets ("static/css/[name].css").
	CSSFilename string
}

// Translate maps a frozen bundler config onto esbuild build options.
//
// Recognised keys: context, entry, output.{path,filename,cssFilename,
// publicPath}, resolve.{alias,extensions}, target, optimization.minimize,
// devtool, module.rules[*].use[*] with the swc loader (JSX runtime) and the
// DefinePlugin / BannerPlugin instances in plugins.
func Translate(cfg map[string]any, plugins []bundler.Plugin) (*Options, error) {
	root, _ := cfg["context"].(string)
	out := &Options{
		Entries: make(map[string][]string),
		Build: api.BuildOptions{
			AbsWorkingDir: root,
			Bundle:        true,
			Write:         false,
			LogLevel:      api.LogLevelSilent,
			Define:        map[string]string{},
		},
	}
	b := &out.Build

	entries, err := readEntries(cfg["entry"], root)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("bundler config has no entry")
	}
	out.Entries = entries

	output, _ := cfg["output"].(map[string]any)
	outPath, _ := output["path"].(string)
	if outPath == "" {
		return nil, fmt.Errorf("bundler config has no output.path")
	}
	if !filepath.IsAbs(outPath) && root != "" {
		outPath = filepath.Join(root, outPath)
	}
	b.Outdir = outPath
	if filename, _ := output["filename"].(string); filename != "" {
		b.EntryNames = entryNames(filename)
	}
	out.CSSFilename, _ = output["cssFilename"].(string)
	if publicPath, _ := output["publicPath"].(string); publicPath != "" && publicPath != "auto" {
		b.PublicPath = publicPath
	}

	if resolve, ok := cfg["resolve"].(map[string]any); ok {
		if alias, ok := resolve["alias"].(map[string]any); ok && len(alias) > 0 {
			b.Alias = make(map[string]string, len(alias))
			for k, v := range alias {
				s, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("resolve.alias.%s: expected string, got %T", k, v)
				}
				b.Alias[k] = s
			}
		}
		b.ResolveExtensions = stringList(resolve["extensions"])
	}

	b.Platform, b.Target, b.Format, err = readTarget(cfg["target"])
	if err != nil {
		return nil, err
	}

	if opt, ok := cfg["optimization"].(map[string]any); ok {
		if minimize, _ := opt["minimize"].(bool); minimize {
			b.MinifyWhitespace = true
			b.MinifyIdentifiers = true
			b.MinifySyntax = true
		}
	}

	switch devtool := cfg["devtool"].(type) {
	case string:
		switch {
		case devtool == "":
		case strings.HasPrefix(devtool, "inline"):
			b.Sourcemap = api.SourceMapInline
		case strings.HasPrefix(devtool, "hidden"):
			b.Sourcemap = api.SourceMapExternal
		default:
			b.Sourcemap = api.SourceMapLinked
		}
	case bool:
		if devtool {
			b.Sourcemap = api.SourceMapLinked
		}
	}

	applyJSX(b, cfg)

	for _, p := range plugins {
		switch p := p.(type) {
		case *bundler.DefinePlugin:
			for k, v := range p.Definitions {
				b.Define[k] = v
			}
		case *bundler.BannerPlugin:
			if b.Banner == nil {
				b.Banner = map[string]string{}
			}
			if prev := b.Banner["js"]; prev != "" {
				b.Banner["js"] = prev + "\n" + p.Banner
			} else {
				b.Banner["js"] = p.Banner
			}
		}
	}
	return out, nil
}

// entryNames turns an output filename template into esbuild's EntryNames,
// which carries no extension.
func entryNames(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = strings.ReplaceAll(name, "[contenthash]", "[hash]")
	name = strings.ReplaceAll(name, "[chunkhash]", "[hash]")
	return name
}

func readEntries(v any, root string) (map[string][]string, error) {
	raw, ok := v.(map[string]any)
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("entry: expected object, got %T", v)
	}
	out := make(map[string][]string, len(raw))
	for name, item := range raw {
		files := stringList(item)
		if s, ok := item.(string); ok {
			files = []string{s}
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("entry %s has no files", name)
		}
		for i, f := range files {
			if !filepath.IsAbs(f) && root != "" {
				files[i] = filepath.Join(root, f)
			}
		}
		out[name] = files
	}
	return out, nil
}

var esTargets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// readTarget interprets a webpack-style target list such as
// ["web", "es2018"].
func readTarget(v any) (api.Platform, api.Target, api.Format, error) {
	platform, target, format := api.PlatformBrowser, api.ESNext, api.FormatIIFE
	var items []string
	if s, ok := v.(string); ok {
		items = []string{s}
	} else {
		items = stringList(v)
	}
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		switch {
		case item == "web" || item == "browserslist":
			platform, format = api.PlatformBrowser, api.FormatIIFE
		case item == "webworker":
			platform, format = api.PlatformBrowser, api.FormatIIFE
		case strings.HasPrefix(item, "node"), strings.HasPrefix(item, "async-node"):
			platform, format = api.PlatformNode, api.FormatCommonJS
		case strings.HasPrefix(item, "es"):
			t, ok := esTargets[item]
			if !ok {
				// Later editions than esbuild's table fall back to esnext.
				t = api.ESNext
			}
			target = t
		default:
			return 0, 0, 0, fmt.Errorf("unsupported target %q", item)
		}
	}
	return platform, target, format, nil
}

// applyJSX reads the React transform settings of the swc loader rule.
func applyJSX(b *api.BuildOptions, cfg map[string]any) {
	module, _ := cfg["module"].(map[string]any)
	rules, _ := module["rules"].([]any)
	for _, r := range rules {
		rule, _ := r.(map[string]any)
		uses, _ := rule["use"].([]any)
		for _, u := range uses {
			use, _ := u.(map[string]any)
			if loader, _ := use["loader"].(string); loader != bundler.LoaderSWC {
				continue
			}
			react := lookup(use, "options", "jsc", "transform", "react")
			if react == nil {
				continue
			}
			if runtime, _ := react["runtime"].(string); runtime == "automatic" {
				b.JSX = api.JSXAutomatic
			}
			if src, _ := react["importSource"].(string); src != "" {
				b.JSXImportSource = src
			}
			if pragma, _ := react["pragma"].(string); pragma != "" {
				b.JSXFactory = pragma
			}
			if frag, _ := react["pragmaFrag"].(string); frag != "" {
				b.JSXFragment = frag
			}
			if dev, _ := react["development"].(bool); dev {
				b.JSXDev = true
			}
		}
	}
}

func lookup(m map[string]any, keys ...string) map[string]any {
	cur := m
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// EntryNames returns the entry names in sorted order.
func (o *Options) EntryNames() []string {
	names := make([]string, 0, len(o.Entries))
	for n := range o.Entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
