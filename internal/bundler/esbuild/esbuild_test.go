package esbuild

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/rsbuild/internal/bundler"
	"git.home.luguber.info/inful/rsbuild/internal/chain"
	"git.home.luguber.info/inful/rsbuild/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func baseConfig(root string) map[string]any {
	return map[string]any{
		"context": root,
		"entry":   map[string]any{"index": []any{"./src/index.js"}},
		"output": map[string]any{
			"path":     filepath.Join(root, "dist"),
			"filename": "static/js/[name].js",
		},
		"target": []any{"web", "es2015"},
	}
}

func TestTranslate(t *testing.T) {
	cfg := baseConfig("/project")
	cfg["resolve"] = map[string]any{
		"alias":      map[string]any{"react": "preact/compat"},
		"extensions": []any{".ts", ".js"},
	}
	cfg["optimization"] = map[string]any{"minimize": true}
	cfg["devtool"] = "source-map"
	cfg["module"] = map[string]any{
		"rules": []any{map[string]any{
			"test": `\.jsx?$`,
			"use": []any{map[string]any{
				"loader": bundler.LoaderSWC,
				"options": map[string]any{"jsc": map[string]any{"transform": map[string]any{
					"react": map[string]any{"runtime": "automatic", "importSource": "preact"},
				}}},
			}},
		}},
	}
	plugins := []bundler.Plugin{
		&bundler.DefinePlugin{Definitions: map[string]string{"process.env.NODE_ENV": `"production"`}},
		&bundler.BannerPlugin{Banner: "/* banner */"},
	}

	opts, err := Translate(cfg, plugins)
	require.NoError(t, err)
	b := opts.Build
	assert.Equal(t, "/project/dist", b.Outdir)
	assert.Equal(t, "static/js/[name]", b.EntryNames)
	assert.Equal(t, map[string]string{"react": "preact/compat"}, b.Alias)
	assert.Equal(t, []string{".ts", ".js"}, b.ResolveExtensions)
	assert.Equal(t, api.PlatformBrowser, b.Platform)
	assert.Equal(t, api.ES2015, b.Target)
	assert.True(t, b.MinifyWhitespace)
	assert.Equal(t, api.SourceMapLinked, b.Sourcemap)
	assert.Equal(t, api.JSXAutomatic, b.JSX)
	assert.Equal(t, "preact", b.JSXImportSource)
	assert.Equal(t, `"production"`, b.Define["process.env.NODE_ENV"])
	assert.Equal(t, "/* banner */", b.Banner["js"])
	assert.Equal(t, map[string][]string{"index": {"/project/src/index.js"}}, opts.Entries)
}

func TestTranslateRejectsIncompleteConfig(t *testing.T) {
	_, err := Translate(map[string]any{"output": map[string]any{"path": "/out"}}, nil)
	assert.Error(t, err)

	cfg := baseConfig("/project")
	delete(cfg, "output")
	_, err = Translate(cfg, nil)
	assert.Error(t, err)

	cfg = baseConfig("/project")
	cfg["target"] = []any{"electron-main"}
	_, err = Translate(cfg, nil)
	assert.Error(t, err)
}

func TestReadTargetNode(t *testing.T) {
	platform, target, format, err := readTarget([]any{"node", "es2021"})
	require.NoError(t, err)
	assert.Equal(t, api.PlatformNode, platform)
	assert.Equal(t, api.ES2021, target)
	assert.Equal(t, api.FormatCommonJS, format)

	_, target, _, err = readTarget("es2030")
	require.NoError(t, err)
	assert.Equal(t, api.ESNext, target)
}

func TestRunBuildsAndRunsProcessAssets(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "index.js"), "import { greet } from './greet';\nconsole.log(greet(__NAME__));\n")
	writeFile(t, filepath.Join(root, "src", "greet.js"), "export const greet = (n) => `hello ${n}`;\n")

	var seen []string
	analyse := &bundler.Constructor{
		Kind: "Analyse",
		New: func(...any) (bundler.Plugin, error) {
			return &bundler.FuncPlugin{Name: "Analyse", Fn: func(c *bundler.Compiler) error {
				c.Hooks.Compilation.Tap("Analyse", func(comp *bundler.Compilation) error {
					comp.ProcessAssets("Analyse", bundler.ProcessAssetsStageAnalyse, func(_ context.Context, assets map[string]bundler.Source) error {
						for name := range assets {
							seen = append(seen, name)
						}
						return nil
					})
					return nil
				})
				return nil
			}}, nil
		},
	}

	cfg := baseConfig(root)
	cfg["plugins"] = []any{
		chain.PluginSpec{Name: "define", Constructor: bundler.DefinePluginConstructor, Args: []any{map[string]any{"__NAME__": `"world"`}}},
		chain.PluginSpec{Name: "analyse", Constructor: analyse},
	}
	c, err := bundler.NewCompiler("web", root, cfg, nil)
	require.NoError(t, err)

	stats, err := New().Run(context.Background(), c)
	require.NoError(t, err)
	require.False(t, stats.HasErrors(), "errors: %v", stats.Errors)
	assert.Equal(t, []string{"static/js/index.js"}, seen)
	require.Len(t, stats.Assets, 1)
	assert.Equal(t, "static/js/index.js", stats.Assets[0].Name)

	data, err := os.ReadFile(filepath.Join(root, "dist", "static", "js", "index.js"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "world")
	assert.Contains(t, string(data), "hello")
}

func TestRunReportsBundlerErrorsInStats(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "index.js"), "import './missing';\n")

	c, err := bundler.NewCompiler("web", root, baseConfig(root), nil)
	require.NoError(t, err)

	stats, err := New(WithoutWrite()).Run(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, stats.HasErrors())
	_, statErr := os.Stat(filepath.Join(root, "dist"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunTranslateFailureIsBundlerError(t *testing.T) {
	c, err := bundler.NewCompiler("web", "/project", map[string]any{}, nil)
	require.NoError(t, err)

	_, err = New().Run(context.Background(), c)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryBundler))
}

func TestRunHonoursCanceledContext(t *testing.T) {
	c, err := bundler.NewCompiler("web", "/project", baseConfig("/project"), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New().Run(ctx, c)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEntryModule(t *testing.T) {
	assert.Equal(t, "import \"/a/b.js\";\nimport \"/a/c.js\";\n", entryModule([]string{"/a/b.js", "/a/c.js"}))
	assert.Equal(t, "static/css/index.css", renameCSS("static/js/index.css", "static/css/[name].css"))
}
