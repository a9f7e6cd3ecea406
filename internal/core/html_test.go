package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/rsbuild/internal/bundler"
)

func compileWithHTML(t *testing.T, opts map[string]any, assets map[string]string) *bundler.Compilation {
	t.Helper()
	p, err := HTMLPluginConstructor.Instantiate(opts)
	require.NoError(t, err)
	c := &bundler.Compiler{Name: "web", Plugins: []bundler.Plugin{p}}
	require.NoError(t, p.(bundler.CompilerPlugin).Apply(c))

	comp := bundler.NewCompilation("test", "web", "")
	require.NoError(t, c.Hooks.Compilation.Call(comp))
	for name, src := range assets {
		comp.EmitAsset(name, bundler.RawSource(src))
	}
	require.NoError(t, comp.Seal(context.Background()))
	return comp
}

func assetString(t *testing.T, comp *bundler.Compilation, name string) string {
	t.Helper()
	src, ok := comp.Asset(name)
	require.True(t, ok, "asset %s missing (have %v)", name, comp.AssetNames())
	return string(src.Source())
}

func TestHTMLPluginLinksAssets(t *testing.T) {
	comp := compileWithHTML(t, map[string]any{
		"entries":    []any{"index", "admin"},
		"title":      "My <App>",
		"mountId":    "root",
		"publicPath": "/app/",
	}, map[string]string{
		"static/js/index.js":   "console.log(1)",
		"static/css/index.css": "body{}",
		"static/js/admin.js":   "console.log(2)",
	})

	page := assetString(t, comp, "index.html")
	assert.Contains(t, page, "<title>My &lt;App&gt;</title>")
	assert.Contains(t, page, `<link rel="stylesheet" href="/app/static/css/index.css"/>`)
	assert.Contains(t, page, `<script defer="" src="/app/static/js/index.js"></script>`)
	assert.Contains(t, page, `<div id="root"></div>`)

	admin := assetString(t, comp, "admin.html")
	assert.Contains(t, admin, `src="/app/static/js/admin.js"`)
	assert.NotContains(t, admin, "stylesheet")
}

func TestHTMLPluginInlinesScripts(t *testing.T) {
	comp := compileWithHTML(t, map[string]any{
		"entries":       []any{"index"},
		"inlineScripts": true,
		"htmlDir":       "pages",
	}, map[string]string{
		"static/js/index.js": "console.log('inline')",
	})

	page := assetString(t, comp, "pages/index.html")
	assert.Contains(t, page, "<script>console.log('inline')</script>")
	_, ok := comp.Asset("static/js/index.js")
	assert.False(t, ok)
}

func TestHTMLPluginUsesTemplate(t *testing.T) {
	tpl := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(tpl,
		[]byte(`<html><head><title>old</title></head><body><main id="app"></main></body></html>`), 0o644))

	comp := compileWithHTML(t, map[string]any{
		"entries":  []any{"index"},
		"title":    "New",
		"mountId":  "root",
		"template": tpl,
	}, map[string]string{"static/js/index.js": ""})

	page := assetString(t, comp, "index.html")
	assert.Contains(t, page, "<title>New</title>")
	assert.Contains(t, page, `<main id="app"></main>`)
	assert.NotContains(t, page, `id="root"`)
}

func TestHTMLPluginMissingTemplate(t *testing.T) {
	p, err := HTMLPluginConstructor.Instantiate(map[string]any{"template": "/does/not/exist.html"})
	require.NoError(t, err)
	assert.Error(t, p.(bundler.CompilerPlugin).Apply(&bundler.Compiler{}))
}
