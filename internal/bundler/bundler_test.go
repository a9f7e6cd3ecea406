package bundler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/rsbuild/internal/chain"
)

func TestNewCompilerInstantiatesChainPlugins(t *testing.T) {
	c := chain.New()
	c.Object("output").Set("path", "/tmp/out")
	c.Plugin(PluginDefine).Use(DefinePluginConstructor, map[string]any{"DEBUG": "false", "N": 1})
	c.Plugin(PluginBanner).Use(BannerPluginConstructor, "/* hi */")

	var applied []string
	probe := &Constructor{Kind: "Probe", New: func(args ...any) (Plugin, error) {
		return &FuncPlugin{Name: "probe", Fn: func(comp *Compiler) error {
			applied = append(applied, comp.Name)
			return nil
		}}, nil
	}}
	c.Plugin("probe").Use(probe)

	cfg, err := c.ToConfig()
	require.NoError(t, err)

	comp, err := NewCompiler("web", "/root", cfg, nil)
	require.NoError(t, err)
	require.Len(t, comp.Plugins, 3)
	assert.Equal(t, []string{"web"}, applied)
	assert.Equal(t, "/tmp/out", comp.OutputPath())

	defines := PluginsOf[*DefinePlugin](comp)
	require.Len(t, defines, 1)
	assert.Equal(t, map[string]string{"DEBUG": "false", "N": "1"}, defines[0].Definitions)
	assert.Equal(t, []string{"DEBUG", "N"}, defines[0].Keys())
	assert.Equal(t, "/* hi */", PluginsOf[*BannerPlugin](comp)[0].Banner)
}

func TestNewCompilerRejectsBadArguments(t *testing.T) {
	c := chain.New()
	c.Plugin(PluginBanner).Use(BannerPluginConstructor, 42)
	cfg, err := c.ToConfig()
	require.NoError(t, err)

	_, err = NewCompiler("web", "", cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "banner")
}

func TestProcessAssetsRunsInStageOrder(t *testing.T) {
	comp := NewCompilation("c1", "web", "")
	var order []string
	tap := func(name string) ProcessAssetsFunc {
		return func(ctx context.Context, assets map[string]Source) error {
			order = append(order, name)
			return nil
		}
	}
	comp.ProcessAssets("report", ProcessAssetsStageReport, tap("report"))
	comp.ProcessAssets("analyse-1", ProcessAssetsStageAnalyse, tap("analyse-1"))
	comp.ProcessAssets("additional", ProcessAssetsStageAdditional, func(ctx context.Context, assets map[string]Source) error {
		order = append(order, "additional")
		comp.EmitAsset("index.html", RawSource("<html></html>"))
		return nil
	})
	comp.ProcessAssets("analyse-2", ProcessAssetsStageAnalyse, func(ctx context.Context, assets map[string]Source) error {
		order = append(order, "analyse-2")
		assert.Contains(t, assets, "index.html")
		return nil
	})

	require.NoError(t, comp.Seal(context.Background()))
	assert.Equal(t, []string{"additional", "analyse-1", "analyse-2", "report"}, order)
	assert.Error(t, comp.Seal(context.Background()))
}

func TestSealStopsOnError(t *testing.T) {
	comp := NewCompilation("c1", "web", "")
	boom := errors.New("boom")
	ran := false
	comp.ProcessAssets("fail", ProcessAssetsStageOptimize, func(context.Context, map[string]Source) error { return boom })
	comp.ProcessAssets("later", ProcessAssetsStageReport, func(context.Context, map[string]Source) error {
		ran = true
		return nil
	})

	err := comp.Seal(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "optimize")
	assert.False(t, ran)
}

func TestCompilerHooksAndStats(t *testing.T) {
	comp, err := NewCompiler("node", "", map[string]any{}, nil)
	require.NoError(t, err)

	var seen []string
	comp.Hooks.Compilation.Tap("probe", func(c *Compilation) error {
		seen = append(seen, c.Environment)
		return nil
	})
	compilation, err := comp.NewCompilation()
	require.NoError(t, err)
	assert.Equal(t, []string{"node"}, seen)
	assert.NotEmpty(t, compilation.ID)
	assert.Equal(t, 1, comp.Compilations())

	compilation.EmitAsset("b.js", RawSource("b"))
	compilation.EmitAsset("a.js", RawSource("aa"))
	compilation.AddWarning(errors.New("careful"))
	stats := compilation.Stats()
	assert.Equal(t, []AssetInfo{{Name: "a.js", Size: 2}, {Name: "b.js", Size: 1}}, stats.Assets)
	assert.False(t, stats.HasErrors())
	assert.True(t, stats.HasWarnings())
}

func TestWriteAssets(t *testing.T) {
	dir := t.TempDir()
	comp := NewCompilation("c1", "web", dir)
	comp.EmitAsset("static/js/index.js", RawSource("console.log(1)"))
	require.NoError(t, comp.WriteAssets(dir))

	data, err := os.ReadFile(filepath.Join(dir, "static", "js", "index.js"))
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", string(data))
}

func TestCatalog(t *testing.T) {
	cat := DefaultCatalog()
	assert.Equal(t, []string{"BannerPlugin", "DefinePlugin"}, cat.Kinds())
	ctor, ok := cat.Get("DefinePlugin")
	require.True(t, ok)
	assert.Equal(t, "DefinePlugin", ctor.ConstructorName())
}
