package checksyntax

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/rsbuild/internal/bundler"
	"git.home.luguber.info/inful/rsbuild/internal/chain"
	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/core"
	"git.home.luguber.info/inful/rsbuild/internal/plugin"
)

// assetRunner emits a fixed set of assets for every compiler.
type assetRunner struct {
	assets map[string]string
}

func (r *assetRunner) Name() string { return "assets" }

func (r *assetRunner) Run(ctx context.Context, c *bundler.Compiler) (*bundler.Stats, error) {
	comp, err := c.NewCompilation()
	if err != nil {
		return nil, err
	}
	for name, code := range r.assets {
		comp.EmitAsset(name, bundler.RawSource(code))
	}
	if err := comp.Seal(ctx); err != nil {
		return nil, err
	}
	stats := comp.Stats()
	return stats, c.Hooks.Done.Call(stats)
}

func newPluginBuilder(t *testing.T, mode config.Mode, cfg config.Map, opts Options, assets map[string]string) *core.Builder {
	t.Helper()
	b, err := core.New(core.Options{
		RootPath: t.TempDir(),
		Mode:     mode,
		Config:   cfg,
		Plugins:  []plugin.Plugin{Plugin(opts)},
		Runner:   &assetRunner{assets: assets},
	})
	require.NoError(t, err)
	return b
}

func checkSyntaxSpec(t *testing.T, cfg config.Map) (chain.PluginSpec, bool) {
	t.Helper()
	list, _ := cfg["plugins"].([]any)
	for _, item := range list {
		if spec, ok := item.(chain.PluginSpec); ok && spec.Name == bundler.PluginCheckSyntax {
			return spec, true
		}
	}
	return chain.PluginSpec{}, false
}

func TestPluginRegistersCheckerForProductionWeb(t *testing.T) {
	b := newPluginBuilder(t, config.ModeProduction, config.Map{
		"output":      config.Map{"overrideBrowserslist": []any{"ie >= 11"}},
		"checkSyntax": config.Map{"exclude": []any{"**/vendor/*.js"}},
	}, Options{Exclude: []string{"/legacy/"}}, nil)

	envs, err := b.InitConfigs(context.Background())
	require.NoError(t, err)
	require.Len(t, envs, 1)

	spec, ok := checkSyntaxSpec(t, envs[0].BundlerConfig)
	require.True(t, ok)
	require.Len(t, spec.Args, 1)
	args := spec.Args[0].(map[string]any)
	assert.Equal(t, []any{"ie >= 11"}, args["targets"])
	assert.Equal(t, []any{"**/vendor/*.js", "/legacy/"}, args["exclude"])
	assert.Equal(t, b.RootPath(), args["rootPath"])

	p, err := spec.Constructor.(*bundler.Constructor).Instantiate(spec.Args...)
	require.NoError(t, err)
	assert.Equal(t, 5, p.(*Checker).ECMAVersion())
}

func TestPluginOptionsWinOverConfig(t *testing.T) {
	b := newPluginBuilder(t, config.ModeProduction, config.Map{
		"checkSyntax": config.Map{"ecmaVersion": 2015},
	}, Options{ECMAVersion: 2020}, nil)

	envs, err := b.InitConfigs(context.Background())
	require.NoError(t, err)
	spec, ok := checkSyntaxSpec(t, envs[0].BundlerConfig)
	require.True(t, ok)
	assert.Equal(t, 2020, spec.Args[0].(map[string]any)["ecmaVersion"])
}

func TestPluginSkipsDevelopmentAndNode(t *testing.T) {
	b := newPluginBuilder(t, config.ModeDevelopment, nil, Options{}, nil)
	envs, err := b.InitConfigs(context.Background())
	require.NoError(t, err)
	_, ok := checkSyntaxSpec(t, envs[0].BundlerConfig)
	assert.False(t, ok, "development builds are not checked")

	b = newPluginBuilder(t, config.ModeProduction, config.Map{
		"environments": config.Map{
			"server": config.Map{"output": config.Map{"target": "node"}},
		},
	}, Options{}, nil)
	envs, err = b.InitConfigs(context.Background())
	require.NoError(t, err)
	require.Len(t, envs, 1)
	_, ok = checkSyntaxSpec(t, envs[0].BundlerConfig)
	assert.False(t, ok, "node builds are not checked")
}

func TestPluginReportsDuringBuild(t *testing.T) {
	var out bytes.Buffer
	b := newPluginBuilder(t, config.ModeProduction, config.Map{
		"html": config.Map{"enable": false},
	}, Options{ECMAVersion: 2015, Output: &out}, map[string]string{
		"static/js/index.js": "const f = async () => { await g(); };",
		"static/js/ok.js":    "const h = () => 1;",
	})

	result, err := b.Build(context.Background(), core.BuildOptions{})
	require.NoError(t, err)
	assert.True(t, result.Status.IsSuccess(), "syntax errors do not fail the build")
	require.Len(t, result.Stats, 1)
	require.Len(t, result.Stats[0].Warnings, 1)
	assert.Contains(t, result.Stats[0].Warnings[0], "static/js/index.js:1:")
	assert.Contains(t, result.Stats[0].Warnings[0], "async function is not available in ES2015")
	assert.Contains(t, out.String(), "[Syntax Checker] Found 1 syntax error(s) for target ES2015:")
}

func TestPluginHonoursEnable(t *testing.T) {
	disabled, enabled := false, true
	tests := []struct {
		name string
		cfg  config.Map
		opts Options
		want map[string]bool
	}{
		{
			name: "no section",
			want: map[string]bool{"web": true},
		},
		{
			name: "disabled in config",
			cfg:  config.Map{"checkSyntax": config.Map{"enable": false}},
			want: map[string]bool{"web": false},
		},
		{
			name: "disabled by shorthand",
			cfg:  config.Map{"checkSyntax": false},
			want: map[string]bool{"web": false},
		},
		{
			name: "options win over config",
			cfg:  config.Map{"checkSyntax": config.Map{"enable": false}},
			opts: Options{Enable: &enabled},
			want: map[string]bool{"web": true},
		},
		{
			name: "options disable",
			opts: Options{Enable: &disabled},
			want: map[string]bool{"web": false},
		},
		{
			name: "disabled per environment",
			cfg: config.Map{"environments": config.Map{
				"web":    config.Map{},
				"legacy": config.Map{"checkSyntax": config.Map{"enable": false}},
			}},
			want: map[string]bool{"legacy": false, "web": true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newPluginBuilder(t, config.ModeProduction, tt.cfg, tt.opts, nil)
			envs, err := b.InitConfigs(context.Background())
			require.NoError(t, err)

			got := make(map[string]bool)
			for _, env := range envs {
				_, got[env.Name] = checkSyntaxSpec(t, env.BundlerConfig)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
