package plugin

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/rsbuild/internal/chain"
	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/errors"
)

type fakeHost struct {
	cfg        config.Map
	normalized map[string]*config.Normalized
	plugins    map[string]bool
}

func (h *fakeHost) RsbuildConfig() config.Map { return h.cfg }

func (h *fakeHost) NormalizedConfig(env string) (*config.Normalized, bool) {
	n, ok := h.normalized[env]
	return n, ok
}

func (h *fakeHost) PluginExists(name string) bool { return h.plugins[name] }

func newTestContext() *Context {
	return NewContext("/project", config.ModeProduction, "build-1", "esbuild", nil)
}

func TestBusOrderClasses(t *testing.T) {
	hooks := NewHooks(nil, nil)
	var calls []string
	record := func(name string) ExitFunc {
		return func(context.Context, ExitEvent) error {
			calls = append(calls, name)
			return nil
		}
	}

	hooks.OnExit.Tap("a", record("a-post"), WithOrder(OrderPost))
	hooks.OnExit.Tap("a", record("a-default"))
	hooks.OnExit.Tap("b", record("b-pre"), WithOrder(OrderPre))
	hooks.OnExit.Tap("b", record("b-default"))
	hooks.OnExit.Tap("c", record("c-pre"), WithOrder(OrderPre))

	err := hooks.OnExit.Call(context.Background(), func(fn ExitFunc) error {
		return fn(context.Background(), ExitEvent{})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b-pre", "c-pre", "a-default", "b-default", "a-post"}, calls)
	assert.Equal(t, []string{"b", "c", "a", "b", "a"}, hooks.OnExit.Plugins())
}

func TestBusRunsHandlersSequentially(t *testing.T) {
	hooks := NewHooks(nil, nil)
	running := 0
	maxRunning := 0
	for i := 0; i < 5; i++ {
		hooks.OnBeforeBuild.Tap(fmt.Sprintf("p%d", i), func(context.Context, BuildEvent) error {
			running++
			if running > maxRunning {
				maxRunning = running
			}
			running--
			return nil
		})
	}
	err := hooks.OnBeforeBuild.Call(context.Background(), func(fn BeforeBuildFunc) error {
		return fn(context.Background(), BuildEvent{})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, maxRunning)
}

func TestBusFailureIsTagged(t *testing.T) {
	hooks := NewHooks(nil, nil)
	boom := stderrors.New("boom")
	var after bool
	hooks.ModifyBundlerConfig.Tap("ok", func(context.Context, config.Map, EnvironmentContext) error { return nil })
	hooks.ModifyBundlerConfig.Tap("broken", func(context.Context, config.Map, EnvironmentContext) error { return boom })
	hooks.ModifyBundlerConfig.Tap("later", func(context.Context, config.Map, EnvironmentContext) error {
		after = true
		return nil
	})

	err := hooks.ModifyBundlerConfig.Call(context.Background(), func(fn ModifyBundlerConfigFunc) error {
		return fn(context.Background(), config.Map{}, EnvironmentContext{})
	})
	require.Error(t, err)
	assert.False(t, after, "handlers after a failure must not run")
	assert.True(t, errors.IsCategory(err, errors.CategoryHook))
	assert.ErrorIs(t, err, boom)

	var hookErr *HookError
	require.True(t, stderrors.As(err, &hookErr))
	assert.Equal(t, "broken", hookErr.Plugin)
	assert.Equal(t, HookModifyBundlerConfig, hookErr.Hook)
	assert.Contains(t, err.Error(), "broken")
}

func TestBusStopsOnCanceledContext(t *testing.T) {
	hooks := NewHooks(nil, nil)
	called := false
	hooks.OnExit.Tap("a", func(context.Context, ExitEvent) error {
		called = true
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := hooks.OnExit.Call(ctx, func(fn ExitFunc) error { return fn(ctx, ExitEvent{}) })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRunModifyConfigThreadsValue(t *testing.T) {
	hooks := NewHooks(nil, nil)
	hooks.ModifyRsbuildConfig.Tap("first", func(_ context.Context, cfg config.Map, u ConfigUtils) (config.Map, error) {
		return u.MergeConfig(cfg, config.Map{"server": config.Map{"port": 8080}}), nil
	})
	hooks.ModifyRsbuildConfig.Tap("keeps", func(context.Context, config.Map, ConfigUtils) (config.Map, error) {
		return nil, nil
	})
	hooks.ModifyRsbuildConfig.Tap("reads", func(_ context.Context, cfg config.Map, _ ConfigUtils) (config.Map, error) {
		cfg["html"] = config.Map{"title": "Modified"}
		return cfg, nil
	})

	out, err := RunModifyConfig(context.Background(), hooks.ModifyRsbuildConfig,
		config.Map{"server": config.Map{"host": "localhost"}}, ConfigUtils{})
	require.NoError(t, err)
	port, ok := config.Lookup(out, "server.port")
	require.True(t, ok)
	assert.Equal(t, 8080, port)
	assert.Equal(t, "localhost", config.LookupString(out, "server.host"))
	assert.Equal(t, "Modified", config.LookupString(out, "html.title"))
}

func TestHooksCounts(t *testing.T) {
	hooks := NewHooks(nil, nil)
	hooks.ModifyBundlerChain.Tap("a", func(context.Context, *chain.Chain, EnvironmentContext) error { return nil })
	counts := hooks.Counts()
	assert.Len(t, counts, len(HookNames()))
	assert.Equal(t, 1, counts[HookModifyBundlerChain])
	assert.Equal(t, 0, counts[HookOnExit])
}

func TestSetupAllTagsFailure(t *testing.T) {
	r := NewRegistry()
	var setupOrder []string
	mustRegister(t, r,
		New("second", func(api *API) error {
			setupOrder = append(setupOrder, api.PluginName())
			return stderrors.New("bad options")
		}).WithPre("first"),
		New("first", func(api *API) error {
			setupOrder = append(setupOrder, api.PluginName())
			return nil
		}),
	)
	res, err := r.Resolve()
	require.NoError(t, err)

	err = SetupAll(res, NewHooks(nil, nil), &fakeHost{}, newTestContext())
	require.Error(t, err)
	assert.Equal(t, []string{"first", "second"}, setupOrder)

	var hookErr *HookError
	require.True(t, stderrors.As(err, &hookErr))
	assert.Equal(t, "second", hookErr.Plugin)
	assert.Equal(t, HookSetup, hookErr.Hook)
}

func TestAPITapsAreAttributed(t *testing.T) {
	hooks := NewHooks(nil, nil)
	host := &fakeHost{
		cfg:     config.Map{"mode": "production"},
		plugins: map[string]bool{"rsbuild:define": true},
	}
	api := NewAPI("my-plugin", hooks, host, newTestContext())

	api.ModifyBundlerChain(func(context.Context, *chain.Chain, EnvironmentContext) error { return nil })
	api.OnAfterBuild(func(context.Context, AfterBuildEvent) error { return nil }, WithOrder(OrderPost))

	assert.Equal(t, []string{"my-plugin"}, hooks.ModifyBundlerChain.Plugins())
	assert.Equal(t, []string{"my-plugin"}, hooks.OnAfterBuild.Plugins())
	assert.True(t, api.IsPluginExists("rsbuild:define"))
	assert.False(t, api.IsPluginExists("missing"))
	assert.Equal(t, "production", api.GetRsbuildConfig()["mode"])

	_, ok := api.GetNormalizedConfig("web")
	assert.False(t, ok)
}

func TestExposeSharesValuesAcrossPlugins(t *testing.T) {
	hooks := NewHooks(nil, nil)
	ctx := newTestContext()
	producer := NewAPI("producer", hooks, &fakeHost{}, ctx)
	consumer := NewAPI("consumer", hooks, &fakeHost{}, ctx)

	producer.Expose("shared-api", 42)
	v, ok := consumer.UseExposed("shared-api")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = consumer.UseExposed("nothing")
	assert.False(t, ok)
}

func TestEnvironmentContextMode(t *testing.T) {
	env := EnvironmentContext{Mode: config.ModeProduction}
	assert.True(t, env.IsProd())
	assert.False(t, env.IsDev())
}
