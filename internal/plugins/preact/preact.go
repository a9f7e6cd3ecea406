// Package preact configures builds for Preact: React imports resolve to
// preact/compat and JSX compiles against the Preact runtime.
package preact

import (
	"context"
	"fmt"
	"log/slog"

	"dario.cat/mergo"

	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/logfields"
	"git.home.luguber.info/inful/rsbuild/internal/plugin"
)

// PluginName is the name of the plugin.
const PluginName = "rsbuild:preact"

// Options configures the plugin.
type Options struct {
	// DisableReactAliases keeps react imports unresolved.
	DisableReactAliases bool `mapstructure:"disableReactAliases"`
	// ImportSource is the JSX runtime package.
	ImportSource string `mapstructure:"importSource"`
	// Aliases are added to the React aliases. Entries with the same key win.
	Aliases map[string]string `mapstructure:"aliases"`
}

func defaultOptions() Options {
	return Options{
		ImportSource: "preact",
		Aliases: map[string]string{
			"react":                "preact/compat",
			"react-dom":            "preact/compat",
			"react-dom/test-utils": "preact/test-utils",
			"react/jsx-runtime":    "preact/jsx-runtime",
		},
	}
}

// Plugin returns the Preact plugin. The user's configuration wins over the
// values it sets.
func Plugin(opts Options) (*plugin.Func, error) {
	if err := mergo.Merge(&opts, defaultOptions()); err != nil {
		return nil, fmt.Errorf("preact options: %w", err)
	}
	return plugin.New(PluginName, func(api *plugin.API) error {
		api.ModifyEnvironmentConfig(func(_ context.Context, cfg config.Map, u plugin.ConfigUtils) (config.Map, error) {
			extra := config.Map{
				"tools": config.Map{
					"swc": config.Map{
						"jsc": config.Map{
							"transform": config.Map{
								"react": config.Map{
									"runtime":      "automatic",
									"importSource": opts.ImportSource,
									"development":  api.Context().Mode == config.ModeDevelopment,
								},
							},
						},
					},
				},
			}
			if !opts.DisableReactAliases {
				alias := config.Map{}
				for k, v := range opts.Aliases {
					alias[k] = v
				}
				extra["source"] = config.Map{"alias": alias}
			}
			api.Logger().Debug("Applying Preact settings",
				logfields.Environment(u.Environment),
				slog.String("import_source", opts.ImportSource))
			return u.MergeConfig(extra, cfg), nil
		})
		return nil
	}), nil
}
