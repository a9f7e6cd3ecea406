package checksyntax

import (
	"context"

	"dario.cat/mergo"

	"git.home.luguber.info/inful/rsbuild/internal/bundler"
	"git.home.luguber.info/inful/rsbuild/internal/chain"
	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/logfields"
	"git.home.luguber.info/inful/rsbuild/internal/plugin"
)

// PluginID is the name of the Rsbuild plugin.
const PluginID = "rsbuild:check-syntax"

// Plugin returns the Rsbuild plugin adding the checker to production web
// builds. Enable, Targets and ECMAVersion in opts win over the checkSyntax
// config section of each environment; exclude entries from both are
// combined. The checker is enabled unless one of them turns it off. The
// output browserslist is used when no targets are set.
func Plugin(opts Options) *plugin.Func {
	return plugin.New(PluginID, func(api *plugin.API) error {
		ctor := Constructor(Options{
			Logger:   api.Logger(),
			Recorder: opts.Recorder,
			Output:   opts.Output,
		})
		api.ModifyBundlerChain(func(_ context.Context, c *chain.Chain, env plugin.EnvironmentContext) error {
			if env.IsDev() || env.Target != config.TargetWeb {
				return nil
			}
			cs := env.Normalized.CheckSyntax
			if opts.Enable != nil {
				cs.Enable = opts.Enable
			}
			if !cs.EnabledOr(true) {
				api.Logger().Debug("Syntax check disabled", logfields.Environment(env.Name))
				return nil
			}
			merged := Options{Targets: cs.Targets, ECMAVersion: cs.ECMAVersion}
			if err := mergo.Merge(&merged, Options{Targets: opts.Targets, ECMAVersion: opts.ECMAVersion}, mergo.WithOverride); err != nil {
				return err
			}
			if len(merged.Targets) == 0 {
				merged.Targets = env.Normalized.Output.OverrideBrowserslist
			}

			var exclude []any
			for _, e := range cs.Exclude {
				exclude = append(exclude, e)
			}
			exclude = append(exclude, excludeList(opts.Exclude)...)

			targets := make([]any, 0, len(merged.Targets))
			for _, t := range merged.Targets {
				targets = append(targets, t)
			}
			c.Plugin(bundler.PluginCheckSyntax).Use(ctor, map[string]any{
				"targets":     targets,
				"ecmaVersion": merged.ECMAVersion,
				"exclude":     exclude,
				"rootPath":    api.Context().RootPath,
			})
			return nil
		})
		return nil
	})
}

func excludeList(e any) []any {
	switch t := e.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{t}
	}
}
