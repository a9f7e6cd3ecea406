package core

import (
	"context"
	"fmt"
	"slices"

	"git.home.luguber.info/inful/rsbuild/internal/chain"
	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/errors"
	"git.home.luguber.info/inful/rsbuild/internal/logfields"
	"git.home.luguber.info/inful/rsbuild/internal/plugin"
)

// InitConfigs runs the configuration pipeline and returns one Environment
// per selected environment, in sorted order. No bundler is started, so it
// doubles as the dry run used by inspection.
func (b *Builder) InitConfigs(ctx context.Context) ([]*Environment, error) {
	if err := b.setup(ctx); err != nil {
		return nil, err
	}

	base := config.CloneMap(b.user)
	if b.env != nil {
		base = config.DeepMerge(b.env.ConfigLayer(), base)
	}
	base["mode"] = string(b.mode)

	rsCfg, err := plugin.RunModifyConfig(ctx, b.hooks.ModifyRsbuildConfig, base, plugin.ConfigUtils{})
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.rsbuildConfig = rsCfg
	b.normalized = make(map[string]*config.Normalized)
	b.mu.Unlock()

	names, err := b.selectEnvironments(config.EnvironmentNames(rsCfg))
	if err != nil {
		return nil, err
	}

	envs := make([]*Environment, 0, len(names))
	for _, name := range names {
		env, err := b.normalizeEnvironment(ctx, rsCfg, name)
		if err != nil {
			return nil, err
		}
		envs = append(envs, env)
	}
	if len(envs) > 0 {
		b.pctx.DistPath = envs[0].Normalized.DistDir(b.rootPath)
	}

	// Chains are built only after every environment is normalized so
	// handlers can read any environment through GetNormalizedConfig.
	for _, env := range envs {
		if err := b.generateBundlerConfig(ctx, env); err != nil {
			return nil, err
		}
	}
	return envs, nil
}

func (b *Builder) selectEnvironments(all []string) ([]string, error) {
	if len(b.only) == 0 {
		return all, nil
	}
	var out []string
	for _, name := range b.only {
		if !slices.Contains(all, name) {
			return nil, errors.ValidationFailed("environment",
				fmt.Sprintf("unknown environment %q (have %v)", name, all))
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (b *Builder) normalizeEnvironment(ctx context.Context, rsCfg config.Map, name string) (*Environment, error) {
	tree := config.NormalizeEnvironment(rsCfg, name, b.mode)
	tree, err := plugin.RunModifyConfig(ctx, b.hooks.ModifyEnvironmentConfig, tree, plugin.ConfigUtils{Environment: name})
	if err != nil {
		return nil, err
	}
	normalized, res, err := config.Decode(tree, name)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		b.logger.Warn(w, logfields.Environment(name))
	}
	b.mu.Lock()
	b.normalized[name] = normalized
	b.mu.Unlock()
	return &Environment{
		Name:       name,
		Target:     normalized.Output.Target,
		Tree:       normalized.Tree,
		Normalized: normalized,
		Warnings:   res.Warnings,
	}, nil
}

// generateBundlerConfig seeds a fresh chain through modifyBundlerChain,
// freezes it and runs modifyBundlerConfig on the result.
func (b *Builder) generateBundlerConfig(ctx context.Context, env *Environment) error {
	envCtx := b.environmentContext(env)
	c := chain.New()
	err := b.hooks.ModifyBundlerChain.Call(ctx, func(fn plugin.ModifyBundlerChainFunc) error {
		return fn(ctx, c, envCtx)
	})
	if err != nil {
		return err
	}
	env.Chain = c

	cfg, err := c.ToConfig()
	if err != nil {
		return err
	}
	err = b.hooks.ModifyBundlerConfig.Call(ctx, func(fn plugin.ModifyBundlerConfigFunc) error {
		return fn(ctx, cfg, envCtx)
	})
	if err != nil {
		return err
	}
	env.BundlerConfig = cfg
	return nil
}

func (b *Builder) environmentContext(env *Environment) plugin.EnvironmentContext {
	return plugin.EnvironmentContext{
		Name:       env.Name,
		Target:     env.Target,
		Mode:       b.mode,
		Normalized: env.Normalized.Clone(),
		Bundler:    b.catalog,
	}
}
