// Package inspect renders the Rsbuild config and the generated bundler
// configs as text and optionally writes them to disk for debugging.
package inspect

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/rsbuild/internal/config"
	"git.home.luguber.info/inful/rsbuild/internal/core"
	"git.home.luguber.info/inful/rsbuild/internal/errors"
	"git.home.luguber.info/inful/rsbuild/internal/logfields"
)

// RsbuildConfigFile is the file name of the exported Rsbuild config.
const RsbuildConfigFile = "rsbuild.config.yaml"

// Options controls an inspection.
type Options struct {
	Verbose bool
	// OutputPath is resolved against the project root when relative. Empty
	// means the dist directory.
	OutputPath  string
	WriteToDisk bool
	// BundlerName prefixes the per-environment file names.
	BundlerName string
}

// Origin holds the configs the text was rendered from. RsbuildConfig is the
// normalized config plus the resolved plugin names.
type Origin struct {
	RsbuildConfig  config.Map
	BundlerConfigs []config.Map
}

// Result is the outcome of an inspection.
type Result struct {
	RsbuildConfig  string
	BundlerConfigs []string
	Environments   []string
	Origin         Origin
	// Files lists the written files when WriteToDisk is set.
	Files []string
}

// Inspect runs the configuration pipeline of b without bundling and
// renders the results.
func Inspect(ctx context.Context, b *core.Builder, opts Options) (*Result, error) {
	envs, err := b.InitConfigs(ctx)
	if err != nil {
		return nil, err
	}
	names, err := b.PluginNames(ctx)
	if err != nil {
		return nil, err
	}

	rsCfg := debugConfig(envs)
	rsCfg["pluginNames"] = names
	res := &Result{Origin: Origin{RsbuildConfig: rsCfg}}
	res.RsbuildConfig, err = Stringify(rsCfg, opts.Verbose)
	if err != nil {
		return nil, errors.InternalError("render rsbuild config", err)
	}
	for _, env := range envs {
		text, err := Stringify(env.BundlerConfig, opts.Verbose)
		if err != nil {
			return nil, errors.InternalError("render bundler config for "+env.Name, err)
		}
		res.Environments = append(res.Environments, env.Name)
		res.BundlerConfigs = append(res.BundlerConfigs, text)
		res.Origin.BundlerConfigs = append(res.Origin.BundlerConfigs, env.BundlerConfig)
	}

	if !opts.WriteToDisk {
		return res, nil
	}
	out := opts.OutputPath
	if out == "" {
		out = b.Context().DistPath
	}
	out = config.ResolvePath(b.RootPath(), out)
	files, err := WriteFiles(out, opts.BundlerName, res)
	if err != nil {
		return nil, err
	}
	res.Files = files
	for _, f := range files {
		b.Logger().Info("Inspect config written", logfields.Path(f))
	}
	return res, nil
}

// debugConfig returns the normalized config of the inspected environments.
// A single environment is exported as is; several are keyed by name below
// environments.
func debugConfig(envs []*core.Environment) config.Map {
	if len(envs) == 1 {
		return config.CloneMap(envs[0].Tree)
	}
	out := config.Map{}
	byName := config.Map{}
	for _, env := range envs {
		tree := config.CloneMap(env.Tree)
		if mode, ok := tree["mode"]; ok {
			out["mode"] = mode
		}
		byName[env.Name] = tree
	}
	out["environments"] = byName
	return out
}

// WriteFiles writes the rendered Rsbuild config and one file per bundler
// config below dir, creating it if needed. It returns the written paths.
func WriteFiles(dir, bundlerName string, res *Result) ([]string, error) {
	if bundlerName == "" {
		bundlerName = "bundler"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.FileSystemError("create inspect dir", dir, err)
	}
	paths := []string{filepath.Join(dir, RsbuildConfigFile)}
	texts := []string{res.RsbuildConfig}
	for i, text := range res.BundlerConfigs {
		name := bundlerName + ".config.yaml"
		if i < len(res.Environments) {
			name = bundlerName + ".config." + res.Environments[i] + ".yaml"
		}
		paths = append(paths, filepath.Join(dir, name))
		texts = append(texts, text)
	}
	for i, p := range paths {
		if err := os.WriteFile(p, []byte(texts[i]), 0o644); err != nil {
			return nil, errors.FileSystemError("write inspect file", p, err)
		}
	}
	return paths, nil
}
