package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"git.home.luguber.info/inful/rsbuild/internal/errors"
)

// NormalizationResult captures adjustments and warnings from normalization.
type NormalizationResult struct{ Warnings []string }

func (r *NormalizationResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Normalize merges defaults, the user's base config and the user's override
// for env into one tree. The environments section is folded away, so
// normalizing the result again with the same defaults returns an equal tree.
func Normalize(user, defaults Map, env string) Map {
	base := CloneMap(user)
	var override Map
	if envs, ok := asMap(base["environments"]); ok {
		override, _ = asMap(envs[env])
	}
	delete(base, "environments")
	return DeepMerge(defaults, base, override)
}

// EnvironmentNames returns the environments declared by the user config in
// sorted order. Without an environments section a single environment named
// after the configured target is used.
func EnvironmentNames(user Map) []string {
	if envs, ok := asMap(user["environments"]); ok && len(envs) > 0 {
		names := make([]string, 0, len(envs))
		for k := range envs {
			names = append(names, k)
		}
		sort.Strings(names)
		return names
	}
	target := Target(LookupString(user, "output.target"))
	if !target.IsValid() {
		target = TargetWeb
	}
	return []string{string(target)}
}

// TargetFor returns the output target env resolves to before defaults apply.
func TargetFor(user Map, env string) Target {
	merged := Normalize(user, nil, env)
	if t := Target(LookupString(merged, "output.target")); t != "" {
		return t
	}
	return TargetWeb
}

// NormalizeEnvironment is Normalize with the target-specific defaults for env.
func NormalizeEnvironment(user Map, env string, mode Mode) Map {
	return Normalize(user, Defaults(TargetFor(user, env), mode), env)
}

// Decode builds the typed view of a normalized tree. Unknown keys are
// reported as warnings; invalid values are validation errors.
func Decode(tree Map, env string) (*Normalized, *NormalizationResult, error) {
	res := &NormalizationResult{}
	n := &Normalized{Environment: env}
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		Metadata:         &md,
		Result:           n,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(enableShorthandHook),
	})
	if err != nil {
		return nil, nil, errors.InternalError("config decoder", err)
	}
	if err := dec.Decode(map[string]any(tree)); err != nil {
		return nil, nil, errors.ValidationFailed("config", err.Error())
	}
	sort.Strings(md.Unused)
	for _, key := range md.Unused {
		res.warn("unknown config key %q", key)
	}

	if n.Output.Target == "" {
		n.Output.Target = TargetWeb
	}
	if !n.Output.Target.IsValid() {
		return nil, nil, errors.ValidationFailed("output.target",
			fmt.Sprintf("unknown target %q (want web, node or web-worker)", n.Output.Target))
	}
	mode, err := ParseMode(string(n.Mode), ModeProduction)
	if err != nil {
		return nil, nil, errors.ValidationFailed("mode", err.Error())
	}
	n.Mode = mode
	if n.CheckSyntax.ECMAVersion != 0 && (n.CheckSyntax.ECMAVersion < 5 || n.CheckSyntax.ECMAVersion > 2024) {
		return nil, nil, errors.ValidationFailed("checkSyntax.ecmaVersion",
			fmt.Sprintf("unsupported version %d", n.CheckSyntax.ECMAVersion))
	}
	if strings.TrimSpace(n.Output.DistPath.Root) == "" {
		res.warn("output.distPath.root is empty, defaulting to dist")
		n.Output.DistPath.Root = "dist"
	}
	if len(n.Output.OverrideBrowserslist) == 0 {
		n.Output.OverrideBrowserslist = Browserslist(n.Output.Target)
	}
	n.Tree = CloneMap(tree)
	return n, res, nil
}

var enableSections = map[reflect.Type]bool{
	reflect.TypeOf(CheckSyntaxConfig{}): true,
	reflect.TypeOf(HTMLConfig{}):        true,
}

// enableShorthandHook lets sections such as checkSyntax be written as a
// bare boolean.
func enableShorthandHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.Bool && enableSections[to] {
		return map[string]any{"enable": data}, nil
	}
	return data, nil
}
