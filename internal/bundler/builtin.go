package bundler

import (
	"fmt"
	"sort"
)

// DefinePlugin replaces global identifiers with constant expressions.
type DefinePlugin struct {
	Definitions map[string]string
}

func (*DefinePlugin) PluginName() string { return "DefinePlugin" }

// Keys returns the defined identifiers in sorted order.
func (p *DefinePlugin) Keys() []string {
	keys := make([]string, 0, len(p.Definitions))
	for k := range p.Definitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BannerPlugin prepends text to emitted JavaScript.
type BannerPlugin struct {
	Banner string
}

func (*BannerPlugin) PluginName() string { return "BannerPlugin" }

// DefinePluginConstructor expects one map argument of identifier to
// expression. Non-string values are formatted with %v.
var DefinePluginConstructor = &Constructor{
	Kind: "DefinePlugin",
	New: func(args ...any) (Plugin, error) {
		defs := make(map[string]string)
		for _, arg := range args {
			m, ok := arg.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("DefinePlugin expects a map argument, got %T", arg)
			}
			for k, v := range m {
				if s, ok := v.(string); ok {
					defs[k] = s
				} else {
					defs[k] = fmt.Sprint(v)
				}
			}
		}
		return &DefinePlugin{Definitions: defs}, nil
	},
}

// BannerPluginConstructor expects one string argument.
var BannerPluginConstructor = &Constructor{
	Kind: "BannerPlugin",
	New: func(args ...any) (Plugin, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("BannerPlugin expects exactly one argument")
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("BannerPlugin expects a string, got %T", args[0])
		}
		return &BannerPlugin{Banner: s}, nil
	},
}

// FuncPlugin adapts a function to CompilerPlugin.
type FuncPlugin struct {
	Name string
	Fn   func(c *Compiler) error
}

func (p *FuncPlugin) PluginName() string { return p.Name }

func (p *FuncPlugin) Apply(c *Compiler) error { return p.Fn(c) }
