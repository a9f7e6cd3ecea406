package config

import (
	"maps"
	"slices"
)

// Normalized is the typed view of one environment's normalized config. Tree
// keeps the untyped form that plugins and the inspector see.
type Normalized struct {
	Environment string `yaml:"-"`
	Tree        Map    `yaml:"-"`

	Mode        Mode              `yaml:"mode"`
	Root        string            `yaml:"root"`
	Source      SourceConfig      `yaml:"source"`
	Output      OutputConfig      `yaml:"output"`
	HTML        HTMLConfig        `yaml:"html"`
	Server      ServerConfig      `yaml:"server"`
	Tools       ToolsConfig       `yaml:"tools"`
	CheckSyntax CheckSyntaxConfig `yaml:"checkSyntax"`
	Plugins     []string          `yaml:"plugins"`
}

// SourceConfig describes what goes into the bundle.
type SourceConfig struct {
	Entry    map[string][]string `yaml:"entry"`
	PreEntry []string            `yaml:"preEntry"`
	Define   map[string]any      `yaml:"define"`
	Alias    map[string]string   `yaml:"alias"`
	Include  []string            `yaml:"include"`
	Exclude  []string            `yaml:"exclude"`
}

// DistPathConfig places output by asset type, relative to Root.
type DistPathConfig struct {
	Root string `yaml:"root"`
	JS   string `yaml:"js"`
	CSS  string `yaml:"css"`
	HTML string `yaml:"html"`
}

// OutputConfig controls emitted files.
type OutputConfig struct {
	Target               Target         `yaml:"target"`
	DistPath             DistPathConfig `yaml:"distPath"`
	AssetPrefix          string         `yaml:"assetPrefix"`
	Minify               bool           `yaml:"minify"`
	SourceMap            bool           `yaml:"sourceMap"`
	OverrideBrowserslist []string       `yaml:"overrideBrowserslist"`
	InlineScripts        bool           `yaml:"inlineScripts"`
	CleanDistPath        bool           `yaml:"cleanDistPath"`
}

// HTMLConfig controls the generated HTML pages.
type HTMLConfig struct {
	Enable   bool   `yaml:"enable"`
	Title    string `yaml:"title"`
	Template string `yaml:"template"`
	MountID  string `yaml:"mountId"`
}

// ServerConfig holds dev server options; the server itself is external.
type ServerConfig struct {
	Base string `yaml:"base"`
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// ToolsConfig carries low-level overrides.
type ToolsConfig struct {
	SWC     map[string]any `yaml:"swc"`
	Bundler map[string]any `yaml:"bundler"`
}

// CheckSyntaxConfig configures the syntax check plugin. Exclude entries are
// glob patterns, /regular expressions/ or expr:<predicate>.
type CheckSyntaxConfig struct {
	// Enable is nil when the config does not set it.
	Enable      *bool    `yaml:"enable"`
	Targets     []string `yaml:"targets"`
	ECMAVersion int      `yaml:"ecmaVersion"`
	Exclude     []string `yaml:"exclude"`
}

// EnabledOr returns the enable flag, or def when it is unset.
func (c CheckSyntaxConfig) EnabledOr(def bool) bool {
	if c.Enable == nil {
		return def
	}
	return *c.Enable
}

// Clone returns a deep copy of n, so handlers can read it without sharing
// state with the builder.
func (n *Normalized) Clone() *Normalized {
	if n == nil {
		return nil
	}
	out := *n
	out.Tree = CloneMap(n.Tree)
	out.Plugins = slices.Clone(n.Plugins)
	if n.Source.Entry != nil {
		out.Source.Entry = make(map[string][]string, len(n.Source.Entry))
		for k, v := range n.Source.Entry {
			out.Source.Entry[k] = slices.Clone(v)
		}
	}
	out.Source.PreEntry = slices.Clone(n.Source.PreEntry)
	out.Source.Define = CloneMap(n.Source.Define)
	out.Source.Alias = maps.Clone(n.Source.Alias)
	out.Source.Include = slices.Clone(n.Source.Include)
	out.Source.Exclude = slices.Clone(n.Source.Exclude)
	out.Output.OverrideBrowserslist = slices.Clone(n.Output.OverrideBrowserslist)
	out.Tools.SWC = CloneMap(n.Tools.SWC)
	out.Tools.Bundler = CloneMap(n.Tools.Bundler)
	if n.CheckSyntax.Enable != nil {
		enable := *n.CheckSyntax.Enable
		out.CheckSyntax.Enable = &enable
	}
	out.CheckSyntax.Targets = slices.Clone(n.CheckSyntax.Targets)
	out.CheckSyntax.Exclude = slices.Clone(n.CheckSyntax.Exclude)
	return &out
}

// DistDir returns the absolute output directory for rootPath.
func (n *Normalized) DistDir(rootPath string) string {
	return resolvePath(rootPath, n.Output.DistPath.Root)
}
