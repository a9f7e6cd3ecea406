// Package bundler models the bundler collaborator the build pipeline drives:
// plugin constructors referenced from the chain, compilers, compilations with
// staged asset processing, and the Runner that executes a frozen config.
package bundler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"git.home.luguber.info/inful/rsbuild/internal/chain"
)

// Plugin is an instantiated bundler plugin.
type Plugin interface {
	PluginName() string
}

// CompilerPlugin is a plugin that taps compiler hooks when a compiler is
// created.
type CompilerPlugin interface {
	Plugin
	Apply(c *Compiler) error
}

// Constructor builds bundler plugins from the arguments recorded by
// chain.Node.Use.
type Constructor struct {
	Kind string
	New  func(args ...any) (Plugin, error)
}

// ConstructorName implements chain.Constructor.
func (c *Constructor) ConstructorName() string { return c.Kind }

// Instantiate calls New, rejecting constructors without one.
func (c *Constructor) Instantiate(args ...any) (Plugin, error) {
	if c == nil || c.New == nil {
		return nil, fmt.Errorf("bundler plugin constructor %v has no factory", c)
	}
	return c.New(args...)
}

// Catalog is a named set of constructors offered to chain handlers.
type Catalog struct {
	mu    sync.RWMutex
	ctors map[string]*Constructor
}

// NewCatalog returns a catalog holding the given constructors.
func NewCatalog(ctors ...*Constructor) *Catalog {
	c := &Catalog{ctors: make(map[string]*Constructor)}
	for _, ctor := range ctors {
		c.ctors[ctor.Kind] = ctor
	}
	return c
}

// DefaultCatalog returns a catalog with the declarative builtin plugins.
func DefaultCatalog() *Catalog {
	return NewCatalog(DefinePluginConstructor, BannerPluginConstructor)
}

// Add registers ctor, replacing one of the same kind.
func (c *Catalog) Add(ctor *Constructor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctors[ctor.Kind] = ctor
}

// Get returns the constructor of kind.
func (c *Catalog) Get(kind string) (*Constructor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ctor, ok := c.ctors[kind]
	return ctor, ok
}

// Kinds lists registered kinds in sorted order.
func (c *Catalog) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.ctors))
	for k := range c.ctors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Runner executes one environment's frozen bundler config.
type Runner interface {
	// Name identifies the bundler ("esbuild").
	Name() string
	// Run performs one compilation for c and returns its stats. Bundler
	// diagnostics are reported in the stats; err is for failures that
	// prevent the compilation from completing.
	Run(ctx context.Context, c *Compiler) (*Stats, error)
}

// InstantiatePlugins turns the plugins list of a frozen config into plugin
// instances, in order.
func InstantiatePlugins(cfg map[string]any) ([]Plugin, error) {
	raw, _ := cfg["plugins"].([]any)
	out := make([]Plugin, 0, len(raw))
	for _, item := range raw {
		spec, ok := item.(chain.PluginSpec)
		if !ok {
			return nil, fmt.Errorf("unexpected plugins entry %T", item)
		}
		ctor, ok := spec.Constructor.(*Constructor)
		if !ok {
			return nil, fmt.Errorf("plugin %s: constructor %T is not a bundler constructor", spec.Name, spec.Constructor)
		}
		p, err := ctor.Instantiate(spec.Args...)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", spec.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}
