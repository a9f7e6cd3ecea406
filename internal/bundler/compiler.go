package bundler

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/rsbuild/internal/logfields"
)

// Hook is a sequential list of named taps receiving a T.
type Hook[T any] struct {
	taps []hookTap[T]
}

type hookTap[T any] struct {
	name string
	fn   func(T) error
}

// Tap appends fn under name.
func (h *Hook[T]) Tap(name string, fn func(T) error) {
	h.taps = append(h.taps, hookTap[T]{name: name, fn: fn})
}

// Call runs the taps in order and stops at the first error.
func (h *Hook[T]) Call(v T) error {
	for _, t := range h.taps {
		if err := t.fn(v); err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
	}
	return nil
}

// Len returns the number of taps.
func (h *Hook[T]) Len() int { return len(h.taps) }

// CompilerHooks are the compiler-level tap points.
type CompilerHooks struct {
	// Compilation fires once per compilation before assets are emitted.
	Compilation Hook[*Compilation]
	// Done fires after a compilation finished.
	Done Hook[*Stats]
}

// Compiler owns one environment's frozen config and the plugins built from it.
type Compiler struct {
	Name     string
	RootPath string
	Options  map[string]any
	Plugins  []Plugin
	Hooks    CompilerHooks
	Logger   *slog.Logger

	compilations int
}

// NewCompiler instantiates the plugins of options and applies compiler
// plugins so they can tap hooks.
func NewCompiler(name, rootPath string, options map[string]any, logger *slog.Logger) (*Compiler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	plugins, err := InstantiatePlugins(options)
	if err != nil {
		return nil, err
	}
	c := &Compiler{
		Name:     name,
		RootPath: rootPath,
		Options:  options,
		Plugins:  plugins,
		Logger:   logger.With(logfields.Environment(name)),
	}
	for _, p := range plugins {
		if cp, ok := p.(CompilerPlugin); ok {
			if err := cp.Apply(c); err != nil {
				return nil, fmt.Errorf("apply %s: %w", p.PluginName(), err)
			}
		}
	}
	return c, nil
}

// NewCompilation starts a compilation and fires the Compilation hook.
func (c *Compiler) NewCompilation() (*Compilation, error) {
	c.compilations++
	comp := &Compilation{
		ID:          uuid.NewString(),
		Environment: c.Name,
		OutputPath:  c.OutputPath(),
		assets:      make(map[string]Source),
	}
	comp.Logger = c.Logger.With(logfields.CompilationID(comp.ID))
	if err := c.Hooks.Compilation.Call(comp); err != nil {
		return nil, err
	}
	return comp, nil
}

// Compilations counts the compilations started by c.
func (c *Compiler) Compilations() int { return c.compilations }

// OutputPath returns options.output.path or "".
func (c *Compiler) OutputPath() string {
	out, _ := c.Options["output"].(map[string]any)
	p, _ := out["path"].(string)
	return p
}

// PluginsOf returns the instantiated plugins of type T.
func PluginsOf[T Plugin](c *Compiler) []T {
	var out []T
	for _, p := range c.Plugins {
		if t, ok := p.(T); ok {
			out = append(out, t)
		}
	}
	return out
}
