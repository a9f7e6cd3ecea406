package plugin

import (
	stderrors "errors"
	"fmt"
	"sync"

	"git.home.luguber.info/inful/rsbuild/internal/errors"
	"git.home.luguber.info/inful/rsbuild/internal/toposort"
)

// Registry holds plugins in registration order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	plugins map[string]Plugin
}

// NewRegistry creates a new empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// RegisterOption adjusts a single registration.
type RegisterOption func(*registerOptions)

type registerOptions struct{ replace bool }

// WithReplace lets a registration replace an existing plugin of the same
// name. The replacement keeps the original registration position.
func WithReplace() RegisterOption { return func(o *registerOptions) { o.replace = true } }

// Register adds a plugin. Registering a name twice is a configuration error
// unless WithReplace is given.
func (r *Registry) Register(p Plugin, opts ...RegisterOption) error {
	if p == nil {
		return fmt.Errorf("cannot register nil plugin")
	}
	meta := p.Metadata()
	if err := meta.Validate(); err != nil {
		return errors.ValidationFailed("plugin", err.Error())
	}
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.plugins[meta.Name]; exists {
		if !o.replace {
			return errors.DuplicatePlugin(meta.Name)
		}
		r.plugins[meta.Name] = p
		return nil
	}
	r.plugins[meta.Name] = p
	r.order = append(r.order, meta.Name)
	return nil
}

// Unregister removes a plugin. It reports whether the plugin was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plugins[name]; !ok {
		return false
	}
	delete(r.plugins, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get retrieves a plugin by name.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Has checks if a plugin with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns all plugins in registration order.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Plugin, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.plugins[n])
	}
	return out
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	// Plugins in execution order.
	Plugins []Plugin
	// Removed names plugins excluded by remove lists or by a removed hard
	// dependency.
	Removed []string
	// Warnings describes non-fatal adjustments.
	Warnings []string
}

// Names returns the resolved plugin names in order.
func (r *Resolution) Names() []string {
	out := make([]string, 0, len(r.Plugins))
	for _, p := range r.Plugins {
		out = append(out, p.Metadata().Name)
	}
	return out
}

// Resolve computes the execution order.
//
// Plugins named in any remove list are excluded, and so is every plugin that
// requires an excluded one (with a warning). A required plugin that was
// never registered is a configuration error. The rest is sorted so that
// Pre and Required names run first and Post names run after; references to
// absent plugins are ignored. Unconstrained plugins keep registration order.
// A cycle is a configuration error naming the shortest cycle.
func (r *Registry) Resolve() (*Resolution, error) {
	plugins := r.List()
	res := &Resolution{}

	metas := make(map[string]Metadata, len(plugins))
	removed := make(map[string]bool)
	for _, p := range plugins {
		m := p.Metadata()
		metas[m.Name] = m
	}
	for _, p := range plugins {
		for _, name := range metas[p.Metadata().Name].Remove {
			if _, ok := metas[name]; ok && !removed[name] {
				removed[name] = true
				res.Removed = append(res.Removed, name)
			}
		}
	}

	for _, p := range plugins {
		m := metas[p.Metadata().Name]
		if removed[m.Name] {
			continue
		}
		for _, req := range m.Required {
			if _, ok := metas[req]; !ok {
				return nil, errors.MissingRequiredPlugin(m.Name, req)
			}
		}
	}

	// Dropping a plugin can orphan others that require it.
	for changed := true; changed; {
		changed = false
		for _, p := range plugins {
			m := metas[p.Metadata().Name]
			if removed[m.Name] {
				continue
			}
			for _, req := range m.Required {
				if removed[req] {
					removed[m.Name] = true
					res.Removed = append(res.Removed, m.Name)
					res.Warnings = append(res.Warnings,
						fmt.Sprintf("plugin %s dropped: required plugin %s was removed", m.Name, req))
					changed = true
					break
				}
			}
		}
	}

	g := toposort.New()
	byName := make(map[string]Plugin, len(plugins))
	for _, p := range plugins {
		name := p.Metadata().Name
		if removed[name] {
			continue
		}
		g.AddNode(name)
		byName[name] = p
	}
	for _, p := range plugins {
		m := metas[p.Metadata().Name]
		if removed[m.Name] {
			continue
		}
		name := m.Name
		for _, before := range m.Pre {
			g.AddEdge(before, name)
		}
		for _, before := range m.Required {
			g.AddEdge(before, name)
		}
		for _, after := range m.Post {
			g.AddEdge(name, after)
		}
	}

	order, err := g.Sort()
	if err != nil {
		var cycle *toposort.CycleError
		if stderrors.As(err, &cycle) {
			return nil, errors.PluginOrderCycle(cycle.Cycle, err)
		}
		return nil, err
	}
	for _, name := range order {
		res.Plugins = append(res.Plugins, byName[name])
	}
	return res, nil
}
