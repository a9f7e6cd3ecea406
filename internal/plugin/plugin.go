// Package plugin provides the plugin system of the build pipeline: the
// Plugin contract, the Registry that resolves plugin execution order, the
// hook buses plugins tap, and the API handed to each plugin's Setup.
package plugin

import (
	"fmt"
	"strings"
)

// Plugin is a build plugin. Setup is called once, in resolution order, and
// registers hook handlers through api.
type Plugin interface {
	// Metadata returns the plugin's name and ordering constraints.
	Metadata() Metadata

	// Setup taps hooks. An error aborts the build.
	Setup(api *API) error
}

// Metadata describes a plugin's identity and its constraints relative to
// other plugins.
type Metadata struct {
	// Name is the unique plugin identifier (e.g. "rsbuild:define").
	Name string

	// Pre lists plugins that must run before this one.
	Pre []string

	// Post lists plugins that must run after this one.
	Post []string

	// Remove lists plugins this plugin disables.
	Remove []string

	// Required lists hard dependencies. They run before this plugin; when
	// one is missing resolution fails, when one is removed this plugin is
	// dropped too.
	Required []string
}

// String returns a human-readable representation of the metadata.
func (m Metadata) String() string {
	var b strings.Builder
	b.WriteString(m.Name)
	for _, part := range []struct {
		label string
		names []string
	}{{"pre", m.Pre}, {"post", m.Post}, {"remove", m.Remove}, {"required", m.Required}} {
		if len(part.names) > 0 {
			fmt.Fprintf(&b, " %s=%s", part.label, strings.Join(part.names, ","))
		}
	}
	return b.String()
}

// Validate checks if the plugin metadata is valid.
func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("plugin name is required")
	}
	for _, list := range [][]string{m.Pre, m.Post, m.Required} {
		for _, n := range list {
			if n == m.Name {
				return fmt.Errorf("plugin %s cannot order itself relative to itself", m.Name)
			}
		}
	}
	return nil
}

// Func is a Plugin built from metadata and a setup function.
type Func struct {
	Meta    Metadata
	SetupFn func(api *API) error
}

// New returns a Plugin named name with the given setup function.
func New(name string, setup func(api *API) error) *Func {
	return &Func{Meta: Metadata{Name: name}, SetupFn: setup}
}

func (f *Func) Metadata() Metadata { return f.Meta }

func (f *Func) Setup(api *API) error {
	if f.SetupFn == nil {
		return nil
	}
	return f.SetupFn(api)
}

// WithPre sets the plugins that must run before f.
func (f *Func) WithPre(names ...string) *Func {
	f.Meta.Pre = append(f.Meta.Pre, names...)
	return f
}

// WithPost sets the plugins that must run after f.
func (f *Func) WithPost(names ...string) *Func {
	f.Meta.Post = append(f.Meta.Post, names...)
	return f
}

// WithRemove sets the plugins f disables.
func (f *Func) WithRemove(names ...string) *Func {
	f.Meta.Remove = append(f.Meta.Remove, names...)
	return f
}

// WithRequired sets f's hard dependencies.
func (f *Func) WithRequired(names ...string) *Func {
	f.Meta.Required = append(f.Meta.Required, names...)
	return f
}

// HookError tags an error returned by a plugin handler with the plugin and
// hook it came from.
type HookError struct {
	// Plugin identifies which plugin failed.
	Plugin string

	// Hook is the hook name, or "setup" for Setup failures.
	Hook HookName

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("plugin %s failed during %s: %v", e.Plugin, e.Hook, e.Err)
}

// Unwrap returns the underlying error for error inspection.
func (e *HookError) Unwrap() error {
	return e.Err
}
