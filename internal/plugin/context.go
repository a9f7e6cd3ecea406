package plugin

import (
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/rsbuild/internal/config"
)

// Context is the read-mostly build state shared with every plugin.
type Context struct {
	// RootPath is the absolute project root.
	RootPath string

	// DistPath is the absolute output directory of the first environment.
	DistPath string

	// Mode is resolved once when the build starts.
	Mode config.Mode

	// BuildID uniquely identifies this build invocation.
	BuildID string

	// Bundler names the bundler runner ("esbuild").
	Bundler string

	// Logger provides structured logging for plugin operations.
	Logger *slog.Logger

	mu      sync.RWMutex
	exposed map[string]any
}

// NewContext creates a plugin context.
func NewContext(rootPath string, mode config.Mode, buildID, bundlerName string, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		RootPath: rootPath,
		Mode:     mode,
		BuildID:  buildID,
		Bundler:  bundlerName,
		Logger:   logger,
		exposed:  make(map[string]any),
	}
}

// Expose publishes a value for other plugins under id. Exposing the same id
// twice overwrites the earlier value.
func (c *Context) Expose(id string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exposed[id] = value
}

// UseExposed retrieves a value published with Expose.
func (c *Context) UseExposed(id string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.exposed[id]
	return v, ok
}
