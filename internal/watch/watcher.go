// Package watch monitors a source tree and triggers debounced rebuilds.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/rsbuild/internal/logfields"
)

// DefaultDebounce is the quiet window after the last change before a
// rebuild is triggered.
const DefaultDebounce = 200 * time.Millisecond

// ChangeFunc is called with the changed paths of one burst, sorted.
type ChangeFunc func(ctx context.Context, changed []string) error

// Config configures a Watcher.
type Config struct {
	// Root is the directory watched recursively.
	Root string
	// Ignore lists directories (absolute or relative to Root) that are never
	// watched, typically the dist directory.
	Ignore []string
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher monitors a directory tree and calls a ChangeFunc once per burst of
// file system events.
type Watcher struct {
	root     string
	ignore   []string
	debounce time.Duration
	logger   *slog.Logger
	onChange ChangeFunc

	watcher *fsnotify.Watcher

	mu       sync.Mutex
	pending  map[string]struct{}
	trigger  chan struct{}
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// defaultIgnored are directory names never descended into.
var defaultIgnored = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// New creates a watcher. Call Start to begin watching.
func New(cfg Config, onChange ChangeFunc) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("watch: change callback is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{
		root:     root,
		debounce: cfg.Debounce,
		logger:   cfg.Logger,
		onChange: onChange,
		watcher:  fw,
		pending:  make(map[string]struct{}),
		trigger:  make(chan struct{}, 1),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	for _, p := range cfg.Ignore {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		w.ignore = append(w.ignore, filepath.Clean(p))
	}
	return w, nil
}

// Start adds every directory below the root and starts the event loops.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.logger.Info("Watching for changes", logfields.Path(w.root))
	go w.watchLoop(ctx)
	go w.rebuildLoop(ctx)
	return nil
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		err = w.watcher.Close()
	})
	return err
}

// Done is closed once the rebuild loop has exited.
func (w *Watcher) Done() <-chan struct{} { return w.done }

func (w *Watcher) ignored(path string) bool {
	if defaultIgnored[filepath.Base(path)] {
		return true
	}
	for _, ig := range w.ignore {
		if path == ig || strings.HasPrefix(path, ig+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}
	if event.Op.Has(fsnotify.Chmod) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", logfields.Path(event.Name), logfields.Error(err))
			}
		}
	}
	w.logger.Debug("Source change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))

	w.mu.Lock()
	w.pending[event.Name] = struct{}{}
	w.mu.Unlock()
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// rebuildLoop coalesces triggers into one callback per quiet window. The
// callback runs on this goroutine, so rebuilds never overlap.
func (w *Watcher) rebuildLoop(ctx context.Context) {
	defer close(w.done)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-w.trigger:
			timer.Reset(w.debounce)
		case <-timer.C:
			changed := w.drain()
			if len(changed) == 0 {
				continue
			}
			if err := w.onChange(ctx, changed); err != nil {
				w.logger.Error("Rebuild failed", logfields.Error(err))
			}
		}
	}
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.pending))
	for p := range w.pending {
		out = append(out, p)
	}
	w.pending = make(map[string]struct{})
	sort.Strings(out)
	return out
}
