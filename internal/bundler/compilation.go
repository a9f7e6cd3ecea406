package bundler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Process-assets stages, lowest first.
const (
	ProcessAssetsStageAdditional            = -2000
	ProcessAssetsStagePreProcess            = -1000
	ProcessAssetsStageDerived               = -200
	ProcessAssetsStageAdditions             = -100
	ProcessAssetsStageOptimize              = 100
	ProcessAssetsStageOptimizeCount         = 200
	ProcessAssetsStageOptimizeCompatibility = 300
	ProcessAssetsStageOptimizeSize          = 400
	ProcessAssetsStageDevTooling            = 500
	ProcessAssetsStageOptimizeInline        = 700
	ProcessAssetsStageSummarize             = 1000
	ProcessAssetsStageOptimizeHash          = 2500
	ProcessAssetsStageOptimizeTransfer      = 3000
	ProcessAssetsStageAnalyse               = 4000
	ProcessAssetsStageReport                = 5000
)

// StageName returns a readable name for a process-assets stage.
func StageName(stage int) string {
	switch stage {
	case ProcessAssetsStageAdditional:
		return "additional"
	case ProcessAssetsStagePreProcess:
		return "pre-process"
	case ProcessAssetsStageDerived:
		return "derived"
	case ProcessAssetsStageAdditions:
		return "additions"
	case ProcessAssetsStageOptimize:
		return "optimize"
	case ProcessAssetsStageOptimizeInline:
		return "optimize-inline"
	case ProcessAssetsStageSummarize:
		return "summarize"
	case ProcessAssetsStageAnalyse:
		return "analyse"
	case ProcessAssetsStageReport:
		return "report"
	default:
		return fmt.Sprintf("stage(%d)", stage)
	}
}

// Source is the serialized content of an asset.
type Source interface {
	Source() []byte
	Size() int
}

// RawSource is an in-memory Source.
type RawSource []byte

func (s RawSource) Source() []byte { return []byte(s) }
func (s RawSource) Size() int      { return len(s) }

// ProcessAssetsFunc receives a snapshot of the compilation's assets.
type ProcessAssetsFunc func(ctx context.Context, assets map[string]Source) error

type processAssetsTap struct {
	name  string
	stage int
	seq   int
	fn    ProcessAssetsFunc
}

// Compilation holds the assets of one build of one environment.
type Compilation struct {
	ID          string
	Environment string
	OutputPath  string
	Logger      *slog.Logger

	mu       sync.RWMutex
	assets   map[string]Source
	taps     []processAssetsTap
	errors   []error
	warnings []error
	sealed   bool
}

// NewCompilation returns a standalone compilation, used for checking assets
// that were not produced by a compiler.
func NewCompilation(id, environment, outputPath string) *Compilation {
	return &Compilation{
		ID:          id,
		Environment: environment,
		OutputPath:  outputPath,
		Logger:      slog.Default(),
		assets:      make(map[string]Source),
	}
}

// ProcessAssets taps the process-assets hook at stage. Taps run in stage
// order, ties in tap order.
func (c *Compilation) ProcessAssets(name string, stage int, fn ProcessAssetsFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.taps = append(c.taps, processAssetsTap{name: name, stage: stage, seq: len(c.taps), fn: fn})
}

// EmitAsset adds or replaces an asset.
func (c *Compilation) EmitAsset(name string, src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assets[name] = src
}

// DeleteAsset removes an asset.
func (c *Compilation) DeleteAsset(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.assets, name)
}

// Asset returns the named asset.
func (c *Compilation) Asset(name string) (Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src, ok := c.assets[name]
	return src, ok
}

// AssetNames lists asset names in sorted order.
func (c *Compilation) AssetNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.assets))
	for n := range c.assets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Assets returns a snapshot of the asset table.
func (c *Compilation) Assets() map[string]Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Source, len(c.assets))
	for k, v := range c.assets {
		out[k] = v
	}
	return out
}

// AddError records a compilation error.
func (c *Compilation) AddError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, err)
}

// AddWarning records a compilation warning.
func (c *Compilation) AddWarning(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, err)
}

// Errors returns the recorded errors.
func (c *Compilation) Errors() []error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]error(nil), c.errors...)
}

// Warnings returns the recorded warnings.
func (c *Compilation) Warnings() []error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]error(nil), c.warnings...)
}

// Seal runs the process-assets taps once. Each tap sees the assets as left
// by earlier stages.
func (c *Compilation) Seal(ctx context.Context) error {
	c.mu.Lock()
	if c.sealed {
		c.mu.Unlock()
		return fmt.Errorf("compilation %s already sealed", c.ID)
	}
	c.sealed = true
	taps := append([]processAssetsTap(nil), c.taps...)
	c.mu.Unlock()

	sort.SliceStable(taps, func(i, j int) bool {
		if taps[i].stage != taps[j].stage {
			return taps[i].stage < taps[j].stage
		}
		return taps[i].seq < taps[j].seq
	})
	for _, t := range taps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.fn(ctx, c.Assets()); err != nil {
			return fmt.Errorf("processAssets %s at %s: %w", t.name, StageName(t.stage), err)
		}
	}
	return nil
}

// WriteAssets writes every asset below dir.
func (c *Compilation) WriteAssets(dir string) error {
	for _, name := range c.AssetNames() {
		src, _ := c.Asset(name)
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, src.Source(), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Stats builds the stats of the compilation.
func (c *Compilation) Stats() *Stats {
	s := &Stats{
		Environment:   c.Environment,
		CompilationID: c.ID,
		OutputPath:    c.OutputPath,
	}
	for _, name := range c.AssetNames() {
		src, _ := c.Asset(name)
		s.Assets = append(s.Assets, AssetInfo{Name: name, Size: src.Size()})
	}
	for _, err := range c.Errors() {
		s.Errors = append(s.Errors, err.Error())
	}
	for _, err := range c.Warnings() {
		s.Warnings = append(s.Warnings, err.Error())
	}
	return s
}
