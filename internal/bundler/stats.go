package bundler

import "time"

// AssetInfo describes one emitted asset.
type AssetInfo struct {
	Name string `json:"name" yaml:"name"`
	Size int    `json:"size" yaml:"size"`
}

// Stats summarizes one compilation.
type Stats struct {
	Environment   string        `json:"environment" yaml:"environment"`
	CompilationID string        `json:"compilationId" yaml:"compilationId"`
	OutputPath    string        `json:"outputPath" yaml:"outputPath"`
	Assets        []AssetInfo   `json:"assets" yaml:"assets"`
	Errors        []string      `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings      []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
}

// HasErrors reports whether the compilation recorded errors.
func (s *Stats) HasErrors() bool { return s != nil && len(s.Errors) > 0 }

// HasWarnings reports whether the compilation recorded warnings.
func (s *Stats) HasWarnings() bool { return s != nil && len(s.Warnings) > 0 }
