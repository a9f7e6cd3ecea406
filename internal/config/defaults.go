package config

import (
	"fmt"
	"strings"
)

// Mode selects development or production defaults.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
	ModeNone        Mode = "none"
)

// ParseMode normalizes a mode string. Empty input yields def.
func ParseMode(s string, def Mode) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "development", "dev":
		return ModeDevelopment, nil
	case "production", "prod":
		return ModeProduction, nil
	case "none":
		return ModeNone, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Target is the runtime an environment builds for.
type Target string

const (
	TargetWeb       Target = "web"
	TargetNode      Target = "node"
	TargetWebWorker Target = "web-worker"
)

// IsValid reports whether t is a known target.
func (t Target) IsValid() bool {
	switch t {
	case TargetWeb, TargetNode, TargetWebWorker:
		return true
	default:
		return false
	}
}

// DefaultWebBrowserslist is the browser compatibility list used for web and
// web-worker targets when none is configured.
var DefaultWebBrowserslist = []string{"chrome >= 87", "edge >= 88", "firefox >= 78", "safari >= 14"}

// DefaultNodeBrowserslist is used for node targets.
var DefaultNodeBrowserslist = []string{"node >= 16"}

// Browserslist returns the default compatibility list for a target.
func Browserslist(target Target) []string {
	if target == TargetNode {
		return append([]string(nil), DefaultNodeBrowserslist...)
	}
	return append([]string(nil), DefaultWebBrowserslist...)
}

// DefaultConfigFile is looked up in the project root when no explicit path
// is given.
const DefaultConfigFile = "rsbuild.config.yaml"

// Defaults returns the built-in configuration for one target and mode.
func Defaults(target Target, mode Mode) Map {
	if !target.IsValid() {
		target = TargetWeb
	}
	distRoot := "dist"
	if target == TargetNode {
		distRoot = "dist/server"
	}
	return Map{
		"mode": string(mode),
		"source": Map{
			"preEntry": []any{},
			"define":   Map{},
			"alias":    Map{},
			"include":  []any{},
			"exclude":  []any{},
		},
		"output": Map{
			"target": string(target),
			"distPath": Map{
				"root": distRoot,
				"js":   "static/js",
				"css":  "static/css",
				"html": "./",
			},
			"assetPrefix":          "/",
			"minify":               mode == ModeProduction,
			"sourceMap":            mode == ModeDevelopment,
			"overrideBrowserslist": toAny(Browserslist(target)),
			"inlineScripts":        false,
			"cleanDistPath":        true,
		},
		"html": Map{
			"enable":  target == TargetWeb,
			"title":   "Rsbuild App",
			"mountId": "root",
		},
		"server": Map{
			"base": "/",
			"port": 3000,
			"host": "0.0.0.0",
		},
		"tools": Map{
			"swc":     Map{},
			"bundler": Map{},
		},
	}
}

func toAny(list []string) []any {
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}
