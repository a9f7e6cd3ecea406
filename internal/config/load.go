package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/rsbuild/internal/errors"
)

// FindConfigFile returns the config file to load for root. An explicit path
// is resolved against root and must exist; otherwise the default file names
// are tried. ok is false when nothing was found.
func FindConfigFile(root, explicit string) (path string, ok bool, err error) {
	if explicit != "" {
		p := resolvePath(root, explicit)
		if _, statErr := os.Stat(p); statErr != nil {
			return "", false, errors.ConfigNotFound(p)
		}
		return p, true, nil
	}
	for _, name := range []string{DefaultConfigFile, "rsbuild.config.yml"} {
		p := filepath.Join(root, name)
		if _, statErr := os.Stat(p); statErr == nil {
			return p, true, nil
		}
	}
	return "", false, nil
}

// Load reads a YAML config file into an untyped tree.
func Load(configPath string) (Map, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(configPath)
		}
		return nil, errors.FileSystemError("read config", configPath, err)
	}
	return Parse(configPath, data)
}

// Parse decodes YAML config content. name is only used in errors.
func Parse(name string, data []byte) (Map, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.ConfigInvalid(name, fmt.Errorf("failed to unmarshal config: %w", err))
	}
	if raw == nil {
		raw = Map{}
	}
	return raw, nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Map{
		"source": Map{
			"entry":  Map{"index": "./src/index.js"},
			"define": Map{"APP_VERSION": `"0.1.0"`},
		},
		"output": Map{
			"target":   "web",
			"distPath": Map{"root": "dist"},
		},
		"html": Map{"title": "My App"},
		"checkSyntax": Map{
			"enable":  true,
			"exclude": []any{"**/vendor/**"},
		},
		"environments": Map{
			"web": Map{},
		},
	}

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return errors.FileSystemError("create config directory", filepath.Dir(configPath), err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func resolvePath(root, p string) string {
	if p == "" {
		return root
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// ResolvePath joins a relative path to root; absolute paths are returned
// cleaned.
func ResolvePath(root, p string) string { return resolvePath(root, p) }
