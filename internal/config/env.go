package config

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/rsbuild/internal/errors"
)

// PublicEnvPrefix marks variables that are exposed to client code.
const PublicEnvPrefix = "PUBLIC_"

// Env is the result of reading the project's .env files.
type Env struct {
	// Files lists the files that were read, in load order.
	Files []string
	// Vars holds every variable; later files override earlier ones.
	Vars map[string]string
}

// EnvFiles returns the candidate .env files for mode in load order.
func EnvFiles(root string, mode Mode) []string {
	names := []string{".env", ".env.local"}
	if mode != "" {
		names = append(names, ".env."+string(mode), ".env."+string(mode)+".local")
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(root, n)
	}
	return out
}

// LoadEnv reads the .env files of root for mode. Missing files are skipped.
// The process environment is not modified.
func LoadEnv(root string, mode Mode) (*Env, error) {
	env := &Env{Vars: make(map[string]string)}
	for _, file := range EnvFiles(root, mode) {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			continue
		}
		vars, err := godotenv.Read(file)
		if err != nil {
			return nil, errors.ConfigInvalid(file, err)
		}
		for k, v := range vars {
			env.Vars[k] = v
		}
		env.Files = append(env.Files, file)
	}
	return env, nil
}

// PublicVars returns the PUBLIC_ variables in sorted key order.
func (e *Env) PublicVars() []string {
	var keys []string
	for k := range e.Vars {
		if strings.HasPrefix(k, PublicEnvPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Define returns a source.define fragment exposing the PUBLIC_ variables as
// import.meta.env.X and process.env.X string literals.
func (e *Env) Define() Map {
	out := Map{}
	for _, k := range e.PublicVars() {
		lit := strconv.Quote(e.Vars[k])
		out["import.meta.env."+k] = lit
		out["process.env."+k] = lit
	}
	return out
}

// ConfigLayer wraps Define as a config layer suitable for DeepMerge.
func (e *Env) ConfigLayer() Map {
	define := e.Define()
	if len(define) == 0 {
		return nil
	}
	return Map{"source": Map{"define": define}}
}
