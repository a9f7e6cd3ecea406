package checksyntax

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/gobwas/glob"
)

// ExcludeFunc reports whether an asset path is excluded from checking.
type ExcludeFunc func(path string) bool

// ExprPrefix marks an exclude string as an expr predicate. The predicate
// sees path, name, ext and dir.
const ExprPrefix = "expr:"

type matcher interface {
	match(p string) bool
}

type globMatcher struct{ g glob.Glob }

func (m globMatcher) match(p string) bool { return m.g.Match(p) }

type regexpMatcher struct{ re *regexp.Regexp }

func (m regexpMatcher) match(p string) bool { return m.re.MatchString(p) }

type funcMatcher struct{ fn ExcludeFunc }

func (m funcMatcher) match(p string) bool { return m.fn(p) }

type exprMatcher struct{ program *vm.Program }

func (m exprMatcher) match(p string) bool {
	out, err := vm.Run(m.program, map[string]any{
		"path": p,
		"name": path.Base(p),
		"ext":  path.Ext(p),
		"dir":  path.Dir(p),
	})
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// Exclude is a compiled set of exclude patterns.
type Exclude struct {
	matchers []matcher
}

// CompileExclude compiles exclude entries. Strings are globs, /regular
// expressions/ or expr: predicates; *regexp.Regexp, ExcludeFunc and
// func(string) bool values are used as they are. A single entry may be
// passed instead of a list.
func CompileExclude(entries any) (*Exclude, error) {
	ex := &Exclude{}
	var list []any
	switch t := entries.(type) {
	case nil:
	case []any:
		list = t
	case []string:
		for _, s := range t {
			list = append(list, s)
		}
	default:
		list = []any{t}
	}
	for _, e := range list {
		m, err := compileOne(e)
		if err != nil {
			return nil, err
		}
		ex.matchers = append(ex.matchers, m)
	}
	return ex, nil
}

func compileOne(e any) (matcher, error) {
	switch t := e.(type) {
	case string:
		return compileString(t)
	case *regexp.Regexp:
		return regexpMatcher{t}, nil
	case ExcludeFunc:
		return funcMatcher{t}, nil
	case func(string) bool:
		return funcMatcher{t}, nil
	default:
		return nil, fmt.Errorf("unsupported exclude entry %T", e)
	}
}

func compileString(s string) (matcher, error) {
	switch {
	case strings.HasPrefix(s, ExprPrefix):
		src := strings.TrimSpace(strings.TrimPrefix(s, ExprPrefix))
		program, err := expr.Compile(src, expr.AllowUndefinedVariables(), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("exclude predicate %q: %w", src, err)
		}
		return exprMatcher{program}, nil
	case len(s) > 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/"):
		re, err := regexp.Compile(s[1 : len(s)-1])
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %s: %w", s, err)
		}
		return regexpMatcher{re}, nil
	default:
		g, err := glob.Compile(s, '/')
		if err != nil {
			return nil, fmt.Errorf("exclude glob %q: %w", s, err)
		}
		return globMatcher{g}, nil
	}
}

// Len returns the number of patterns.
func (e *Exclude) Len() int {
	if e == nil {
		return 0
	}
	return len(e.matchers)
}

// Match reports whether any pattern matches any of the paths.
func (e *Exclude) Match(paths ...string) bool {
	if e == nil {
		return false
	}
	for _, m := range e.matchers {
		for _, p := range paths {
			if m.match(filepath.ToSlash(p)) {
				return true
			}
		}
	}
	return false
}
