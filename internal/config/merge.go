package config

import (
	"reflect"
	"sort"
	"strings"
)

// Map is an untyped configuration tree as loaded from YAML or produced by
// plugins. A missing key means "not set"; a key holding nil is an explicit
// clear that removes whatever a lower layer supplied.
type Map = map[string]any

// appendFields lists the array fields that concatenate on merge instead of
// being replaced.
var appendFields = map[string]bool{
	"source.preEntry": true,
	"source.include":  true,
	"source.exclude":  true,
	"plugins":         true,
}

// IsAppendField reports whether path concatenates on merge. Paths inside an
// environments.<name> override are matched without that prefix.
func IsAppendField(path string) bool {
	if rest, ok := strings.CutPrefix(path, "environments."); ok {
		if i := strings.IndexByte(rest, '.'); i >= 0 {
			path = rest[i+1:]
		}
	}
	return appendFields[path]
}

// DeepMerge folds configs left to right into a fresh tree. Inputs are never
// modified.
//
//   - maps merge key by key
//   - arrays replace wholesale, except append fields which concatenate
//     skipping items already present
//   - a nil value or an empty container in a later layer clears the earlier
//     value; a missing key keeps it
func DeepMerge(configs ...Map) Map {
	out := Map{}
	for _, c := range configs {
		if c == nil {
			continue
		}
		out = mergeMap(out, c, "")
	}
	return out
}

func mergeMap(dst, src Map, prefix string) Map {
	for k, v := range src {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		existing, ok := dst[k]
		if !ok {
			dst[k] = Clone(v)
			continue
		}
		dst[k] = mergeValue(existing, v, path)
	}
	return dst
}

func mergeValue(dst, src any, path string) any {
	if src == nil {
		return nil
	}
	if sm, ok := asMap(src); ok {
		dm, ok := asMap(dst)
		if !ok || len(sm) == 0 {
			return Clone(sm)
		}
		return mergeMap(Clone(dm).(Map), sm, path)
	}
	if ss, ok := asSlice(src); ok {
		if len(ss) == 0 || !IsAppendField(path) {
			return Clone(ss)
		}
		ds, _ := asSlice(dst)
		out := Clone(ds).([]any)
		if out == nil {
			out = []any{}
		}
		for _, item := range ss {
			if !containsValue(out, item) {
				out = append(out, Clone(item))
			}
		}
		return out
	}
	return src
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}

// Clone deep-copies maps and slices of a config value. Slices of any element
// type come back as []any so every tree has a single list representation.
func Clone(v any) any {
	if m, ok := asMap(v); ok {
		out := make(Map, len(m))
		for k, val := range m {
			out[k] = Clone(val)
		}
		return out
	}
	if s, ok := asSlice(v); ok {
		if s == nil {
			return []any(nil)
		}
		out := make([]any, len(s))
		for i, val := range s {
			out[i] = Clone(val)
		}
		return out
	}
	return v
}

// CloneMap is Clone for a whole tree.
func CloneMap(m Map) Map {
	if m == nil {
		return nil
	}
	return Clone(m).(Map)
}

func asMap(v any) (Map, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case map[string]string:
		out := make(Map, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func asSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		if t == nil {
			return nil, true
		}
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// Lookup returns the value at a dotted path.
func Lookup(m Map, path string) (any, bool) {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		cm, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = cm[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// LookupString returns the string at path or "".
func LookupString(m Map, path string) string {
	v, _ := Lookup(m, path)
	s, _ := v.(string)
	return s
}

// SetPath stores value at a dotted path, creating intermediate maps.
func SetPath(m Map, path string, value any) {
	parts := strings.Split(path, ".")
	cur := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = Map{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// Keys returns the sorted keys of a map value at path.
func Keys(m Map, path string) []string {
	v, ok := Lookup(m, path)
	if !ok {
		return nil
	}
	vm, ok := asMap(v)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(vm))
	for k := range vm {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
