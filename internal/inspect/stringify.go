package inspect

import (
	"bytes"
	"fmt"
	"reflect"
	"regexp"
	"runtime"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/rsbuild/internal/chain"
)

// Markers written in place of values YAML cannot carry.
const (
	FunctionMarker = "[Function]"
	RegExpMarker   = "[RegExp]"
)

// Stringify renders a config tree as YAML. Functions and regular
// expressions become placeholders: in verbose mode they carry the function
// name or the pattern, otherwise a short marker. Plugin specs render as
// their name and constructor, with arguments only in verbose mode.
func Stringify(v any, verbose bool) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Plain(v, verbose)); err != nil {
		return "", fmt.Errorf("stringify config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Plain converts v into maps, slices and scalars only.
func Plain(v any, verbose bool) any {
	switch t := v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return t
	case chain.PluginSpec:
		return pluginSpec(t, verbose)
	case *chain.PluginSpec:
		if t == nil {
			return nil
		}
		return pluginSpec(*t, verbose)
	case *regexp.Regexp:
		if verbose {
			return "/" + t.String() + "/"
		}
		return RegExpMarker
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		if !verbose {
			return FunctionMarker
		}
		if fn := runtime.FuncForPC(rv.Pointer()); fn != nil {
			return "[Function " + fn.Name() + "]"
		}
		return FunctionMarker
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Plain(iter.Value().Interface(), verbose)
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Plain(rv.Index(i).Interface(), verbose)
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return Plain(rv.Elem().Interface(), verbose)
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Struct:
		if !verbose {
			break
		}
		if s, ok := v.(fmt.Stringer); ok {
			return s.String()
		}
		return fmt.Sprintf("%T %+v", v, v)
	}
	return fmt.Sprintf("[%T]", v)
}

func pluginSpec(p chain.PluginSpec, verbose bool) map[string]any {
	out := map[string]any{"name": p.Name}
	if p.Constructor != nil {
		out["constructor"] = p.Constructor.ConstructorName()
	}
	if verbose && len(p.Args) > 0 {
		out["args"] = Plain(p.Args, verbose)
	}
	return out
}
