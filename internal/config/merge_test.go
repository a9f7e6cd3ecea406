package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestDeepMergeObjectsRecursively(t *testing.T) {
	got := DeepMerge(
		Map{"output": Map{"distPath": Map{"root": "dist", "js": "static/js"}}},
		Map{"output": Map{"distPath": Map{"root": "build"}}},
	)
	want := Map{"output": Map{"distPath": Map{"root": "build", "js": "static/js"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestDeepMergeArraysReplaceUnlessAppendField(t *testing.T) {
	got := DeepMerge(
		Map{
			"output":  Map{"overrideBrowserslist": []any{"chrome >= 87"}},
			"source":  Map{"preEntry": []any{"./a.js"}, "include": []string{"x"}},
			"plugins": []any{"preact"},
		},
		Map{
			"output":  Map{"overrideBrowserslist": []any{"ie 11"}},
			"source":  Map{"preEntry": []any{"./b.js", "./a.js"}, "include": []string{"y"}},
			"plugins": []any{"check-syntax"},
		},
	)

	assert.Equal(t, []any{"ie 11"}, got["output"].(Map)["overrideBrowserslist"])
	assert.Equal(t, []any{"./a.js", "./b.js"}, got["source"].(Map)["preEntry"])
	assert.Equal(t, []any{"x", "y"}, got["source"].(Map)["include"])
	assert.Equal(t, []any{"preact", "check-syntax"}, got["plugins"])
}

func TestDeepMergeUndefinedKeepsNullClears(t *testing.T) {
	base := Map{"output": Map{"minify": true, "sourceMap": true, "distPath": Map{"root": "dist"}}}

	kept := DeepMerge(base, Map{"output": Map{"assetPrefix": "/x/"}})
	assert.Equal(t, true, kept["output"].(Map)["minify"])

	cleared := DeepMerge(base, Map{"output": Map{"minify": nil, "distPath": Map{}}})
	out := cleared["output"].(Map)
	v, ok := out["minify"]
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, Map{}, out["distPath"])
	assert.Equal(t, true, out["sourceMap"])

	emptied := DeepMerge(Map{"source": Map{"include": []any{"a"}}}, Map{"source": Map{"include": []any{}}})
	assert.Equal(t, []any{}, emptied["source"].(Map)["include"])
}

func TestDeepMergeDoesNotModifyInputs(t *testing.T) {
	a := Map{"source": Map{"alias": Map{"a": "1"}, "preEntry": []any{"x"}}}
	b := Map{"source": Map{"alias": Map{"b": "2"}, "preEntry": []any{"y"}}}
	_ = DeepMerge(a, b)

	assert.Equal(t, Map{"a": "1"}, a["source"].(Map)["alias"])
	assert.Equal(t, []any{"x"}, a["source"].(Map)["preEntry"])
}

func TestAppendFieldInsideEnvironment(t *testing.T) {
	assert.True(t, IsAppendField("environments.web.source.include"))
	assert.True(t, IsAppendField("plugins"))
	assert.False(t, IsAppendField("environments.web"))
	assert.False(t, IsAppendField("output.overrideBrowserslist"))
}

func TestLookupAndSetPath(t *testing.T) {
	m := Map{}
	SetPath(m, "tools.swc.jsc.target", "es2015")
	assert.Equal(t, "es2015", LookupString(m, "tools.swc.jsc.target"))
	_, ok := Lookup(m, "tools.missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"jsc"}, Keys(m, "tools.swc"))
}
