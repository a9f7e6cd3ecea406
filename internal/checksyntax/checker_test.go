package checksyntax

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/rsbuild/internal/bundler"
)

func newTestChecker(t *testing.T, opts Options) (*Checker, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts.Output = &out
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewChecker(opts)
	require.NoError(t, err)
	return c, &out
}

func TestCheckReportsInlineScriptOnly(t *testing.T) {
	c, out := newTestChecker(t, Options{ECMAVersion: 2015})
	assets := map[string]bundler.Source{
		"index.html":          bundler.RawSource("<html><body><script>const x = ;</script></body></html>"),
		"static/js/index.js":  bundler.RawSource("const add = (a, b) => a + b;\nclass A { m() { return `${add(1, 2)}`; } }\n"),
		"static/css/main.css": bundler.RawSource("body { color: red }"),
	}
	errs, err := c.Check(context.Background(), assets, "")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "index.html", errs[0].Source.Path)
	assert.Equal(t, 1, errs[0].Source.Line)
	assert.Empty(t, out.String(), "Check does not report")
}

func TestCheckNewerSyntaxThanTarget(t *testing.T) {
	c, _ := newTestChecker(t, Options{ECMAVersion: 5})
	errs, err := c.Check(context.Background(), map[string]bundler.Source{
		"static/js/index.js": bundler.RawSource("var a = {};\nvar b = a?.b;\n"),
	}, "")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	e := errs[0]
	assert.Equal(t, "static/js/index.js", e.Source.Path)
	assert.Equal(t, 2, e.Source.Line)
	assert.Contains(t, e.Message, "optional chaining")
	assert.Contains(t, e.Message, "ES5")
	assert.Contains(t, e.Code, "> 2 | var b = a?.b;")
	assert.True(t, strings.HasPrefix(e.Error(), "static/js/index.js:2:"))
}

func TestCheckAcceptsES2021Syntax(t *testing.T) {
	assets := map[string]bundler.Source{
		"static/js/index.js": bundler.RawSource("let a = 1;\na ??= 2;\na ||= 3;\na &&= 4;\nconst n = 10n;\n"),
	}

	c, _ := newTestChecker(t, Options{ECMAVersion: 2021})
	errs, err := c.Check(context.Background(), assets, "")
	require.NoError(t, err)
	assert.Empty(t, errs)

	c, _ = newTestChecker(t, Options{ECMAVersion: 2020})
	errs, err = c.Check(context.Background(), assets, "")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Source.Line)
	assert.Contains(t, errs[0].Message, "logical assignment is not available in ES2020")
}

func TestCheckSkipsExcludedAssets(t *testing.T) {
	c, _ := newTestChecker(t, Options{ECMAVersion: 5, Exclude: []string{"**/vendor/*.js"}})
	errs, err := c.Check(context.Background(), map[string]bundler.Source{
		"static/vendor/lib.js": bundler.RawSource("const a = 1;"),
	}, "")
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestCheckExcludeMatchesRootRelativePath(t *testing.T) {
	root := t.TempDir()
	c, _ := newTestChecker(t, Options{ECMAVersion: 5, Exclude: []string{"dist/static/js/*.js"}, RootPath: root})
	errs, err := c.Check(context.Background(), map[string]bundler.Source{
		"static/js/index.js": bundler.RawSource("let a = 1;"),
		"legacy.js":          bundler.RawSource("let b = 2;"),
	}, filepath.Join(root, "dist"))
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "legacy.js", errs[0].Source.Path)
}

func TestFeatureVersions(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		version int
		want    string
	}{
		{"arrow in es5", "var f = () => 1;", 5, "arrow function"},
		{"arrow in es2015", "var f = () => 1;", 2015, ""},
		{"exponent in es2015", "var x = 2 ** 3;", 2015, "exponentiation"},
		{"async in es2016", "async function f() { await 1; }", 2016, "async function"},
		{"object spread in es2017", "var a = {}; var b = { ...a };", 2017, "object spread"},
		{"optional catch in es2018", "try { f(); } catch { }", 2018, "optional catch binding"},
		{"nullish in es2019", "var a = null ?? 1;", 2019, "nullish coalescing"},
		{"nullish in es2020", "var a = null ?? 1;", 2020, ""},
		{"class field in es2021", "class A { x = 1 }", 2021, "class field"},
		{"first in source order", "var a = b?.c; let d = 1;", 5, "optional chaining"},
		{"logical assignment in es2020", "var a; a ??= 1;", 2020, "logical assignment"},
		{"logical assignment in es2021", "var a; a ||= 1; a &&= 2;", 2021, ""},
		{"bigint in es2019", "var n = 10n;", 2019, "BigInt literal"},
		{"bigint in es2020", "var n = 10n;", 2020, ""},
		{"syntax error beyond goja", "var a; a ??= ;", 2024, "Unexpected"},
		{"latest accepts all", "class A { #x = 1; static { } m() { return this.#x ?? 0; } }", 2024, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := parseUnit(tt.code, tt.version)
			if tt.want == "" {
				assert.Nil(t, issue)
				return
			}
			require.NotNil(t, issue)
			assert.Contains(t, issue.message, tt.want)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	issue := parseUnit("var a = 1;\nvar b = ;\n", 2024)
	require.NotNil(t, issue)
	assert.Equal(t, 2, issue.line)
	assert.NotEmpty(t, issue.message)
}

func TestNewCheckerVersions(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    int
		wantErr bool
	}{
		{"explicit", Options{ECMAVersion: 2018}, 2018, false},
		{"edition number", Options{ECMAVersion: 6}, 2015, false},
		{"from targets", Options{Targets: []string{"ie >= 11"}}, 5, false},
		{"explicit wins over targets", Options{Targets: []string{"ie >= 11"}, ECMAVersion: 2020}, 2020, false},
		{"too old", Options{ECMAVersion: 3}, 0, true},
		{"gap", Options{ECMAVersion: 2010}, 0, true},
		{"too new", Options{ECMAVersion: 2030}, 0, true},
		{"latest", Options{ECMAVersion: 2024}, 2024, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewChecker(tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.ECMAVersion())
		})
	}
}

func TestNewCheckerReportsResolvedVersion(t *testing.T) {
	_, err := NewChecker(Options{ECMAVersion: 16})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported ecmaVersion 2025")
}

func TestCompileExclude(t *testing.T) {
	ex, err := CompileExclude([]any{
		"**/*.min.js",
		"/polyfill/",
		regexp.MustCompile(`^legacy/`),
		ExcludeFunc(func(p string) bool { return strings.HasSuffix(p, ".skip.js") }),
		`expr:ext == ".mjs" && name startsWith "worker"`,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, ex.Len())

	for _, p := range []string{"static/js/a.min.js", "static/js/polyfill-core.js", "legacy/a.js", "b.skip.js", "static/worker-1.mjs"} {
		assert.True(t, ex.Match(p), p)
	}
	for _, p := range []string{"static/js/index.js", "static/app.mjs", "old/legacy/a.js"} {
		assert.False(t, ex.Match(p), p)
	}

	_, err = CompileExclude(`expr:path +`)
	require.Error(t, err)
	_, err = CompileExclude(42)
	require.Error(t, err)

	var none *Exclude
	assert.False(t, none.Match("a.js"))
}

func TestHTMLScripts(t *testing.T) {
	doc := `<!doctype html><html><head>
<script src="/static/js/index.js"></script>
<script>window.a = 1;</script>
<script type="module">import x from "./x.js";</script>
<script type="application/json">{"a": 1}</script>
</head><body><script type="text/javascript">window.b = 2;</script><script>   </script></body></html>`
	scripts, err := HTMLScripts(doc)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"window.a = 1;", "window.b = 2;"}, scripts); diff != "" {
		t.Errorf("scripts mismatch (-want +got):\n%s", diff)
	}
}

func TestSnippetClipsLongLines(t *testing.T) {
	long := strings.Repeat("a", 200) + "?." + strings.Repeat("b", 200)
	got := snippet(long, 1, 201)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "> 1 | "))
	assert.Len(t, strings.TrimPrefix(lines[0], "> 1 | "), snippetWidth)
	caret := strings.Index(lines[1], "^")
	assert.Equal(t, "?", string(lines[0][caret]))

	assert.Empty(t, snippet("a", 3, 1))
}

func TestWriteReport(t *testing.T) {
	errs := []*ECMASyntaxError{
		{Message: "b", Source: Location{Path: "b.js", Line: 1, Column: 1}},
		{Message: "a2", Source: Location{Path: "a.js", Line: 3, Column: 2}, Code: "> 3 | x"},
		{Message: "a1", Source: Location{Path: "a.js", Line: 3, Column: 1}},
	}
	sortErrors(errs)
	assert.Equal(t, []string{"a1", "a2", "b"}, []string{errs[0].Message, errs[1].Message, errs[2].Message})

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, errs, 2017))
	report := buf.String()
	assert.Contains(t, report, "[Syntax Checker] Found 3 syntax error(s) for target ES2017:")
	assert.Contains(t, report, "ERROR #2")
	assert.Contains(t, report, "source: a.js:3:2")
	assert.Contains(t, report, "reason: a2")
	assert.Contains(t, report, "    > 3 | x")

	buf.Reset()
	require.NoError(t, WriteReport(&buf, nil, 2017))
	assert.Empty(t, buf.String())
}

func TestApplyRecordsWarningsPerCompilation(t *testing.T) {
	c, out := newTestChecker(t, Options{ECMAVersion: 5})
	compiler, err := bundler.NewCompiler("web", "", map[string]any{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, c.Apply(compiler))

	compile := func(code string) *bundler.Stats {
		comp, err := compiler.NewCompilation()
		require.NoError(t, err)
		comp.EmitAsset("static/js/index.js", bundler.RawSource(code))
		require.NoError(t, comp.Seal(context.Background()))
		return comp.Stats()
	}

	stats := compile("let a = 1;")
	require.Len(t, stats.Warnings, 1)
	assert.Contains(t, stats.Warnings[0], "static/js/index.js:1:1")
	assert.False(t, stats.HasErrors())
	assert.Len(t, c.Errors(), 1)
	assert.Contains(t, out.String(), "Found 1 syntax error(s) for target ES5")

	stats = compile("var a = 1;")
	assert.Empty(t, stats.Warnings)
	assert.Empty(t, c.Errors())
}

func TestConstructorDecodesChainArgs(t *testing.T) {
	ctor := Constructor(Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Output: io.Discard})
	p, err := ctor.Instantiate(map[string]any{
		"targets":     []any{"ie >= 11"},
		"ecmaVersion": 0,
		"exclude":     []any{"*.min.js"},
	})
	require.NoError(t, err)
	c, ok := p.(*Checker)
	require.True(t, ok)
	assert.Equal(t, 5, c.ECMAVersion())
	assert.Equal(t, 1, c.exclude.Len())

	p, err = ctor.Instantiate(Options{ECMAVersion: 2019})
	require.NoError(t, err)
	assert.Equal(t, 2019, p.(*Checker).ECMAVersion())

	_, err = ctor.Instantiate(map[string]any{"ecmaVersion": 1999})
	require.Error(t, err)
}

func TestCheckDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "static", "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "static", "js", "a.js"), []byte("var a = () => 1;"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<script>var b = 1;</script>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("let"), 0o600))

	c, out := newTestChecker(t, Options{ECMAVersion: 5})
	errs, err := c.CheckDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "static/js/a.js", errs[0].Source.Path)
	assert.Contains(t, out.String(), "ERROR #1")
}
