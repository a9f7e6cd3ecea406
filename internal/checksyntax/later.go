package checksyntax

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// goja reads the grammar up to ES2020. Code it rejects is parsed again by
// esbuild, which knows every edition up to ESNext.

var esbuildTargets = map[int]api.Target{
	5:    api.ES5,
	2015: api.ES2015,
	2016: api.ES2016,
	2017: api.ES2017,
	2018: api.ES2018,
	2019: api.ES2019,
	2020: api.ES2020,
	2021: api.ES2021,
	2022: api.ES2022,
	2023: api.ES2023,
}

var laterSyntax = []struct {
	pattern *regexp.Regexp
	name    string
}{
	{regexp.MustCompile(`(?:\?\?|\|\||&&)=`), "logical assignment"},
	{regexp.MustCompile(`\b(?:0[xXbBoO][0-9a-fA-F_]+|\d[\d_]*)n\b`), "BigInt literal"},
	{regexp.MustCompile(`\b\d+(?:_\d+)+`), "numeric separator"},
	{regexp.MustCompile(`#[A-Za-z_$][\w$]*\s+in\b`), "private field check"},
	{regexp.MustCompile(`^#!`), "hashbang"},
}

// checkLaterSyntax decides on code goja could not parse. A parse failure in
// esbuild too is a syntax error and issue is returned unchanged. Otherwise
// the code is valid ECMAScript and is flagged only when lowering it to
// version changes it.
func checkLaterSyntax(code string, version int, issue *syntaxIssue) *syntaxIssue {
	modern := transform(code, api.ESNext)
	if len(modern.Errors) > 0 {
		return issue
	}
	target, ok := esbuildTargets[version]
	if !ok {
		return nil
	}
	lowered := transform(code, target)
	if len(lowered.Errors) > 0 {
		msg := lowered.Errors[0]
		at := &syntaxIssue{message: msg.Text, line: issue.line, column: issue.column}
		if loc := msg.Location; loc != nil {
			at.line, at.column = loc.Line, loc.Column+1
		}
		if name := laterSyntaxAt(code, at.line); name != "" {
			at.message = fmt.Sprintf("%s is not available in %s", name, versionName(version))
		}
		return at
	}
	if bytes.Equal(lowered.Code, modern.Code) {
		return nil
	}
	name := laterSyntaxAt(code, issue.line)
	if name == "" {
		name = "syntax newer than ES2020"
	}
	return &syntaxIssue{
		message: fmt.Sprintf("%s is not available in %s", name, versionName(version)),
		line:    issue.line,
		column:  issue.column,
	}
}

func transform(code string, target api.Target) api.TransformResult {
	return api.Transform(code, api.TransformOptions{
		Loader:   api.LoaderJS,
		Target:   target,
		LogLevel: api.LogLevelSilent,
	})
}

// laterSyntaxAt names the post-ES2020 construct on line, if it is one the
// checker knows.
func laterSyntaxAt(code string, line int) string {
	lines := strings.Split(code, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	for _, s := range laterSyntax {
		if s.pattern.MatchString(lines[line-1]) {
			return s.name
		}
	}
	return ""
}
