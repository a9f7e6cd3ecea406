package checksyntax

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Location points into a checked file.
type Location struct {
	Path   string `json:"path" yaml:"path"`
	Line   int    `json:"line" yaml:"line"`
	Column int    `json:"column" yaml:"column"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.Path, l.Line, l.Column)
}

// ECMASyntaxError describes code that does not parse for the target
// ECMAScript version. Line and column are relative to the code unit, which
// for HTML assets is the inline script.
type ECMASyntaxError struct {
	Message string   `json:"message" yaml:"message"`
	Source  Location `json:"source" yaml:"source"`
	// Code is a snippet around the failing position.
	Code string `json:"code" yaml:"code"`
}

func (e *ECMASyntaxError) Error() string {
	return e.Source.String() + ": " + e.Message
}

const (
	snippetContext = 2
	snippetWidth   = 80
)

// snippet renders the lines around line with a caret under column.
func snippet(code string, line, column int) string {
	lines := strings.Split(code, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	start := max(1, line-snippetContext)
	end := min(len(lines), line+snippetContext)
	width := len(strconv.Itoa(end))

	var b strings.Builder
	for n := start; n <= end; n++ {
		text, offset := clip(strings.TrimRight(lines[n-1], "\r"), column)
		marker := "  "
		if n == line {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%*d | %s\n", marker, width, n, text)
		if n == line {
			fmt.Fprintf(&b, "  %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", max(0, column-1-offset)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// clip shortens long (minified) lines to a window around column and
// returns the rune offset of the window.
func clip(s string, column int) (string, int) {
	r := []rune(s)
	if len(r) <= snippetWidth {
		return s, 0
	}
	start := max(0, min(column-1-snippetWidth/2, len(r)-snippetWidth))
	return string(r[start : start+snippetWidth]), start
}

// sortErrors orders errors by path, line and column.
func sortErrors(errs []*ECMASyntaxError) {
	sort.SliceStable(errs, func(i, j int) bool {
		a, b := errs[i].Source, errs[j].Source
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

// WriteReport prints errors grouped with their source, reason and code.
func WriteReport(w io.Writer, errs []*ECMASyntaxError, version int) error {
	if len(errs) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[Syntax Checker] Found %d syntax error(s) for target %s:\n", len(errs), versionName(version))
	for i, e := range errs {
		fmt.Fprintf(&b, "\n  ERROR #%d\n", i+1)
		fmt.Fprintf(&b, "  source: %s\n", e.Source)
		fmt.Fprintf(&b, "  reason: %s\n", e.Message)
		if e.Code != "" {
			b.WriteString("  code:\n")
			for _, l := range strings.Split(e.Code, "\n") {
				b.WriteString("    " + l + "\n")
			}
		}
	}
	b.WriteString("\nLower the syntax in the listed files, raise checkSyntax.ecmaVersion or exclude them with checkSyntax.exclude.\n")
	_, err := io.WriteString(w, b.String())
	return err
}
