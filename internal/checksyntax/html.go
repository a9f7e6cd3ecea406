package checksyntax

import (
	"strings"

	"golang.org/x/net/html"
)

// scriptTypes are the <script type> values holding classic scripts. Module
// scripts may use import and export, which the script parser rejects, so
// they are not extracted.
var scriptTypes = map[string]bool{
	"":                       true,
	"text/javascript":        true,
	"application/javascript": true,
	"application/ecmascript": true,
	"text/ecmascript":        true,
}

// HTMLScripts returns the contents of the inline classic scripts of an
// HTML document in document order. Scripts with a src attribute are
// skipped.
func HTMLScripts(content string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	var scripts []string
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			if _, hasSrc := getAttr(n, "src"); !hasSrc {
				typ, _ := getAttr(n, "type")
				if scriptTypes[strings.ToLower(strings.TrimSpace(typ))] {
					if code := textContent(n); strings.TrimSpace(code) != "" {
						scripts = append(scripts, code)
					}
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(doc)
	return scripts, nil
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
