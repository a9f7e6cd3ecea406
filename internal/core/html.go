package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/rsbuild/internal/bundler"
)

// HTMLOptions configures the HTML bundler plugin.
type HTMLOptions struct {
	Entries       []string `mapstructure:"entries"`
	Title         string   `mapstructure:"title"`
	MountID       string   `mapstructure:"mountId"`
	Template      string   `mapstructure:"template"`
	PublicPath    string   `mapstructure:"publicPath"`
	JSFilename    string   `mapstructure:"jsFilename"`
	CSSFilename   string   `mapstructure:"cssFilename"`
	HTMLDir       string   `mapstructure:"htmlDir"`
	InlineScripts bool     `mapstructure:"inlineScripts"`
}

// HTMLPlugin emits one HTML page per entry that loads the entry's assets.
type HTMLPlugin struct {
	Options HTMLOptions
}

func (*HTMLPlugin) PluginName() string { return "HTMLPlugin" }

// HTMLPluginConstructor expects one options map (see HTMLOptions).
var HTMLPluginConstructor = &bundler.Constructor{
	Kind: "HTMLPlugin",
	New: func(args ...any) (bundler.Plugin, error) {
		var opts HTMLOptions
		for _, arg := range args {
			if err := mapstructure.Decode(arg, &opts); err != nil {
				return nil, fmt.Errorf("HTMLPlugin options: %w", err)
			}
		}
		if opts.JSFilename == "" {
			opts.JSFilename = "static/js/[name].js"
		}
		if opts.CSSFilename == "" {
			opts.CSSFilename = "static/css/[name].css"
		}
		return &HTMLPlugin{Options: opts}, nil
	},
}

// Apply implements bundler.CompilerPlugin.
func (p *HTMLPlugin) Apply(c *bundler.Compiler) error {
	var template []byte
	if p.Options.Template != "" {
		data, err := os.ReadFile(p.Options.Template)
		if err != nil {
			return fmt.Errorf("read html template: %w", err)
		}
		template = data
	}
	c.Hooks.Compilation.Tap(p.PluginName(), func(comp *bundler.Compilation) error {
		comp.ProcessAssets(p.PluginName(), bundler.ProcessAssetsStageAdditional,
			func(_ context.Context, assets map[string]bundler.Source) error {
				for _, entry := range p.Options.Entries {
					page, err := p.render(entry, template, assets, comp)
					if err != nil {
						return fmt.Errorf("entry %s: %w", entry, err)
					}
					comp.EmitAsset(path.Join(p.Options.HTMLDir, entry+".html"), bundler.RawSource(page))
				}
				return nil
			})
		return nil
	})
	return nil
}

const defaultTemplate = `<!doctype html><html><head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"><title></title></head><body></body></html>`

func (p *HTMLPlugin) render(entry string, template []byte, assets map[string]bundler.Source, comp *bundler.Compilation) ([]byte, error) {
	src := template
	if src == nil {
		src = []byte(defaultTemplate)
	}
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	head := findElement(doc, atom.Head)
	body := findElement(doc, atom.Body)
	if head == nil || body == nil {
		return nil, fmt.Errorf("template has no head or body")
	}

	if p.Options.Title != "" {
		title := findElement(head, atom.Title)
		if title == nil {
			title = element(atom.Title)
			head.AppendChild(title)
		}
		for title.FirstChild != nil {
			title.RemoveChild(title.FirstChild)
		}
		title.AppendChild(&html.Node{Type: html.TextNode, Data: p.Options.Title})
	}
	if template == nil && p.Options.MountID != "" {
		body.AppendChild(element(atom.Div, html.Attribute{Key: "id", Val: p.Options.MountID}))
	}

	cssName := strings.ReplaceAll(p.Options.CSSFilename, "[name]", entry)
	if _, ok := assets[cssName]; ok {
		head.AppendChild(element(atom.Link,
			html.Attribute{Key: "rel", Val: "stylesheet"},
			html.Attribute{Key: "href", Val: p.Options.PublicPath + cssName}))
	}
	jsName := strings.ReplaceAll(p.Options.JSFilename, "[name]", entry)
	if js, ok := assets[jsName]; ok {
		if p.Options.InlineScripts {
			script := element(atom.Script)
			script.AppendChild(&html.Node{Type: html.TextNode, Data: string(js.Source())})
			body.AppendChild(script)
			comp.DeleteAsset(jsName)
		} else {
			head.AppendChild(element(atom.Script,
				html.Attribute{Key: "defer"},
				html.Attribute{Key: "src", Val: p.Options.PublicPath + jsName}))
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
