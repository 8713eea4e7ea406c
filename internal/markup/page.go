package markup

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cbassuarez/flux/internal/ir"
)

const baseStyle = `body{font-family:serif;line-height:1.4}
.flux-grid{display:grid;grid-template-columns:repeat(var(--flux-cols,1),auto);gap:2px}
.flux-cell{padding:2px;opacity:calc(0.4 + var(--salience,0) * 0.6)}
.flux-cell[data-tags~="lit"],.flux-cell[data-tags~="alive"]{font-weight:bold}
.flux-unresolved{color:#a00;font-family:monospace}
figure{margin:0}
img{max-width:100%}`

// PageOption configures Page.
type PageOption func(*pageConfig)

type pageConfig struct {
	script string
	attrs  []html.Attribute
}

// WithScript appends an inline script to the page body.
func WithScript(js string) PageOption {
	return func(c *pageConfig) { c.script = js }
}

// WithRootAttr sets an attribute on the root <main> element. The viewer
// uses it to tell its script which session the page belongs to.
func WithRootAttr(key, val string) PageOption {
	return func(c *pageConfig) { c.attrs = append(c.attrs, html.Attribute{Key: key, Val: val}) }
}

// Page renders doc as a complete HTML document.
func Page(doc *ir.Document, opts ...PageOption) ([]byte, error) {
	var cfg pageConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	htmlEl := newElement(atom.Html)
	root.AppendChild(htmlEl)

	head := newElement(atom.Head)
	meta := newElement(atom.Meta)
	setAttr(meta, "charset", "utf-8")
	head.AppendChild(meta)
	title := newElement(atom.Title)
	title.AppendChild(text(doc.Meta.Title))
	head.AppendChild(title)
	style := newElement(atom.Style)
	style.AppendChild(text(pageRule(doc.Page) + "\n" + baseStyle))
	head.AppendChild(style)
	htmlEl.AppendChild(head)

	body := newElement(atom.Body)
	mainEl := newElement(atom.Main)
	setAttr(mainEl, "data-flux-root", "")
	setAttr(mainEl, "data-flux-docstep", fmt.Sprint(doc.Docstep))
	mainEl.Attr = append(mainEl.Attr, cfg.attrs...)
	appendChildren(mainEl, doc.Body)
	body.AppendChild(mainEl)

	if cfg.script != "" {
		script := newElement(atom.Script)
		script.AppendChild(text(cfg.script))
		body.AppendChild(script)
	}
	htmlEl.AppendChild(body)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("markup: render page: %w", err)
	}
	return buf.Bytes(), nil
}

// pageRule turns page props into an @page rule.
func pageRule(page ir.Object) string {
	size := strings.TrimSpace(stringProp(page, "size") + " " + stringProp(page, "orientation"))
	rule := "@page{size:" + size
	if m := stringProp(page, "margin"); m != "" {
		rule += ";margin:" + m
	}
	return rule + "}"
}
