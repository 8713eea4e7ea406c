package markup

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cbassuarez/flux/internal/ir"
)

// Attribute names shared with the patch engine and the viewer script.
const (
	AttrID        = "data-flux-id"
	AttrKind      = "data-flux-kind"
	AttrSlotInner = "data-flux-slot-inner"
	AttrFit       = "data-flux-fit"
	AttrRefresh   = "data-flux-refresh"
	AttrCell      = "data-flux-cell"
	AttrWidth     = "data-flux-width"
	AttrHeight    = "data-flux-height"
)

// Node converts an IR node into an HTML element tree.
func Node(n *ir.Node) *html.Node {
	switch n.Kind {
	case ir.KindSection:
		el := element(atom.Section, ir.KindSection, n.ID)
		if title, ok := n.Props["title"].(ir.String); ok {
			h := newElement(atom.H2)
			h.AppendChild(text(string(title)))
			el.AppendChild(h)
		}
		appendChildren(el, n.Children)
		return el

	case ir.KindText:
		el := element(atom.Span, ir.KindText, n.ID)
		el.AppendChild(text(stringProp(n.Props, "content")))
		return el

	case ir.KindGrid:
		return grid(n)

	case ir.KindImage:
		el := element(atom.Figure, ir.KindImage, n.ID)
		el.AppendChild(asset(n.Props["asset"]))
		return el

	case ir.KindSlot, ir.KindInlineSlot:
		return slot(n)
	}
	return element(atom.Div, n.Kind, n.ID)
}

// SlotInner returns the inner markup of a slot: the HTML that replaces
// the children of its data-flux-slot-inner container on patch.
func SlotInner(n *ir.Node) (string, error) {
	if !n.Kind.IsSlot() {
		return "", fmt.Errorf("markup: node %q is a %s, not a slot", n.ID, n.Kind)
	}
	var buf bytes.Buffer
	for _, c := range slotContent(n) {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("markup: render slot %q: %w", n.ID, err)
		}
	}
	return buf.String(), nil
}

func slot(n *ir.Node) *html.Node {
	tag, innerTag := atom.Div, atom.Div
	if n.Kind == ir.KindInlineSlot {
		tag, innerTag = atom.Span, atom.Span
	}

	el := element(tag, n.Kind, n.ID)
	fit := ir.FitClip
	if n.Slot != nil {
		fit = n.Slot.Fit
	}
	setAttr(el, AttrFit, fit.String())
	setAttr(el, AttrRefresh, n.Refresh.String())
	if n.Slot != nil {
		if w := n.Slot.Reserve.Width; !w.IsZero() {
			setAttr(el, AttrWidth, w.String())
		}
		if h := n.Slot.Reserve.Height; !h.IsZero() {
			setAttr(el, AttrHeight, h.String())
		}
	}
	setAttr(el, "style", slotStyle(n))

	inner := newElement(innerTag)
	setAttr(inner, AttrSlotInner, "")
	for _, c := range slotContent(n) {
		inner.AppendChild(c)
	}
	el.AppendChild(inner)
	return el
}

func slotStyle(n *ir.Node) string {
	var parts []string
	if n.Kind == ir.KindInlineSlot {
		parts = append(parts, "display:inline-block", "vertical-align:bottom")
	} else {
		parts = append(parts, "display:block")
	}
	if n.Slot != nil {
		if w := n.Slot.Reserve.Width; !w.IsZero() {
			parts = append(parts, "width:"+w.String())
		}
		if h := n.Slot.Reserve.Height; !h.IsZero() {
			parts = append(parts, "height:"+h.String())
		}
	}
	parts = append(parts, "overflow:hidden")
	if n.Slot != nil && n.Slot.Fit == ir.FitEllipsis {
		parts = append(parts, "white-space:nowrap", "text-overflow:ellipsis")
	}
	return strings.Join(parts, ";")
}

// slotContent returns fresh nodes for the slot body, in the same order on
// every call so page and patch markup agree.
func slotContent(n *ir.Node) []*html.Node {
	var out []*html.Node
	if c, ok := n.Props["content"].(ir.String); ok {
		out = append(out, text(string(c)))
	}
	if a, ok := n.Props["asset"]; ok {
		out = append(out, asset(a))
	}
	for _, c := range n.Children {
		out = append(out, Node(c))
	}
	return out
}

func grid(n *ir.Node) *html.Node {
	el := element(atom.Div, ir.KindGrid, n.ID)
	setAttr(el, "class", "flux-grid")
	setAttr(el, "data-flux-grid", stringProp(n.Props, "grid"))
	if cols, ok := n.Props["cols"].(ir.Int); ok {
		setAttr(el, "style", "--flux-cols:"+strconv.FormatInt(int64(cols), 10))
	}

	cells, _ := n.Props["cells"].(ir.Array)
	for _, v := range cells {
		cell, ok := v.(ir.Object)
		if !ok {
			continue
		}
		c := newElement(atom.Div)
		setAttr(c, "class", "flux-cell")
		setAttr(c, AttrCell, stringProp(cell, "id"))
		setAttr(c, "data-row", intProp(cell, "row"))
		setAttr(c, "data-col", intProp(cell, "col"))
		if tags, ok := cell["tags"].(ir.Array); ok && len(tags) > 0 {
			names := make([]string, 0, len(tags))
			for _, t := range tags {
				if s, ok := t.(ir.String); ok {
					names = append(names, string(s))
				}
			}
			setAttr(c, "data-tags", strings.Join(names, " "))
		}
		setAttr(c, "style", fmt.Sprintf("--density:%s;--salience:%s;--dynamic:%s",
			floatProp(cell, "density"), floatProp(cell, "salience"), floatProp(cell, "dynamic")))

		if media, ok := cell["media"]; ok {
			c.AppendChild(asset(media))
		}
		if content, ok := cell["content"].(ir.String); ok {
			c.AppendChild(text(string(content)))
		}
		el.AppendChild(c)
	}
	return el
}

func asset(v ir.Value) *html.Node {
	obj, _ := v.(ir.Object)
	if reason, ok := obj["unresolved"].(ir.String); ok {
		el := newElement(atom.Span)
		setAttr(el, "class", "flux-unresolved")
		el.AppendChild(text(string(reason)))
		return el
	}
	if m, ok := obj["material"].(ir.String); ok {
		el := newElement(atom.Span)
		setAttr(el, "class", "flux-material")
		setAttr(el, "data-material", string(m))
		return el
	}
	img := newElement(atom.Img)
	setAttr(img, "src", stringProp(obj, "path"))
	setAttr(img, "alt", stringProp(obj, "name"))
	return img
}

func appendChildren(el *html.Node, children []*ir.Node) {
	for _, c := range children {
		el.AppendChild(Node(c))
	}
}

func element(a atom.Atom, kind ir.Kind, id string) *html.Node {
	el := newElement(a)
	setAttr(el, AttrID, id)
	setAttr(el, AttrKind, kind.String())
	return el
}

func newElement(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func setAttr(n *html.Node, key, val string) {
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func stringProp(obj ir.Object, key string) string {
	if s, ok := obj[key].(ir.String); ok {
		return string(s)
	}
	return ""
}

func intProp(obj ir.Object, key string) string {
	if i, ok := obj[key].(ir.Int); ok {
		return strconv.FormatInt(int64(i), 10)
	}
	return "0"
}

func floatProp(obj ir.Object, key string) string {
	switch f := obj[key].(type) {
	case ir.Float:
		return strconv.FormatFloat(float64(f), 'f', -1, 64)
	case ir.Int:
		return strconv.FormatInt(int64(f), 10)
	}
	return "0"
}
