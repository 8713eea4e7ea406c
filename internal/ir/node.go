package ir

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies a render node. The set is closed; every switch over Kind
// handles all six values.
type Kind int

const (
	KindSection Kind = iota + 1
	KindText
	KindGrid
	KindImage
	KindSlot
	KindInlineSlot
)

var kindNames = map[Kind]string{
	KindSection:    "section",
	KindText:       "text",
	KindGrid:       "grid",
	KindImage:      "image",
	KindSlot:       "slot",
	KindInlineSlot: "inline_slot",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsSlot reports whether nodes of this kind can be re-rendered independently.
func (k Kind) IsSlot() bool {
	return k == KindSlot || k == KindInlineSlot
}

// ParseKind maps a wire name to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

// FitPolicy governs overflow handling when slot content outgrows its
// reservation.
type FitPolicy int

const (
	FitClip FitPolicy = iota + 1
	FitEllipsis
	FitShrink
	FitScaleDown
)

// String returns the wire name of the policy.
func (p FitPolicy) String() string {
	switch p {
	case FitClip:
		return "clip"
	case FitEllipsis:
		return "ellipsis"
	case FitShrink:
		return "shrink"
	case FitScaleDown:
		return "scaleDown"
	}
	return fmt.Sprintf("FitPolicy(%d)", int(p))
}

// Dynamic reports whether the policy needs measurement at apply time.
func (p FitPolicy) Dynamic() bool {
	return p == FitShrink || p == FitScaleDown
}

// ParseFitPolicy maps a wire name to a FitPolicy. Empty means clip.
func ParseFitPolicy(s string) (FitPolicy, error) {
	switch s {
	case "", "clip":
		return FitClip, nil
	case "ellipsis":
		return FitEllipsis, nil
	case "shrink":
		return FitShrink, nil
	case "scaleDown", "scale-down":
		return FitScaleDown, nil
	}
	return 0, fmt.Errorf("unknown fit policy %q", s)
}

// Unit is the unit of a reservation length.
type Unit int

const (
	UnitCh Unit = iota + 1
	UnitEm
	UnitPx
)

func (u Unit) String() string {
	switch u {
	case UnitCh:
		return "ch"
	case UnitEm:
		return "em"
	case UnitPx:
		return "px"
	}
	return ""
}

// Length is a reservation dimension such as 12ch. The zero Length is unset.
type Length struct {
	Value float64
	Unit  Unit
}

// IsZero reports whether the length is unset.
func (l Length) IsZero() bool { return l.Unit == 0 }

// String renders the CSS form ("12ch").
func (l Length) String() string {
	if l.IsZero() {
		return ""
	}
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + l.Unit.String()
}

// ParseLength parses "12ch", "2em" or "300px". A bare number means ch.
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Length{}, nil
	}
	unit := UnitCh
	num := s
	for _, u := range []Unit{UnitCh, UnitEm, UnitPx} {
		if strings.HasSuffix(s, u.String()) {
			unit = u
			num = strings.TrimSuffix(s, u.String())
			break
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil || v < 0 {
		return Length{}, fmt.Errorf("invalid length %q", s)
	}
	return Length{Value: v, Unit: unit}, nil
}

// Reserve is the space contract of a slot.
type Reserve struct {
	Width  Length
	Height Length
}

// SlotSpec is attached to slot and inline_slot nodes.
type SlotSpec struct {
	Reserve Reserve
	Fit     FitPolicy
}

// RefreshKind says when a node's content may change.
type RefreshKind int

const (
	RefreshNever RefreshKind = iota + 1
	RefreshDocstep
	RefreshInterval
)

// RefreshPolicy pairs a RefreshKind with an interval for RefreshInterval.
type RefreshPolicy struct {
	Kind    RefreshKind
	Seconds float64
}

// String renders "never", "docstep" or "every(2s)".
func (r RefreshPolicy) String() string {
	switch r.Kind {
	case RefreshNever:
		return "never"
	case RefreshDocstep:
		return "docstep"
	case RefreshInterval:
		return "every(" + strconv.FormatFloat(r.Seconds, 'f', -1, 64) + "s)"
	}
	return ""
}

// ParseRefreshPolicy accepts "never", "docstep", or a duration such as
// "2s", "500ms" or "every(2s)". Empty means fallback.
func ParseRefreshPolicy(s string, fallback RefreshPolicy) (RefreshPolicy, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return fallback, nil
	case "never":
		return RefreshPolicy{Kind: RefreshNever}, nil
	case "docstep":
		return RefreshPolicy{Kind: RefreshDocstep}, nil
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "every("), ")")
	d, err := time.ParseDuration(inner)
	if err != nil || d <= 0 {
		return RefreshPolicy{}, fmt.Errorf("invalid refresh policy %q", s)
	}
	return RefreshPolicy{Kind: RefreshInterval, Seconds: d.Seconds()}, nil
}

// Node is one element of the render tree.
type Node struct {
	ID       string
	Kind     Kind
	Props    Object
	Children []*Node
	Refresh  RefreshPolicy
	Slot     *SlotSpec // set only for slot kinds
}

// ToValue converts the subtree rooted at n into its canonical value form.
func (n *Node) ToValue() Object {
	obj := Object{
		"id":      String(n.ID),
		"kind":    String(n.Kind.String()),
		"refresh": String(n.Refresh.String()),
	}

	props := n.Props
	if props == nil {
		props = Object{}
	}
	obj["props"] = props

	children := make(Array, len(n.Children))
	for i, c := range n.Children {
		children[i] = c.ToValue()
	}
	obj["children"] = children

	if n.Slot != nil {
		reserve := Object{}
		if !n.Slot.Reserve.Width.IsZero() {
			reserve["width"] = String(n.Slot.Reserve.Width.String())
		}
		if !n.Slot.Reserve.Height.IsZero() {
			reserve["height"] = String(n.Slot.Reserve.Height.String())
		}
		obj["slot"] = Object{
			"fit":     String(n.Slot.Fit.String()),
			"reserve": reserve,
		}
	}
	return obj
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Meta is document metadata carried into the IR.
type Meta struct {
	Title   string
	Version string
}

// Document is a RenderDocumentIR: the immutable output of one render call.
type Document struct {
	Meta    Meta
	Seed    int64
	Docstep int64
	Time    float64
	Page    Object
	Body    []*Node
}

// ToValue converts the document into its canonical value form.
func (d *Document) ToValue() Object {
	body := make(Array, len(d.Body))
	for i, n := range d.Body {
		body[i] = n.ToValue()
	}
	page := d.Page
	if page == nil {
		page = Object{}
	}
	return Object{
		"ir_version": String(IRVersion),
		"meta": Object{
			"title":   String(d.Meta.Title),
			"version": String(d.Meta.Version),
		},
		"seed":    Int(d.Seed),
		"docstep": Int(d.Docstep),
		"time":    Float(d.Time),
		"page":    page,
		"body":    body,
	}
}

// Canonical returns the canonical JSON bytes of the document. Two renders of
// the same (document, seed, docstep, time) produce identical bytes.
func (d *Document) Canonical() ([]byte, error) {
	return MarshalCanonical(d.ToValue())
}

// Walk visits every node in document order.
func (d *Document) Walk(fn func(*Node) bool) {
	for _, n := range d.Body {
		n.Walk(fn)
	}
}

// Find returns the node with the given id, or nil.
func (d *Document) Find(id string) *Node {
	var found *Node
	d.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}
