package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// BodyNode is a declared element of the document body.
type BodyNode interface {
	bodyNode()
	// DeclaredID returns the author-supplied id, or "".
	DeclaredID() string
}

// Section groups child nodes under an optional title.
type Section struct {
	ID       string
	Title    string
	Children Body
}

// Text is static or dynamic prose.
type Text struct {
	ID      string
	Content Content
}

// GridView renders the cells of a named grid.
type GridView struct {
	ID   string
	Grid string
}

// Image renders a resolved asset.
type Image struct {
	ID    string
	Asset AssetRef
}

// Slot is an independently refreshable region with a space reservation.
type Slot struct {
	ID       string
	Inline   bool
	Reserve  Reserve
	Fit      string
	Refresh  string
	Content  Content
	Asset    *AssetRef
	Children Body
}

func (Section) bodyNode()  {}
func (Text) bodyNode()     {}
func (GridView) bodyNode() {}
func (Image) bodyNode()    {}
func (Slot) bodyNode()     {}

func (n Section) DeclaredID() string  { return n.ID }
func (n Text) DeclaredID() string     { return n.ID }
func (n GridView) DeclaredID() string { return n.ID }
func (n Image) DeclaredID() string    { return n.ID }
func (n Slot) DeclaredID() string     { return n.ID }

// WalkIDs calls fn for every node in body, depth first, with its
// effective id: the declared id, or the positional path id ("n0.1") when
// none is declared.
func WalkIDs(body Body, fn func(n BodyNode, id string)) {
	walkIDs(body, "n", fn)
}

func walkIDs(body Body, prefix string, fn func(BodyNode, string)) {
	for i, n := range body {
		pos := prefix + strconv.Itoa(i)
		id := n.DeclaredID()
		if id == "" {
			id = pos
		}
		fn(n, id)
		switch x := n.(type) {
		case Section:
			walkIDs(x.Children, pos+".", fn)
		case Slot:
			walkIDs(x.Children, pos+".", fn)
		}
	}
}

// DuplicateIDs returns the effective ids carried by more than one node,
// in order of their second occurrence.
func DuplicateIDs(body Body) []string {
	seen := make(map[string]int)
	var dups []string
	WalkIDs(body, func(_ BodyNode, id string) {
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	})
	return dups
}

// Reserve is a slot's declared space, e.g. {"width": "12ch"}.
type Reserve struct {
	Width  string `json:"width,omitempty"`
	Height string `json:"height,omitempty"`
}

// AssetRef picks an asset from a bank, or names a material directly.
type AssetRef struct {
	Bank     string   `json:"bank,omitempty"`
	Pick     string   `json:"pick,omitempty"` // random, cycle, or an entry name
	Tags     []string `json:"tags,omitempty"`
	Material string   `json:"material,omitempty"`
}

// Body is a decoded list of body nodes.
type Body []BodyNode

// UnmarshalJSON decodes each element by its kind discriminator.
func (b *Body) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = nil
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("body: %w", err)
	}
	out := make(Body, 0, len(raws))
	for i, raw := range raws {
		n, err := DecodeBodyNode(raw)
		if err != nil {
			return fmt.Errorf("body[%d]: %w", i, err)
		}
		out = append(out, n)
	}
	*b = out
	return nil
}

type rawBodyNode struct {
	Kind     string          `json:"kind"`
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Content  json.RawMessage `json:"content"`
	Grid     string          `json:"grid"`
	Asset    *AssetRef       `json:"asset"`
	Reserve  Reserve         `json:"reserve"`
	Fit      string          `json:"fit"`
	Refresh  string          `json:"refresh"`
	Children Body            `json:"children"`
}

// DecodeBodyNode decodes a single body node.
func DecodeBodyNode(data json.RawMessage) (BodyNode, error) {
	var raw rawBodyNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch raw.Kind {
	case "section":
		return Section{ID: raw.ID, Title: raw.Title, Children: raw.Children}, nil
	case "text":
		content, err := DecodeContent(raw.Content)
		if err != nil {
			return nil, fmt.Errorf("text %s: %w", raw.ID, err)
		}
		return Text{ID: raw.ID, Content: content}, nil
	case "grid":
		if raw.Grid == "" {
			return nil, fmt.Errorf("grid node requires a grid name")
		}
		return GridView{ID: raw.ID, Grid: raw.Grid}, nil
	case "image":
		if raw.Asset == nil {
			return nil, fmt.Errorf("image node requires an asset")
		}
		return Image{ID: raw.ID, Asset: *raw.Asset}, nil
	case "slot", "inline_slot":
		if raw.ID == "" {
			return nil, fmt.Errorf("%s requires an id", raw.Kind)
		}
		content, err := DecodeContent(raw.Content)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", raw.Kind, raw.ID, err)
		}
		return Slot{
			ID:       raw.ID,
			Inline:   raw.Kind == "inline_slot",
			Reserve:  raw.Reserve,
			Fit:      raw.Fit,
			Refresh:  raw.Refresh,
			Content:  content,
			Asset:    raw.Asset,
			Children: raw.Children,
		}, nil
	}
	return nil, fmt.Errorf("unknown body node kind %q", raw.Kind)
}
