package ast

import (
	"encoding/json"
	"fmt"
)

// Document is a parsed Flux document. It is read-only for the lifetime of
// a session.
type Document struct {
	Meta    Meta    `json:"meta"`
	State   State   `json:"state"`
	Grids   []Grid  `json:"grids"`
	Rules   []Rule  `json:"rules"`
	Runtime Runtime `json:"runtime"`
	Page    Page    `json:"page"`
	Assets  Assets  `json:"assets"`
	Body    Body    `json:"body"`
}

// Meta is document metadata.
type Meta struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// State declares the document parameters.
type State struct {
	Params []Param `json:"params"`
}

// Param is a named parameter with an initial value.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"` // number, string or boolean
	Init Value  `json:"init"`
}

// Grid declares a named cell grid.
type Grid struct {
	Name     string `json:"name"`
	Topology string `json:"topology"`
	Size     *Size  `json:"size,omitempty"`
	Cells    []Cell `json:"cells"`
}

// Size is an explicit grid shape.
type Size struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Cell is an initial cell declaration.
type Cell struct {
	ID       string   `json:"id"`
	Tags     []string `json:"tags,omitempty"`
	Content  *string  `json:"content,omitempty"`
	MediaID  *string  `json:"mediaId,omitempty"`
	Dynamic  float64  `json:"dynamic"`
	Density  float64  `json:"density"`
	Salience float64  `json:"salience"`
}

// RuleMode says when a rule fires.
type RuleMode int

const (
	ModeDocstep RuleMode = iota + 1
	ModeEvent
)

func (m RuleMode) String() string {
	if m == ModeEvent {
		return "event"
	}
	return "docstep"
}

// Rule is evaluated once per cell of its grid, either every docstep or on
// a matching event.
type Rule struct {
	Name string
	Grid string
	Mode RuleMode
	On   string
	When Expr // nil means always
	Then Actions
	Else Actions
}

// UnmarshalJSON decodes a rule and its expression tree.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name string          `json:"name"`
		Grid string          `json:"grid"`
		Mode string          `json:"mode"`
		On   string          `json:"on"`
		When json.RawMessage `json:"when"`
		Then Actions         `json:"then"`
		Else Actions         `json:"else"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("rule: %w", err)
	}

	rule := Rule{Name: raw.Name, Grid: raw.Grid, On: raw.On, Then: raw.Then, Else: raw.Else}
	switch raw.Mode {
	case "", "docstep":
		rule.Mode = ModeDocstep
	case "event":
		rule.Mode = ModeEvent
		if raw.On == "" {
			return fmt.Errorf("rule %q: event mode requires 'on'", raw.Name)
		}
	default:
		return fmt.Errorf("rule %q: unknown mode %q", raw.Name, raw.Mode)
	}

	when, err := DecodeExpr(raw.When)
	if err != nil {
		return fmt.Errorf("rule %q when: %w", raw.Name, err)
	}
	rule.When = when
	*r = rule
	return nil
}

// Runtime declares how docsteps advance in real time.
type Runtime struct {
	DocstepAdvance *Advance `json:"docstepAdvance,omitempty"`
	Tempo          float64  `json:"tempo,omitempty"` // beats per minute
}

// Advance is a docstep advance policy.
type Advance struct {
	Kind   string  `json:"kind"` // "timer"; anything else is manual
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"` // ms, s, m or beats
}

// Page is the print page configuration.
type Page struct {
	Size        string `json:"size,omitempty"`
	Orientation string `json:"orientation,omitempty"`
	Margin      string `json:"margin,omitempty"`
}

// Assets holds the document's asset banks.
type Assets struct {
	Banks []Bank `json:"banks"`
}

// Bank is a named collection of assets under a root directory.
type Bank struct {
	Name    string   `json:"name"`
	Root    string   `json:"root"`
	Tags    []string `json:"tags,omitempty"`
	Entries []Asset  `json:"entries"`
}

// Asset is one entry of a bank.
type Asset struct {
	Name string   `json:"name"`
	Path string   `json:"path"`
	Kind string   `json:"kind"`
	Tags []string `json:"tags,omitempty"`
}

// FindGrid returns the grid with the given name.
func (d *Document) FindGrid(name string) (*Grid, bool) {
	for i := range d.Grids {
		if d.Grids[i].Name == name {
			return &d.Grids[i], true
		}
	}
	return nil, false
}

// FindBank returns the asset bank with the given name.
func (d *Document) FindBank(name string) (*Bank, bool) {
	for i := range d.Assets.Banks {
		if d.Assets.Banks[i].Name == name {
			return &d.Assets.Banks[i], true
		}
	}
	return nil, false
}

// Decode parses a JSON document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
