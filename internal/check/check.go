// Package check runs static diagnostics over a Flux document.
//
// Diagnostics are values, not errors: a check pass always completes and
// returns every problem it found. Locations are currently the placeholder
// 0:0 because the document model carries no source spans.
package check

import (
	"fmt"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/kernel"
)

// Diagnostic codes (F100-F199)
const (
	CodeUnknownGrid         = "F101" // rule bound to a missing grid
	CodeDuplicateGrid       = "F102" // grid name declared twice
	CodeUnsupportedTopology = "F103" // topology other than grid or linear
	CodeUnknownBodyGrid     = "F104" // grid body node names a missing grid
	CodeUnknownBank         = "F105" // asset reference names a missing bank
	CodeGridSizeMismatch    = "F106" // cells disagree with rows*cols
	CodeUnknownParam        = "F107" // content shows a missing parameter
	CodeUnknownAsset        = "F108" // asset pick names a missing entry
	CodeDuplicateNodeID     = "F109" // two body nodes share an id
)

// Diagnostic is one static-check finding.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

// Format renders a diagnostic as "<file>:<line>:<col>: <message>".
func Format(file string, d Diagnostic) string {
	return fmt.Sprintf("%s:%d:%d: %s", file, d.Line, d.Column, d.Message)
}

// Check returns all diagnostics for doc, in document order.
func Check(doc *ast.Document) []Diagnostic {
	c := &checker{doc: doc, grids: make(map[string]bool, len(doc.Grids))}
	c.checkGrids()
	c.checkRules()
	c.checkBody(doc.Body)
	for _, id := range ast.DuplicateIDs(doc.Body) {
		c.add(CodeDuplicateNodeID, "Node id '%s' is declared more than once", id)
	}
	return c.diags
}

type checker struct {
	doc   *ast.Document
	grids map[string]bool
	diags []Diagnostic
}

func (c *checker) add(code, format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{Code: code, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) checkGrids() {
	for _, g := range c.doc.Grids {
		if c.grids[g.Name] {
			c.add(CodeDuplicateGrid, "Grid '%s' is declared more than once", g.Name)
		}
		c.grids[g.Name] = true

		if _, ok := kernel.ParseTopology(g.Topology); !ok {
			c.add(CodeUnsupportedTopology, "Grid '%s' uses unsupported topology '%s'", g.Name, g.Topology)
		}
		if g.Size != nil {
			n := g.Size.Rows * g.Size.Cols
			if g.Size.Rows <= 0 || g.Size.Cols <= 0 || (len(g.Cells) != 0 && len(g.Cells) != n) {
				c.add(CodeGridSizeMismatch, "Grid '%s' declares %dx%d but has %d cells", g.Name, g.Size.Rows, g.Size.Cols, len(g.Cells))
			}
		}
	}
}

func (c *checker) checkRules() {
	for _, r := range c.doc.Rules {
		if !c.grids[r.Grid] {
			c.add(CodeUnknownGrid, "Rule '%s' references unknown grid '%s'", r.Name, r.Grid)
		}
	}
}

func (c *checker) checkBody(body ast.Body) {
	for _, n := range body {
		switch node := n.(type) {
		case ast.Section:
			c.checkBody(node.Children)
		case ast.Text:
			c.checkContent(node.Content)
		case ast.GridView:
			if !c.grids[node.Grid] {
				c.add(CodeUnknownBodyGrid, "Grid node '%s' references unknown grid '%s'", nodeLabel(node), node.Grid)
			}
		case ast.Image:
			c.checkAsset(node.Asset)
		case ast.Slot:
			c.checkContent(node.Content)
			if node.Asset != nil {
				c.checkAsset(*node.Asset)
			}
			c.checkBody(node.Children)
		}
	}
}

func nodeLabel(n ast.BodyNode) string {
	if id := n.DeclaredID(); id != "" {
		return id
	}
	return "(anonymous)"
}

func (c *checker) checkContent(content ast.Content) {
	if p, ok := content.(ast.ParamContent); ok {
		for _, declared := range c.doc.State.Params {
			if declared.Name == p.Name {
				return
			}
		}
		c.add(CodeUnknownParam, "Content references unknown parameter '%s'", p.Name)
	}
}

func (c *checker) checkAsset(ref ast.AssetRef) {
	if ref.Material != "" || ref.Bank == "" {
		return
	}
	bank, ok := c.doc.FindBank(ref.Bank)
	if !ok {
		c.add(CodeUnknownBank, "Asset reference names unknown bank '%s'", ref.Bank)
		return
	}
	switch ref.Pick {
	case "", "random", "cycle":
		return
	}
	for _, e := range bank.Entries {
		if e.Name == ref.Pick {
			return
		}
	}
	c.add(CodeUnknownAsset, "Bank '%s' has no asset named '%s'", ref.Bank, ref.Pick)
}
