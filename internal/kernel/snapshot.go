package kernel

import (
	"slices"
	"sort"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/ir"
)

// Snapshot is an immutable projection of runtime state. It shares no
// memory with the kernel and is safe to hand to other goroutines.
type Snapshot struct {
	Docstep int64
	Seed    int64
	Params  map[string]ast.Value
	Grids   []GridSnapshot
}

// GridSnapshot is a grid with its flattened, ordered cell list.
type GridSnapshot struct {
	Name     string
	Topology string
	Rows     int
	Cols     int
	Cells    []CellSnapshot
}

// CellSnapshot is one cell with its position recomputed from the index.
type CellSnapshot struct {
	ID       string
	Index    int
	Row      int
	Col      int
	Tags     []string
	Content  *string
	MediaID  *string
	Dynamic  float64
	Density  float64
	Salience float64
}

// Snapshot projects the current state. O(total cells); no mutation.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Docstep: s.docstep,
		Seed:    s.seed,
		Params:  make(map[string]ast.Value, len(s.params)),
		Grids:   make([]GridSnapshot, len(s.grids)),
	}
	for k, v := range s.params {
		snap.Params[k] = v
	}
	for gi := range s.grids {
		g := &s.grids[gi]
		gs := GridSnapshot{
			Name:     g.Name,
			Topology: g.Topology.String(),
			Rows:     g.Rows,
			Cols:     g.Cols,
			Cells:    make([]CellSnapshot, len(g.Cells)),
		}
		for i := range g.Cells {
			c := g.Cells[i].clone()
			row, col := g.Position(i)
			gs.Cells[i] = CellSnapshot{
				ID:       c.ID,
				Index:    i,
				Row:      row,
				Col:      col,
				Tags:     c.Tags,
				Content:  c.Content,
				MediaID:  c.MediaID,
				Dynamic:  c.Dynamic,
				Density:  c.Density,
				Salience: c.Salience,
			}
		}
		snap.Grids[gi] = gs
	}
	return snap
}

// Grid returns the named grid snapshot.
func (s Snapshot) Grid(name string) (*GridSnapshot, bool) {
	for i := range s.Grids {
		if s.Grids[i].Name == name {
			return &s.Grids[i], true
		}
	}
	return nil, false
}

// Param returns a parameter value, null when absent.
func (s Snapshot) Param(name string) ast.Value {
	return s.Params[name]
}

// ParamNames returns parameter names in sorted order.
func (s Snapshot) ParamNames() []string {
	names := make([]string, 0, len(s.Params))
	for k := range s.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ToValue converts the snapshot into its canonical value form.
func (s Snapshot) ToValue() ir.Object {
	params := make(ir.Object, len(s.Params))
	for k, v := range s.Params {
		params[k] = v.ToIR()
	}
	grids := make(ir.Array, len(s.Grids))
	for i, g := range s.Grids {
		grids[i] = g.ToValue()
	}
	return ir.Object{
		"docstep": ir.Int(s.Docstep),
		"seed":    ir.Int(s.Seed),
		"params":  params,
		"grids":   grids,
	}
}

// ToValue converts the grid snapshot into its canonical value form.
func (g GridSnapshot) ToValue() ir.Object {
	cells := make(ir.Array, len(g.Cells))
	for i, c := range g.Cells {
		cells[i] = c.ToValue()
	}
	return ir.Object{
		"name":     ir.String(g.Name),
		"topology": ir.String(g.Topology),
		"rows":     ir.Int(g.Rows),
		"cols":     ir.Int(g.Cols),
		"cells":    cells,
	}
}

// ToValue converts the cell snapshot into its canonical value form.
func (c CellSnapshot) ToValue() ir.Object {
	tags := ir.Strings(c.Tags)
	obj := ir.Object{
		"id":       ir.String(c.ID),
		"index":    ir.Int(c.Index),
		"row":      ir.Int(c.Row),
		"col":      ir.Int(c.Col),
		"tags":     tags,
		"dynamic":  ir.Float(c.Dynamic),
		"density":  ir.Float(c.Density),
		"salience": ir.Float(c.Salience),
	}
	if c.Content != nil {
		obj["content"] = ir.String(*c.Content)
	}
	if c.MediaID != nil {
		obj["mediaId"] = ir.String(*c.MediaID)
	}
	return obj
}

// Hash returns the content hash of the snapshot under the snapshot domain.
func (s Snapshot) Hash() (string, error) {
	return ir.HashValue(ir.DomainSnapshot, s.ToValue())
}

// HasTag reports whether the cell carries tag.
func (c CellSnapshot) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}
