package kernel

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/cbassuarez/flux/internal/ast"
)

// Topology is the adjacency model of a grid.
type Topology int

const (
	TopologyGrid Topology = iota + 1
	TopologyLinear
)

func (t Topology) String() string {
	switch t {
	case TopologyGrid:
		return "grid"
	case TopologyLinear:
		return "linear"
	}
	return fmt.Sprintf("Topology(%d)", int(t))
}

// ParseTopology maps a document topology tag. An empty tag means grid.
func ParseTopology(s string) (Topology, bool) {
	switch s {
	case "", "grid":
		return TopologyGrid, true
	case "linear":
		return TopologyLinear, true
	}
	return 0, false
}

// CellState is one mutable cell. Cells live in a flat row-major array and
// never reference each other; neighbours are found by index arithmetic.
type CellState struct {
	ID       string
	Tags     []string
	Content  *string
	MediaID  *string
	Dynamic  float64
	Density  float64
	Salience float64
}

// HasTag reports whether the cell carries tag.
func (c *CellState) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}

func (c *CellState) addTag(tag string) {
	if !c.HasTag(tag) {
		c.Tags = append(c.Tags, tag)
	}
}

func (c *CellState) removeTag(tag string) {
	c.Tags = slices.DeleteFunc(c.Tags, func(t string) bool { return t == tag })
}

func (c CellState) clone() CellState {
	out := c
	out.Tags = slices.Clone(c.Tags)
	if c.Content != nil {
		s := *c.Content
		out.Content = &s
	}
	if c.MediaID != nil {
		s := *c.MediaID
		out.MediaID = &s
	}
	return out
}

// GridState is the runtime state of one grid.
type GridState struct {
	Name     string
	Topology Topology
	Rows     int
	Cols     int
	Cells    []CellState
}

// Index returns the linear index of (row, col), or false when out of range.
func (g *GridState) Index(row, col int) (int, bool) {
	if row < 0 || col < 0 || row >= g.Rows || col >= g.Cols {
		return 0, false
	}
	i := row*g.Cols + col
	if i >= len(g.Cells) {
		return 0, false
	}
	return i, true
}

// Position returns the (row, col) of a linear index.
func (g *GridState) Position(i int) (row, col int) {
	if g.Cols <= 0 {
		return 0, i
	}
	return i / g.Cols, i % g.Cols
}

func (g GridState) clone() GridState {
	out := g
	out.Cells = make([]CellState, len(g.Cells))
	for i, c := range g.Cells {
		out.Cells[i] = c.clone()
	}
	return out
}

type boundRule struct {
	rule  ast.Rule
	index int // declaration index, feeds random()
	grid  int
}

// State is the kernel-owned mutable runtime state of one document.
// It is not safe for concurrent use; Runtime serializes access.
type State struct {
	doc     *ast.Document
	seed    int64
	docstep int64
	grids   []GridState
	byName  map[string]int
	params  map[string]ast.Value
	rules   []boundRule
	logger  *slog.Logger
}

// InitRuntimeState allocates grids and parameters from the document.
//
// Errors are *InitError: duplicate grid names, unsupported topologies,
// declared sizes that disagree with the cell list, and rules bound to grids
// that do not exist.
func InitRuntimeState(doc *ast.Document, seed int64) (*State, error) {
	return initState(doc, seed, slog.Default())
}

func initState(doc *ast.Document, seed int64, logger *slog.Logger) (*State, error) {
	s := &State{
		doc:    doc,
		seed:   seed,
		byName: make(map[string]int, len(doc.Grids)),
		params: make(map[string]ast.Value, len(doc.State.Params)),
		logger: logger,
	}

	for _, g := range doc.Grids {
		if _, dup := s.byName[g.Name]; dup {
			return nil, &InitError{Code: ErrCodeDuplicateGrid, Message: fmt.Sprintf("grid %q declared more than once", g.Name), Grid: g.Name}
		}
		gs, err := buildGrid(g)
		if err != nil {
			return nil, err
		}
		s.byName[g.Name] = len(s.grids)
		s.grids = append(s.grids, gs)
	}

	for _, p := range doc.State.Params {
		s.params[p.Name] = p.Init
	}

	for i, r := range doc.Rules {
		gi, ok := s.byName[r.Grid]
		if !ok {
			return nil, &InitError{
				Code:    ErrCodeUnknownGrid,
				Message: fmt.Sprintf("rule %q references unknown grid %q", r.Name, r.Grid),
				Grid:    r.Grid,
			}
		}
		s.rules = append(s.rules, boundRule{rule: r, index: i, grid: gi})
	}

	return s, nil
}

func buildGrid(g ast.Grid) (GridState, error) {
	topo, ok := ParseTopology(g.Topology)
	if !ok {
		return GridState{}, &InitError{Code: ErrCodeUnsupportedTopology, Message: fmt.Sprintf("unsupported topology %q", g.Topology), Grid: g.Name}
	}

	gs := GridState{Name: g.Name, Topology: topo}
	switch {
	case g.Size != nil:
		if g.Size.Rows <= 0 || g.Size.Cols <= 0 {
			return GridState{}, &InitError{Code: ErrCodeGridSizeMismatch, Message: fmt.Sprintf("size %dx%d must be positive", g.Size.Rows, g.Size.Cols), Grid: g.Name}
		}
		gs.Rows, gs.Cols = g.Size.Rows, g.Size.Cols
		n := gs.Rows * gs.Cols
		if len(g.Cells) != 0 && len(g.Cells) != n {
			return GridState{}, &InitError{
				Code:    ErrCodeGridSizeMismatch,
				Message: fmt.Sprintf("size %dx%d requires %d cells, got %d", gs.Rows, gs.Cols, n, len(g.Cells)),
				Grid:    g.Name,
			}
		}
		if len(g.Cells) == 0 {
			gs.Cells = make([]CellState, n)
			for i := range gs.Cells {
				gs.Cells[i].ID = fmt.Sprintf("%s.%d", g.Name, i)
			}
			return gs, nil
		}
	default:
		gs.Rows, gs.Cols = 1, len(g.Cells)
	}

	gs.Cells = make([]CellState, len(g.Cells))
	for i, c := range g.Cells {
		cell := CellState{
			ID:       c.ID,
			Tags:     slices.Clone(c.Tags),
			Dynamic:  c.Dynamic,
			Density:  c.Density,
			Salience: c.Salience,
		}
		if cell.ID == "" {
			cell.ID = fmt.Sprintf("%s.%d", g.Name, i)
		}
		if c.Content != nil {
			v := *c.Content
			cell.Content = &v
		}
		if c.MediaID != nil {
			v := *c.MediaID
			cell.MediaID = &v
		}
		gs.Cells[i] = cell
	}
	return gs, nil
}

// Reset discards all state and re-initializes from the document.
// The docstep returns to 0.
func (s *State) Reset() error {
	fresh, err := initState(s.doc, s.seed, s.logger)
	if err != nil {
		return err
	}
	*s = *fresh
	return nil
}

// Docstep returns the number of completed docsteps.
func (s *State) Docstep() int64 { return s.docstep }

// Seed returns the seed the state was built with.
func (s *State) Seed() int64 { return s.seed }

// Document returns the document the state was built from.
func (s *State) Document() *ast.Document { return s.doc }

// Param returns the current value of a parameter.
func (s *State) Param(name string) (ast.Value, bool) {
	v, ok := s.params[name]
	return v, ok
}

// grid returns the named grid for tests and events.
func (s *State) grid(name string) (*GridState, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return &s.grids[i], true
}

// view is a frozen copy of grids and params that rule evaluation reads from.
type view struct {
	grids  []GridState
	params map[string]ast.Value
}

func (s *State) freeze() view {
	v := view{
		grids:  make([]GridState, len(s.grids)),
		params: make(map[string]ast.Value, len(s.params)),
	}
	for i, g := range s.grids {
		v.grids[i] = g.clone()
	}
	for k, p := range s.params {
		v.params[k] = p
	}
	return v
}
