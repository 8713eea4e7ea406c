package kernel

import (
	"math"

	"github.com/cbassuarez/flux/internal/ast"
)

// evalContext binds one rule evaluation to one cell of the frozen view.
type evalContext struct {
	view    *view
	grid    int
	cell    int
	rule    int
	seed    int64
	docstep int64
	event   *ast.Event
	draws   int
	scratch []int
}

func (c *evalContext) current() *CellState {
	return &c.view.grids[c.grid].Cells[c.cell]
}

func (c *evalContext) eval(e ast.Expr) ast.Value {
	switch x := e.(type) {
	case ast.Lit:
		return x.Value
	case ast.Ref:
		return c.ref(x)
	case ast.Binary:
		return c.binary(x)
	case ast.Not:
		return ast.Boolean(!c.eval(x.Arg).Truthy())
	case ast.HasTag:
		return ast.Boolean(c.current().HasTag(x.Tag))
	case ast.Neighbors:
		return c.neighbors(x)
	case ast.Random:
		v := ruleRandom(c.seed, c.docstep, c.rule, c.cell, c.draws)
		c.draws++
		return ast.Number(v)
	}
	return ast.Null()
}

func (c *evalContext) ref(r ast.Ref) ast.Value {
	switch r.Scope {
	case ast.RefCell:
		g := &c.view.grids[c.grid]
		return cellField(g, c.cell, r.Field)
	case ast.RefParam:
		return c.view.params[r.Field]
	case ast.RefDocstep:
		return ast.Number(float64(c.docstep))
	case ast.RefEventType:
		if c.event == nil {
			return ast.Null()
		}
		return ast.Str(c.event.Type)
	case ast.RefEventPayload:
		if c.event == nil {
			return ast.Null()
		}
		v, err := ast.FromIR(c.event.Payload[r.Field])
		if err != nil {
			return ast.Null()
		}
		return v
	}
	return ast.Null()
}

func cellField(g *GridState, i int, field string) ast.Value {
	cell := &g.Cells[i]
	switch field {
	case "content":
		if cell.Content == nil {
			return ast.Null()
		}
		return ast.Str(*cell.Content)
	case "mediaId":
		if cell.MediaID == nil {
			return ast.Null()
		}
		return ast.Str(*cell.MediaID)
	case "dynamic":
		return ast.Number(cell.Dynamic)
	case "density":
		return ast.Number(cell.Density)
	case "salience":
		return ast.Number(cell.Salience)
	case "index":
		return ast.Number(float64(i))
	case "row":
		row, _ := g.Position(i)
		return ast.Number(float64(row))
	case "col":
		_, col := g.Position(i)
		return ast.Number(float64(col))
	case "id":
		return ast.Str(cell.ID)
	}
	return ast.Null()
}

func numericField(cell *CellState, field string) float64 {
	switch field {
	case "dynamic":
		return cell.Dynamic
	case "density":
		return cell.Density
	case "salience":
		return cell.Salience
	}
	return 0
}

func (c *evalContext) binary(b ast.Binary) ast.Value {
	// and/or short-circuit so random() draws stay reproducible
	switch b.Op {
	case ast.OpAnd:
		if !c.eval(b.Left).Truthy() {
			return ast.Boolean(false)
		}
		return ast.Boolean(c.eval(b.Right).Truthy())
	case ast.OpOr:
		if c.eval(b.Left).Truthy() {
			return ast.Boolean(true)
		}
		return ast.Boolean(c.eval(b.Right).Truthy())
	}

	l, r := c.eval(b.Left), c.eval(b.Right)
	switch b.Op {
	case ast.OpAdd:
		if l.Kind == ast.StringKind || r.Kind == ast.StringKind {
			return ast.Str(l.String() + r.String())
		}
		return ast.Number(l.Float() + r.Float())
	case ast.OpSub:
		return ast.Number(l.Float() - r.Float())
	case ast.OpMul:
		return ast.Number(l.Float() * r.Float())
	case ast.OpDiv:
		if r.Float() == 0 {
			return ast.Number(0)
		}
		return ast.Number(l.Float() / r.Float())
	case ast.OpMod:
		if r.Float() == 0 {
			return ast.Number(0)
		}
		return ast.Number(math.Mod(l.Float(), r.Float()))
	case ast.OpEq:
		return ast.Boolean(l.Equal(r))
	case ast.OpNe:
		return ast.Boolean(!l.Equal(r))
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return ast.Boolean(compare(b.Op, l, r))
	}
	return ast.Null()
}

func compare(op ast.Op, l, r ast.Value) bool {
	var cmp int
	if l.Kind == ast.StringKind && r.Kind == ast.StringKind {
		switch {
		case l.Str < r.Str:
			cmp = -1
		case l.Str > r.Str:
			cmp = 1
		}
	} else {
		lf, rf := l.Float(), r.Float()
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	}
	switch op {
	case ast.OpLt:
		return cmp < 0
	case ast.OpLe:
		return cmp <= 0
	case ast.OpGt:
		return cmp > 0
	case ast.OpGe:
		return cmp >= 0
	}
	return false
}

func (c *evalContext) neighbors(n ast.Neighbors) ast.Value {
	g := &c.view.grids[c.grid]
	c.scratch = neighbors(g, c.cell, n.Scope, c.scratch[:0])

	count := 0
	sum := 0.0
	for _, j := range c.scratch {
		cell := &g.Cells[j]
		if n.Tag != "" && !cell.HasTag(n.Tag) {
			continue
		}
		count++
		if n.Field != "" {
			sum += numericField(cell, n.Field)
		}
	}

	switch n.Agg {
	case ast.AggSum:
		return ast.Number(sum)
	case ast.AggMean:
		if count == 0 {
			return ast.Number(0)
		}
		return ast.Number(sum / float64(count))
	}
	return ast.Number(float64(count))
}
