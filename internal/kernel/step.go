package kernel

import (
	"log/slog"
	"math"

	"github.com/cbassuarez/flux/internal/ast"
)

// Step runs one docstep and returns the resulting snapshot.
//
// Every docstep-mode rule is evaluated once per cell of its grid. All
// rules read from the same frozen pre-step view of grids and params and
// write into the next state, so no rule observes another rule's write
// within the docstep. When two rules write the same field, the rule
// declared later wins. The docstep counter increments by exactly 1.
func (s *State) Step() Snapshot {
	s.runRules(ast.ModeDocstep, nil)
	s.docstep++
	s.logger.Debug("docstep advanced", "docstep", s.docstep)
	return s.Snapshot()
}

// runRules evaluates all rules of the given mode against a frozen view and
// writes into s. It returns the number of rules that were evaluated.
func (s *State) runRules(mode ast.RuleMode, ev *ast.Event) int {
	frozen := s.freeze()
	fired := 0

	for _, br := range s.rules {
		if br.rule.Mode != mode {
			continue
		}
		if mode == ast.ModeEvent && (ev == nil || br.rule.On != ev.Type) {
			continue
		}
		fired++

		ctx := evalContext{
			view:    &frozen,
			grid:    br.grid,
			rule:    br.index,
			seed:    s.seed,
			docstep: s.docstep,
			event:   ev,
		}
		for i := range frozen.grids[br.grid].Cells {
			ctx.cell = i
			ctx.draws = 0

			actions := br.rule.Then
			if br.rule.When != nil && !ctx.eval(br.rule.When).Truthy() {
				actions = br.rule.Else
			}
			for _, act := range actions {
				s.apply(&ctx, br, act)
			}
		}
	}
	return fired
}

func (s *State) apply(ctx *evalContext, br boundRule, act ast.Action) {
	target := &s.grids[br.grid].Cells[ctx.cell]

	switch a := act.(type) {
	case ast.Set:
		v := ctx.eval(a.Value)
		switch a.Target.Scope {
		case ast.TargetCell:
			setCellField(target, a.Target.Name, v)
		case ast.TargetParam:
			s.params[a.Target.Name] = finite(v)
		}
	case ast.AddTag:
		target.addTag(a.Tag)
	case ast.RemoveTag:
		target.removeTag(a.Tag)
	default:
		s.logger.Warn("unknown action ignored", slog.String("rule", br.rule.Name))
	}
}

// setCellField writes v to a writable cell field. It reports false for
// fields that cannot be written.
func setCellField(cell *CellState, field string, v ast.Value) bool {
	switch field {
	case "content":
		cell.Content = optionalString(v)
	case "mediaId":
		cell.MediaID = optionalString(v)
	case "dynamic":
		cell.Dynamic = finite(v).Float()
	case "density":
		cell.Density = finite(v).Float()
	case "salience":
		cell.Salience = finite(v).Float()
	default:
		return false
	}
	return true
}

func optionalString(v ast.Value) *string {
	if v.IsNull() {
		return nil
	}
	s := v.String()
	return &s
}

// finite maps NaN and infinities to 0 so state always serializes.
func finite(v ast.Value) ast.Value {
	if v.Kind == ast.NumberKind && (math.IsNaN(v.Num) || math.IsInf(v.Num, 0)) {
		return ast.Number(0)
	}
	return v
}
