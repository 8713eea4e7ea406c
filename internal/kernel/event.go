package kernel

import (
	"fmt"
	"log/slog"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/ir"
)

// EventOutcome reports what ApplyEvent did. Bad events are not errors: they
// produce Applied=false with a Reason, and the session carries on.
type EventOutcome struct {
	Applied    bool
	Reason     string
	RulesFired int
}

// ApplyEvent applies an out-of-band event without advancing the docstep.
//
// Built-in handling covers param.set, cell.set, cell.tag, input and sensor.
// Afterwards every event-mode rule whose 'on' matches the event type runs
// against a frozen view, exactly like a docstep. An event type with neither
// built-in handling nor a listening rule is ignored and logged.
func (s *State) ApplyEvent(ev ast.Event) EventOutcome {
	typ, known := ast.ParseEventType(ev.Type)
	listened := s.hasListener(ev.Type)
	if !known && !listened {
		return s.reject(ev, fmt.Sprintf("unknown event type %q", ev.Type))
	}

	if known {
		if reason := s.applyBuiltin(typ, ev); reason != "" {
			return s.reject(ev, reason)
		}
	}

	fired := 0
	if listened {
		fired = s.runRules(ast.ModeEvent, &ev)
	}
	s.logger.Debug("event applied",
		slog.String("type", ev.Type),
		slog.Int64("docstep", s.docstep),
		slog.Int("rules_fired", fired))
	return EventOutcome{Applied: true, RulesFired: fired}
}

func (s *State) reject(ev ast.Event, reason string) EventOutcome {
	s.logger.Warn("event ignored",
		slog.String("type", ev.Type),
		slog.String("source", ev.Source),
		slog.String("reason", reason))
	return EventOutcome{Applied: false, Reason: reason}
}

func (s *State) hasListener(typ string) bool {
	for _, br := range s.rules {
		if br.rule.Mode == ast.ModeEvent && br.rule.On == typ {
			return true
		}
	}
	return false
}

// applyBuiltin returns a non-empty reason when the event is malformed.
// A malformed event leaves the state untouched.
func (s *State) applyBuiltin(typ ast.EventType, ev ast.Event) string {
	switch typ {
	case ast.EventParamSet:
		name, ok := ev.Payload["name"].(ir.String)
		if !ok || name == "" {
			return "param.set requires payload.name"
		}
		if _, exists := s.params[string(name)]; !exists {
			return fmt.Sprintf("unknown parameter %q", name)
		}
		v, err := ast.FromIR(ev.Payload["value"])
		if err != nil {
			return fmt.Sprintf("param.set value: %v", err)
		}
		s.params[string(name)] = finite(v)

	case ast.EventCellSet:
		cell, reason := s.locate(ev.Location)
		if reason != "" {
			return reason
		}
		updates := make(map[string]ast.Value)
		for _, k := range ev.Payload.SortedKeys() {
			v, err := ast.FromIR(ev.Payload[k])
			if err != nil {
				return fmt.Sprintf("cell.set %s: %v", k, err)
			}
			probe := CellState{}
			if !setCellField(&probe, k, v) {
				return fmt.Sprintf("cell.set: field %q is not writable", k)
			}
			updates[k] = v
		}
		if len(updates) == 0 {
			return "cell.set requires at least one payload field"
		}
		for k, v := range updates {
			setCellField(cell, k, v)
		}

	case ast.EventCellTag:
		cell, reason := s.locate(ev.Location)
		if reason != "" {
			return reason
		}
		add, ok1 := stringList(ev.Payload["add"])
		remove, ok2 := stringList(ev.Payload["remove"])
		if !ok1 || !ok2 {
			return "cell.tag add/remove must be lists of strings"
		}
		if len(add) == 0 && len(remove) == 0 {
			return "cell.tag requires payload.add or payload.remove"
		}
		for _, t := range add {
			cell.addTag(t)
		}
		for _, t := range remove {
			cell.removeTag(t)
		}

	case ast.EventInput, ast.EventSensor:
		// Keys that name existing params are merged; others are ignored.
		for _, k := range ev.Payload.SortedKeys() {
			if _, exists := s.params[k]; !exists {
				continue
			}
			v, err := ast.FromIR(ev.Payload[k])
			if err != nil {
				continue
			}
			s.params[k] = finite(v)
		}
	}
	return ""
}

func (s *State) locate(loc *ast.Location) (*CellState, string) {
	if loc == nil {
		return nil, "event requires a location"
	}
	g, ok := s.grid(loc.Grid)
	if !ok {
		return nil, fmt.Sprintf("unknown grid %q", loc.Grid)
	}
	var i int
	switch {
	case loc.Index != nil:
		i = *loc.Index
		if i < 0 || i >= len(g.Cells) {
			return nil, fmt.Sprintf("cell index %d out of range for grid %q", i, loc.Grid)
		}
	case loc.Row != nil && loc.Col != nil:
		idx, ok := g.Index(*loc.Row, *loc.Col)
		if !ok {
			return nil, fmt.Sprintf("cell (%d,%d) out of range for grid %q", *loc.Row, *loc.Col, loc.Grid)
		}
		i = idx
	default:
		return nil, "location requires index or row and col"
	}
	return &g.Cells[i], ""
}

func stringList(v ir.Value) ([]string, bool) {
	switch arr := v.(type) {
	case nil, ir.Null:
		return nil, true
	case ir.Array:
		out := make([]string, 0, len(arr))
		for _, e := range arr {
			s, ok := e.(ir.String)
			if !ok {
				return nil, false
			}
			out = append(out, string(s))
		}
		return out, true
	}
	return nil, false
}
