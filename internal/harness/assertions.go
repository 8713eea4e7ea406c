package harness

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/markup"
	"github.com/cbassuarez/flux/internal/render"
)

// timeTolerance absorbs float accumulation across ticks.
const timeTolerance = 1e-9

// AssertionError is returned when an expectation fails. It carries the
// trace so a failure can be read without re-running the scenario.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> docstep %d changed %v\n", ev.Seq, ev.Action, ev.Arg, ev.Docstep, ev.Changed)
		}
	}
	return buf.String()
}

// EvaluateExpect checks every set field of expect against the run and
// returns one message per failure.
func EvaluateExpect(result *Result, expect Expect, r *render.Renderer) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if expect.Docstep != nil {
		add(assertDocstep(result, *expect.Docstep))
	}
	if expect.Time != nil {
		add(assertTime(result, *expect.Time))
	}
	if len(expect.Params) > 0 {
		add(assertParams(result, expect.Params, r))
	}
	if expect.SlotsChanged != nil {
		add(assertSlotsChanged(result, expect.SlotsChanged))
	}
	if len(expect.Slots) > 0 {
		add(assertSlots(result, expect.Slots))
	}
	if expect.EventsApplied != nil {
		add(assertEventsApplied(result, *expect.EventsApplied))
	}
	return errs
}

func assertDocstep(result *Result, want int64) error {
	if got := result.Final.Docstep; got != want {
		return &AssertionError{
			Type:     "docstep",
			Expected: fmt.Sprintf("docstep %d", want),
			Actual:   fmt.Sprintf("docstep %d", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertTime(result *Result, want float64) error {
	if got := result.Final.Time; math.Abs(got-want) > timeTolerance {
		return &AssertionError{
			Type:     "time",
			Expected: fmt.Sprintf("time %v", want),
			Actual:   fmt.Sprintf("time %v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertParams checks parameter values with subset semantics: only the
// listed parameters are compared.
func assertParams(result *Result, want map[string]any, r *render.Renderer) error {
	snap := r.Snapshot()
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		expected, err := toValue(want[name])
		if err != nil {
			return fmt.Errorf("params.%s: %w", name, err)
		}
		actual, ok := snap.Params[name]
		if !ok {
			return &AssertionError{
				Type:     "params",
				Expected: fmt.Sprintf("parameter %q", name),
				Actual:   fmt.Sprintf("not declared; have %v", snap.ParamNames()),
				Trace:    result.Trace,
			}
		}
		if !actual.Equal(expected) {
			return &AssertionError{
				Type:     "params",
				Expected: fmt.Sprintf("%s = %s", name, describe(expected)),
				Actual:   fmt.Sprintf("%s = %s", name, describe(actual)),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

func assertSlotsChanged(result *Result, want []string) error {
	expected := slices.Clone(want)
	sort.Strings(expected)
	actual := result.lastChanged()
	if !slices.Equal(expected, actual) {
		return &AssertionError{
			Type:     "slots_changed",
			Expected: fmt.Sprintf("%v", expected),
			Actual:   fmt.Sprintf("%v", actual),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertSlots(result *Result, want map[string]string) error {
	ids := make([]string, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := result.Final.Find(id)
		if n == nil || !n.Kind.IsSlot() {
			return &AssertionError{
				Type:     "slots",
				Expected: fmt.Sprintf("slot %q", id),
				Actual:   "no such slot",
				Trace:    result.Trace,
			}
		}
		inner, err := markup.SlotInner(n)
		if err != nil {
			return err
		}
		if inner != want[id] {
			return &AssertionError{
				Type:     "slots",
				Expected: fmt.Sprintf("%s = %q", id, want[id]),
				Actual:   fmt.Sprintf("%s = %q", id, inner),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

func assertEventsApplied(result *Result, want int) error {
	if got := result.eventsApplied(); got != want {
		return &AssertionError{
			Type:     "events_applied",
			Expected: fmt.Sprintf("%d applied events", want),
			Actual:   fmt.Sprintf("%d applied events", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// toValue converts a YAML scalar into a document value.
func toValue(v any) (ast.Value, error) {
	iv, err := ir.FromGo(v)
	if err != nil {
		return ast.Value{}, err
	}
	return ast.FromIR(iv)
}

func describe(v ast.Value) string {
	if v.Kind == ast.StringKind {
		return fmt.Sprintf("%q", v.Str)
	}
	return v.String()
}
