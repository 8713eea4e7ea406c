package kernel

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/testutil"
)

func intPtr(i int) *int { return &i }

func newShowcase(t *testing.T) (*State, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := initState(testutil.Showcase(t), 1, logger)
	require.NoError(t, err)
	return s, &logs
}

func TestApplyEventParamSet(t *testing.T) {
	s, _ := newShowcase(t)

	out := s.ApplyEvent(ast.Event{Type: "param.set", Payload: ir.Object{"name": ir.String("mood"), "value": ir.String("wild")}})
	assert.True(t, out.Applied)
	assert.Equal(t, ast.Str("wild"), s.Snapshot().Param("mood"))
	assert.Equal(t, int64(0), s.Docstep(), "events never advance the docstep")

	out = s.ApplyEvent(ast.Event{Type: "param.set", Payload: ir.Object{"name": ir.String("nope"), "value": ir.Int(1)}})
	assert.False(t, out.Applied)
	assert.Contains(t, out.Reason, "unknown parameter")
}

func TestApplyEventCellSet(t *testing.T) {
	s, _ := newShowcase(t)

	out := s.ApplyEvent(ast.Event{
		Type:     "cell.set",
		Location: &ast.Location{Grid: "strip", Row: intPtr(0), Col: intPtr(2)},
		Payload:  ir.Object{"content": ir.String("delta"), "density": ir.Float(0.5)},
	})
	require.True(t, out.Applied, out.Reason)

	g, _ := s.Snapshot().Grid("strip")
	assert.Equal(t, "delta", *g.Cells[2].Content)
	assert.Equal(t, 0.5, g.Cells[2].Density)
}

func TestApplyEventCellSetRejectsWholeEvent(t *testing.T) {
	s, _ := newShowcase(t)

	out := s.ApplyEvent(ast.Event{
		Type:     "cell.set",
		Location: &ast.Location{Grid: "strip", Index: intPtr(0)},
		Payload:  ir.Object{"density": ir.Float(9), "row": ir.Int(3)},
	})
	assert.False(t, out.Applied)
	assert.Contains(t, out.Reason, "not writable")

	g, _ := s.Snapshot().Grid("strip")
	assert.Equal(t, 0.0, g.Cells[0].Density, "malformed event leaves state untouched")
}

func TestApplyEventCellTag(t *testing.T) {
	s, _ := newShowcase(t)

	out := s.ApplyEvent(ast.Event{
		Type:     "cell.tag",
		Location: &ast.Location{Grid: "strip", Index: intPtr(0)},
		Payload:  ir.Object{"add": ir.Strings([]string{"hot"}), "remove": ir.Strings([]string{"lit"})},
	})
	require.True(t, out.Applied, out.Reason)

	g, _ := s.Snapshot().Grid("strip")
	assert.Equal(t, []string{"hot"}, g.Cells[0].Tags)
}

func TestApplyEventInputMergesExistingParams(t *testing.T) {
	s, _ := newShowcase(t)

	out := s.ApplyEvent(ast.Event{Type: "sensor", Source: "knob", Payload: ir.Object{"level": ir.Int(9), "extra": ir.Int(1)}})
	require.True(t, out.Applied)

	snap := s.Snapshot()
	assert.Equal(t, ast.Number(9), snap.Param("level"))
	_, exists := snap.Params["extra"]
	assert.False(t, exists)
}

func TestApplyEventRunsListeningRules(t *testing.T) {
	s, _ := newShowcase(t)

	out := s.ApplyEvent(ast.Event{Type: "nudge", Payload: ir.Object{"level": ir.Int(11)}})
	require.True(t, out.Applied)
	assert.Equal(t, 1, out.RulesFired)
	assert.Equal(t, ast.Number(11), s.Snapshot().Param("level"))
	assert.Equal(t, int64(0), s.Docstep())
}

func TestApplyEventMalformedNeverPanics(t *testing.T) {
	s, logs := newShowcase(t)
	before, err := s.Snapshot().Hash()
	require.NoError(t, err)

	events := []ast.Event{
		{Type: "explode"},
		{Type: ""},
		{Type: "param.set"},
		{Type: "cell.set", Payload: ir.Object{"density": ir.Int(1)}},
		{Type: "cell.set", Location: &ast.Location{Grid: "missing", Index: intPtr(0)}, Payload: ir.Object{"density": ir.Int(1)}},
		{Type: "cell.set", Location: &ast.Location{Grid: "strip", Index: intPtr(99)}, Payload: ir.Object{"density": ir.Int(1)}},
		{Type: "cell.set", Location: &ast.Location{Grid: "strip"}, Payload: ir.Object{"density": ir.Int(1)}},
		{Type: "cell.tag", Location: &ast.Location{Grid: "strip", Index: intPtr(0)}, Payload: ir.Object{"add": ir.String("x")}},
		{Type: "cell.tag", Location: &ast.Location{Grid: "strip", Index: intPtr(0)}},
	}
	for _, ev := range events {
		out := s.ApplyEvent(ev)
		assert.False(t, out.Applied, "event %q", ev.Type)
		assert.NotEmpty(t, out.Reason)
	}

	after, err := s.Snapshot().Hash()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Contains(t, logs.String(), "event ignored")
	assert.Contains(t, logs.String(), `unknown event type \"explode\"`)
}
