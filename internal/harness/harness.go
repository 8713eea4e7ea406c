package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/loader"
	"github.com/cbassuarez/flux/internal/patch"
	"github.com/cbassuarez/flux/internal/render"
	"github.com/cbassuarez/flux/internal/store"
)

// Harness runs one scenario: a renderer, the slot tracker that reports
// what each action changed, and a journal that is replayed at the end.
type Harness struct {
	store     *store.Store
	sessionID string
	renderer  *render.Renderer
	tracker   *patch.Tracker
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal. Execution flow:
//  1. Load the document and open the journal
//  2. Render docstep 0 and record its slot hashes
//  3. Run each action, recording changed slots and journaling snapshots
//     and events
//  4. Replay the journal and report any divergence
//  5. Check the expectations
//
// An error return means the scenario could not run at all; failed
// expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	data, err := os.ReadFile(scenario.Document)
	if err != nil {
		return nil, &loader.LoadError{Code: loader.ErrCodeReadFailed, Path: scenario.Document, Message: err.Error()}
	}
	doc, err := loader.Parse(scenario.Document, data)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := render.NewRenderer(doc, render.WithSeed(scenario.Seed), render.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	sess, err := st.CreateSession(ctx, scenario.Document, ir.SourceHash(data), scenario.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create journal session: %w", err)
	}
	if err := st.WriteSnapshot(ctx, sess.ID, r.Snapshot()); err != nil {
		return nil, fmt.Errorf("failed to journal initial snapshot: %w", err)
	}

	h := &Harness{
		store:     st,
		sessionID: sess.ID,
		renderer:  r,
		tracker:   patch.NewTracker(),
		logger:    logger,
	}

	first, err := r.Render()
	if err != nil {
		return nil, err
	}
	if err := h.tracker.Prime(first); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, action := range scenario.Actions {
		if err := h.execute(ctx, action, result); err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", i, action.Kind(), err)
		}
	}

	final, err := r.Render()
	if err != nil {
		return nil, err
	}
	result.Final = final
	if result.DocumentHash, err = ir.DocumentHash(final); err != nil {
		return nil, err
	}
	if result.SnapshotHash, err = r.Snapshot().Hash(); err != nil {
		return nil, err
	}

	replay, err := st.Replay(ctx, sess.ID, doc, "")
	if err != nil {
		return nil, fmt.Errorf("failed to replay journal: %w", err)
	}
	for _, d := range replay.Divergences {
		result.AddError("replay diverged: " + d.String())
	}

	for _, msg := range EvaluateExpect(result, scenario.Expect, r) {
		result.AddError(msg)
	}
	return result, nil
}

// execute runs one action and appends its trace event.
func (h *Harness) execute(ctx context.Context, a Action, result *Result) error {
	before := h.renderer.Status().Docstep
	ev := TraceEvent{Action: a.Kind()}

	switch {
	case a.Step != nil:
		ev.Arg = strconv.Itoa(*a.Step)
		if _, err := h.renderer.Step(*a.Step); err != nil {
			return err
		}

	case a.Tick != nil:
		ev.Arg = strconv.FormatFloat(*a.Tick, 'f', -1, 64)
		if _, err := h.renderer.Tick(*a.Tick); err != nil {
			return err
		}

	case a.Event != nil:
		event, err := a.Event.toEvent()
		if err != nil {
			return err
		}
		ev.Arg = event.Type
		outcome := h.renderer.ApplyEvent(event)
		if _, err := h.store.WriteEvent(ctx, h.sessionID, before, event, outcome); err != nil {
			return fmt.Errorf("failed to journal event: %w", err)
		}
		applied := outcome.Applied
		ev.Applied, ev.Reason = &applied, outcome.Reason
	}

	doc, err := h.renderer.Render()
	if err != nil {
		return err
	}
	ps, err := h.tracker.Next(doc)
	if err != nil {
		return err
	}
	if doc.Docstep != before {
		if err := h.store.WriteSnapshot(ctx, h.sessionID, h.renderer.Snapshot()); err != nil {
			return fmt.Errorf("failed to journal snapshot: %w", err)
		}
	}

	ev.Docstep, ev.Time, ev.Changed = doc.Docstep, doc.Time, ps.IDs()
	result.addTrace(ev)

	h.logger.Info("action completed",
		"action", ev.Action,
		"arg", ev.Arg,
		"docstep", ev.Docstep,
		"changed", len(ev.Changed))
	return nil
}

// toEvent converts a scenario event into a kernel event.
func (e *EventSpec) toEvent() (ast.Event, error) {
	ev := ast.Event{Type: e.Type, Source: e.Source}
	if e.Location != nil {
		ev.Location = &ast.Location{Grid: e.Location.Grid, Index: e.Location.Index, Row: e.Location.Row, Col: e.Location.Col}
	}
	if e.Payload != nil {
		v, err := ir.FromGo(e.Payload)
		if err != nil {
			return ast.Event{}, fmt.Errorf("event payload: %w", err)
		}
		ev.Payload = v.(ir.Object)
	}
	return ev, nil
}
