package store

import (
	"context"
	"fmt"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/kernel"
)

// Divergence is one point where a replay disagreed with the journal.
type Divergence struct {
	Docstep int64
	Seq     int64 // event seq, 0 for snapshot divergences
	Want    string
	Got     string
}

func (d Divergence) String() string {
	if d.Seq > 0 {
		return fmt.Sprintf("event %d at docstep %d: journal %s, replay %s", d.Seq, d.Docstep, d.Want, d.Got)
	}
	return fmt.Sprintf("docstep %d: journal hash %s, replay hash %s", d.Docstep, d.Want, d.Got)
}

// ReplayResult summarizes a determinism replay of one session.
type ReplayResult struct {
	SessionID   string
	DocChanged  bool // the document hash differs from the journaled one
	Snapshots   int
	Events      int
	Divergences []Divergence
}

// OK reports whether the replay reproduced every journaled snapshot and
// event outcome.
func (r ReplayResult) OK() bool {
	return len(r.Divergences) == 0
}

// Replay re-runs a journaled session against doc with the journaled seed
// and compares every snapshot hash and event outcome.
//
// Snapshots are taken right after a docstep is reached. Events journaled at
// docstep d are therefore re-applied after the docstep-d snapshot and
// before the step to d+1.
func (s *Store) Replay(ctx context.Context, sessionID string, doc *ast.Document, docHash string) (ReplayResult, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return ReplayResult{}, err
	}
	events, err := s.ReadEvents(ctx, sessionID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}
	snaps, err := s.ReadSnapshots(ctx, sessionID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	state, err := kernel.InitRuntimeState(doc, sess.Seed)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	res := ReplayResult{
		SessionID:  sessionID,
		DocChanged: docHash != "" && docHash != sess.DocHash,
		Snapshots:  len(snaps),
		Events:     len(events),
	}

	next := 0
	applyPending := func() error {
		for next < len(events) && events[next].Docstep <= state.Docstep() {
			rec := events[next]
			next++
			ev, err := unmarshalEvent(rec.Payload)
			if err != nil {
				return err
			}
			outcome := state.ApplyEvent(ev)
			if outcome.Applied != rec.Applied {
				res.Divergences = append(res.Divergences, Divergence{
					Docstep: rec.Docstep,
					Seq:     rec.Seq,
					Want:    appliedLabel(rec.Applied),
					Got:     appliedLabel(outcome.Applied),
				})
			}
		}
		return nil
	}

	for _, rec := range snaps {
		for state.Docstep() < rec.Docstep {
			if err := applyPending(); err != nil {
				return res, fmt.Errorf("replay: %w", err)
			}
			state.Step()
		}
		got, err := state.Snapshot().Hash()
		if err != nil {
			return res, fmt.Errorf("replay: %w", err)
		}
		if got != rec.Hash {
			res.Divergences = append(res.Divergences, Divergence{Docstep: rec.Docstep, Want: rec.Hash, Got: got})
		}
	}
	if err := applyPending(); err != nil {
		return res, fmt.Errorf("replay: %w", err)
	}
	return res, nil
}

func appliedLabel(applied bool) string {
	if applied {
		return "applied"
	}
	return "ignored"
}

// SnapshotBody parses the canonical body of a journaled snapshot.
func SnapshotBody(rec SnapshotRecord) (ir.Object, error) {
	return unmarshalSnapshot(rec.Body)
}
