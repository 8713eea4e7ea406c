package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/kernel"
)

// Session is one journaled run of a document.
type Session struct {
	ID            string
	DocPath       string
	DocHash       string
	Seed          int64
	CreatedSeq    int64
	EngineVersion string
	IRVersion     string
}

// EventRecord is one journaled event with the outcome the kernel gave it.
type EventRecord struct {
	SessionID string
	Seq       int64
	Docstep   int64 // docstep at which the event was applied
	Type      string
	Payload   string // canonical JSON of the full event
	Applied   bool
	Reason    string
}

// SnapshotRecord is the hash and canonical body of a snapshot taken
// right after the session reached Docstep.
type SnapshotRecord struct {
	SessionID string
	Docstep   int64
	Hash      string
	Body      string
}

// CreateSession journals a new session and returns it with a fresh
// time-ordered id.
func (s *Store) CreateSession(ctx context.Context, docPath, docHash string, seed int64) (Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, `SELECT MAX(created_seq) FROM sessions`)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	sess := Session{
		ID:            id.String(),
		DocPath:       docPath,
		DocHash:       docHash,
		Seed:          seed,
		CreatedSeq:    seq,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, doc_path, doc_hash, seed, created_seq, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.DocPath, sess.DocHash, sess.Seed, sess.CreatedSeq, sess.EngineVersion, sess.IRVersion)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// WriteEvent appends an event and its outcome to a session journal and
// returns the assigned sequence number.
func (s *Store) WriteEvent(ctx context.Context, sessionID string, docstep int64, ev ast.Event, outcome kernel.EventOutcome) (int64, error) {
	payload, err := marshalEvent(ev)
	if err != nil {
		return 0, fmt.Errorf("write event: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write event: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, `SELECT MAX(seq) FROM events WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("write event: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (session_id, seq, docstep, type, payload, applied, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sessionID, seq, docstep, ev.Type, payload, boolToInt(outcome.Applied), outcome.Reason)
	if err != nil {
		return 0, fmt.Errorf("write event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write event: %w", err)
	}
	return seq, nil
}

// WriteSnapshot journals the hash and body of snap. A second snapshot for
// the same docstep is silently ignored.
func (s *Store) WriteSnapshot(ctx context.Context, sessionID string, snap kernel.Snapshot) error {
	body, err := ir.MarshalCanonical(snap.ToValue())
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	hash, err := snap.Hash()
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (session_id, docstep, hash, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, docstep) DO NOTHING
	`, sessionID, snap.Docstep, hash, string(body))
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
