package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbassuarez/flux/internal/ast"
	"github.com/cbassuarez/flux/internal/kernel"
)

// createTestStore opens a fresh journal in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// journalRun records a run of doc: the initial snapshot, then for each
// entry either a step (nil event) or an event.
func journalRun(t *testing.T, s *Store, doc *ast.Document, seed int64, script []*ast.Event) Session {
	t.Helper()
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "doc.json", "hash-1", seed)
	require.NoError(t, err)

	state, err := kernel.InitRuntimeState(doc, seed)
	require.NoError(t, err)
	require.NoError(t, s.WriteSnapshot(ctx, sess.ID, state.Snapshot()))

	for _, ev := range script {
		if ev == nil {
			require.NoError(t, s.WriteSnapshot(ctx, sess.ID, state.Step()))
			continue
		}
		docstep := state.Docstep()
		outcome := state.ApplyEvent(*ev)
		_, err := s.WriteEvent(ctx, sess.ID, docstep, *ev, outcome)
		require.NoError(t, err)
	}
	return sess
}
