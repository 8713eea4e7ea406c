package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenConfiguresPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "2"))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	assert.NoError(t, s2.verifyPragma("user_version", "2"))
}

func TestOpenMigratesV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	s, err := Open(path)
	require.NoError(t, err)

	// Rebuild the events table as it was at v1.
	_, err = s.db.Exec(`
		DROP TABLE events;
		CREATE TABLE events (
		    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		    seq INTEGER NOT NULL, docstep INTEGER NOT NULL, type TEXT NOT NULL,
		    payload TEXT NOT NULL, applied INTEGER NOT NULL,
		    PRIMARY KEY (session_id, seq));
		PRAGMA user_version = 1;`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('events') WHERE name = 'reason'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestCloseNil(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}
