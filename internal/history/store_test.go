package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "journal file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	for name, want := range map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"user_version": "1",
	} {
		got, err := s.pragma(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestOpen_MigratesPreSessionJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE events (
		    id TEXT PRIMARY KEY,
		    root TEXT NOT NULL,
		    seq INTEGER NOT NULL,
		    kind TEXT NOT NULL,
		    module_digest TEXT NOT NULL DEFAULT '',
		    expression TEXT NOT NULL DEFAULT '',
		    expression_key TEXT NOT NULL DEFAULT '',
		    output TEXT NOT NULL DEFAULT '',
		    error_code TEXT NOT NULL DEFAULT '',
		    error_message TEXT NOT NULL DEFAULT '',
		    created_at TEXT NOT NULL,
		    UNIQUE (root, seq)
		)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO events (id, root, seq, kind, created_at)
		VALUES ('old', '/r', 1, 'clean', '2026-01-02T03:04:05Z')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	events, err := s.Recent(t.Context(), "/r", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "old", events[0].ID)
	assert.Equal(t, "", events[0].SessionID)

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

func TestClose_NilDB(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}
