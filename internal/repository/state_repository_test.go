package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *StateRepository {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	t.Cleanup(func() { db.Close() })
	return NewStateRepository(db)
}

func TestGetMissingKey(t *testing.T) {
	repo := newTestRepository(t)

	_, ok, err := repo.Get(KeyMovies)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutOverwrites(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.Put(KeyAPIKey, "first"))
	require.NoError(t, repo.Put(KeyAPIKey, "second"))

	value, ok, err := repo.Get(KeyAPIKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", value)
}

func TestPutAllWritesEveryRecord(t *testing.T) {
	repo := newTestRepository(t)

	records := map[string]string{
		KeyMovies:    `[{"id":"a","title":"Dune"}]`,
		KeyBlacklist: `[603]`,
		KeyWinCount:  "3",
	}
	require.NoError(t, repo.PutAll(records))

	for key, want := range records {
		value, ok, err := repo.Get(key)
		require.NoError(t, err)
		require.True(t, ok, "missing record %q", key)
		assert.Equal(t, want, value)
	}
}
