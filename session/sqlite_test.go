package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "agenthub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_SessionRoundTrip(t *testing.T) {
	store := openTestStore(t)

	sess, err := store.Get("s1")
	require.NoError(t, err)
	assert.Empty(t, sess.History())

	sess.AddTurn("user", "", "hello")
	sess.AddTurn("assistant", "helper", "hi")
	sess.SetState("handoff_domain", "billing")
	require.NoError(t, store.Put(sess))

	loaded, err := store.Get("s1")
	require.NoError(t, err)
	history := loaded.History()
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "helper", history[1].Agent)

	domain, ok := loaded.GetState("handoff_domain")
	require.True(t, ok)
	assert.Equal(t, "billing", domain)
}

func TestSQLiteStore_GetLazilyCreates(t *testing.T) {
	store := openTestStore(t)

	first, err := store.Get("fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", first.ID)

	// The lazily created row survives a second read.
	second, err := store.Get("fresh")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSQLiteStore_PutIsUpsert(t *testing.T) {
	store := openTestStore(t)

	sess, err := store.Get("s1")
	require.NoError(t, err)
	sess.AddTurn("user", "", "one")
	require.NoError(t, store.Put(sess))
	sess.AddTurn("user", "", "two")
	require.NoError(t, store.Put(sess))

	loaded, err := store.Get("s1")
	require.NoError(t, err)
	assert.Len(t, loaded.History(), 2)
}

func TestSQLiteStore_LatestCheckpoint(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.LatestCheckpoint("s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveCheckpoint(NewCheckpoint("s1", 1, []byte(`{"state":"planning"}`))))
	require.NoError(t, store.SaveCheckpoint(NewCheckpoint("s1", 2, []byte(`{"state":"collecting"}`))))
	require.NoError(t, store.SaveCheckpoint(NewCheckpoint("other", 9, []byte(`{}`))))

	cp, ok, err := store.LatestCheckpoint("s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, cp.Round)
	assert.JSONEq(t, `{"state":"collecting"}`, string(cp.State))
	assert.False(t, cp.Created.IsZero())
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agenthub.db")

	store, err := Open(path)
	require.NoError(t, err)
	sess, err := store.Get("s1")
	require.NoError(t, err)
	sess.AddTurn("user", "", "persisted")
	require.NoError(t, store.Put(sess))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Get("s1")
	require.NoError(t, err)
	require.Len(t, loaded.History(), 1)
	assert.Equal(t, "persisted", loaded.History()[0].Content)
}
