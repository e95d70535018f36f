package session

import (
	"os"
	"path/filepath"
	"testing"

	"gadget-hub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "session.json"))
}

func validSession() *models.Session {
	return &models.Session{
		UserID:      "user-1",
		Email:       "alice@example.com",
		DisplayName: "Alice",
		Token:       "token-abc",
	}
}

func TestLoadMissingFileIsAnonymous(t *testing.T) {
	store := testStore(t)

	assert.Nil(t, store.Load())
	assert.Nil(t, store.Current())
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	store := testStore(t)
	sess := validSession()

	require.NoError(t, store.Save(sess))

	loaded := store.Load()
	require.NotNil(t, loaded)
	assert.Equal(t, sess.UserID, loaded.UserID)
	assert.Equal(t, sess.Email, loaded.Email)
	assert.Equal(t, sess.DisplayName, loaded.DisplayName)
	assert.Equal(t, sess.Token, loaded.Token)
}

func TestSaveSurvivesNewStoreInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	first := NewStore(path)
	require.NoError(t, first.Save(validSession()))

	second := NewStore(path)
	loaded := second.Load()
	require.NotNil(t, loaded)
	assert.Equal(t, "user-1", loaded.UserID)
}

func TestSaveRejectsPartialSession(t *testing.T) {
	store := testStore(t)

	err := store.Save(&models.Session{Email: "no-id@example.com"})
	assert.Error(t, err)
	assert.Nil(t, store.Current())

	err = store.Save(&models.Session{UserID: "id-without-email"})
	assert.Error(t, err)
}

func TestClearRemovesSession(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Save(validSession()))

	store.Clear()

	assert.Nil(t, store.Current())
	assert.Nil(t, store.Load())
}

func TestMalformedRecordIsAnonymous(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := NewStore(path)
	assert.Nil(t, store.Load())
}

func TestPartialPersistedRecordIsAnonymous(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"displayName":"ghost"}`), 0o600))

	store := NewStore(path)
	assert.Nil(t, store.Load())
}

func TestCurrentDoesNotRereadStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewStore(path)
	require.NoError(t, store.Save(validSession()))

	// Another component wipes the file behind this store's back.
	require.NoError(t, os.Remove(path))

	// Current returns the in-memory snapshot; only Load re-reads.
	assert.NotNil(t, store.Current())
	assert.Nil(t, store.Load())
}

func TestStorageFailureDegradesToAnonymous(t *testing.T) {
	// A directory at the session path makes both reads and writes fail.
	dir := t.TempDir()
	store := NewStore(dir)

	assert.Nil(t, store.Load())

	// Save keeps the in-memory snapshot even when persistence fails.
	require.NoError(t, store.Save(validSession()))
	assert.NotNil(t, store.Current())
}

func TestCurrentReturnsACopy(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Save(validSession()))

	first := store.Current()
	first.Email = "mutated@example.com"

	second := store.Current()
	assert.Equal(t, "alice@example.com", second.Email)
}
