package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/labelprint/internal/model"
)

func TestFileStoreLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path, time.Hour)

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoSession)

	s := &Session{Name: "somchai", Role: model.RoleAdmin, Token: "tok"}
	require.NoError(t, store.Save(s))
	assert.False(t, s.ExpiresAt.IsZero())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "somchai", loaded.Name)
	assert.True(t, loaded.IsElevated())

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStoreExpiredSessionIsDropped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, time.Hour)

	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	require.NoError(t, store.Save(&Session{Name: "a", Role: model.RoleUser, Token: "t"}))

	store.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoSession)

	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestSaveRejectsEmptyToken(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "s.json"), 0)
	assert.Error(t, store.Save(&Session{Name: "a"}))
}

func TestNilSession(t *testing.T) {
	var s *Session

	assert.False(t, s.IsElevated())
	assert.Equal(t, "", s.DisplayName())
	assert.True(t, s.Expired(time.Now()))
}
