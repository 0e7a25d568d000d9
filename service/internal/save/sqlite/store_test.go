package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/groupsolitaire/service/internal/save"
	"github.com/jason-s-yu/groupsolitaire/service/internal/save/savetest"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreSuite(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "saves.db"))
	savetest.RunStoreSuite(t, s)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves.db")
	ctx := context.Background()
	snap := save.Snapshot{ID: uuid.New(), State: savetest.PlayedState(t, 12), SavedAt: time.Date(2026, 7, 8, 9, 10, 11, 0, time.UTC)}

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.SaveGame(ctx, snap))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	got, err := second.LoadGame(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestMillisRoundTrip(t *testing.T) {
	at := time.Date(2026, 7, 8, 9, 10, 11, 123_000_000, time.UTC)
	assert.Equal(t, at, fromMillis(toMillis(at)))
}
