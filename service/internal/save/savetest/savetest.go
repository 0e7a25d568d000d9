// Package savetest holds fixtures and a conformance suite shared by the
// save.Store implementations' tests.
package savetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/groupsolitaire/engine"
	"github.com/jason-s-yu/groupsolitaire/service/internal/save"
)

// Deck returns a small deck of n groups, each with a base and three partners.
func Deck(n int) engine.Deck {
	groups := make([]engine.Group, n)
	for i := range groups {
		id := fmt.Sprintf("g%02d", i)
		base := engine.Card{ID: engine.ScopedCardID(id, "base"), Label: id, Role: engine.RoleBase, GroupID: id}
		partners := make([]engine.Card, 3)
		for j := range partners {
			partners[j] = engine.Card{
				ID:      engine.ScopedCardID(id, fmt.Sprintf("p%d", j)),
				Label:   fmt.Sprintf("%s-%d", id, j),
				Role:    engine.RolePartner,
				GroupID: id,
			}
		}
		groups[i] = engine.NewGroup(id, "Group "+id, base, partners)
	}
	return engine.Deck{Groups: engine.AssignPossibleGroupIDs(groups)}
}

// PlayedState deals a seeded round and plays a few legal moves into it.
func PlayedState(t testing.TB, seed uint64) engine.GameState {
	t.Helper()
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := engine.NewEngine(engine.WithClock(func() time.Time { return epoch }))
	e.NewGame(Deck(8), &seed)
	picker := engine.NewXorshift64(seed)
	for i := 0; i < 40; i++ {
		moves := e.LegalMoves()
		if len(moves) == 0 {
			break
		}
		e.Apply(moves[picker.IntN(len(moves))])
	}
	e.Tick(42 * time.Second)
	return e.State()
}

// RunStoreSuite exercises the behaviour every save.Store must share.
func RunStoreSuite(t *testing.T, store save.Store) {
	ctx := context.Background()

	t.Run("game round trip", func(t *testing.T) {
		snap := save.Snapshot{
			ID:      uuid.New(),
			State:   PlayedState(t, 5),
			SavedAt: time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
		}
		require.NoError(t, store.SaveGame(ctx, snap))

		got, err := store.LoadGame(ctx, snap.ID)
		require.NoError(t, err)
		assert.Equal(t, snap, got)
	})

	t.Run("game overwrite", func(t *testing.T) {
		id := uuid.New()
		first := save.Snapshot{ID: id, State: PlayedState(t, 1), SavedAt: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)}
		second := save.Snapshot{ID: id, State: PlayedState(t, 2), SavedAt: first.SavedAt.Add(time.Minute)}
		require.NoError(t, store.SaveGame(ctx, first))
		require.NoError(t, store.SaveGame(ctx, second))

		got, err := store.LoadGame(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, second, got)
	})

	t.Run("game delete", func(t *testing.T) {
		snap := save.Snapshot{ID: uuid.New(), State: PlayedState(t, 3), SavedAt: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)}
		require.NoError(t, store.SaveGame(ctx, snap))
		require.NoError(t, store.DeleteGame(ctx, snap.ID))

		_, err := store.LoadGame(ctx, snap.ID)
		assert.ErrorIs(t, err, save.ErrNotFound)
		assert.NoError(t, store.DeleteGame(ctx, snap.ID), "deleting twice")
	})

	t.Run("missing game", func(t *testing.T) {
		_, err := store.LoadGame(ctx, uuid.New())
		assert.ErrorIs(t, err, save.ErrNotFound)
	})

	t.Run("settings round trip", func(t *testing.T) {
		s := save.Settings{SoundEnabled: false, HapticsEnabled: true, GroupCount: 5, RecentGroupIDs: []string{"g01", "g02"}}
		require.NoError(t, store.SaveSettings(ctx, "player-1", s))

		got, err := store.LoadSettings(ctx, "player-1")
		require.NoError(t, err)
		assert.Equal(t, s, got)
	})

	t.Run("missing settings", func(t *testing.T) {
		_, err := store.LoadSettings(ctx, "nobody")
		assert.ErrorIs(t, err, save.ErrNotFound)
	})
}
