// internal/game/game_test.go
package game

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/groupsolitaire/engine"
	"github.com/jason-s-yu/groupsolitaire/service/internal/save"
	"github.com/jason-s-yu/groupsolitaire/service/internal/save/savetest"
	"github.com/jason-s-yu/groupsolitaire/service/internal/save/sqlite"
)

// mockBroadcaster captures game events for testing assertions.
type mockBroadcaster struct {
	mu        sync.Mutex
	allEvents []GameEvent
}

func (mb *mockBroadcaster) broadcastFn(ev GameEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = nil
}

func (mb *mockBroadcaster) getLastEvent() *GameEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.allEvents) == 0 {
		return nil
	}
	return &mb.allEvents[len(mb.allEvents)-1]
}

func (mb *mockBroadcaster) types() []GameEventType {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	out := make([]GameEventType, len(mb.allEvents))
	for i, ev := range mb.allEvents {
		out[i] = ev.Type
	}
	return out
}

// fakeClock is a manually advanced clock.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)}
}

func quietLogger() logrus.FieldLogger {
	l, _ := logtest.NewNullLogger()
	return l
}

// setupTestSession deals a seeded round of deck and attaches a mock broadcaster.
func setupTestSession(t *testing.T, deck engine.Deck, seed uint64, opts ...Option) (*Session, *mockBroadcaster) {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	s := NewSession(deck, &seed, opts...)
	mb := &mockBroadcaster{}
	s.BroadcastFn = mb.broadcastFn
	return s, mb
}

// restoreTestSession starts a session from a hand-built state.
func restoreTestSession(t *testing.T, state engine.GameState, opts ...Option) (*Session, *mockBroadcaster) {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	s, err := RestoreSession(save.Snapshot{ID: uuid.New(), State: state}, opts...)
	require.NoError(t, err)
	mb := &mockBroadcaster{}
	s.BroadcastFn = mb.broadcastFn
	return s, mb
}

func pairGroup(id, partner string) engine.Group {
	base := engine.Card{ID: engine.ScopedCardID(id, "base"), Label: id, Role: engine.RoleBase, GroupID: id}
	p := engine.Card{ID: engine.ScopedCardID(id, "p1"), Label: partner, Role: engine.RolePartner, GroupID: id}
	return engine.NewGroup(id, "Group "+id, base, []engine.Card{p})
}

// emptyState returns a playing state for deck with every pile empty.
func emptyState(deck engine.Deck) engine.GameState {
	g := engine.GameState{
		Deck:              deck,
		Stock:             []engine.Card{},
		Waste:             []engine.Card{},
		Tableau:           make([][]engine.TableauCard, engine.TableauPiles),
		CompletedGroups:   []string{},
		UsedPartnerLabels: map[string]bool{},
		StartedAt:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Phase:             engine.PhasePlaying,
	}
	for i := range g.Foundations {
		g.Foundations[i].Cards = []engine.Card{}
	}
	for i := range g.Tableau {
		g.Tableau[i] = []engine.TableauCard{}
	}
	return g
}

func up(c engine.Card) engine.TableauCard   { return engine.TableauCard{Card: c, FaceUp: true} }
func down(c engine.Card) engine.TableauCard { return engine.TableauCard{Card: c} }

// tableauPileOf returns the tableau pile holding card id.
func tableauPileOf(t *testing.T, st engine.GameState, id string) int {
	t.Helper()
	for i, pile := range st.Tableau {
		for _, tc := range pile {
			if tc.ID == id {
				return i
			}
		}
	}
	t.Fatalf("card %s not in the tableau", id)
	return -1
}

func TestNewSessionMatchesSeededEngine(t *testing.T) {
	deck := savetest.Deck(8)
	s, _ := setupTestSession(t, deck, 99)

	seed := uint64(99)
	e := engine.NewEngine()
	e.NewGame(deck, &seed)

	assert.Equal(t, e.State().Tableau, s.State().Tableau)
	assert.Equal(t, e.State().Stock, s.State().Stock)
	assert.NotEqual(t, uuid.Nil, s.ID)
}

func TestNewSessionFallsBackToDeckSeed(t *testing.T) {
	deck := savetest.Deck(8)
	seed := uint64(7)
	deck.Seed = &seed

	a := NewSession(deck, nil, WithLogger(quietLogger()))
	b := NewSession(deck, nil, WithLogger(quietLogger()))
	require.NotNil(t, a.State().Seed)
	assert.Equal(t, uint64(7), *a.State().Seed)
	assert.Equal(t, a.State().Tableau, b.State().Tableau)
}

func TestSyncStateHidesFaceDownCards(t *testing.T) {
	s, mb := setupTestSession(t, savetest.Deck(8), 3)

	v, err := s.HandleAction(context.Background(), Action{Type: ActionSync})
	require.NoError(t, err)
	assert.True(t, v.OK())

	ev := mb.getLastEvent()
	require.NotNil(t, ev)
	require.Equal(t, EventSyncState, ev.Type)
	require.NotNil(t, ev.State)

	st := ev.State
	assert.Equal(t, s.ID, st.GameID)
	assert.Equal(t, engine.PhasePlaying, st.Phase)
	assert.Len(t, st.Groups, 8)
	assert.Equal(t, 32-28, st.StockSize)
	assert.Empty(t, st.Waste)
	assert.Len(t, st.Foundations, engine.FoundationCount)
	require.Len(t, st.Tableau, engine.TableauPiles)

	last := st.Tableau[engine.TableauPiles-1]
	require.Len(t, last, engine.TableauPiles)
	for i, c := range last[:len(last)-1] {
		assert.False(t, c.Known, "card %d should be hidden", i)
		assert.Empty(t, c.ID)
		assert.Empty(t, c.GroupID)
	}
	top := last[len(last)-1]
	assert.True(t, top.Known)
	assert.NotEmpty(t, top.ID)
	assert.Equal(t, 0, st.Summary.Moves)
}

func TestDrawBroadcastsStateChanged(t *testing.T) {
	s, mb := setupTestSession(t, savetest.Deck(8), 3)

	v, err := s.HandleAction(context.Background(), Action{Type: ActionDraw})
	require.NoError(t, err)
	assert.True(t, v.OK())

	assert.Equal(t, []GameEventType{EventStateChanged}, mb.types())
	st := mb.getLastEvent().State
	require.NotNil(t, st)
	assert.Equal(t, 3, st.StockSize)
	require.Len(t, st.Waste, 1)
	assert.True(t, st.Waste[0].Known)
	assert.Equal(t, 1, st.Summary.Moves)
}

func TestDrawFromEmptyStockIsSilent(t *testing.T) {
	s, mb := restoreTestSession(t, func() engine.GameState {
		fr := pairGroup("fr", "Paris")
		g := emptyState(engine.Deck{Groups: []engine.Group{fr}})
		g.Tableau[0] = []engine.TableauCard{up(fr.Cards[0])}
		g.Tableau[1] = []engine.TableauCard{up(fr.Cards[1])}
		return g
	}())

	v, err := s.HandleAction(context.Background(), Action{Type: ActionDraw})
	require.NoError(t, err)
	assert.True(t, v.OK())
	assert.Empty(t, mb.types())
}

func TestInvalidMoveBroadcastsReason(t *testing.T) {
	s, mb := setupTestSession(t, savetest.Deck(8), 11, WithClock(newClock().Now))
	st := s.State()
	top := st.Tableau[0][0]

	v, err := s.HandleAction(context.Background(), Action{
		Type:    ActionMove,
		CardIDs: []string{top.ID},
		Source:  &PileTarget{Kind: "tableau", Index: 0},
		Target:  &PileTarget{Kind: "stock"},
	})
	require.NoError(t, err)
	assert.Equal(t, engine.ReasonBadTarget, v.Reason)

	ev := mb.getLastEvent()
	require.NotNil(t, ev)
	assert.Equal(t, EventInvalidMove, ev.Type)
	assert.Equal(t, engine.ReasonBadTarget, ev.Reason)
	assert.Equal(t, st, s.State(), "rejected move changed the state")
}

func TestMalformedActions(t *testing.T) {
	s, mb := setupTestSession(t, savetest.Deck(8), 11)
	top := s.State().Tableau[0][0].ID
	tableau0 := &PileTarget{Kind: "tableau", Index: 0}
	tableau1 := &PileTarget{Kind: "tableau", Index: 1}

	tests := []struct {
		name   string
		action Action
		want   error
	}{
		{"unknown type", Action{Type: "fly"}, ErrUnknownAction},
		{"unknown card", Action{Type: ActionMove, CardIDs: []string{"nope"}, Source: tableau0, Target: tableau1}, ErrUnknownCard},
		{"no cards", Action{Type: ActionMoveStack, Source: tableau0, Target: tableau1}, ErrBadPayload},
		{"missing source", Action{Type: ActionMove, CardIDs: []string{top}, Target: tableau1}, ErrBadPayload},
		{"missing target", Action{Type: ActionMove, CardIDs: []string{top}, Source: tableau0}, ErrBadPayload},
		{"bad pile kind", Action{Type: ActionMove, CardIDs: []string{top}, Source: tableau0, Target: &PileTarget{Kind: "hand"}}, ErrBadPayload},
		{"two cards for move", Action{Type: ActionMove, CardIDs: []string{top, top}, Source: tableau0, Target: tableau1}, ErrBadPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.HandleAction(context.Background(), tt.action)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, mb.types(), "malformed actions must not broadcast")
}

func TestStackToFoundationNeedsFoundationTarget(t *testing.T) {
	s, mb := setupTestSession(t, savetest.Deck(8), 11)
	top := s.State().Tableau[0][0].ID

	v, err := s.HandleAction(context.Background(), Action{
		Type:    ActionMoveStackFoundation,
		CardIDs: []string{top},
		Source:  &PileTarget{Kind: "tableau", Index: 0},
		Target:  &PileTarget{Kind: "tableau", Index: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, engine.ReasonBadTarget, v.Reason)
	assert.Equal(t, EventInvalidMove, mb.getLastEvent().Type)
}

func TestWinFlowPersistsThenDropsSave(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "saves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fr := pairGroup("fr", "Paris")
	s, mb := setupTestSession(t, engine.Deck{Groups: []engine.Group{fr}}, 5, WithStore(store))
	wins := 0
	s.OnWin = func(*Session) { wins++ }
	ctx := context.Background()

	base, partner := fr.Cards[0], fr.Cards[1]
	st := s.State()
	v, err := s.HandleAction(ctx, Action{
		Type:    ActionMove,
		CardIDs: []string{base.ID},
		Source:  &PileTarget{Kind: "tableau", Index: tableauPileOf(t, st, base.ID)},
		Target:  &PileTarget{Kind: "foundation", Index: 0},
	})
	require.NoError(t, err)
	require.True(t, v.OK(), v.String())

	saved, err := store.LoadGame(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.State.Moves)

	mb.clear()
	v, err = s.HandleAction(ctx, Action{
		Type:    ActionMove,
		CardIDs: []string{partner.ID},
		Source:  &PileTarget{Kind: "tableau", Index: tableauPileOf(t, st, partner.ID)},
		Target:  &PileTarget{Kind: "foundation", Index: 0},
	})
	require.NoError(t, err)
	require.True(t, v.OK(), v.String())

	assert.Equal(t, []GameEventType{EventGroupCompleted, EventStateChanged, EventGameWon}, mb.types())
	assert.Equal(t, "fr", mb.allEvents[0].GroupID)
	won := mb.getLastEvent().State
	require.NotNil(t, won)
	assert.Equal(t, engine.PhaseWon, won.Phase)
	assert.True(t, won.Groups[0].Completed)
	assert.Equal(t, 1, wins)

	_, err = store.LoadGame(ctx, s.ID)
	assert.ErrorIs(t, err, save.ErrNotFound)

	v, err = s.HandleAction(ctx, Action{Type: ActionDraw})
	require.NoError(t, err)
	assert.True(t, v.OK())
}

func TestLoadSessionResumesRound(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "saves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	s, _ := setupTestSession(t, savetest.Deck(8), 21, WithStore(store), WithPlayer("ana"))
	for i := 0; i < 3; i++ {
		_, err := s.HandleAction(ctx, Action{Type: ActionDraw})
		require.NoError(t, err)
	}

	resumed, err := LoadSession(ctx, store, s.ID, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Equal(t, s.ID, resumed.ID)
	assert.Equal(t, s.State(), resumed.State())

	_, err = LoadSession(ctx, store, uuid.New())
	assert.ErrorIs(t, err, save.ErrNotFound)
}

func TestRestoreSessionRejectsBrokenState(t *testing.T) {
	g := emptyState(engine.Deck{Groups: []engine.Group{pairGroup("fr", "Paris")}})
	_, err := RestoreSession(save.Snapshot{ID: uuid.New(), State: g}, WithLogger(quietLogger()))
	assert.Error(t, err)
}

func TestElapsedFollowsClock(t *testing.T) {
	clock := newClock()
	s, _ := setupTestSession(t, savetest.Deck(8), 4, WithClock(clock.Now))
	ctx := context.Background()

	clock.advance(5 * time.Second)
	_, err := s.HandleAction(ctx, Action{Type: ActionDraw})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, s.State().Elapsed)

	clock.advance(3 * time.Second)
	_, err = s.HandleAction(ctx, Action{Type: ActionHint})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, s.State().Elapsed, "hints do not report time")

	_, err = s.HandleAction(ctx, Action{Type: ActionDraw})
	require.NoError(t, err)
	assert.Equal(t, 8*time.Second, s.State().Elapsed)
	assert.Equal(t, clock.now.Add(-8*time.Second), s.CreatedAt)
}

func TestHintPrefersFoundation(t *testing.T) {
	fr := pairGroup("fr", "Paris")
	it := pairGroup("it", "Rome")
	g := emptyState(engine.Deck{Groups: engine.AssignPossibleGroupIDs([]engine.Group{fr, it})})
	g.Tableau[0] = []engine.TableauCard{up(fr.Cards[0])}
	g.Tableau[1] = []engine.TableauCard{down(it.Cards[1]), up(fr.Cards[1])}
	g.Tableau[2] = []engine.TableauCard{up(it.Cards[0])}
	s, mb := restoreTestSession(t, g)

	_, err := s.HandleAction(context.Background(), Action{Type: ActionHint})
	require.NoError(t, err)

	ev := mb.getLastEvent()
	require.NotNil(t, ev)
	require.Equal(t, EventHint, ev.Type)
	require.NotNil(t, ev.Hint)
	assert.Equal(t, MoveHint{
		Type:    ActionMove,
		CardIDs: []string{"fr_base"},
		Source:  PileTarget{Kind: "tableau", Index: 0},
		Target:  PileTarget{Kind: "foundation", Index: 0},
	}, *ev.Hint)

	v, err := s.HandleAction(context.Background(), ev.Hint.Action())
	require.NoError(t, err)
	assert.True(t, v.OK(), v.String())
}

func TestHintPrefersRevealingMove(t *testing.T) {
	fr := pairGroup("fr", "Paris")
	base := engine.Card{ID: "it_base", Label: "it", Role: engine.RoleBase, GroupID: "it"}
	rome := engine.Card{ID: "it_p1", Label: "Rome", Role: engine.RolePartner, GroupID: "it"}
	milan := engine.Card{ID: "it_p2", Label: "Milan", Role: engine.RolePartner, GroupID: "it"}
	it := engine.NewGroup("it", "Italy", base, []engine.Card{rome, milan})

	g := emptyState(engine.Deck{Groups: []engine.Group{fr, it}})
	g.Tableau[0] = []engine.TableauCard{down(fr.Cards[0]), up(rome)}
	g.Tableau[1] = []engine.TableauCard{up(milan)}
	g.Stock = []engine.Card{fr.Cards[1], base}
	s, mb := restoreTestSession(t, g)

	_, err := s.HandleAction(context.Background(), Action{Type: ActionHint})
	require.NoError(t, err)
	hint := mb.getLastEvent().Hint
	require.NotNil(t, hint)
	assert.Equal(t, []string{"it_p1"}, hint.CardIDs)
	assert.Equal(t, PileTarget{Kind: "tableau", Index: 0}, hint.Source)
	assert.Equal(t, PileTarget{Kind: "tableau", Index: 1}, hint.Target)
}

func TestHintWhenStuck(t *testing.T) {
	groups := make([]engine.Group, engine.TableauPiles)
	for i := range groups {
		groups[i] = pairGroup(fmt.Sprintf("g%d", i), fmt.Sprintf("label %d", i))
	}
	g := emptyState(engine.Deck{Groups: groups})
	for i := range g.Tableau {
		buried := groups[(i+1)%len(groups)].Cards[0]
		g.Tableau[i] = []engine.TableauCard{down(buried), up(groups[i].Cards[1])}
	}
	s, mb := restoreTestSession(t, g)

	_, err := s.HandleAction(context.Background(), Action{Type: ActionSync})
	require.NoError(t, err)
	assert.True(t, mb.getLastEvent().State.Stuck)

	_, err = s.HandleAction(context.Background(), Action{Type: ActionHint})
	require.NoError(t, err)
	ev := mb.getLastEvent()
	assert.Equal(t, EventHint, ev.Type)
	assert.Nil(t, ev.Hint)
	assert.Equal(t, HintReasonStuck, ev.Reason)
}

func TestSuggestMoveOrder(t *testing.T) {
	seed := uint64(8)
	e := engine.NewEngine()
	e.NewGame(savetest.Deck(8), &seed)
	st := e.State()
	opt, ok := SuggestMove(st)
	require.True(t, ok)

	moves := st.LegalMoves()
	best := hintRank(st, opt)
	for _, m := range moves {
		assert.GreaterOrEqual(t, hintRank(st, m), best, "move %+v outranks the suggestion", m)
	}
}

func TestConcurrentActionsAreSerialized(t *testing.T) {
	s, mb := setupTestSession(t, savetest.Deck(8), 13)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.HandleAction(context.Background(), Action{Type: ActionDraw})
		}()
	}
	wg.Wait()

	st := s.State()
	assert.Len(t, st.Waste, 4)
	assert.Empty(t, st.Stock)
	assert.Len(t, mb.types(), 4)
}
