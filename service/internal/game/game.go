// internal/game/game.go
package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/groupsolitaire/engine"
	"github.com/jason-s-yu/groupsolitaire/service/internal/save"
)

// GameEventType represents the type of a game-related event broadcast via WebSockets.
type GameEventType string

// Constants defining the various GameEvent types used for WebSocket communication.
const (
	EventSyncState      GameEventType = "sync_state"      // Full state, sent on connect and on request.
	EventStateChanged   GameEventType = "state_changed"   // The round changed; carries the new state.
	EventGroupCompleted GameEventType = "group_completed" // A foundation cleared a full group.
	EventGameWon        GameEventType = "game_won"        // Every group has been completed.
	EventInvalidMove    GameEventType = "invalid_move"    // A move was rejected; carries the reason.
	EventHint           GameEventType = "hint"            // A suggested move, or a reason when stuck.
	EventError          GameEventType = "error"           // A malformed request; sent only to its sender.
)

// GameEvent is the standard structure for broadcasting game state changes and actions.
type GameEvent struct {
	Type    GameEventType `json:"type"`
	GroupID string        `json:"groupId,omitempty"` // Completed group, for EventGroupCompleted.
	Reason  string        `json:"reason,omitempty"`  // Rejection reason, for EventInvalidMove and EventHint.
	Hint    *MoveHint     `json:"hint,omitempty"`
	State   *ObfGameState `json:"state,omitempty"`
}

// Session is one player's round. It owns the engine and serializes every
// call into it.
type Session struct {
	ID        uuid.UUID // Unique identifier, also the save slot.
	PlayerID  string    // Owner, used for settings; may be empty.
	CreatedAt time.Time

	engine    *engine.Engine
	cardIndex map[string]engine.Card // Card id -> card, for resolving client actions.
	lastTick  time.Time              // When elapsed time was last reported to the engine.

	store save.Store // Optional; nil disables persistence.
	log   logrus.FieldLogger
	clock func() time.Time

	Mu sync.Mutex // Protects everything above.

	// Communication Callbacks
	BroadcastFn func(ev GameEvent) // Sends an event to every connection watching this session.
	OnWin       func(s *Session)   // Called once, after the win has been broadcast.
}

// Option configures a Session.
type Option func(*Session)

// WithStore persists the round after every accepted action.
func WithStore(store save.Store) Option { return func(s *Session) { s.store = store } }

// WithLogger sets the session logger.
func WithLogger(l logrus.FieldLogger) Option { return func(s *Session) { s.log = l } }

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option { return func(s *Session) { s.clock = clock } }

// WithPlayer records the owning player.
func WithPlayer(playerID string) Option { return func(s *Session) { s.PlayerID = playerID } }

func newSession(id uuid.UUID, opts ...Option) *Session {
	s := &Session{
		ID:    id,
		log:   logrus.StandardLogger(),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("game", s.ID)
	s.CreatedAt = s.clock()
	s.lastTick = s.CreatedAt
	s.engine = engine.NewEngine(engine.WithClock(s.clock))
	s.engine.Subscribe(s.onEngineEvent)
	return s
}

// NewSession deals a new round of d. A nil seed falls back to d.Seed; when
// both are nil the shuffle is not reproducible.
func NewSession(d engine.Deck, seed *uint64, opts ...Option) *Session {
	s := newSession(uuid.New(), opts...)
	if seed == nil {
		seed = d.Seed
	}
	s.indexCards(d)
	s.engine.NewGame(d, seed)
	s.log.WithFields(logrus.Fields{
		"deck":   d.ID,
		"groups": d.GroupCount(),
		"cards":  d.CardCount(),
		"seeded": seed != nil,
	}).Info("game: new round dealt")
	return s
}

// RestoreSession rebuilds a session from a saved snapshot.
func RestoreSession(snap save.Snapshot, opts ...Option) (*Session, error) {
	s := newSession(snap.ID, opts...)
	if err := s.engine.Restore(snap.State); err != nil {
		return nil, err
	}
	s.indexCards(snap.State.Deck)
	s.log.WithField("savedAt", snap.SavedAt).Info("game: round restored")
	return s, nil
}

// LoadSession restores the round saved under id from store.
func LoadSession(ctx context.Context, store save.Store, id uuid.UUID, opts ...Option) (*Session, error) {
	snap, err := store.LoadGame(ctx, id)
	if err != nil {
		return nil, err
	}
	return RestoreSession(snap, append(opts, WithStore(store))...)
}

func (s *Session) indexCards(d engine.Deck) {
	s.cardIndex = make(map[string]engine.Card, d.CardCount())
	for _, c := range d.AllCards() {
		s.cardIndex[c.ID] = c
	}
}

// State returns a copy of the engine state.
// Assumes lock is held by caller.
func (s *Session) State() engine.GameState { return s.engine.State() }

// DeckGroupIDs lists the groups of the round's deck.
// Assumes lock is held by caller.
func (s *Session) DeckGroupIDs() []string {
	st := s.engine.State()
	ids := make([]string, len(st.Deck.Groups))
	for i, g := range st.Deck.Groups {
		ids[i] = g.ID
	}
	return ids
}

// onEngineEvent translates engine notifications into broadcasts. Engine
// events are delivered synchronously, so the lock is held here.
func (s *Session) onEngineEvent(ev engine.Event) {
	switch ev.Type {
	case engine.EventStateChanged:
		state := s.GetCurrentObfuscatedGameState()
		s.fireEvent(GameEvent{Type: EventStateChanged, State: &state})
	case engine.EventGroupCompleted:
		s.log.WithField("group", ev.GroupID).Debug("game: group completed")
		s.fireEvent(GameEvent{Type: EventGroupCompleted, GroupID: ev.GroupID})
	case engine.EventWon:
		state := s.GetCurrentObfuscatedGameState()
		s.log.WithFields(logrus.Fields{
			"moves":   state.Summary.Moves,
			"elapsed": state.Summary.Elapsed,
		}).Info("game: round won")
		s.fireEvent(GameEvent{Type: EventGameWon, State: &state})
		if s.OnWin != nil {
			s.OnWin(s)
		}
	}
}

// SendSyncState broadcasts the full state.
// Assumes lock is held by caller.
func (s *Session) SendSyncState() {
	state := s.GetCurrentObfuscatedGameState()
	s.fireEvent(GameEvent{Type: EventSyncState, State: &state})
}

// fireEvent broadcasts an event via the BroadcastFn callback.
// Assumes lock is held by caller.
func (s *Session) fireEvent(ev GameEvent) {
	if s.BroadcastFn != nil {
		s.BroadcastFn(ev)
	}
}

// tick reports the wall time since the previous action to the engine.
// Assumes lock is held by caller.
func (s *Session) tick() {
	now := s.clock()
	s.engine.Tick(now.Sub(s.lastTick))
	s.lastTick = now
}

// Save persists the round immediately. The error is also logged.
func (s *Session) Save(ctx context.Context) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.persist(ctx)
}

// persist saves the round, or drops the save slot once the round is won.
// Failures are logged; play continues without the save.
// Assumes lock is held by caller.
func (s *Session) persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if s.engine.IsWon() {
		if err := s.store.DeleteGame(ctx, s.ID); err != nil {
			s.log.WithError(err).Warn("game: failed to drop save of won round")
			return err
		}
		return nil
	}
	snap := save.Snapshot{ID: s.ID, State: s.engine.State(), SavedAt: s.clock().UTC()}
	if err := s.store.SaveGame(ctx, snap); err != nil {
		s.log.WithError(err).Warn("game: failed to save round")
		return err
	}
	return nil
}
