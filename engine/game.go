// Package engine implements the rules of a patience game whose cards form
// thematic groups (one base card plus its partners) instead of suits.
//
// The package is pure: it renders nothing, performs no I/O and runs no
// timers. An Engine owns a single GameState and is not safe for concurrent
// use; the caller serializes access.
package engine

import (
	"fmt"
	"time"
)

const (
	// TableauPiles is the number of tableau piles dealt by NewGame.
	TableauPiles = 7
	// FoundationCount is the number of foundation slots.
	FoundationCount = 4
)

// Phase is the engine-visible game phase. The menu phase lives in the UI.
type Phase string

const (
	PhasePlaying Phase = "playing"
	PhaseWon     Phase = "won"
)

// GameState holds the complete state of one round. Every field is exported
// and JSON-tagged so the state can be persisted and restored losslessly.
type GameState struct {
	Deck Deck    `json:"deck"`
	Seed *uint64 `json:"seed,omitempty"`

	Stock       []Card                          `json:"stock"` // face down; top is the last element
	Waste       []Card                          `json:"waste"` // face up; top is the last element
	Foundations [FoundationCount]FoundationPile `json:"foundations"`
	Tableau     [][]TableauCard                 `json:"tableau"`

	CompletedGroups   []string        `json:"completedGroups"`
	ClearedCardCount  int             `json:"clearedCardCount"`
	UsedPartnerLabels map[string]bool `json:"usedPartnerLabels"`

	Moves     int           `json:"moves"`
	StartedAt time.Time     `json:"startedAt"`
	Elapsed   time.Duration `json:"elapsed"`
	Phase     Phase         `json:"phase"`

	// RNG is the xorshift64 state of a seeded round; 0 for unseeded rounds.
	RNG uint64 `json:"rng"`
}

// Clone returns a deep copy of the mutable parts of g. Deck content is
// immutable and shared.
func (g GameState) Clone() GameState {
	out := g
	if g.Seed != nil {
		seed := *g.Seed
		out.Seed = &seed
	}
	out.Stock = cloneCards(g.Stock)
	out.Waste = cloneCards(g.Waste)
	for i := range g.Foundations {
		out.Foundations[i].Cards = cloneCards(g.Foundations[i].Cards)
	}
	if g.Tableau != nil {
		out.Tableau = make([][]TableauCard, len(g.Tableau))
		for i, pile := range g.Tableau {
			out.Tableau[i] = cloneTableau(pile)
		}
	}
	if g.CompletedGroups != nil {
		out.CompletedGroups = append([]string{}, g.CompletedGroups...)
	}
	if g.UsedPartnerLabels != nil {
		out.UsedPartnerLabels = make(map[string]bool, len(g.UsedPartnerLabels))
		for k, v := range g.UsedPartnerLabels {
			out.UsedPartnerLabels[k] = v
		}
	}
	return out
}

// Engine is the stateful orchestrator of a round. All mutation of the
// GameState goes through its methods.
type Engine struct {
	state GameState
	rng   Rand
	clock func() time.Time

	listeners []subscription
	nextSubID int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used to stamp GameState.StartedAt.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// NewEngine returns an engine with no round in progress. Call NewGame or
// Restore before playing.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{clock: time.Now, rng: ambientRand{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns a deep copy of the current state.
func (e *Engine) State() GameState { return e.state.Clone() }

// Phase returns the current phase, "" before the first round.
func (e *Engine) Phase() Phase { return e.state.Phase }

// NewGame shuffles deck.AllCards() and deals a fresh round, replacing the
// whole state. A non-nil seed makes the shuffle, and every later reshuffle,
// reproducible.
func (e *Engine) NewGame(deck Deck, seed *uint64) {
	var rng Rand = ambientRand{}
	var stateSeed *uint64
	if seed != nil {
		s := *seed
		stateSeed = &s
		rng = NewXorshift64(s)
	}
	e.rng = rng

	cards := deck.AllCards()
	Shuffle(cards, rng)
	tableau, stock := deal(cards)

	e.state = GameState{
		Deck:              deck,
		Seed:              stateSeed,
		Stock:             stock,
		Waste:             []Card{},
		Tableau:           tableau,
		CompletedGroups:   []string{},
		UsedPartnerLabels: make(map[string]bool),
		StartedAt:         e.clock().UTC(),
		Phase:             PhasePlaying,
	}
	for i := range e.state.Foundations {
		e.state.Foundations[i].Cards = []Card{}
	}
	e.state.recomputeUsedLabels()
	e.syncRNG()
	e.emit(Event{Type: EventStateChanged})
}

// deal lays out the triangular tableau: pile i receives i+1 cards and only
// its last card is face up. Whatever remains becomes the stock. Small decks
// leave the right-most piles short or empty.
func deal(cards []Card) (tableau [][]TableauCard, stock []Card) {
	tableau = make([][]TableauCard, TableauPiles)
	next := 0
	for i := 0; i < TableauPiles; i++ {
		pile := make([]TableauCard, 0, i+1)
		for j := 0; j <= i && next < len(cards); j++ {
			pile = append(pile, TableauCard{Card: cards[next]})
			next++
		}
		if n := len(pile); n > 0 {
			pile[n-1].FaceUp = true
		}
		tableau[i] = pile
	}
	stock = make([]Card, len(cards)-next)
	copy(stock, cards[next:])
	return tableau, stock
}

// Restore replaces the current round with a previously persisted state. The
// state must be well-formed: the right number of piles and every deck card
// accounted for.
func (e *Engine) Restore(state GameState) error {
	if len(state.Tableau) != TableauPiles {
		return fmt.Errorf("restore: want %d tableau piles, got %d", TableauPiles, len(state.Tableau))
	}
	if state.Phase != PhasePlaying && state.Phase != PhaseWon {
		return fmt.Errorf("restore: unknown phase %q", state.Phase)
	}
	if err := state.CheckConservation(); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	st := state.Clone()
	if st.UsedPartnerLabels == nil {
		st.UsedPartnerLabels = make(map[string]bool)
	}
	if st.CompletedGroups == nil {
		st.CompletedGroups = []string{}
	}
	e.state = st
	if st.RNG != 0 {
		e.rng = NewXorshift64(st.RNG)
	} else {
		e.rng = ambientRand{}
	}
	e.emit(Event{Type: EventStateChanged})
	return nil
}

// Tick adds d to the elapsed play time. The engine runs no timers; callers
// that display a clock report time through Tick. It does not notify.
func (e *Engine) Tick(d time.Duration) {
	if e.state.Phase != PhasePlaying || d <= 0 {
		return
	}
	e.state.Elapsed += d
}

// syncRNG copies the seeded generator's position into the state.
func (e *Engine) syncRNG() {
	if x, ok := e.rng.(*Xorshift64); ok {
		e.state.RNG = x.State()
		return
	}
	e.state.RNG = 0
}
