// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"

	"github.com/jason-s-yu/groupsolitaire/engine"
)

// ObfCard is a card as sent to the client. Face-down cards are sent with
// Known=false and no identifying details.
type ObfCard struct {
	Known            bool     `json:"known"`
	ID               string   `json:"id,omitempty"`
	Label            string   `json:"label,omitempty"`
	Role             string   `json:"role,omitempty"`
	GroupID          string   `json:"groupId,omitempty"`
	Image            string   `json:"image,omitempty"`
	PossibleGroupIDs []string `json:"possibleGroupIds,omitempty"`
}

// ObfGroup summarises one group of the deck for the client.
type ObfGroup struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int    `json:"size"`
	Completed bool   `json:"completed"`
}

// ObfGameState is the game state as a client may see it: stock contents and
// face-down tableau cards are hidden.
type ObfGameState struct {
	GameID       uuid.UUID      `json:"gameId"`
	Phase        engine.Phase   `json:"phase"`
	DeckID       string         `json:"deckId,omitempty"`
	DeckName     string         `json:"deckName,omitempty"`
	Groups       []ObfGroup     `json:"groups"`
	StockSize    int            `json:"stockSize"`
	Waste        []ObfCard      `json:"waste"`
	Foundations  [][]ObfCard    `json:"foundations"`
	Tableau      [][]ObfCard    `json:"tableau"`
	CanReshuffle bool           `json:"canReshuffle"`
	Stuck        bool           `json:"stuck"`
	Summary      engine.Summary `json:"summary"`
}

func knownCard(c engine.Card) ObfCard {
	return ObfCard{
		Known:            true,
		ID:               c.ID,
		Label:            c.Label,
		Role:             string(c.Role),
		GroupID:          c.GroupID,
		Image:            c.Image,
		PossibleGroupIDs: c.PossibleGroupIDs,
	}
}

func knownCards(cards []engine.Card) []ObfCard {
	out := make([]ObfCard, len(cards))
	for i, c := range cards {
		out[i] = knownCard(c)
	}
	return out
}

// GetCurrentObfuscatedGameState renders the current round for clients.
// Assumes lock is held by caller.
func (s *Session) GetCurrentObfuscatedGameState() ObfGameState {
	st := s.engine.State()
	obf := ObfGameState{
		GameID:       s.ID,
		Phase:        st.Phase,
		DeckID:       st.Deck.ID,
		DeckName:     st.Deck.Name,
		StockSize:    len(st.Stock),
		Waste:        knownCards(st.Waste),
		CanReshuffle: engine.CanReshuffle(st.Stock, st.Waste),
		Stuck:        st.Phase == engine.PhasePlaying && !st.HasLegalMoves(),
		Summary:      st.Summary(),
	}

	obf.Groups = make([]ObfGroup, len(st.Deck.Groups))
	for i, g := range st.Deck.Groups {
		obf.Groups[i] = ObfGroup{ID: g.ID, Name: g.Name, Size: g.Size(), Completed: st.IsCompleted(g.ID)}
	}

	obf.Foundations = make([][]ObfCard, len(st.Foundations))
	for i, f := range st.Foundations {
		obf.Foundations[i] = knownCards(f.Cards)
	}

	obf.Tableau = make([][]ObfCard, len(st.Tableau))
	for i, pile := range st.Tableau {
		cards := make([]ObfCard, len(pile))
		for j, tc := range pile {
			if tc.FaceUp {
				cards[j] = knownCard(tc.Card)
			}
		}
		obf.Tableau[i] = cards
	}
	return obf
}
