package engine

import "fmt"

// IsWon reports whether every group of the deck has been completed.
func (g *GameState) IsWon() bool { return g.Phase == PhaseWon }

// IsCompleted reports whether groupID has been assembled and cleared.
func (g *GameState) IsCompleted(groupID string) bool {
	for _, id := range g.CompletedGroups {
		if id == groupID {
			return true
		}
	}
	return false
}

// CardsInPlay counts the cards still on the table, in any pile.
func (g *GameState) CardsInPlay() int {
	n := len(g.Stock) + len(g.Waste)
	for _, f := range g.Foundations {
		n += f.Len()
	}
	for _, pile := range g.Tableau {
		n += len(pile)
	}
	return n
}

// CheckConservation verifies the closed-system invariant: every card of the
// deck is either on the table or has been cleared with its group.
func (g *GameState) CheckConservation() error {
	inPlay := g.CardsInPlay()
	want := g.Deck.CardCount()
	if inPlay+g.ClearedCardCount != want {
		return fmt.Errorf("card count mismatch: %d in play + %d cleared != %d in deck",
			inPlay, g.ClearedCardCount, want)
	}
	return nil
}

// CheckFoundations verifies that every non-empty foundation is a base card
// followed only by partners of the same group.
func (g *GameState) CheckFoundations() error {
	for i, f := range g.Foundations {
		if f.IsEmpty() {
			continue
		}
		if !f.Cards[0].IsBase() {
			return fmt.Errorf("foundation %d: bottom card %s is not a base", i, f.Cards[0].ID)
		}
		for _, c := range f.Cards[1:] {
			if !c.IsPartner() || c.GroupID != f.GroupID() {
				return fmt.Errorf("foundation %d: card %s does not belong on group %s", i, c.ID, f.GroupID())
			}
		}
	}
	return nil
}

// IsWon reports whether the current round has been won.
func (e *Engine) IsWon() bool { return e.state.IsWon() }
