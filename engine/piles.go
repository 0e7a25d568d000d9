package engine

// TableauCard is a card dealt into a tableau pile together with its facing.
type TableauCard struct {
	Card
	FaceUp bool `json:"faceUp"`
}

// FoundationPile is a stack of cards, bottom to top, anchored by a base card
// once non-empty.
type FoundationPile struct {
	Cards []Card `json:"cards"`
}

// IsEmpty reports whether the pile holds no cards.
func (f FoundationPile) IsEmpty() bool { return len(f.Cards) == 0 }

// Len returns the number of cards on the pile.
func (f FoundationPile) Len() int { return len(f.Cards) }

// GroupID returns the group of the anchoring card, or "" for an empty pile.
func (f FoundationPile) GroupID() string {
	if len(f.Cards) == 0 {
		return ""
	}
	return f.Cards[0].GroupID
}

// TopCard returns the top card, if any.
func (f FoundationPile) TopCard() (Card, bool) {
	if len(f.Cards) == 0 {
		return Card{}, false
	}
	return f.Cards[len(f.Cards)-1], true
}

// topTableau returns the top card of a tableau pile, if any.
func topTableau(pile []TableauCard) (TableauCard, bool) {
	if len(pile) == 0 {
		return TableauCard{}, false
	}
	return pile[len(pile)-1], true
}

// topCard returns the last card of a plain card pile.
func topCard(pile []Card) (Card, bool) {
	if len(pile) == 0 {
		return Card{}, false
	}
	return pile[len(pile)-1], true
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}

func cloneTableau(pile []TableauCard) []TableauCard {
	if pile == nil {
		return nil
	}
	out := make([]TableauCard, len(pile))
	copy(out, pile)
	return out
}
