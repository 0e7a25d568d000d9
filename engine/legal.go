package engine

// MoveKind names the engine operation a MoveOption maps to.
type MoveKind string

const (
	MoveDraw                MoveKind = "draw"
	MoveReshuffle           MoveKind = "reshuffle"
	MoveSingle              MoveKind = "move"
	MoveStackKind           MoveKind = "move_stack"
	MoveStackFoundationKind MoveKind = "move_stack_foundation"
)

// MoveOption is one legal action in the current state. Cards, Source and
// Target are empty for draw and reshuffle.
type MoveOption struct {
	Kind   MoveKind `json:"kind"`
	Cards  []Card   `json:"cards,omitempty"`
	Source PileRef  `json:"source"`
	Target PileRef  `json:"target"`
}

// LegalMoves enumerates the legal actions in g. It is meant for hints and
// stuck detection, so it skips moves that cannot change the position:
// shifting a whole pile onto another empty pile, and repeat targets among
// empty tableau piles. Foundation cards are never suggested back to the
// tableau.
func (g *GameState) LegalMoves() []MoveOption {
	if g.Phase != PhasePlaying {
		return nil
	}
	var moves []MoveOption

	if len(g.Stock) > 0 {
		moves = append(moves, MoveOption{Kind: MoveDraw, Source: Stock(), Target: Waste()})
	}
	if CanReshuffle(g.Stock, g.Waste) {
		moves = append(moves, MoveOption{Kind: MoveReshuffle, Source: Waste(), Target: Stock()})
	}

	if top, ok := topCard(g.Waste); ok {
		moves = append(moves, g.movesFor([]Card{top}, Waste(), false)...)
	}

	for i, pile := range g.Tableau {
		for start := range pile {
			run := MovableStack(pile, start)
			if len(run) == 0 || run[len(run)-1] != len(pile)-1 {
				continue
			}
			cards := make([]Card, len(run))
			for k, idx := range run {
				cards[k] = pile[idx].Card
			}
			moves = append(moves, g.movesFor(cards, Tableau(i), start == 0)...)
		}
	}
	return moves
}

// movesFor lists every target accepting cards taken from source. wholePile
// marks a run that empties its source pile.
func (g *GameState) movesFor(cards []Card, source PileRef, wholePile bool) []MoveOption {
	var out []MoveOption
	single := len(cards) == 1

	for f := range g.Foundations {
		sim := FoundationPile{Cards: cloneCards(g.Foundations[f].Cards)}
		ok := true
		for _, c := range cards {
			if !CanPlaceOnFoundation(c, sim).OK() {
				ok = false
				break
			}
			sim.Cards = append(sim.Cards, c)
		}
		if !ok {
			continue
		}
		kind := MoveStackFoundationKind
		if single {
			kind = MoveSingle
		}
		out = append(out, MoveOption{Kind: kind, Cards: cards, Source: source, Target: Foundation(f)})
		// Empty foundations are interchangeable.
		if g.Foundations[f].IsEmpty() {
			break
		}
	}

	offeredEmpty := false
	for t, pile := range g.Tableau {
		target := Tableau(t)
		if target == source {
			continue
		}
		if len(pile) == 0 {
			if offeredEmpty || wholePile {
				continue
			}
			offeredEmpty = true
		}
		if !CanPlaceOnTableau(cards[0], pile).OK() {
			continue
		}
		kind := MoveStackKind
		if single {
			kind = MoveSingle
		}
		out = append(out, MoveOption{Kind: kind, Cards: cards, Source: source, Target: target})
	}
	return out
}

// HasLegalMoves reports whether any action remains. A round with no legal
// moves and no win is stuck.
func (g *GameState) HasLegalMoves() bool { return len(g.LegalMoves()) > 0 }

// LegalMoves enumerates the legal actions of the current round.
func (e *Engine) LegalMoves() []MoveOption { return e.state.LegalMoves() }

// Apply performs opt through the matching engine operation.
func (e *Engine) Apply(opt MoveOption) Validation {
	switch opt.Kind {
	case MoveDraw:
		e.DrawFromStock()
		return Valid
	case MoveReshuffle:
		e.Reshuffle()
		return Valid
	case MoveSingle:
		if len(opt.Cards) != 1 {
			return Invalid(ReasonEmptyStack)
		}
		return e.Move(opt.Cards[0], opt.Source, opt.Target)
	case MoveStackKind:
		return e.MoveStack(opt.Cards, opt.Source, opt.Target)
	case MoveStackFoundationKind:
		if !opt.Target.IsFoundation() {
			return Invalid(ReasonBadTarget)
		}
		return e.MoveStackToFoundation(opt.Cards, opt.Source, opt.Target.Index)
	default:
		return Invalid("unknown move kind " + string(opt.Kind))
	}
}
