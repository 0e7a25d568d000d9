package engine

// ReasonNoGame is reported when a move is attempted before NewGame.
const ReasonNoGame = "no game in progress"

// DrawFromStock moves the top stock card onto the waste. Drawing from an
// empty stock is a silent no-op.
func (e *Engine) DrawFromStock() {
	g := &e.state
	if g.Phase != PhasePlaying || len(g.Stock) == 0 {
		return
	}
	n := len(g.Stock) - 1
	drawn := g.Stock[n]
	g.Stock = g.Stock[:n]
	g.Waste = append(g.Waste, drawn)
	g.Moves++
	e.emit(Event{Type: EventStateChanged})
}

// Reshuffle turns the waste back into a randomly ordered stock. It is a
// no-op unless CanReshuffle holds.
func (e *Engine) Reshuffle() {
	g := &e.state
	if g.Phase != PhasePlaying || !CanReshuffle(g.Stock, g.Waste) {
		return
	}
	cards := cloneCards(g.Waste)
	Shuffle(cards, e.rng)
	g.Stock = cards
	g.Waste = []Card{}
	e.syncRNG()
	g.Moves++
	e.emit(Event{Type: EventStateChanged})
}

// Move moves a single card from the top of source onto target. Illegal moves
// return the failure and leave the state untouched.
func (e *Engine) Move(card Card, source, target PileRef) Validation {
	if v := e.checkPlaying(); !v.OK() {
		return v
	}
	if source == target {
		return Invalid(ReasonSamePile)
	}
	cards, v := e.checkSource(source, []Card{card})
	if !v.OK() {
		return v
	}
	g := &e.state
	if v := Validate(cards[0], source, target, g.Foundations[:], g.Tableau); !v.OK() {
		return v
	}
	e.commit(source, target, cards)
	return Valid
}

// MoveStack moves a run of cards, bottom first, from the top of source onto a
// tableau pile. Only the first card is checked against the target; the run's
// own cohesion comes from MovableStack.
func (e *Engine) MoveStack(cards []Card, source, target PileRef) Validation {
	if v := e.checkPlaying(); !v.OK() {
		return v
	}
	if len(cards) == 0 {
		return Invalid(ReasonEmptyStack)
	}
	switch target.Kind {
	case PileTableau:
	case PileFoundation:
		return Invalid(ReasonStackToFoundation)
	default:
		return Invalid(ReasonBadTarget)
	}
	if source == target {
		return Invalid(ReasonSamePile)
	}
	cards, v := e.checkSource(source, cards)
	if !v.OK() {
		return v
	}
	g := &e.state
	if v := Validate(cards[0], source, target, g.Foundations[:], g.Tableau); !v.OK() {
		return v
	}
	e.commit(source, target, cards)
	return Valid
}

// MoveStackToFoundation moves a run of cards onto a foundation in one
// gesture. Each card is checked against a copy of the foundation that grows
// as the earlier cards are accepted, so a base followed by its partners is
// legal on an empty slot. Any failure rejects the whole move.
func (e *Engine) MoveStackToFoundation(cards []Card, source PileRef, foundationIndex int) Validation {
	if v := e.checkPlaying(); !v.OK() {
		return v
	}
	if len(cards) == 0 {
		return Invalid(ReasonEmptyStack)
	}
	g := &e.state
	if foundationIndex < 0 || foundationIndex >= len(g.Foundations) {
		return Invalid(ReasonIndexOutOfRange)
	}
	target := Foundation(foundationIndex)
	if source == target {
		return Invalid(ReasonSamePile)
	}
	cards, v := e.checkSource(source, cards)
	if !v.OK() {
		return v
	}
	sim := FoundationPile{Cards: cloneCards(g.Foundations[foundationIndex].Cards)}
	for _, c := range cards {
		if v := CanPlaceOnFoundation(c, sim); !v.OK() {
			return v
		}
		sim.Cards = append(sim.Cards, c)
	}
	e.commit(source, target, cards)
	return Valid
}

func (e *Engine) checkPlaying() Validation {
	switch e.state.Phase {
	case PhasePlaying:
		return Valid
	case PhaseWon:
		return Invalid(ReasonGameOver)
	default:
		return Invalid(ReasonNoGame)
	}
}

// checkSource verifies that cards are, in order, the top len(cards) cards of
// source, matched by ID, and returns the pile's own copies. Indices may come
// from stale UI state, so every lookup is bounded.
func (e *Engine) checkSource(source PileRef, cards []Card) ([]Card, Validation) {
	g := &e.state
	switch source.Kind {
	case PileWaste:
		if len(cards) != 1 {
			return nil, Invalid(ReasonBadSource)
		}
		top, ok := topCard(g.Waste)
		if !ok || top.ID != cards[0].ID {
			return nil, Invalid(ReasonNotOnTop)
		}
		return []Card{top}, Valid

	case PileFoundation:
		if source.Index < 0 || source.Index >= len(g.Foundations) {
			return nil, Invalid(ReasonIndexOutOfRange)
		}
		if len(cards) != 1 {
			return nil, Invalid(ReasonBadSource)
		}
		top, ok := g.Foundations[source.Index].TopCard()
		if !ok || top.ID != cards[0].ID {
			return nil, Invalid(ReasonNotOnTop)
		}
		return []Card{top}, Valid

	case PileTableau:
		if source.Index < 0 || source.Index >= len(g.Tableau) {
			return nil, Invalid(ReasonIndexOutOfRange)
		}
		pile := g.Tableau[source.Index]
		if len(cards) > len(pile) {
			return nil, Invalid(ReasonNotOnTop)
		}
		base := len(pile) - len(cards)
		own := make([]Card, len(cards))
		for k, c := range cards {
			tc := pile[base+k]
			if tc.ID != c.ID {
				return nil, Invalid(ReasonNotOnTop)
			}
			if !tc.FaceUp {
				return nil, Invalid(ReasonFaceDownSource)
			}
			own[k] = tc.Card
		}
		return own, Valid

	default:
		return nil, Invalid(ReasonBadSource)
	}
}

// commit performs an already validated move and its bookkeeping.
func (e *Engine) commit(source, target PileRef, cards []Card) {
	g := &e.state
	e.take(source, len(cards))
	e.place(target, cards)

	if source.IsTableau() {
		g.reveal(source.Index)
	}

	var events []Event
	if target.IsFoundation() {
		if groupID, ok := e.clearIfComplete(target.Index); ok {
			events = append(events, Event{Type: EventGroupCompleted, GroupID: groupID})
		}
	}
	g.recomputeUsedLabels()
	g.Moves++

	won := false
	if len(events) > 0 && len(g.CompletedGroups) == g.Deck.GroupCount() {
		g.Phase = PhaseWon
		won = true
	}

	for _, ev := range events {
		e.emit(ev)
	}
	e.emit(Event{Type: EventStateChanged})
	if won {
		e.emit(Event{Type: EventWon})
	}
}

func (e *Engine) take(source PileRef, n int) {
	g := &e.state
	switch source.Kind {
	case PileWaste:
		g.Waste = g.Waste[:len(g.Waste)-n]
	case PileFoundation:
		f := &g.Foundations[source.Index]
		f.Cards = f.Cards[:len(f.Cards)-n]
	case PileTableau:
		pile := g.Tableau[source.Index]
		g.Tableau[source.Index] = pile[:len(pile)-n]
	}
}

func (e *Engine) place(target PileRef, cards []Card) {
	g := &e.state
	switch target.Kind {
	case PileFoundation:
		f := &g.Foundations[target.Index]
		f.Cards = append(f.Cards, cards...)
	case PileTableau:
		for _, c := range cards {
			g.Tableau[target.Index] = append(g.Tableau[target.Index], TableauCard{Card: c, FaceUp: true})
		}
	}
}

// clearIfComplete removes a fully assembled group from foundation i and
// reveals the top card of every tableau pile.
func (e *Engine) clearIfComplete(i int) (string, bool) {
	g := &e.state
	groupID, ok := CheckGroupCompletion(i, g.Foundations[:], g.Deck)
	if !ok {
		return "", false
	}
	g.ClearedCardCount += g.Foundations[i].Len()
	g.Foundations[i].Cards = []Card{}
	if !g.IsCompleted(groupID) {
		g.CompletedGroups = append(g.CompletedGroups, groupID)
	}
	for p := range g.Tableau {
		g.reveal(p)
	}
	return groupID, true
}

// reveal turns the top card of tableau pile i face up.
func (g *GameState) reveal(i int) {
	pile := g.Tableau[i]
	if n := len(pile); n > 0 && !pile[n-1].FaceUp {
		pile[n-1].FaceUp = true
	}
}

// recomputeUsedLabels rebuilds UsedPartnerLabels from the partner cards that
// are face up in the tableau or sitting on a foundation. A moved partner is
// always one of those; cleared groups drop out of play and release theirs.
func (g *GameState) recomputeUsedLabels() {
	used := make(map[string]bool)
	for _, pile := range g.Tableau {
		for _, tc := range pile {
			if tc.FaceUp && tc.IsPartner() {
				used[NormalizeLabel(tc.Label)] = true
			}
		}
	}
	for _, f := range g.Foundations {
		for _, c := range f.Cards {
			if c.IsPartner() {
				used[NormalizeLabel(c.Label)] = true
			}
		}
	}
	g.UsedPartnerLabels = used
}
