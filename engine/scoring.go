package engine

import "time"

// Summary is a read-only digest of a round's progress.
type Summary struct {
	Phase            Phase         `json:"phase"`
	Moves            int           `json:"moves"`
	Elapsed          time.Duration `json:"elapsed"`
	GroupCount       int           `json:"groupCount"`
	CompletedGroups  int           `json:"completedGroups"`
	RemainingGroups  int           `json:"remainingGroups"`
	ClearedCardCount int           `json:"clearedCardCount"`
	CardsInPlay      int           `json:"cardsInPlay"`
	StockCount       int           `json:"stockCount"`
	WasteCount       int           `json:"wasteCount"`
	FaceDownCount    int           `json:"faceDownCount"`
}

// Summary computes the digest of g.
func (g *GameState) Summary() Summary {
	faceDown := 0
	for _, pile := range g.Tableau {
		for _, tc := range pile {
			if !tc.FaceUp {
				faceDown++
			}
		}
	}
	total := g.Deck.GroupCount()
	return Summary{
		Phase:            g.Phase,
		Moves:            g.Moves,
		Elapsed:          g.Elapsed,
		GroupCount:       total,
		CompletedGroups:  len(g.CompletedGroups),
		RemainingGroups:  total - len(g.CompletedGroups),
		ClearedCardCount: g.ClearedCardCount,
		CardsInPlay:      g.CardsInPlay(),
		StockCount:       len(g.Stock),
		WasteCount:       len(g.Waste),
		FaceDownCount:    faceDown,
	}
}

// Summary returns the digest of the current round.
func (e *Engine) Summary() Summary { return e.state.Summary() }
