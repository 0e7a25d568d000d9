package game

import "github.com/jason-s-yu/groupsolitaire/engine"

// Reasons carried by a hint event that has no move to suggest.
const (
	HintReasonStuck    = "no legal moves remain"
	HintReasonGameOver = "game is over"
)

// Hint ranks, lowest first.
const (
	rankFoundation = iota
	rankReveal
	rankFromWaste
	rankTableau
	rankDraw
	rankReshuffle
)

// SuggestMove picks the most useful legal move in g: building a foundation,
// then uncovering a face-down card, then playing the waste, then any other
// tableau move, then drawing and finally reshuffling.
func SuggestMove(g engine.GameState) (engine.MoveOption, bool) {
	var (
		best     engine.MoveOption
		bestRank = -1
	)
	for _, opt := range g.LegalMoves() {
		r := hintRank(g, opt)
		if bestRank < 0 || r < bestRank {
			best, bestRank = opt, r
		}
	}
	return best, bestRank >= 0
}

func hintRank(g engine.GameState, opt engine.MoveOption) int {
	switch {
	case opt.Kind == engine.MoveDraw:
		return rankDraw
	case opt.Kind == engine.MoveReshuffle:
		return rankReshuffle
	case opt.Target.IsFoundation():
		return rankFoundation
	case opt.Source.IsTableau():
		pile := g.Tableau[opt.Source.Index]
		if under := len(pile) - len(opt.Cards) - 1; under >= 0 && !pile[under].FaceUp {
			return rankReveal
		}
		return rankTableau
	default:
		return rankFromWaste
	}
}

// sendHint broadcasts the suggested move, or the reason there is none.
// Assumes lock is held by caller.
func (s *Session) sendHint() {
	st := s.engine.State()
	if st.Phase != engine.PhasePlaying {
		s.fireEvent(GameEvent{Type: EventHint, Reason: HintReasonGameOver})
		return
	}
	opt, ok := SuggestMove(st)
	if !ok {
		s.fireEvent(GameEvent{Type: EventHint, Reason: HintReasonStuck})
		return
	}
	h := hintOf(opt)
	s.fireEvent(GameEvent{Type: EventHint, Hint: &h})
}
