// engine_adapter.go bridges client payloads and engine values.
package game

import (
	"fmt"

	"github.com/jason-s-yu/groupsolitaire/engine"
)

// PileTarget is a pile as named by clients: {"kind":"tableau","index":3}.
type PileTarget struct {
	Kind  string `json:"kind"`
	Index int    `json:"index"`
}

// toRef converts the wire form into an engine pile reference. Index bounds
// are left to the engine.
func (p *PileTarget) toRef() (engine.PileRef, error) {
	if p == nil {
		return engine.PileRef{}, fmt.Errorf("%w: missing pile", ErrBadPayload)
	}
	kind, err := engine.ParsePileKind(p.Kind)
	if err != nil {
		return engine.PileRef{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	switch kind {
	case engine.PileTableau:
		return engine.Tableau(p.Index), nil
	case engine.PileFoundation:
		return engine.Foundation(p.Index), nil
	case engine.PileWaste:
		return engine.Waste(), nil
	default:
		return engine.Stock(), nil
	}
}

func pileTargetOf(ref engine.PileRef) PileTarget {
	return PileTarget{Kind: ref.Kind.String(), Index: ref.Index}
}

// MoveHint is a suggested action in wire form.
type MoveHint struct {
	Type    ActionType `json:"type"`
	CardIDs []string   `json:"cardIds,omitempty"`
	Source  PileTarget `json:"source"`
	Target  PileTarget `json:"target"`
}

// Action returns the client action that performs the hint.
func (h MoveHint) Action() Action {
	src, dst := h.Source, h.Target
	return Action{Type: h.Type, CardIDs: h.CardIDs, Source: &src, Target: &dst}
}

func hintOf(opt engine.MoveOption) MoveHint {
	h := MoveHint{
		Type:   ActionType(opt.Kind),
		Source: pileTargetOf(opt.Source),
		Target: pileTargetOf(opt.Target),
	}
	for _, c := range opt.Cards {
		h.CardIDs = append(h.CardIDs, c.ID)
	}
	return h
}

// resolveCards looks up card ids in the round's deck.
// Assumes lock is held by caller.
func (s *Session) resolveCards(ids []string) ([]engine.Card, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no cards given", ErrBadPayload)
	}
	cards := make([]engine.Card, len(ids))
	for i, id := range ids {
		c, ok := s.cardIndex[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCard, id)
		}
		cards[i] = c
	}
	return cards, nil
}
