package engine

// Validation is the outcome of a legality check. The zero value is valid.
type Validation struct {
	Reason string `json:"reason,omitempty"`
}

// Valid is the successful outcome.
var Valid = Validation{}

// Invalid returns a failed outcome carrying reason.
func Invalid(reason string) Validation { return Validation{Reason: reason} }

// OK reports whether the move is legal.
func (v Validation) OK() bool { return v.Reason == "" }

func (v Validation) String() string {
	if v.OK() {
		return "valid"
	}
	return "invalid: " + v.Reason
}

// Reasons reported by the rules and the engine.
const (
	ReasonFoundationNeedsBase = "only a base card opens a foundation"
	ReasonSecondBase          = "cannot start a second base on an occupied foundation"
	ReasonWrongGroup          = "wrong group"
	ReasonFaceDownTarget      = "target card is face down"
	ReasonMismatch            = "cards must match group and role to stack"
	ReasonIndexOutOfRange     = "index out of range"
	ReasonBadTarget           = "cards cannot be placed on the stock or waste"
	ReasonBadSource           = "cards cannot be moved from this pile"
	ReasonSamePile            = "source and target are the same pile"
	ReasonNotOnTop            = "card is not on top of the source pile"
	ReasonFaceDownSource      = "card is face down"
	ReasonEmptyStack          = "no cards to move"
	ReasonStackToFoundation   = "stacks cannot be dropped onto a foundation"
	ReasonGameOver            = "game is over"
)

// CanPlaceOnFoundation decides whether card may go on top of pile.
func CanPlaceOnFoundation(card Card, pile FoundationPile) Validation {
	if pile.IsEmpty() {
		if card.IsBase() {
			return Valid
		}
		return Invalid(ReasonFoundationNeedsBase)
	}
	if card.IsBase() {
		return Invalid(ReasonSecondBase)
	}
	if card.GroupID != pile.GroupID() {
		return Invalid(ReasonWrongGroup)
	}
	return Valid
}

// CanPlaceOnTableau decides whether card may go on top of pile (bottom to
// top). An empty pile accepts any card; otherwise the top card must be face
// up and share both role and group with card.
func CanPlaceOnTableau(card Card, pile []TableauCard) Validation {
	top, ok := topTableau(pile)
	if !ok {
		return Valid
	}
	if !top.FaceUp {
		return Invalid(ReasonFaceDownTarget)
	}
	if top.Role != card.Role || top.GroupID != card.GroupID {
		return Invalid(ReasonMismatch)
	}
	return Valid
}

// Validate dispatches to the foundation or tableau check according to target.
// source is accepted for symmetry with the engine's move signature; legality
// depends only on the card and the target.
func Validate(card Card, source, target PileRef, foundations []FoundationPile, tableau [][]TableauCard) Validation {
	switch target.Kind {
	case PileFoundation:
		if target.Index < 0 || target.Index >= len(foundations) {
			return Invalid(ReasonIndexOutOfRange)
		}
		return CanPlaceOnFoundation(card, foundations[target.Index])
	case PileTableau:
		if target.Index < 0 || target.Index >= len(tableau) {
			return Invalid(ReasonIndexOutOfRange)
		}
		return CanPlaceOnTableau(card, tableau[target.Index])
	default:
		return Invalid(ReasonBadTarget)
	}
}

// CheckGroupCompletion returns the group id anchoring foundations[i] when the
// pile holds every card of that group.
func CheckGroupCompletion(i int, foundations []FoundationPile, deck Deck) (string, bool) {
	if i < 0 || i >= len(foundations) {
		return "", false
	}
	pile := foundations[i]
	if pile.IsEmpty() {
		return "", false
	}
	group, ok := deck.Group(pile.Cards[0].GroupID)
	if !ok {
		return "", false
	}
	if pile.Len() != 1+len(group.PartnerCards()) {
		return "", false
	}
	return group.ID, true
}

// MovableStack returns the indices of the maximal run starting at start in
// which every card is face up and matches its predecessor's group and role.
// It returns nil when start is out of range or the start card is face down.
func MovableStack(pile []TableauCard, start int) []int {
	if start < 0 || start >= len(pile) || !pile[start].FaceUp {
		return nil
	}
	run := []int{start}
	for i := start + 1; i < len(pile); i++ {
		prev, cur := pile[i-1], pile[i]
		if !cur.FaceUp || cur.GroupID != prev.GroupID || cur.Role != prev.Role {
			break
		}
		run = append(run, i)
	}
	return run
}

// CanReshuffle reports whether the waste may be turned back into the stock.
func CanReshuffle(stock, waste []Card) bool {
	return len(stock) == 0 && len(waste) > 0
}
