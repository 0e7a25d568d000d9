package engine

import "fmt"

// Role distinguishes the single anchoring card of a group from its partners.
type Role string

const (
	RoleBase    Role = "base"
	RolePartner Role = "partner"
)

// Card is immutable value data. ID is globally unique: the raw id of the card
// inside its group definition, scoped by the group id.
type Card struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Role    Role   `json:"role"`
	GroupID string `json:"groupId"`
	Image   string `json:"image,omitempty"`

	// PossibleGroupIDs lists every group in the deck holding a partner card
	// with the same normalized label. Informational only.
	PossibleGroupIDs []string `json:"possibleGroupIds,omitempty"`
}

// IsBase reports whether c anchors its group.
func (c Card) IsBase() bool { return c.Role == RoleBase }

// IsPartner reports whether c is a non-base member of its group.
func (c Card) IsPartner() bool { return c.Role == RolePartner }

// ScopedCardID returns the runtime id for a card whose definition id is rawID.
func ScopedCardID(groupID, rawID string) string {
	return groupID + "_" + rawID
}

// GroupMetadata is descriptive data carried from the group definition.
type GroupMetadata struct {
	Difficulty string `json:"difficulty,omitempty"`
	Source     string `json:"source,omitempty"`
	Continent  string `json:"continent,omitempty"`
	Category   string `json:"category,omitempty"`
	Country    string `json:"country,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Group is a thematic set: exactly one base card followed by its partners.
type Group struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Cards    []Card        `json:"cards"`
	Metadata GroupMetadata `json:"metadata"`
}

// NewGroup assembles a group with the base card first.
func NewGroup(id, name string, base Card, partners []Card) Group {
	cards := make([]Card, 0, 1+len(partners))
	cards = append(cards, base)
	cards = append(cards, partners...)
	return Group{ID: id, Name: name, Cards: cards}
}

// BaseCard returns the group's base card.
func (g Group) BaseCard() Card {
	for _, c := range g.Cards {
		if c.IsBase() {
			return c
		}
	}
	return Card{}
}

// PartnerCards returns the group's partners in definition order.
func (g Group) PartnerCards() []Card {
	out := make([]Card, 0, len(g.Cards))
	for _, c := range g.Cards {
		if c.IsPartner() {
			out = append(out, c)
		}
	}
	return out
}

// Size returns 1 + the number of partners.
func (g Group) Size() int { return len(g.Cards) }

// Deck is the ordered set of groups chosen for a round.
type Deck struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name,omitempty"`
	Groups []Group `json:"groups"`
	Seed   *uint64 `json:"seed,omitempty"`
}

// AllCards flattens every group's cards in group order.
func (d Deck) AllCards() []Card {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Cards)
	}
	out := make([]Card, 0, n)
	for _, g := range d.Groups {
		out = append(out, g.Cards...)
	}
	return out
}

// CardCount returns len(d.AllCards()) without allocating.
func (d Deck) CardCount() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Cards)
	}
	return n
}

// GroupCount returns the number of groups in the deck.
func (d Deck) GroupCount() int { return len(d.Groups) }

// Group looks up a group by id.
func (d Deck) Group(id string) (Group, bool) {
	for _, g := range d.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

// ---------------------------------------------------------------------------
// Pile references
// ---------------------------------------------------------------------------

// PileKind identifies one of the four kinds of pile on the table.
type PileKind uint8

const (
	PileStock PileKind = iota
	PileWaste
	PileTableau
	PileFoundation
)

func (k PileKind) String() string {
	switch k {
	case PileStock:
		return "stock"
	case PileWaste:
		return "waste"
	case PileTableau:
		return "tableau"
	case PileFoundation:
		return "foundation"
	default:
		return "unknown"
	}
}

// PileRef names a pile. Index is only meaningful for tableau and foundation
// piles; constructors keep it zero for stock and waste.
type PileRef struct {
	Kind  PileKind `json:"kind"`
	Index int      `json:"index,omitempty"`
}

func Stock() PileRef           { return PileRef{Kind: PileStock} }
func Waste() PileRef           { return PileRef{Kind: PileWaste} }
func Tableau(i int) PileRef    { return PileRef{Kind: PileTableau, Index: i} }
func Foundation(i int) PileRef { return PileRef{Kind: PileFoundation, Index: i} }

func (p PileRef) IsTableau() bool    { return p.Kind == PileTableau }
func (p PileRef) IsFoundation() bool { return p.Kind == PileFoundation }

func (p PileRef) String() string {
	switch p.Kind {
	case PileTableau, PileFoundation:
		return fmt.Sprintf("%s(%d)", p.Kind, p.Index)
	default:
		return p.Kind.String()
	}
}

// ParsePileKind converts a wire name back into a PileKind.
func ParsePileKind(s string) (PileKind, error) {
	switch s {
	case "stock":
		return PileStock, nil
	case "waste":
		return PileWaste, nil
	case "tableau":
		return PileTableau, nil
	case "foundation":
		return PileFoundation, nil
	}
	return 0, fmt.Errorf("unknown pile kind %q", s)
}
