package deck

import (
	"errors"
	"fmt"

	"github.com/jason-s-yu/groupsolitaire/engine"
)

// ErrInvalidDefinition is wrapped by every error returned from
// GroupDefinition.Validate.
var ErrInvalidDefinition = errors.New("invalid group definition")

// CardDefinition is one card as written in a group definition file. IDs only
// need to be unique within their group.
type CardDefinition struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Type  string  `json:"type"`
	Image *string `json:"image"`
}

// GroupMetadata is the optional descriptive block of a group definition.
type GroupMetadata struct {
	Difficulty string `json:"difficulty,omitempty"`
	Source     string `json:"source,omitempty"`
	Continent  string `json:"continent,omitempty"`
	Category   string `json:"category,omitempty"`
	Country    string `json:"country,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// GroupDefinition is the external record describing one thematic group.
type GroupDefinition struct {
	GroupID      string           `json:"group_id"`
	GroupName    string           `json:"group_name"`
	BaseCard     CardDefinition   `json:"base_card"`
	PartnerCards []CardDefinition `json:"partner_cards"`
	Metadata     *GroupMetadata   `json:"metadata,omitempty"`
}

// DeckDefinition is the external record of a named deck.
type DeckDefinition struct {
	DeckID      string            `json:"deck_id"`
	DeckName    string            `json:"deck_name"`
	Groups      []string          `json:"groups"`
	ShuffleSeed *uint64           `json:"shuffle_seed"`
	Metadata    map[string]string `json:"metadata"`
}

// Validate rejects definitions the engine cannot play: a missing id, a base
// card that is not typed "base", no partners, or repeated card ids.
func (d GroupDefinition) Validate() error {
	if d.GroupID == "" {
		return fmt.Errorf("%w: missing group_id", ErrInvalidDefinition)
	}
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w %q: %s", ErrInvalidDefinition, d.GroupID, fmt.Sprintf(format, args...))
	}
	if d.BaseCard.ID == "" {
		return invalid("base card has no id")
	}
	if d.BaseCard.Type != string(engine.RoleBase) {
		return invalid("base card %q has type %q", d.BaseCard.ID, d.BaseCard.Type)
	}
	if len(d.PartnerCards) == 0 {
		return invalid("no partner cards")
	}
	seen := map[string]bool{d.BaseCard.ID: true}
	for _, p := range d.PartnerCards {
		if p.ID == "" {
			return invalid("partner card has no id")
		}
		if p.Type != string(engine.RolePartner) {
			return invalid("partner card %q has type %q", p.ID, p.Type)
		}
		if seen[p.ID] {
			return invalid("duplicate card id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// Resolve validates d and converts it into a runtime group with scoped card
// ids.
func (d GroupDefinition) Resolve() (engine.Group, error) {
	if err := d.Validate(); err != nil {
		return engine.Group{}, err
	}
	base := d.card(d.BaseCard, engine.RoleBase)
	partners := make([]engine.Card, len(d.PartnerCards))
	for i, p := range d.PartnerCards {
		partners[i] = d.card(p, engine.RolePartner)
	}
	g := engine.NewGroup(d.GroupID, d.GroupName, base, partners)
	if m := d.Metadata; m != nil {
		g.Metadata = engine.GroupMetadata{
			Difficulty: m.Difficulty,
			Source:     m.Source,
			Continent:  m.Continent,
			Category:   m.Category,
			Country:    m.Country,
			Notes:      m.Notes,
		}
	}
	return g, nil
}

func (d GroupDefinition) card(c CardDefinition, role engine.Role) engine.Card {
	card := engine.Card{
		ID:      engine.ScopedCardID(d.GroupID, c.ID),
		Label:   c.Label,
		Role:    role,
		GroupID: d.GroupID,
	}
	if c.Image != nil {
		card.Image = *c.Image
	}
	return card
}
