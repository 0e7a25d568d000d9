package deck

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jason-s-yu/groupsolitaire/engine"
)

const franceJSON = `{
  "group_id": "fr",
  "group_name": "France",
  "base_card": {"id": "flag", "label": "France", "type": "base", "image": "fr.png"},
  "partner_cards": [
    {"id": "paris", "label": "Paris", "type": "partner", "image": null},
    {"id": "lyon", "label": "Lyon", "type": "partner"}
  ],
  "metadata": {"difficulty": "easy", "continent": "Europe"}
}`

func TestResolveGroupDefinition(t *testing.T) {
	var def GroupDefinition
	if err := json.Unmarshal([]byte(franceJSON), &def); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	g, err := def.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if g.ID != "fr" || g.Name != "France" || g.Size() != 3 {
		t.Fatalf("group = %+v", g)
	}
	base := g.BaseCard()
	if base.ID != "fr_flag" || base.Role != engine.RoleBase || base.Image != "fr.png" {
		t.Errorf("base = %+v", base)
	}
	partners := g.PartnerCards()
	if partners[0].ID != "fr_paris" || partners[0].GroupID != "fr" || partners[0].Image != "" {
		t.Errorf("partner = %+v", partners[0])
	}
	if g.Metadata.Difficulty != "easy" || g.Metadata.Continent != "Europe" {
		t.Errorf("metadata = %+v", g.Metadata)
	}
}

func TestValidateGroupDefinition(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *GroupDefinition)
	}{
		{"missing group id", func(d *GroupDefinition) { d.GroupID = "" }},
		{"base without id", func(d *GroupDefinition) { d.BaseCard.ID = "" }},
		{"base typed partner", func(d *GroupDefinition) { d.BaseCard.Type = "partner" }},
		{"no partners", func(d *GroupDefinition) { d.PartnerCards = nil }},
		{"partner typed base", func(d *GroupDefinition) { d.PartnerCards[0].Type = "base" }},
		{"partner without id", func(d *GroupDefinition) { d.PartnerCards[1].ID = "" }},
		{"duplicate ids", func(d *GroupDefinition) { d.PartnerCards[1].ID = "p1" }},
		{"partner reuses base id", func(d *GroupDefinition) { d.PartnerCards[0].ID = "base" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := groupDef("fr", "Paris", "Lyon")
			tt.mutate(&d)
			err := d.Validate()
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Validate() = %v, want ErrInvalidDefinition", err)
			}
		})
	}
	if err := groupDef("fr", "Paris").Validate(); err != nil {
		t.Errorf("valid definition rejected: %v", err)
	}
}

func TestDeckDefinitionJSON(t *testing.T) {
	raw := `{"deck_id":"d1","deck_name":"Starter","groups":["fr","it"],"shuffle_seed":18446744073709551615,"metadata":null}`
	var d DeckDefinition
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if d.ShuffleSeed == nil || *d.ShuffleSeed != 18446744073709551615 {
		t.Errorf("ShuffleSeed = %v", d.ShuffleSeed)
	}
	if len(d.Groups) != 2 || d.Metadata != nil {
		t.Errorf("definition = %+v", d)
	}
}
