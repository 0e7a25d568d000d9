package engine

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeLabel trims surrounding whitespace and lowercases s. Two partner
// cards with equal normalized labels are considered to share a label.
func NormalizeLabel(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// AssignPossibleGroupIDs returns a copy of groups in which every partner card
// records the sorted ids of all groups having a partner with the same
// normalized label (its own group included). Base cards are left untouched.
func AssignPossibleGroupIDs(groups []Group) []Group {
	byLabel := make(map[string]map[string]struct{})
	for _, g := range groups {
		for _, c := range g.Cards {
			if !c.IsPartner() {
				continue
			}
			key := NormalizeLabel(c.Label)
			ids, ok := byLabel[key]
			if !ok {
				ids = make(map[string]struct{})
				byLabel[key] = ids
			}
			ids[g.ID] = struct{}{}
		}
	}

	out := make([]Group, len(groups))
	for gi, g := range groups {
		cards := make([]Card, len(g.Cards))
		for ci, c := range g.Cards {
			if c.IsPartner() {
				ids := byLabel[NormalizeLabel(c.Label)]
				list := make([]string, 0, len(ids))
				for id := range ids {
					list = append(list, id)
				}
				sort.Strings(list)
				c.PossibleGroupIDs = list
			}
			cards[ci] = c
		}
		g.Cards = cards
		out[gi] = g
	}
	return out
}
