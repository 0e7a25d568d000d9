// Package deck composes the Deck for a round, either by drawing a random
// selection of groups or by resolving a named deck definition. Definitions
// come from a Source, so bundled files and a database are interchangeable.
package deck

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/groupsolitaire/engine"
)

// Source loads group and deck definitions. LoadDeck returns nil, nil when no
// deck has the given id.
type Source interface {
	LoadGroups(ctx context.Context) ([]GroupDefinition, error)
	LoadDeck(ctx context.Context, id string) (*DeckDefinition, error)
}

// RandomOptions parametrizes BuildRandomDeck.
type RandomOptions struct {
	// GroupCount is the number of groups to draw; 0 takes every candidate.
	GroupCount int
	// Seed makes the selection reproducible when non-nil. It is also stored
	// on the resulting Deck.
	Seed *uint64
	// Exclude lists group ids to avoid, typically the previous rounds'. The
	// exclusion is dropped if it would leave no candidates.
	Exclude []string
}

// Manager builds decks from a Source.
type Manager struct {
	source Source
	log    logrus.FieldLogger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = l }
}

// NewManager returns a Manager reading from src.
func NewManager(src Source, opts ...Option) *Manager {
	m := &Manager{source: src, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BuildRandomDeck draws opts.GroupCount distinct groups from the source.
func (m *Manager) BuildRandomDeck(ctx context.Context, opts RandomOptions) (engine.Deck, error) {
	if opts.GroupCount < 0 {
		return engine.Deck{}, fmt.Errorf("build random deck: negative group count %d", opts.GroupCount)
	}
	defs, err := m.source.LoadGroups(ctx)
	if err != nil {
		return engine.Deck{}, fmt.Errorf("build random deck: load groups: %w", err)
	}
	if len(defs) == 0 {
		return engine.Deck{}, ErrNoGroupsFound
	}

	pool := dedupe(defs)
	if len(opts.Exclude) > 0 {
		if kept := exclude(pool, opts.Exclude); len(kept) > 0 {
			pool = kept
		} else {
			m.log.WithField("excluded", len(opts.Exclude)).
				Debug("deck: exclusion would empty the pool; using every group")
		}
	}

	count := opts.GroupCount
	if count == 0 {
		count = len(pool)
	}
	if count > len(pool) {
		return engine.Deck{}, &InsufficientGroupsError{Available: len(pool), Requested: count}
	}

	engine.Shuffle(pool, engine.NewRand(opts.Seed))

	groups, err := resolveAll(pool[:count])
	if err != nil {
		return engine.Deck{}, fmt.Errorf("build random deck: %w", err)
	}
	d := engine.Deck{Groups: engine.AssignPossibleGroupIDs(groups)}
	if opts.Seed != nil {
		s := *opts.Seed
		d.Seed = &s
	}
	m.log.WithFields(logrus.Fields{"groups": len(groups), "seeded": opts.Seed != nil}).Debug("deck: built random deck")
	return d, nil
}

// BuildDeck resolves the named deck definition id. Group ids the source
// cannot find are skipped.
func (m *Manager) BuildDeck(ctx context.Context, id string) (engine.Deck, error) {
	def, err := m.source.LoadDeck(ctx, id)
	if err != nil {
		return engine.Deck{}, fmt.Errorf("build deck %q: load deck: %w", id, err)
	}
	if def == nil {
		return engine.Deck{}, &NoDeckDefinitionError{ID: id}
	}
	defs, err := m.source.LoadGroups(ctx)
	if err != nil {
		return engine.Deck{}, fmt.Errorf("build deck %q: load groups: %w", id, err)
	}
	byID := make(map[string]GroupDefinition, len(defs))
	for _, d := range dedupe(defs) {
		byID[d.GroupID] = d
	}

	var selected []GroupDefinition
	used := make(map[string]bool)
	for _, gid := range def.Groups {
		gd, ok := byID[gid]
		if !ok {
			m.log.WithFields(logrus.Fields{"deck": id, "group": gid}).Warn("deck: unknown group skipped")
			continue
		}
		if used[gid] {
			continue
		}
		used[gid] = true
		selected = append(selected, gd)
	}

	groups, err := resolveAll(selected)
	if err != nil {
		return engine.Deck{}, fmt.Errorf("build deck %q: %w", id, err)
	}
	d := engine.Deck{
		ID:     def.DeckID,
		Name:   def.DeckName,
		Groups: engine.AssignPossibleGroupIDs(groups),
	}
	if def.ShuffleSeed != nil {
		s := *def.ShuffleSeed
		d.Seed = &s
	}
	return d, nil
}

// dedupe keeps the first definition of every group id.
func dedupe(defs []GroupDefinition) []GroupDefinition {
	seen := make(map[string]bool, len(defs))
	out := make([]GroupDefinition, 0, len(defs))
	for _, d := range defs {
		if seen[d.GroupID] {
			continue
		}
		seen[d.GroupID] = true
		out = append(out, d)
	}
	return out
}

func exclude(defs []GroupDefinition, ids []string) []GroupDefinition {
	skip := make(map[string]bool, len(ids))
	for _, id := range ids {
		skip[id] = true
	}
	var out []GroupDefinition
	for _, d := range defs {
		if !skip[d.GroupID] {
			out = append(out, d)
		}
	}
	return out
}

func resolveAll(defs []GroupDefinition) ([]engine.Group, error) {
	groups := make([]engine.Group, 0, len(defs))
	for _, d := range defs {
		g, err := d.Resolve()
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}
