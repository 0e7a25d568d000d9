// Package embedded serves the group and deck definitions bundled with the
// binary.
package embedded

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"github.com/jason-s-yu/groupsolitaire/engine/deck"
)

//go:embed data/groups/*.json data/decks/*.json
var bundled embed.FS

// Store is a deck.Source over a directory tree holding groups/*.json and
// decks/*.json. Files are parsed once, on first use.
type Store struct {
	fsys fs.FS

	once    sync.Once
	groups  []deck.GroupDefinition
	decks   map[string]deck.DeckDefinition
	deckIDs []string
	err     error
}

var _ deck.Source = (*Store)(nil)

// New returns a Store over the bundled definitions.
func New() *Store {
	sub, err := fs.Sub(bundled, "data")
	if err != nil {
		// The embed pattern guarantees the directory exists.
		panic(err)
	}
	return NewFS(sub)
}

// NewFS returns a Store reading from fsys.
func NewFS(fsys fs.FS) *Store {
	return &Store{fsys: fsys}
}

// LoadGroups returns every group definition, ordered by file name.
func (s *Store) LoadGroups(ctx context.Context) ([]deck.GroupDefinition, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	out := make([]deck.GroupDefinition, len(s.groups))
	copy(out, s.groups)
	return out, nil
}

// LoadDeck returns the named deck, or nil when there is none.
func (s *Store) LoadDeck(ctx context.Context, id string) (*deck.DeckDefinition, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	d, ok := s.decks[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// DeckIDs lists the available named decks, ordered by file name.
func (s *Store) DeckIDs(ctx context.Context) ([]string, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return append([]string(nil), s.deckIDs...), nil
}

func (s *Store) load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.once.Do(func() { s.err = s.parse() })
	return s.err
}

func (s *Store) parse() error {
	groupFiles, err := fs.Glob(s.fsys, "groups/*.json")
	if err != nil {
		return fmt.Errorf("embedded: list groups: %w", err)
	}
	for _, f := range groupFiles {
		var g deck.GroupDefinition
		if err := readJSON(s.fsys, f, &g); err != nil {
			return err
		}
		if err := g.Validate(); err != nil {
			return fmt.Errorf("embedded: %s: %w", path.Base(f), err)
		}
		s.groups = append(s.groups, g)
	}

	deckFiles, err := fs.Glob(s.fsys, "decks/*.json")
	if err != nil {
		return fmt.Errorf("embedded: list decks: %w", err)
	}
	s.decks = make(map[string]deck.DeckDefinition, len(deckFiles))
	for _, f := range deckFiles {
		var d deck.DeckDefinition
		if err := readJSON(s.fsys, f, &d); err != nil {
			return err
		}
		if d.DeckID == "" {
			return fmt.Errorf("embedded: %s: missing deck_id", path.Base(f))
		}
		if _, dup := s.decks[d.DeckID]; dup {
			return fmt.Errorf("embedded: %s: duplicate deck_id %q", path.Base(f), d.DeckID)
		}
		s.decks[d.DeckID] = d
		s.deckIDs = append(s.deckIDs, d.DeckID)
	}
	return nil
}

func readJSON(fsys fs.FS, name string, v any) error {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("embedded: read %s: %w", name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("embedded: parse %s: %w", name, err)
	}
	return nil
}
