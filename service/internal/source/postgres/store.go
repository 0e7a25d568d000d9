// Package postgres serves group and deck definitions from PostgreSQL, so the
// catalogue can change without shipping a new binary.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/groupsolitaire/engine/deck"
)

const schema = `
CREATE TABLE IF NOT EXISTS group_definitions (
  group_id   TEXT PRIMARY KEY,
  body       JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS deck_definitions (
  deck_id    TEXT PRIMARY KEY,
  body       JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Store is a deck.Source backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	log  logrus.FieldLogger
}

var _ deck.Source = (*Store)(nil)

// Connect opens a pool for url and checks it.
func Connect(ctx context.Context, url string, log logrus.FieldLogger) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// Migrate creates the definition tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// LoadGroups returns every stored group definition ordered by id. Rows that
// fail validation are skipped and logged.
func (s *Store) LoadGroups(ctx context.Context) ([]deck.GroupDefinition, error) {
	rows, err := s.pool.Query(ctx, `SELECT group_id, body FROM group_definitions ORDER BY group_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load groups: %w", err)
	}
	defer rows.Close()

	var out []deck.GroupDefinition
	for rows.Next() {
		var (
			id   string
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("postgres: scan group: %w", err)
		}
		var g deck.GroupDefinition
		if err := json.Unmarshal(body, &g); err != nil {
			s.log.WithError(err).WithField("group", id).Warn("postgres: unreadable group definition skipped")
			continue
		}
		if err := g.Validate(); err != nil {
			s.log.WithError(err).WithField("group", id).Warn("postgres: invalid group definition skipped")
			continue
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load groups: %w", err)
	}
	return out, nil
}

// LoadDeck returns the named deck definition, or nil when there is none.
func (s *Store) LoadDeck(ctx context.Context, id string) (*deck.DeckDefinition, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM deck_definitions WHERE deck_id = $1`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: load deck %q: %w", id, err)
	}
	var d deck.DeckDefinition
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("postgres: parse deck %q: %w", id, err)
	}
	return &d, nil
}

// UpsertGroup validates and stores g.
func (s *Store) UpsertGroup(ctx context.Context, g deck.GroupDefinition) error {
	if err := g.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("postgres: encode group %q: %w", g.GroupID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO group_definitions (group_id, body) VALUES ($1, $2)
		 ON CONFLICT (group_id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		g.GroupID, body)
	if err != nil {
		return fmt.Errorf("postgres: upsert group %q: %w", g.GroupID, err)
	}
	return nil
}

// UpsertDeck stores d.
func (s *Store) UpsertDeck(ctx context.Context, d deck.DeckDefinition) error {
	if d.DeckID == "" {
		return fmt.Errorf("postgres: deck_id is required")
	}
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("postgres: encode deck %q: %w", d.DeckID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO deck_definitions (deck_id, body) VALUES ($1, $2)
		 ON CONFLICT (deck_id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
		d.DeckID, body)
	if err != nil {
		return fmt.Errorf("postgres: upsert deck %q: %w", d.DeckID, err)
	}
	return nil
}

// Import copies every definition of src into the store. It is used to load the
// bundled catalogue into an empty database.
func (s *Store) Import(ctx context.Context, src deck.Source, deckIDs []string) error {
	groups, err := src.LoadGroups(ctx)
	if err != nil {
		return fmt.Errorf("postgres: import: %w", err)
	}
	for _, g := range groups {
		if err := s.UpsertGroup(ctx, g); err != nil {
			return err
		}
	}
	for _, id := range deckIDs {
		d, err := src.LoadDeck(ctx, id)
		if err != nil {
			return fmt.Errorf("postgres: import: %w", err)
		}
		if d == nil {
			continue
		}
		if err := s.UpsertDeck(ctx, *d); err != nil {
			return err
		}
	}
	s.log.WithFields(logrus.Fields{"groups": len(groups), "decks": len(deckIDs)}).Info("postgres: definitions imported")
	return nil
}
