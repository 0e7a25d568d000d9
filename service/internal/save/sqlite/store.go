// Package sqlite stores saved rounds and settings in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jason-s-yu/groupsolitaire/service/internal/save"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
  id         TEXT PRIMARY KEY,
  state      BLOB NOT NULL,
  saved_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS settings (
  player_id  TEXT PRIMARY KEY,
  body       BLOB NOT NULL,
  updated_at INTEGER NOT NULL
);`

// Store implements save.Store on SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ save.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) SaveGame(ctx context.Context, snap save.Snapshot) error {
	// The snapshot's state is stored whole; saved_at is kept as its own
	// column so the record can be listed without decoding.
	body, err := save.Encode(snap.State)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO games (id, state, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, saved_at = excluded.saved_at`,
		snap.ID.String(), body, toMillis(snap.SavedAt),
	)
	if err != nil {
		return fmt.Errorf("save game %s: %w", snap.ID, err)
	}
	return nil
}

func (s *Store) LoadGame(ctx context.Context, id uuid.UUID) (save.Snapshot, error) {
	snap := save.Snapshot{ID: id}
	var (
		body    []byte
		savedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT state, saved_at FROM games WHERE id = ?`, id.String(),
	).Scan(&body, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return save.Snapshot{}, save.ErrNotFound
	}
	if err != nil {
		return save.Snapshot{}, fmt.Errorf("load game %s: %w", id, err)
	}
	if err := save.Decode(body, &snap.State); err != nil {
		return save.Snapshot{}, err
	}
	snap.SavedAt = fromMillis(savedAt)
	return snap, nil
}

func (s *Store) DeleteGame(ctx context.Context, id uuid.UUID) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete game %s: %w", id, err)
	}
	return nil
}

func (s *Store) SaveSettings(ctx context.Context, playerID string, settings save.Settings) error {
	body, err := save.Encode(settings)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO settings (player_id, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(player_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		playerID, body, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save settings %s: %w", playerID, err)
	}
	return nil
}

func (s *Store) LoadSettings(ctx context.Context, playerID string) (save.Settings, error) {
	var body []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT body FROM settings WHERE player_id = ?`, playerID,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return save.Settings{}, save.ErrNotFound
	}
	if err != nil {
		return save.Settings{}, fmt.Errorf("load settings %s: %w", playerID, err)
	}
	var settings save.Settings
	if err := save.Decode(body, &settings); err != nil {
		return save.Settings{}, err
	}
	return settings, nil
}
