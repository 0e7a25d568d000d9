// Package save persists in-progress rounds and player settings. The engine
// state is stored as JSON so a round restores exactly as it was saved.
package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jason-s-yu/groupsolitaire/engine"
)

// ErrNotFound is returned by Store lookups for unknown ids.
var ErrNotFound = errors.New("save: not found")

// RecentGroupLimit bounds Settings.RecentGroupIDs.
const RecentGroupLimit = 24

// Snapshot is one saved round.
type Snapshot struct {
	ID      uuid.UUID        `json:"id"`
	State   engine.GameState `json:"state"`
	SavedAt time.Time        `json:"savedAt"`
}

// Settings is the per-player preference record.
type Settings struct {
	SoundEnabled   bool `json:"soundEnabled"`
	HapticsEnabled bool `json:"hapticsEnabled"`
	// GroupCount is the preferred number of groups for random decks; 0 means
	// the server default.
	GroupCount int `json:"groupCount"`
	// RecentGroupIDs lists groups played recently, newest first. Random decks
	// avoid them.
	RecentGroupIDs []string `json:"recentGroupIds"`
}

// DefaultSettings is returned for players with no stored record.
func DefaultSettings() Settings {
	return Settings{SoundEnabled: true, HapticsEnabled: true, RecentGroupIDs: []string{}}
}

// RememberGroups puts ids at the front of RecentGroupIDs, dropping repeats
// and trimming to RecentGroupLimit.
func (s *Settings) RememberGroups(ids []string) {
	seen := make(map[string]bool, len(ids)+len(s.RecentGroupIDs))
	out := make([]string, 0, RecentGroupLimit)
	for _, list := range [][]string{ids, s.RecentGroupIDs} {
		for _, id := range list {
			if seen[id] || len(out) == RecentGroupLimit {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	s.RecentGroupIDs = out
}

// Store is implemented by every persistence backend.
type Store interface {
	SaveGame(ctx context.Context, snap Snapshot) error
	LoadGame(ctx context.Context, id uuid.UUID) (Snapshot, error)
	DeleteGame(ctx context.Context, id uuid.UUID) error
	SaveSettings(ctx context.Context, playerID string, s Settings) error
	LoadSettings(ctx context.Context, playerID string) (Settings, error)
	Close() error
}

// Encode serializes v for storage.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("save: encode %T: %w", v, err)
	}
	return b, nil
}

// Decode parses data produced by Encode into v.
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("save: decode %T: %w", v, err)
	}
	return nil
}
