// Package redis stores saved rounds and settings in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/groupsolitaire/service/internal/save"
)

const keyPrefix = "groupsolitaire:"

func gameKey(id uuid.UUID) string { return keyPrefix + "game:" + id.String() }

func settingsKey(playerID string) string { return keyPrefix + "settings:" + playerID }

// Store implements save.Store on a Redis client. Saved games expire after
// ttl when it is positive; settings never expire.
type Store struct {
	rdb *goredis.Client
	ttl time.Duration
	log logrus.FieldLogger
}

var _ save.Store = (*Store)(nil)

// New wraps an existing client.
func New(rdb *goredis.Client, ttl time.Duration, log logrus.FieldLogger) *Store {
	return &Store{rdb: rdb, ttl: ttl, log: log}
}

// Dial connects to addr, selects db and checks the connection.
func Dial(ctx context.Context, addr string, db int, ttl time.Duration, log logrus.FieldLogger) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	log.WithField("addr", addr).Info("redis save store connected")
	return New(rdb, ttl, log), nil
}

func (s *Store) SaveGame(ctx context.Context, snap save.Snapshot) error {
	b, err := save.Encode(snap)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, gameKey(snap.ID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: save game %s: %w", snap.ID, err)
	}
	return nil
}

func (s *Store) LoadGame(ctx context.Context, id uuid.UUID) (save.Snapshot, error) {
	var snap save.Snapshot
	b, err := s.rdb.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return snap, save.ErrNotFound
	}
	if err != nil {
		return snap, fmt.Errorf("redis: load game %s: %w", id, err)
	}
	err = save.Decode(b, &snap)
	return snap, err
}

func (s *Store) DeleteGame(ctx context.Context, id uuid.UUID) error {
	if err := s.rdb.Del(ctx, gameKey(id)).Err(); err != nil {
		return fmt.Errorf("redis: delete game %s: %w", id, err)
	}
	return nil
}

func (s *Store) SaveSettings(ctx context.Context, playerID string, settings save.Settings) error {
	b, err := save.Encode(settings)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, settingsKey(playerID), b, 0).Err(); err != nil {
		return fmt.Errorf("redis: save settings %s: %w", playerID, err)
	}
	return nil
}

func (s *Store) LoadSettings(ctx context.Context, playerID string) (save.Settings, error) {
	var settings save.Settings
	b, err := s.rdb.Get(ctx, settingsKey(playerID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return settings, save.ErrNotFound
	}
	if err != nil {
		return settings, fmt.Errorf("redis: load settings %s: %w", playerID, err)
	}
	err = save.Decode(b, &settings)
	return settings, err
}

// Close closes the underlying client.
func (s *Store) Close() error { return s.rdb.Close() }
