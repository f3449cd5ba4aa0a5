package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisKeySnapshot is where the latest usage snapshot is stored.
const RedisKeySnapshot = "hubspot:rate_limit:last_snapshot"

// snapshotTTL bounds how long a stored snapshot is considered worth reading.
const snapshotTTL = 24 * time.Hour

// Store persists the most recent usage snapshot in Redis so that several
// extraction workers sharing one HubSpot account can observe remaining quota.
type Store struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewStore creates a usage snapshot store.
func NewStore(redisClient *redis.Client, logger zerolog.Logger) *Store {
	return &Store{
		redis:  redisClient,
		logger: logger,
	}
}

// Save stores the snapshot as the latest known usage state.
// A nil snapshot is a no-op.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal usage snapshot: %w", err)
	}

	if err := s.redis.Set(ctx, RedisKeySnapshot, data, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("store usage snapshot: %w", err)
	}

	event := s.logger.Debug().Time("captured_at", snap.CapturedAt)
	if n, ok := snap.DailyRemaining(); ok {
		event = event.Int("daily_remaining", n)
	}
	event.Msg("Usage snapshot stored")

	return nil
}

// Latest returns the most recently stored snapshot, or nil when no snapshot
// has been stored within the retention window.
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	data, err := s.redis.Get(ctx, RedisKeySnapshot).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get usage snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse usage snapshot: %w", err)
	}

	return &snap, nil
}
