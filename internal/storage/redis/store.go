// Package redis implements slot storage and the cross-tab watcher on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/pkg/database"
)

const keyPrefix = "storefront:"

// SlotKey returns the Redis key holding slot for scope.
func SlotKey(scope string, slot domain.Slot) string {
	return keyPrefix + scope + ":" + string(slot)
}

// Store implements storage.Store using Redis strings.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewStore creates a Redis-backed slot store. A zero ttl keeps slots forever.
func NewStore(client redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, scope string, slot domain.Slot) (_ string, err error) {
	key := SlotKey(scope, slot)
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "GetSlot", "GET "+key)
	defer func() { end(err) }()

	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrSlotNotFound(slot)
		}
		return "", fmt.Errorf("redis get %s: %w", slot, err)
	}
	return v, nil
}

// Set implements storage.Store.
func (s *Store) Set(ctx context.Context, scope string, slot domain.Slot, value string) (err error) {
	key := SlotKey(scope, slot)
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "SetSlot", "SET "+key)
	defer func() { end(err) }()

	if err = s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", slot, err)
	}
	return nil
}

// Ping implements storage.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
