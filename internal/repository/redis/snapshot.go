package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/repository"
	apperrors "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/errors"
)

// SnapshotStore implements repository.SnapshotStore using Redis. Keys are the
// partition keys themselves (cart:<id>, cart:guest:<session>).
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore creates a Redis-backed snapshot store. The ttl applies to
// guest partitions only and every guest write refreshes it. Identity carts
// never expire. A ttl of zero disables expiry entirely.
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves the snapshot stored under key.
func (s *SnapshotStore) Get(ctx context.Context, key string) (string, error) {
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.NotFound("cart snapshot", key)
		}
		return "", fmt.Errorf("redis get snapshot: %w", err)
	}
	return data, nil
}

// Set writes the snapshot. Guest keys get the configured TTL.
func (s *SnapshotStore) Set(ctx context.Context, key, value string) error {
	ttl := time.Duration(0)
	if repository.IsGuestKey(key) {
		ttl = s.ttl
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot under key.
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del snapshot: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
