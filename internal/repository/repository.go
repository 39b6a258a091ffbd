package repository

import (
	"context"
	"strings"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/internal/domain"
)

// SnapshotStore is a per-key string store holding serialized cart snapshots.
// Implementations return an error wrapping apperrors.ErrNotFound for a
// missing key.
type SnapshotStore interface {
	// Get returns the snapshot stored under key.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// GuestScoped returns a store that keeps the guest partition private to one
// storefront session by rewriting cart:guest to cart:guest:<sessionID>.
// Identity partitions pass through unchanged.
func GuestScoped(store SnapshotStore, sessionID string) SnapshotStore {
	return &guestScoped{store: store, guestKey: domain.GuestPartition + ":" + sessionID}
}

type guestScoped struct {
	store    SnapshotStore
	guestKey string
}

func (g *guestScoped) key(k string) string {
	if k == domain.GuestPartition {
		return g.guestKey
	}
	return k
}

func (g *guestScoped) Get(ctx context.Context, key string) (string, error) {
	return g.store.Get(ctx, g.key(key))
}

func (g *guestScoped) Set(ctx context.Context, key, value string) error {
	return g.store.Set(ctx, g.key(key), value)
}

func (g *guestScoped) Delete(ctx context.Context, key string) error {
	return g.store.Delete(ctx, g.key(key))
}

// IsGuestKey reports whether a raw store key belongs to a guest partition.
func IsGuestKey(key string) bool {
	return key == domain.GuestPartition || strings.HasPrefix(key, domain.GuestPartition+":")
}
