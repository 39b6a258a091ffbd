package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/database"
	apperrors "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/errors"
)

const (
	selectSnapshot = `SELECT value FROM cart_snapshots WHERE key = $1`
	upsertSnapshot = `
		INSERT INTO cart_snapshots (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()`
	deleteSnapshot = `DELETE FROM cart_snapshots WHERE key = $1`
	purgeSnapshots = `DELETE FROM cart_snapshots WHERE key LIKE 'cart:guest:%' AND updated_at < NOW() - make_interval(secs => $1)`
)

// SnapshotStore implements repository.SnapshotStore on the cart_snapshots
// table.
type SnapshotStore struct {
	pool database.DBTX
}

// NewSnapshotStore creates a new PostgreSQL-backed snapshot store.
func NewSnapshotStore(pool database.DBTX) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Get retrieves the snapshot stored under key.
func (s *SnapshotStore) Get(ctx context.Context, key string) (value string, err error) {
	ctx, end := database.TraceQuery(ctx, "GetSnapshot", selectSnapshot)
	defer func() { end(err) }()

	err = s.pool.QueryRow(ctx, selectSnapshot, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NotFound("cart snapshot", key)
		}
		return "", fmt.Errorf("select cart snapshot: %w", err)
	}
	return value, nil
}

// Set upserts the snapshot under key.
func (s *SnapshotStore) Set(ctx context.Context, key, value string) (err error) {
	ctx, end := database.TraceQuery(ctx, "SetSnapshot", upsertSnapshot)
	defer func() { end(err) }()

	if _, err = s.pool.Exec(ctx, upsertSnapshot, key, value); err != nil {
		return fmt.Errorf("upsert cart snapshot: %w", err)
	}
	return nil
}

// Delete removes the snapshot under key.
func (s *SnapshotStore) Delete(ctx context.Context, key string) (err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteSnapshot", deleteSnapshot)
	defer func() { end(err) }()

	if _, err = s.pool.Exec(ctx, deleteSnapshot, key); err != nil {
		return fmt.Errorf("delete cart snapshot: %w", err)
	}
	return nil
}

// PurgeGuests deletes guest snapshots not written for olderThanSeconds. Redis
// expires them by TTL; the table needs an explicit sweep.
func (s *SnapshotStore) PurgeGuests(ctx context.Context, olderThanSeconds float64) (n int64, err error) {
	ctx, end := database.TraceQuery(ctx, "PurgeGuestSnapshots", purgeSnapshots)
	defer func() { end(err) }()

	tag, err := s.pool.Exec(ctx, purgeSnapshots, olderThanSeconds)
	if err != nil {
		return 0, fmt.Errorf("purge guest snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
