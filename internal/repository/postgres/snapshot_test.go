package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/database"
	apperrors "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/errors"
)

func setupMock(t *testing.T) (*SnapshotStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewSnapshotStore(mock), mock
}

func TestSnapshotStore_Get(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectSnapshot)).
		WithArgs("cart:u1").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow(`[{"id":"1"}]`))

	value, err := store.Get(context.Background(), "cart:u1")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, value)
}

func TestSnapshotStore_Get_NotFound(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectSnapshot)).
		WithArgs("cart:missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), "cart:missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSnapshotStore_Get_DriverError(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectSnapshot)).
		WithArgs("cart:u1").
		WillReturnError(errors.New("conn closed"))

	_, err := store.Get(context.Background(), "cart:u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "select cart snapshot")
}

func TestSnapshotStore_Set(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectExec(regexp.QuoteMeta(upsertSnapshot)).
		WithArgs("cart:guest:s1", `[]`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Set(context.Background(), "cart:guest:s1", `[]`))
}

func TestSnapshotStore_Set_Error(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectExec(regexp.QuoteMeta(upsertSnapshot)).
		WithArgs("cart:u1", `[]`).
		WillReturnError(errors.New("disk full"))

	err := store.Set(context.Background(), "cart:u1", `[]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert cart snapshot: disk full")
}

func TestSnapshotStore_Delete(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectExec(regexp.QuoteMeta(deleteSnapshot)).
		WithArgs("cart:guest:s1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, store.Delete(context.Background(), "cart:guest:s1"))
}

func TestSnapshotStore_PurgeGuests(t *testing.T) {
	store, mock := setupMock(t)

	mock.ExpectExec(regexp.QuoteMeta(purgeSnapshots)).
		WithArgs(3600.0).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := store.PurgeGuests(context.Background(), 3600)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
