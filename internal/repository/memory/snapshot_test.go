package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/errors"
)

func TestSnapshotStore(t *testing.T) {
	s := NewSnapshotStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "cart:u1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, s.Set(ctx, "cart:u1", `[]`))
	require.NoError(t, s.Set(ctx, "cart:u1", `[{"id":"1"}]`))
	got, err := s.Get(ctx, "cart:u1")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"1"}]`, got)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(ctx, "cart:u1"))
	require.NoError(t, s.Delete(ctx, "cart:u1"))
	assert.Equal(t, 0, s.Len())
	assert.NoError(t, s.Ping(ctx))
}
