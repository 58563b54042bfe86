package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equiptrack-backend/internal/checkout"
	"equiptrack-backend/internal/domain"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour)
	store.now = func() time.Time { return now }

	s := checkout.New("S1", now)
	require.NoError(t, s.SelectUser(domain.User{ID: "U1", FirstName: "Ada", LastName: "Lovelace"}))
	require.NoError(t, store.Save(ctx, s))

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, "S1")
		require.NoError(t, err)
		assert.Equal(t, checkout.StateSelectingEquipment, loaded.State)
		assert.Equal(t, "U1", loaded.User.ID)

		loaded.State = checkout.StateCommitted
		again, err := store.Load(ctx, "S1")
		require.NoError(t, err)
		assert.Equal(t, checkout.StateSelectingEquipment, again.State)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := store.Load(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Expired", func(t *testing.T) {
		now = now.Add(2 * time.Hour)
		_, err := store.Load(ctx, "S1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, checkout.New("S2", now)))
		require.NoError(t, store.Delete(ctx, "S2"))
		_, err := store.Load(ctx, "S2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "checkout:session:S1", key("S1"))
}
