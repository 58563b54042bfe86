package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/ledger"
	"equiptrack-backend/internal/repository"
	"equiptrack-backend/internal/repository/memory"
	"equiptrack-backend/internal/session"
)

// stalledEquipment never answers reads until the caller gives up.
type stalledEquipment struct {
	repository.EquipmentRepository
}

func (stalledEquipment) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledEquipment) Snapshot(ctx context.Context) (*domain.Catalog, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type stalledCheckouts struct {
	repository.CheckoutRepository
}

func (stalledCheckouts) ListOutstanding(ctx context.Context, equipmentID string) ([]domain.Checkout, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRepositoryCallsAreBounded(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Equipment().Create(ctx, &domain.Equipment{
		ID: "X1", Name: "Camera", SerialNumber: "SN-100", TotalQuantity: 1, AvailableQuantity: 1,
		Status: domain.EquipmentStatusAvailable, QRType: domain.QRTypeBatch,
	}))
	opts := Options{Timeout: 20 * time.Millisecond}
	locks := ledger.NewLocks()

	t.Run("Record read under the lock", func(t *testing.T) {
		circulation := NewCirculationService(stalledEquipment{store.Equipment()}, store.Checkouts(), store.Gateway(), locks, nil, opts)

		done := make(chan error, 1)
		go func() {
			_, err := circulation.StartMaintenance(ctx, "X1")
			done <- err
		}()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		case <-time.After(2 * time.Second):
			t.Fatal("maintenance start did not give up on a stalled store")
		}

		// the record lock was released
		unlock := locks.Lock("X1")
		unlock()
	})

	t.Run("Outstanding read under the lock", func(t *testing.T) {
		inventory := NewInventoryService(store.Equipment(), stalledCheckouts{store.Checkouts()}, store.Gateway(), nil, locks, nil, opts)
		_, _, err := inventory.AdjustStock(ctx, "X1", 3)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		got, err := store.Equipment().GetByID(ctx, "X1")
		require.NoError(t, err)
		assert.Equal(t, int32(1), got.TotalQuantity)
	})

	t.Run("Catalog snapshot", func(t *testing.T) {
		checkoutSvc := NewCheckoutService(stalledEquipment{store.Equipment()}, store.Users(), store.Gateway(), session.NewMemoryStore(time.Hour), nil, locks, nil, opts)
		sess, err := checkoutSvc.StartSession(ctx)
		require.NoError(t, err)
		_, _, err = checkoutSvc.Scan(ctx, sess.ID, "SN-100", 1)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
