package repository

import (
	"context"
	"time"

	"equiptrack-backend/internal/domain"
)

// EquipmentRepository is the catalog provider.
type EquipmentRepository interface {
	Create(ctx context.Context, eq *domain.Equipment) error
	GetByID(ctx context.Context, id string) (*domain.Equipment, error)
	List(ctx context.Context) ([]domain.Equipment, error)
	CreateInstances(ctx context.Context, instances []domain.Instance) error
	// ListInstances lists the units of one record, or of all records when equipmentID is empty.
	ListInstances(ctx context.Context, equipmentID string) ([]domain.Instance, error)
	Snapshot(ctx context.Context) (*domain.Catalog, error)
}

type CheckoutRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Checkout, error)
	// ListOutstanding lists active, overdue and lost checkouts, of one record or of all when equipmentID is empty.
	ListOutstanding(ctx context.Context, equipmentID string) ([]domain.Checkout, error)
	MarkOverdue(ctx context.Context, now time.Time) ([]domain.Checkout, error)
	GetDeliveryNote(ctx context.Context, id string) (*domain.DeliveryNote, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Search(ctx context.Context, query string, limit int) ([]domain.User, error)
}

// Gateway runs fn inside one transaction: everything fn wrote is committed
// together or not at all.
type Gateway interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// AvailabilityUpdate is a conditional write: it only applies while the record
// still holds the expected counter and status.
type AvailabilityUpdate struct {
	EquipmentID       string
	ExpectedAvailable int32
	ExpectedStatus    domain.EquipmentStatus
	Available         int32
	Status            domain.EquipmentStatus
}

// StockUpdate resizes a record. It applies only while the record still holds
// the expected total, counter and status.
type StockUpdate struct {
	AvailabilityUpdate
	ExpectedTotal int32
	Total         int32
}

// Tx is the write side of the gateway. Conditional writes that match no row
// return domain.ErrConflict.
type Tx interface {
	CreateDeliveryNote(ctx context.Context, note *domain.DeliveryNote) error
	CreateCheckoutRecords(ctx context.Context, records []domain.Checkout) error
	UpdateEquipmentAvailability(ctx context.Context, u AvailabilityUpdate) error
	UpdateEquipmentStock(ctx context.Context, u StockUpdate) error
	CreateInstances(ctx context.Context, instances []domain.Instance) error
	UpdateInstanceStatus(ctx context.Context, id string, from, to domain.InstanceStatus) error
	// MarkReturned, MarkLost and MarkRecovered persist a checkout already moved
	// by the ledger, guarded on the status it had before.
	MarkReturned(ctx context.Context, c *domain.Checkout) error
	MarkLost(ctx context.Context, c *domain.Checkout) error
	MarkRecovered(ctx context.Context, c *domain.Checkout) error
}
