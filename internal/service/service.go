package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"

	"equiptrack-backend/internal/checkout"
	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/ledger"
	"equiptrack-backend/internal/metrics"
	"equiptrack-backend/internal/repository"
	"equiptrack-backend/internal/scan"
)

var tracer = otel.Tracer("equiptrack/service")

type CheckoutService interface {
	StartSession(ctx context.Context) (*checkout.Session, error)
	GetSession(ctx context.Context, sessionID string) (*checkout.Session, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]domain.User, error)
	SelectUser(ctx context.Context, sessionID, userID string) (*checkout.Session, error)
	CreateUserAndSelect(ctx context.Context, sessionID string, user *domain.User) (*checkout.Session, error)
	Scan(ctx context.Context, sessionID, raw string, qty int32) (*checkout.Session, scan.Resolution, error)
	AddEquipment(ctx context.Context, sessionID, equipmentID string, qty int32) (*checkout.Session, error)
	SetQuantity(ctx context.Context, sessionID, equipmentID string, qty int32) (*checkout.Session, error)
	RemoveItem(ctx context.Context, sessionID, equipmentID string) (*checkout.Session, error)
	Review(ctx context.Context, sessionID string) (*checkout.Session, error)
	SetDueDate(ctx context.Context, sessionID string, due time.Time) (*checkout.Session, error)
	SetNotes(ctx context.Context, sessionID, notes string) (*checkout.Session, error)
	Back(ctx context.Context, sessionID string) (*checkout.Session, error)
	Commit(ctx context.Context, sessionID string) (*domain.DeliveryNote, error)
	Cancel(ctx context.Context, sessionID string) error
}

type CirculationService interface {
	Return(ctx context.Context, checkoutID, notes string) (*domain.Checkout, error)
	MarkLost(ctx context.Context, checkoutID, notes string) (*domain.Checkout, error)
	Recover(ctx context.Context, checkoutID, notes string) (*domain.Checkout, *domain.Equipment, error)
	StartMaintenance(ctx context.Context, equipmentID string) (*domain.Equipment, error)
	EndMaintenance(ctx context.Context, equipmentID string) (*domain.Equipment, error)
	Retire(ctx context.Context, equipmentID string) (*domain.Equipment, error)
	GetDeliveryNote(ctx context.Context, id string) (*domain.DeliveryNote, error)
}

type InventoryService interface {
	Resolve(ctx context.Context, raw string) (scan.Resolution, error)
	ListEquipment(ctx context.Context) ([]domain.Equipment, error)
	GetEquipment(ctx context.Context, id string) (*domain.Equipment, []domain.Instance, error)
	CreateEquipment(ctx context.Context, eq *domain.Equipment) ([]domain.Instance, error)
	ProvisionInstances(ctx context.Context, equipmentID string, count int32) ([]domain.Instance, error)
	AdjustStock(ctx context.Context, equipmentID string, total int32) (*domain.Equipment, []domain.Instance, error)
	Reconcile(ctx context.Context) ([]ledger.Adjustment, error)
	MarkOverdue(ctx context.Context) ([]domain.Checkout, error)
}

// Notifier receives notifications after the change they describe is durable.
// notify.Dispatcher implements it.
type Notifier interface {
	Dispatch(n domain.Notification)
}

type noopNotifier struct{}

func (noopNotifier) Dispatch(domain.Notification) {}

// Options carries the runtime knobs shared by the services.
type Options struct {
	// Timeout bounds every gateway transaction and every repository call.
	Timeout        time.Duration
	RecoveryPolicy ledger.RecoveryPolicy
	Clock          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.RecoveryPolicy == "" {
		o.RecoveryPolicy = ledger.RecoveryInspect
	}
	if o.Clock == nil {
		o.Clock = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// persist runs fn in one gateway transaction under the configured timeout.
// Conflicts come back as domain.ErrConflict (or domain.ErrAlreadyCommitted),
// every other failure as a *domain.PersistenceError.
func persist(ctx context.Context, gw repository.Gateway, timeout time.Duration, op string, fn func(ctx context.Context, tx repository.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := gw.WithinTx(ctx, fn)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrAlreadyCommitted):
		return domain.ErrAlreadyCommitted
	case errors.Is(err, domain.ErrConflict):
		return domain.ErrConflict
	default:
		metrics.OperationErrorsTotal.WithLabelValues(op).Inc()
		return &domain.PersistenceError{Op: op, Err: err}
	}
}

func availabilityUpdate(before, after domain.Equipment) repository.AvailabilityUpdate {
	return repository.AvailabilityUpdate{
		EquipmentID:       before.ID,
		ExpectedAvailable: before.AvailableQuantity,
		ExpectedStatus:    before.Status,
		Available:         after.AvailableQuantity,
		Status:            after.Status,
	}
}
