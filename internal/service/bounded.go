package service

import (
	"context"
	"time"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/repository"
)

// The bounded repositories put Options.Timeout on every read and write the
// services make outside a gateway transaction, including the reads done
// while record locks are held.

func bounded[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func boundedErr(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

type boundedEquipment struct {
	repo    repository.EquipmentRepository
	timeout time.Duration
}

func (r boundedEquipment) Create(ctx context.Context, eq *domain.Equipment) error {
	return boundedErr(ctx, r.timeout, func(ctx context.Context) error { return r.repo.Create(ctx, eq) })
}

func (r boundedEquipment) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	return bounded(ctx, r.timeout, func(ctx context.Context) (*domain.Equipment, error) { return r.repo.GetByID(ctx, id) })
}

func (r boundedEquipment) List(ctx context.Context) ([]domain.Equipment, error) {
	return bounded(ctx, r.timeout, r.repo.List)
}

func (r boundedEquipment) CreateInstances(ctx context.Context, instances []domain.Instance) error {
	return boundedErr(ctx, r.timeout, func(ctx context.Context) error { return r.repo.CreateInstances(ctx, instances) })
}

func (r boundedEquipment) ListInstances(ctx context.Context, equipmentID string) ([]domain.Instance, error) {
	return bounded(ctx, r.timeout, func(ctx context.Context) ([]domain.Instance, error) { return r.repo.ListInstances(ctx, equipmentID) })
}

func (r boundedEquipment) Snapshot(ctx context.Context) (*domain.Catalog, error) {
	return bounded(ctx, r.timeout, r.repo.Snapshot)
}

type boundedCheckouts struct {
	repo    repository.CheckoutRepository
	timeout time.Duration
}

func (r boundedCheckouts) GetByID(ctx context.Context, id string) (*domain.Checkout, error) {
	return bounded(ctx, r.timeout, func(ctx context.Context) (*domain.Checkout, error) { return r.repo.GetByID(ctx, id) })
}

func (r boundedCheckouts) ListOutstanding(ctx context.Context, equipmentID string) ([]domain.Checkout, error) {
	return bounded(ctx, r.timeout, func(ctx context.Context) ([]domain.Checkout, error) { return r.repo.ListOutstanding(ctx, equipmentID) })
}

func (r boundedCheckouts) MarkOverdue(ctx context.Context, now time.Time) ([]domain.Checkout, error) {
	return bounded(ctx, r.timeout, func(ctx context.Context) ([]domain.Checkout, error) { return r.repo.MarkOverdue(ctx, now) })
}

func (r boundedCheckouts) GetDeliveryNote(ctx context.Context, id string) (*domain.DeliveryNote, error) {
	return bounded(ctx, r.timeout, func(ctx context.Context) (*domain.DeliveryNote, error) { return r.repo.GetDeliveryNote(ctx, id) })
}

type boundedUsers struct {
	repo    repository.UserRepository
	timeout time.Duration
}

func (r boundedUsers) Create(ctx context.Context, user *domain.User) error {
	return boundedErr(ctx, r.timeout, func(ctx context.Context) error { return r.repo.Create(ctx, user) })
}

func (r boundedUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return bounded(ctx, r.timeout, func(ctx context.Context) (*domain.User, error) { return r.repo.GetByID(ctx, id) })
}

func (r boundedUsers) Search(ctx context.Context, query string, limit int) ([]domain.User, error) {
	return bounded(ctx, r.timeout, func(ctx context.Context) ([]domain.User, error) { return r.repo.Search(ctx, query, limit) })
}
