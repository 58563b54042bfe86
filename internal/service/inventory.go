package service

import (
	"context"
	"fmt"
	"strings"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/ledger"
	"equiptrack-backend/internal/logger"
	"equiptrack-backend/internal/metrics"
	"equiptrack-backend/internal/repository"
	"equiptrack-backend/internal/scan"
)

type inventoryService struct {
	equipmentRepo repository.EquipmentRepository
	checkoutRepo  repository.CheckoutRepository
	gateway       repository.Gateway
	resolver      *scan.Resolver
	locks         *ledger.Locks
	notifier      Notifier
	opts          Options
}

func NewInventoryService(
	equipmentRepo repository.EquipmentRepository,
	checkoutRepo repository.CheckoutRepository,
	gateway repository.Gateway,
	resolver *scan.Resolver,
	locks *ledger.Locks,
	notifier Notifier,
	opts Options,
) InventoryService {
	if resolver == nil {
		resolver = scan.DefaultResolver()
	}
	if locks == nil {
		locks = ledger.NewLocks()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	opts = opts.withDefaults()
	return &inventoryService{
		equipmentRepo: boundedEquipment{equipmentRepo, opts.Timeout},
		checkoutRepo:  boundedCheckouts{checkoutRepo, opts.Timeout},
		gateway:       gateway,
		resolver:      resolver,
		locks:         locks,
		notifier:      notifier,
		opts:          opts,
	}
}

// Resolve looks a code up without touching any session.
func (s *inventoryService) Resolve(ctx context.Context, raw string) (scan.Resolution, error) {
	catalog, err := s.equipmentRepo.Snapshot(ctx)
	if err != nil {
		return scan.Resolution{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	res := s.resolver.Resolve(raw, catalog)
	if !res.Found() {
		metrics.ResolutionsTotal.WithLabelValues("not_found").Inc()
		return res, fmt.Errorf("no equipment matches %q: %w", raw, domain.ErrNotFound)
	}
	metrics.ResolutionsTotal.WithLabelValues(string(res.Match.Method)).Inc()
	return res, nil
}

func (s *inventoryService) ListEquipment(ctx context.Context) ([]domain.Equipment, error) {
	return s.equipmentRepo.List(ctx)
}

func (s *inventoryService) GetEquipment(ctx context.Context, id string) (*domain.Equipment, []domain.Instance, error) {
	eq, err := s.equipmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	instances, err := s.equipmentRepo.ListInstances(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return eq, instances, nil
}

// CreateEquipment adds a record with full stock. Individually tracked
// records get one instance per unit.
func (s *inventoryService) CreateEquipment(ctx context.Context, eq *domain.Equipment) ([]domain.Instance, error) {
	eq.Name = strings.TrimSpace(eq.Name)
	eq.SerialNumber = strings.TrimSpace(eq.SerialNumber)
	eq.ArticleNumber = strings.TrimSpace(eq.ArticleNumber)
	if eq.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Message: "is required"}
	}
	if eq.SerialNumber == "" {
		return nil, &domain.ValidationError{Field: "serial_number", Message: "is required"}
	}
	if eq.TotalQuantity < 1 {
		return nil, &domain.ValidationError{Field: "total_quantity", Message: "must be at least 1"}
	}
	if eq.QRType == "" {
		eq.QRType = domain.QRTypeBatch
	}
	eq.Status = domain.EquipmentStatusAvailable
	eq.AvailableQuantity = eq.TotalQuantity

	if err := s.equipmentRepo.Create(ctx, eq); err != nil {
		return nil, fmt.Errorf("failed to create equipment: %w", err)
	}
	logger.Info("Equipment created", "equipmentID", eq.ID, "qrType", eq.QRType, "total", eq.TotalQuantity)

	if eq.QRType != domain.QRTypeIndividual {
		return nil, nil
	}
	return s.ProvisionInstances(ctx, eq.ID, eq.TotalQuantity)
}

func (s *inventoryService) ProvisionInstances(ctx context.Context, equipmentID string, count int32) ([]domain.Instance, error) {
	unlock := s.locks.Lock(equipmentID)
	defer unlock()

	eq, err := s.equipmentRepo.GetByID(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	existing, err := s.equipmentRepo.ListInstances(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	instances, err := domain.ProvisionInstances(*eq, existing, count, s.opts.Clock())
	if err != nil {
		return nil, err
	}
	if err := s.equipmentRepo.CreateInstances(ctx, instances); err != nil {
		return nil, fmt.Errorf("failed to create instances: %w", err)
	}
	logger.Info("Instances provisioned", "equipmentID", equipmentID, "count", len(instances))
	return instances, nil
}

// AdjustStock changes how many units a record owns. The counter is rebuilt
// from the outstanding checkouts and individually tracked records get an
// instance for every new unit, all in one transaction.
func (s *inventoryService) AdjustStock(ctx context.Context, equipmentID string, total int32) (*domain.Equipment, []domain.Instance, error) {
	logger.EnterMethod("inventoryService.AdjustStock", "equipmentID", equipmentID, "total", total)

	unlock := s.locks.Lock(equipmentID)
	defer unlock()

	eq, err := s.equipmentRepo.GetByID(ctx, equipmentID)
	if err != nil {
		logger.ExitMethodWithError("inventoryService.AdjustStock", err, "equipmentID", equipmentID)
		return nil, nil, err
	}
	if eq.QRType == domain.QRTypeIndividual && total < eq.TotalQuantity {
		err := &domain.ValidationError{Field: "total_quantity", Message: "individually tracked records cannot shrink"}
		logger.ExitMethodWithError("inventoryService.AdjustStock", err, "equipmentID", equipmentID)
		return nil, nil, err
	}
	outstanding, err := s.checkoutRepo.ListOutstanding(ctx, equipmentID)
	if err != nil {
		logger.ExitMethodWithError("inventoryService.AdjustStock", err, "equipmentID", equipmentID)
		return nil, nil, err
	}
	next, err := ledger.Resize(*eq, total, outstanding)
	if err != nil {
		logger.ExitMethodWithError("inventoryService.AdjustStock", err, "equipmentID", equipmentID)
		return nil, nil, err
	}

	var instances []domain.Instance
	if next.QRType == domain.QRTypeIndividual {
		existing, err := s.equipmentRepo.ListInstances(ctx, equipmentID)
		if err != nil {
			logger.ExitMethodWithError("inventoryService.AdjustStock", err, "equipmentID", equipmentID)
			return nil, nil, err
		}
		if missing := next.TotalQuantity - int32(len(existing)); missing > 0 {
			if instances, err = domain.ProvisionInstances(next, existing, missing, s.opts.Clock()); err != nil {
				return nil, nil, err
			}
		}
	}

	err = persist(ctx, s.gateway, s.opts.Timeout, "adjust_stock", func(ctx context.Context, tx repository.Tx) error {
		err := tx.UpdateEquipmentStock(ctx, repository.StockUpdate{
			AvailabilityUpdate: availabilityUpdate(*eq, next),
			ExpectedTotal:      eq.TotalQuantity,
			Total:              next.TotalQuantity,
		})
		if err != nil {
			return err
		}
		if len(instances) > 0 {
			return tx.CreateInstances(ctx, instances)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("inventoryService.AdjustStock", err, "equipmentID", equipmentID)
		return nil, nil, err
	}

	logger.StockChanged(ctx, "adjust_stock", eq.ID, eq.AvailableQuantity, next.AvailableQuantity, "status", next.Status, "total", next.TotalQuantity)
	logger.ExitMethod("inventoryService.AdjustStock", "equipmentID", equipmentID,
		"from", eq.TotalQuantity, "to", next.TotalQuantity, "available", next.AvailableQuantity, "instances", len(instances))
	return &next, instances, nil
}

// Reconcile rebuilds every cached counter from the checkout set and writes
// the drifted ones back in one transaction.
func (s *inventoryService) Reconcile(ctx context.Context) ([]ledger.Adjustment, error) {
	ctx, span := tracer.Start(ctx, "inventory.reconcile")
	defer span.End()
	logger.EnterMethod("inventoryService.Reconcile")

	listed, err := s.equipmentRepo.List(ctx)
	if err != nil {
		logger.ExitMethodWithError("inventoryService.Reconcile", err)
		return nil, err
	}
	ids := make([]string, 0, len(listed))
	for _, eq := range listed {
		ids = append(ids, eq.ID)
	}
	unlock := s.locks.Lock(ids...)
	defer unlock()

	// reload under the locks
	equipment, err := s.equipmentRepo.List(ctx)
	if err != nil {
		logger.ExitMethodWithError("inventoryService.Reconcile", err)
		return nil, err
	}
	outstanding, err := s.checkoutRepo.ListOutstanding(ctx, "")
	if err != nil {
		logger.ExitMethodWithError("inventoryService.Reconcile", err)
		return nil, err
	}

	adjustments := ledger.Reconcile(equipment, outstanding)
	if len(adjustments) == 0 {
		logger.ExitMethod("inventoryService.Reconcile", "adjusted", 0)
		return nil, nil
	}

	err = persist(ctx, s.gateway, s.opts.Timeout, "reconcile", func(ctx context.Context, tx repository.Tx) error {
		for _, a := range adjustments {
			err := tx.UpdateEquipmentAvailability(ctx, repository.AvailabilityUpdate{
				EquipmentID:       a.EquipmentID,
				ExpectedAvailable: a.PreviousAvailable,
				ExpectedStatus:    a.PreviousStatus,
				Available:         a.Available,
				Status:            a.Status,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("inventoryService.Reconcile", err)
		return nil, err
	}

	for _, a := range adjustments {
		logger.Warn("Availability drift corrected", "equipmentID", a.EquipmentID,
			"from", a.PreviousAvailable, "to", a.Available, "statusFrom", a.PreviousStatus, "statusTo", a.Status)
	}
	metrics.ReconcileAdjustmentsTotal.Add(float64(len(adjustments)))
	logger.ExitMethod("inventoryService.Reconcile", "checked", len(equipment), "adjusted", len(adjustments))
	return adjustments, nil
}

// MarkOverdue flips active checkouts past their due day and notifies about each.
func (s *inventoryService) MarkOverdue(ctx context.Context) ([]domain.Checkout, error) {
	logger.EnterMethod("inventoryService.MarkOverdue")

	now := s.opts.Clock()
	changed, err := s.checkoutRepo.MarkOverdue(ctx, now)
	if err != nil {
		logger.ExitMethodWithError("inventoryService.MarkOverdue", err)
		return nil, &domain.PersistenceError{Op: "mark_overdue", Err: err}
	}
	for _, c := range changed {
		s.notifier.Dispatch(domain.NewOverdueNotification(c, now))
	}
	metrics.OverdueMarkedTotal.Add(float64(len(changed)))
	logger.ExitMethod("inventoryService.MarkOverdue", "count", len(changed))
	return changed, nil
}
