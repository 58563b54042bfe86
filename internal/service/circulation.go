package service

import (
	"context"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/ledger"
	"equiptrack-backend/internal/logger"
	"equiptrack-backend/internal/metrics"
	"equiptrack-backend/internal/repository"
)

type circulationService struct {
	equipmentRepo repository.EquipmentRepository
	checkoutRepo  repository.CheckoutRepository
	gateway       repository.Gateway
	locks         *ledger.Locks
	notifier      Notifier
	opts          Options
}

func NewCirculationService(
	equipmentRepo repository.EquipmentRepository,
	checkoutRepo repository.CheckoutRepository,
	gateway repository.Gateway,
	locks *ledger.Locks,
	notifier Notifier,
	opts Options,
) CirculationService {
	if locks == nil {
		locks = ledger.NewLocks()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	opts = opts.withDefaults()
	return &circulationService{
		equipmentRepo: boundedEquipment{equipmentRepo, opts.Timeout},
		checkoutRepo:  boundedCheckouts{checkoutRepo, opts.Timeout},
		gateway:       gateway,
		locks:         locks,
		notifier:      notifier,
		opts:          opts,
	}
}

// lockCheckout locks the record a checkout belongs to and reloads both
// under the lock.
func (s *circulationService) lockCheckout(ctx context.Context, checkoutID string) (*domain.Checkout, *domain.Equipment, func(), error) {
	c, err := s.checkoutRepo.GetByID(ctx, checkoutID)
	if err != nil {
		return nil, nil, nil, err
	}
	unlock := s.locks.Lock(c.EquipmentID)
	if c, err = s.checkoutRepo.GetByID(ctx, checkoutID); err != nil {
		unlock()
		return nil, nil, nil, err
	}
	eq, err := s.equipmentRepo.GetByID(ctx, c.EquipmentID)
	if err != nil {
		unlock()
		return nil, nil, nil, err
	}
	return c, eq, unlock, nil
}

// outstandingExcept lists what is still out on a record once checkoutID is closed.
func (s *circulationService) outstandingExcept(ctx context.Context, equipmentID, checkoutID string) ([]domain.Checkout, error) {
	outstanding, err := s.checkoutRepo.ListOutstanding(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	remaining := make([]domain.Checkout, 0, len(outstanding))
	for _, o := range outstanding {
		if o.ID != checkoutID {
			remaining = append(remaining, o)
		}
	}
	return remaining, nil
}

func (s *circulationService) Return(ctx context.Context, checkoutID, notes string) (*domain.Checkout, error) {
	logger.EnterMethod("circulationService.Return", "checkoutID", checkoutID)

	c, eq, unlock, err := s.lockCheckout(ctx, checkoutID)
	if err != nil {
		logger.ExitMethodWithError("circulationService.Return", err, "checkoutID", checkoutID)
		return nil, err
	}
	defer unlock()

	now := s.opts.Clock()
	returned, err := ledger.ReturnCheckout(*c, now, notes)
	if err != nil {
		logger.ExitMethodWithError("circulationService.Return", err, "checkoutID", checkoutID, "status", c.Status)
		return nil, err
	}
	remaining, err := s.outstandingExcept(ctx, eq.ID, returned.ID)
	if err != nil {
		logger.ExitMethodWithError("circulationService.Return", err, "checkoutID", checkoutID)
		return nil, err
	}
	next := ledger.Restock(*eq, remaining)

	err = persist(ctx, s.gateway, s.opts.Timeout, "return", func(ctx context.Context, tx repository.Tx) error {
		if err := tx.MarkReturned(ctx, &returned); err != nil {
			return err
		}
		if err := tx.UpdateEquipmentAvailability(ctx, availabilityUpdate(*eq, next)); err != nil {
			return err
		}
		if returned.InstanceID != nil {
			return tx.UpdateInstanceStatus(ctx, *returned.InstanceID, domain.InstanceStatusCheckedOut, domain.InstanceStatusAvailable)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("circulationService.Return", err, "checkoutID", checkoutID)
		return nil, err
	}

	logger.StockChanged(ctx, "return", eq.ID, eq.AvailableQuantity, next.AvailableQuantity, "status", next.Status)
	metrics.ReturnsTotal.Inc()
	s.notifier.Dispatch(domain.NewReturnNotification(returned, now))
	logger.ExitMethod("circulationService.Return", "checkoutID", checkoutID, "equipmentID", eq.ID, "available", next.AvailableQuantity)
	return &returned, nil
}

// MarkLost closes a checkout as lost. The unit keeps counting against the
// stock until it is recovered.
func (s *circulationService) MarkLost(ctx context.Context, checkoutID, notes string) (*domain.Checkout, error) {
	logger.EnterMethod("circulationService.MarkLost", "checkoutID", checkoutID)

	c, _, unlock, err := s.lockCheckout(ctx, checkoutID)
	if err != nil {
		logger.ExitMethodWithError("circulationService.MarkLost", err, "checkoutID", checkoutID)
		return nil, err
	}
	defer unlock()

	lost, err := ledger.ApplyLoss(*c, notes)
	if err != nil {
		logger.ExitMethodWithError("circulationService.MarkLost", err, "checkoutID", checkoutID, "status", c.Status)
		return nil, err
	}

	err = persist(ctx, s.gateway, s.opts.Timeout, "mark_lost", func(ctx context.Context, tx repository.Tx) error {
		if err := tx.MarkLost(ctx, &lost); err != nil {
			return err
		}
		if lost.InstanceID != nil {
			return tx.UpdateInstanceStatus(ctx, *lost.InstanceID, domain.InstanceStatusCheckedOut, domain.InstanceStatusLost)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("circulationService.MarkLost", err, "checkoutID", checkoutID)
		return nil, err
	}

	metrics.LossesTotal.Inc()
	s.notifier.Dispatch(domain.NewLostNotification(lost, s.opts.Clock()))
	logger.ExitMethod("circulationService.MarkLost", "checkoutID", checkoutID)
	return &lost, nil
}

// Recover brings a lost unit back. What happens to the stock depends on the
// recovery policy.
func (s *circulationService) Recover(ctx context.Context, checkoutID, notes string) (*domain.Checkout, *domain.Equipment, error) {
	logger.EnterMethod("circulationService.Recover", "checkoutID", checkoutID, "policy", s.opts.RecoveryPolicy)

	c, eq, unlock, err := s.lockCheckout(ctx, checkoutID)
	if err != nil {
		logger.ExitMethodWithError("circulationService.Recover", err, "checkoutID", checkoutID)
		return nil, nil, err
	}
	defer unlock()

	recovered, err := ledger.RecoverCheckout(*c, s.opts.Clock(), notes)
	if err != nil {
		logger.ExitMethodWithError("circulationService.Recover", err, "checkoutID", checkoutID, "status", c.Status)
		return nil, nil, err
	}

	remaining, err := s.outstandingExcept(ctx, eq.ID, recovered.ID)
	if err != nil {
		logger.ExitMethodWithError("circulationService.Recover", err, "checkoutID", checkoutID)
		return nil, nil, err
	}
	next, err := ledger.ApplyRecovery(*eq, s.opts.RecoveryPolicy, remaining)
	if err != nil {
		logger.ExitMethodWithError("circulationService.Recover", err, "checkoutID", checkoutID)
		return nil, nil, err
	}

	instanceTo := domain.InstanceStatusAvailable
	if s.opts.RecoveryPolicy == ledger.RecoveryInspect {
		instanceTo = domain.InstanceStatusMaintenance
	}
	err = persist(ctx, s.gateway, s.opts.Timeout, "recover", func(ctx context.Context, tx repository.Tx) error {
		if err := tx.MarkRecovered(ctx, &recovered); err != nil {
			return err
		}
		if err := tx.UpdateEquipmentAvailability(ctx, availabilityUpdate(*eq, next)); err != nil {
			return err
		}
		if recovered.InstanceID != nil {
			return tx.UpdateInstanceStatus(ctx, *recovered.InstanceID, domain.InstanceStatusLost, instanceTo)
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("circulationService.Recover", err, "checkoutID", checkoutID)
		return nil, nil, err
	}

	logger.StockChanged(ctx, "recover", eq.ID, eq.AvailableQuantity, next.AvailableQuantity, "status", next.Status, "policy", s.opts.RecoveryPolicy)
	logger.ExitMethod("circulationService.Recover", "checkoutID", checkoutID, "equipmentID", eq.ID, "status", next.Status)
	return &recovered, &next, nil
}

func (s *circulationService) StartMaintenance(ctx context.Context, equipmentID string) (*domain.Equipment, error) {
	return s.trigger(ctx, equipmentID, ledger.TriggerMaintenanceStart)
}

func (s *circulationService) EndMaintenance(ctx context.Context, equipmentID string) (*domain.Equipment, error) {
	return s.trigger(ctx, equipmentID, ledger.TriggerMaintenanceEnd)
}

func (s *circulationService) Retire(ctx context.Context, equipmentID string) (*domain.Equipment, error) {
	return s.trigger(ctx, equipmentID, ledger.TriggerRetire)
}

func (s *circulationService) trigger(ctx context.Context, equipmentID string, trigger ledger.Trigger) (*domain.Equipment, error) {
	logger.EnterMethod("circulationService.trigger", "equipmentID", equipmentID, "trigger", trigger)

	unlock := s.locks.Lock(equipmentID)
	defer unlock()

	eq, err := s.equipmentRepo.GetByID(ctx, equipmentID)
	if err != nil {
		logger.ExitMethodWithError("circulationService.trigger", err, "equipmentID", equipmentID)
		return nil, err
	}
	outstanding, err := s.checkoutRepo.ListOutstanding(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	next, err := ledger.ApplyTrigger(*eq, trigger, outstanding)
	if err != nil {
		logger.ExitMethodWithError("circulationService.trigger", err, "equipmentID", equipmentID, "status", eq.Status)
		return nil, err
	}

	err = persist(ctx, s.gateway, s.opts.Timeout, string(trigger), func(ctx context.Context, tx repository.Tx) error {
		return tx.UpdateEquipmentAvailability(ctx, availabilityUpdate(*eq, next))
	})
	if err != nil {
		logger.ExitMethodWithError("circulationService.trigger", err, "equipmentID", equipmentID)
		return nil, err
	}

	logger.StockChanged(ctx, string(trigger), eq.ID, eq.AvailableQuantity, next.AvailableQuantity, "status", next.Status)
	logger.ExitMethod("circulationService.trigger", "equipmentID", equipmentID, "from", eq.Status, "to", next.Status, "available", next.AvailableQuantity)
	return &next, nil
}

func (s *circulationService) GetDeliveryNote(ctx context.Context, id string) (*domain.DeliveryNote, error) {
	return s.checkoutRepo.GetDeliveryNote(ctx, id)
}
