package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"equiptrack-backend/internal/checkout"
	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/ledger"
	"equiptrack-backend/internal/logger"
	"equiptrack-backend/internal/metrics"
	"equiptrack-backend/internal/repository"
	"equiptrack-backend/internal/scan"
	"equiptrack-backend/internal/session"
)

type checkoutService struct {
	equipmentRepo repository.EquipmentRepository
	userRepo      repository.UserRepository
	gateway       repository.Gateway
	sessions      session.Store
	resolver      *scan.Resolver
	recordLocks   *ledger.Locks
	sessionLocks  *ledger.Locks
	notifier      Notifier
	opts          Options
}

func NewCheckoutService(
	equipmentRepo repository.EquipmentRepository,
	userRepo repository.UserRepository,
	gateway repository.Gateway,
	sessions session.Store,
	resolver *scan.Resolver,
	locks *ledger.Locks,
	notifier Notifier,
	opts Options,
) CheckoutService {
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
	return &checkoutService{
		equipmentRepo: boundedEquipment{equipmentRepo, opts.Timeout},
		userRepo:      boundedUsers{userRepo, opts.Timeout},
		gateway:       gateway,
		sessions:      sessions,
		resolver:      resolver,
		recordLocks:   locks,
		sessionLocks:  ledger.NewLocks(),
		notifier:      notifier,
		opts:          opts,
	}
}

func (s *checkoutService) StartSession(ctx context.Context) (*checkout.Session, error) {
	sess := checkout.New(uuid.NewString(), s.opts.Clock())
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	metrics.ActiveSessions.Inc()
	logger.Info("Checkout session started", "sessionID", sess.ID)
	return sess, nil
}

func (s *checkoutService) GetSession(ctx context.Context, sessionID string) (*checkout.Session, error) {
	return s.sessions.Load(ctx, sessionID)
}

func (s *checkoutService) SearchUsers(ctx context.Context, query string, limit int) ([]domain.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.userRepo.Search(ctx, query, limit)
}

// mutate applies fn to the stored session and saves it only when fn succeeds,
// so a rejected operation leaves the session as it was.
func (s *checkoutService) mutate(ctx context.Context, sessionID string, fn func(sess *checkout.Session) error) (*checkout.Session, error) {
	unlock := s.sessionLocks.Lock(sessionID)
	defer unlock()

	sess, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return sess, nil
}

func (s *checkoutService) SelectUser(ctx context.Context, sessionID, userID string) (*checkout.Session, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, func(sess *checkout.Session) error {
		return sess.SelectUser(*user)
	})
}

func (s *checkoutService) CreateUserAndSelect(ctx context.Context, sessionID string, user *domain.User) (*checkout.Session, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	// the session must accept a user before one is created
	sess, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State != checkout.StateSelectingUser {
		return nil, fmt.Errorf("%w: %s", checkout.ErrWrongState, sess.State)
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	logger.Info("User created during checkout", "userID", user.ID, "sessionID", sessionID)
	return s.mutate(ctx, sessionID, func(sess *checkout.Session) error {
		return sess.SelectUser(*user)
	})
}

func (s *checkoutService) Scan(ctx context.Context, sessionID, raw string, qty int32) (*checkout.Session, scan.Resolution, error) {
	logger.EnterMethod("checkoutService.Scan", "sessionID", sessionID, "qty", qty)

	catalog, err := s.equipmentRepo.Snapshot(ctx)
	if err != nil {
		logger.ExitMethodWithError("checkoutService.Scan", err, "sessionID", sessionID)
		return nil, scan.Resolution{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	res := s.resolver.Resolve(raw, catalog)
	if !res.Found() {
		metrics.ResolutionsTotal.WithLabelValues("not_found").Inc()
		logger.ExitMethod("checkoutService.Scan", "sessionID", sessionID, "found", false, "variants", len(res.Variants))
		return nil, res, fmt.Errorf("no equipment matches %q: %w", raw, domain.ErrNotFound)
	}
	metrics.ResolutionsTotal.WithLabelValues(string(res.Match.Method)).Inc()

	sess, err := s.mutate(ctx, sessionID, func(sess *checkout.Session) error {
		return sess.AddMatch(res.Match, qty)
	})
	if err != nil {
		logger.ExitMethodWithError("checkoutService.Scan", err, "sessionID", sessionID, "equipmentID", res.Match.Equipment.ID)
		return nil, res, err
	}
	logger.ExitMethod("checkoutService.Scan", "sessionID", sessionID, "equipmentID", res.Match.Equipment.ID, "method", res.Match.Method)
	return sess, res, nil
}

func (s *checkoutService) AddEquipment(ctx context.Context, sessionID, equipmentID string, qty int32) (*checkout.Session, error) {
	eq, err := s.equipmentRepo.GetByID(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, func(sess *checkout.Session) error {
		return sess.AddEquipment(*eq, qty)
	})
}

func (s *checkoutService) SetQuantity(ctx context.Context, sessionID, equipmentID string, qty int32) (*checkout.Session, error) {
	return s.mutate(ctx, sessionID, func(sess *checkout.Session) error {
		return sess.SetQuantity(equipmentID, qty)
	})
}

func (s *checkoutService) RemoveItem(ctx context.Context, sessionID, equipmentID string) (*checkout.Session, error) {
	return s.mutate(ctx, sessionID, func(sess *checkout.Session) error {
		return sess.RemoveItem(equipmentID)
	})
}

func (s *checkoutService) Review(ctx context.Context, sessionID string) (*checkout.Session, error) {
	return s.mutate(ctx, sessionID, (*checkout.Session).Review)
}

func (s *checkoutService) SetDueDate(ctx context.Context, sessionID string, due time.Time) (*checkout.Session, error) {
	today := s.opts.Clock()
	return s.mutate(ctx, sessionID, func(sess *checkout.Session) error {
		return sess.SetDueDate(due, today)
	})
}

func (s *checkoutService) SetNotes(ctx context.Context, sessionID, notes string) (*checkout.Session, error) {
	return s.mutate(ctx, sessionID, func(sess *checkout.Session) error {
		return sess.SetNotes(notes)
	})
}

func (s *checkoutService) Back(ctx context.Context, sessionID string) (*checkout.Session, error) {
	return s.mutate(ctx, sessionID, (*checkout.Session).Back)
}

// Commit writes the reviewed cart as one delivery note. A conflicting
// concurrent change is retried once against fresh records before the
// operator is told to retry.
func (s *checkoutService) Commit(ctx context.Context, sessionID string) (*domain.DeliveryNote, error) {
	ctx, span := tracer.Start(ctx, "checkout.commit")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	logger.EnterMethod("checkoutService.Commit", "sessionID", sessionID)

	unlockSession := s.sessionLocks.Lock(sessionID)
	defer unlockSession()

	sess, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		logger.ExitMethodWithError("checkoutService.Commit", err, "sessionID", sessionID)
		return nil, err
	}

	ids := sess.EquipmentIDs()
	unlock := s.recordLocks.Lock(ids...)
	defer unlock()

	now := s.opts.Clock()
	plan, err := s.plan(ctx, sess, now, nil)
	if err != nil {
		logger.ExitMethodWithError("checkoutService.Commit", err, "sessionID", sessionID)
		return nil, err
	}

	err = s.apply(ctx, plan)
	if errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrAlreadyCommitted) {
		logger.WarnContext(ctx, "Commit conflicted, retrying with fresh records", "sessionID", sessionID)
		metrics.ConflictsTotal.WithLabelValues("retried").Inc()
		plan, err = s.replan(ctx, sess, now, ids)
		if err == nil {
			err = s.apply(ctx, plan)
		}
		if errors.Is(err, domain.ErrConflict) {
			metrics.ConflictsTotal.WithLabelValues("rejected").Inc()
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		logger.ExitMethodWithError("checkoutService.Commit", err, "sessionID", sessionID)
		return nil, err
	}

	note := plan.Note
	note.Checkouts = plan.Checkouts
	if err := sess.MarkCommitted(note); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		// the note is durable; only the session view is stale
		logger.WarnContext(ctx, "Failed to save committed session", "sessionID", sessionID, "error", err)
	}

	for _, u := range plan.Updates {
		logger.StockChanged(ctx, "commit", u.EquipmentID, u.ExpectedAvailable, u.Available, "status", u.Status, "deliveryNote", note.Number)
	}
	metrics.CheckoutsCommittedTotal.Add(float64(len(plan.Checkouts)))
	metrics.ActiveSessions.Dec()
	s.notifier.Dispatch(domain.NewCheckoutNotification(note, sess.User, now))

	span.SetAttributes(attribute.String("delivery_note.number", note.Number), attribute.Int("checkouts", len(note.Checkouts)))
	logger.ExitMethod("checkoutService.Commit", "sessionID", sessionID, "deliveryNote", note.Number, "checkouts", len(note.Checkouts))
	return note, nil
}

// replan rebuilds the plan against the stored records. A cart that no
// longer fits the stock is reported as a conflict.
func (s *checkoutService) replan(ctx context.Context, sess *checkout.Session, now time.Time, ids []string) (*checkout.Plan, error) {
	current := make(map[string]domain.Equipment, len(ids))
	for _, id := range ids {
		eq, err := s.equipmentRepo.GetByID(ctx, id)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "commit", Err: err}
		}
		current[id] = *eq
	}
	plan, err := s.plan(ctx, sess, now, current)
	if err != nil {
		if domain.IsUnavailable(err) {
			logger.Info("Cart no longer fits the stock", "sessionID", sess.ID, "reason", err)
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return plan, nil
}

// plan expands the session and gives every individually tracked unit added
// without a scanned code a free instance of its record.
func (s *checkoutService) plan(ctx context.Context, sess *checkout.Session, now time.Time, current map[string]domain.Equipment) (*checkout.Plan, error) {
	plan, err := sess.Plan(now, current)
	if err != nil {
		return nil, err
	}
	for _, it := range sess.Items {
		eq, ok := current[it.Equipment.ID]
		if !ok {
			eq = it.Equipment
		}
		if eq.QRType != domain.QRTypeIndividual || int32(len(it.InstanceIDs)) >= it.Quantity {
			continue
		}
		instances, err := s.equipmentRepo.ListInstances(ctx, eq.ID)
		if err != nil {
			return nil, &domain.PersistenceError{Op: "commit", Err: err}
		}
		if err := plan.AssignInstances(eq.ID, instances); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (s *checkoutService) apply(ctx context.Context, plan *checkout.Plan) error {
	return persist(ctx, s.gateway, s.opts.Timeout, "commit", func(ctx context.Context, tx repository.Tx) error {
		if err := tx.CreateDeliveryNote(ctx, plan.Note); err != nil {
			return err
		}
		for i := range plan.Checkouts {
			plan.Checkouts[i].DeliveryNoteID = &plan.Note.ID
		}
		if err := tx.CreateCheckoutRecords(ctx, plan.Checkouts); err != nil {
			return err
		}
		for _, u := range plan.Updates {
			if err := tx.UpdateEquipmentAvailability(ctx, u); err != nil {
				return err
			}
		}
		for _, id := range plan.Instances {
			if err := tx.UpdateInstanceStatus(ctx, id, domain.InstanceStatusAvailable, domain.InstanceStatusCheckedOut); err != nil {
				return err
			}
		}
		return nil
	})
}

// Cancel drops the session. Nothing was written for it, so nothing is undone.
func (s *checkoutService) Cancel(ctx context.Context, sessionID string) error {
	unlock := s.sessionLocks.Lock(sessionID)
	defer unlock()

	sess, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if sess.State != checkout.StateCommitted {
		metrics.ActiveSessions.Dec()
	}
	logger.Info("Checkout session cancelled", "sessionID", sessionID, "state", sess.State)
	return nil
}
