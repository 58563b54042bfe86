package checkout

import (
	"time"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/ledger"
	"equiptrack-backend/internal/repository"
)

// Plan is everything a commit writes in one transaction.
type Plan struct {
	Note      *domain.DeliveryNote
	Checkouts []domain.Checkout
	Updates   []repository.AvailabilityUpdate
	Instances []string
}

// Plan validates the session and expands it against current, the latest
// known state of each cart record keyed by id. Records missing from current
// fall back to the cart snapshot.
func (s *Session) Plan(now time.Time, current map[string]domain.Equipment) (*Plan, error) {
	if err := s.require(StateReviewingSummary); err != nil {
		return nil, err
	}
	if s.User == nil {
		return nil, &domain.ValidationError{Field: "user", Message: "is required"}
	}
	if len(s.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if ledger.StartOfDay(s.DueDate).Before(ledger.StartOfDay(now)) {
		return nil, &domain.ValidationError{Field: "due_date", Message: "must not be in the past"}
	}

	p := &Plan{
		Note: &domain.DeliveryNote{
			SessionID: s.ID,
			UserID:    s.User.ID,
			User:      s.User,
			IssueDate: now,
			DueDate:   s.DueDate,
			Notes:     s.Notes,
		},
	}

	for _, it := range s.Items {
		eq, ok := current[it.Equipment.ID]
		if !ok {
			eq = it.Equipment
		}
		next, err := ledger.ApplyCheckout(eq, it.Quantity)
		if err != nil {
			return nil, err
		}
		p.Updates = append(p.Updates, repository.AvailabilityUpdate{
			EquipmentID:       eq.ID,
			ExpectedAvailable: eq.AvailableQuantity,
			ExpectedStatus:    eq.Status,
			Available:         next.AvailableQuantity,
			Status:            next.Status,
		})

		for u := int32(0); u < it.Quantity; u++ {
			c := domain.Checkout{
				EquipmentID:  eq.ID,
				UserID:       s.User.ID,
				Status:       domain.CheckoutStatusActive,
				CheckoutDate: now,
				DueDate:      s.DueDate,
				Notes:        s.Notes,
			}
			if int(u) < len(it.InstanceIDs) {
				id := it.InstanceIDs[u]
				c.InstanceID = &id
				p.Instances = append(p.Instances, id)
			}
			p.Checkouts = append(p.Checkouts, c)
		}
	}
	return p, nil
}

// AssignInstances hands free units of an individually tracked record to the
// plan's checkouts of that record that were added without a scanned unit.
func (p *Plan) AssignInstances(equipmentID string, instances []domain.Instance) error {
	taken := make(map[string]bool, len(p.Instances))
	for _, id := range p.Instances {
		taken[id] = true
	}
	free := make([]string, 0, len(instances))
	for _, in := range instances {
		if in.EquipmentID == equipmentID && in.Status == domain.InstanceStatusAvailable && !taken[in.ID] {
			free = append(free, in.ID)
		}
	}
	for i := range p.Checkouts {
		c := &p.Checkouts[i]
		if c.EquipmentID != equipmentID || c.InstanceID != nil {
			continue
		}
		if len(free) == 0 {
			return &domain.UnavailableError{EquipmentID: equipmentID, Reason: domain.ReasonInstanceBusy}
		}
		id := free[0]
		free = free[1:]
		c.InstanceID = &id
		p.Instances = append(p.Instances, id)
	}
	return nil
}

// EquipmentIDs lists the records touched by the cart.
func (s *Session) EquipmentIDs() []string {
	ids := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		ids = append(ids, it.Equipment.ID)
	}
	return ids
}
