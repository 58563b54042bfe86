package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/repository"
)

type gateway struct{ s *Store }

// Gateway exposes the transactional write side of the store.
func (s *Store) Gateway() repository.Gateway { return gateway{s} }

func (g gateway) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return g.s.write(func(st *state) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, &memTx{st: st, faults: g.s.faults}); err != nil {
			return err
		}
		return ctx.Err()
	})
}

type memTx struct {
	st     *state
	faults *Faults
}

func (t *memTx) CreateDeliveryNote(ctx context.Context, note *domain.DeliveryNote) error {
	if err := t.faults.check("create_delivery_note"); err != nil {
		return err
	}
	if note.SessionID != "" {
		for _, n := range t.st.notes {
			if n.SessionID == note.SessionID {
				return domain.ErrAlreadyCommitted
			}
		}
	}
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	t.st.noteSeq++
	note.Number = fmt.Sprintf("DN-%06d", t.st.noteSeq)
	stored := *note
	stored.Checkouts = nil
	stored.User = nil
	t.st.notes[note.ID] = stored
	return nil
}

func (t *memTx) CreateCheckoutRecords(ctx context.Context, records []domain.Checkout) error {
	for i := range records {
		if err := t.faults.check("insert_checkout"); err != nil {
			return err
		}
		c := &records[i]
		if _, ok := t.st.equipment[c.EquipmentID]; !ok {
			return fmt.Errorf("checkout references unknown equipment %s", c.EquipmentID)
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		t.st.checkouts[c.ID] = *c
		t.st.checkoutOrder = append(t.st.checkoutOrder, c.ID)
	}
	return nil
}

func (t *memTx) UpdateEquipmentAvailability(ctx context.Context, u repository.AvailabilityUpdate) error {
	if err := t.faults.check("update_availability"); err != nil {
		return err
	}
	eq, ok := t.st.equipment[u.EquipmentID]
	if !ok {
		return domain.ErrNotFound
	}
	if eq.AvailableQuantity != u.ExpectedAvailable || eq.Status != u.ExpectedStatus {
		return domain.ErrConflict
	}
	eq.AvailableQuantity = u.Available
	eq.Status = u.Status
	t.st.equipment[u.EquipmentID] = eq
	return nil
}

func (t *memTx) UpdateEquipmentStock(ctx context.Context, u repository.StockUpdate) error {
	if err := t.faults.check("update_stock"); err != nil {
		return err
	}
	eq, ok := t.st.equipment[u.EquipmentID]
	if !ok {
		return domain.ErrNotFound
	}
	if eq.TotalQuantity != u.ExpectedTotal || eq.AvailableQuantity != u.ExpectedAvailable || eq.Status != u.ExpectedStatus {
		return domain.ErrConflict
	}
	eq.TotalQuantity = u.Total
	eq.AvailableQuantity = u.Available
	eq.Status = u.Status
	t.st.equipment[u.EquipmentID] = eq
	return nil
}

func (t *memTx) CreateInstances(ctx context.Context, instances []domain.Instance) error {
	return insertInstances(t.st, instances)
}

func (t *memTx) UpdateInstanceStatus(ctx context.Context, id string, from, to domain.InstanceStatus) error {
	in, ok := t.st.instances[id]
	if !ok {
		return domain.ErrNotFound
	}
	if in.Status != from {
		return domain.ErrConflict
	}
	in.Status = to
	t.st.instances[id] = in
	return nil
}

func (t *memTx) MarkReturned(ctx context.Context, c *domain.Checkout) error {
	return t.moveCheckout(c, domain.CheckoutStatusActive, domain.CheckoutStatusOverdue)
}

func (t *memTx) MarkLost(ctx context.Context, c *domain.Checkout) error {
	return t.moveCheckout(c, domain.CheckoutStatusActive, domain.CheckoutStatusOverdue)
}

func (t *memTx) MarkRecovered(ctx context.Context, c *domain.Checkout) error {
	return t.moveCheckout(c, domain.CheckoutStatusLost)
}

func (t *memTx) moveCheckout(c *domain.Checkout, from ...domain.CheckoutStatus) error {
	if err := t.faults.check("update_checkout"); err != nil {
		return err
	}
	current, ok := t.st.checkouts[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	allowed := false
	for _, s := range from {
		if current.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return domain.ErrConflict
	}
	current.Status = c.Status
	current.ReturnDate = c.ReturnDate
	current.Notes = c.Notes
	t.st.checkouts[c.ID] = current
	return nil
}
