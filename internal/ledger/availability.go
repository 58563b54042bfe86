// Package ledger keeps equipment stock counters consistent with the checkouts
// that consume them. Everything here is pure: callers persist the results.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"equiptrack-backend/internal/domain"
)

var (
	ErrCheckoutClosed = errors.New("checkout is already closed")
	ErrNotLost        = errors.New("checkout is not marked lost")
)

// AvailableQuantity recomputes the stock of eq from the full checkout set.
// Checkouts of other records are ignored.
func AvailableQuantity(eq domain.Equipment, checkouts []domain.Checkout) int32 {
	if eq.Status == domain.EquipmentStatusRetired {
		return 0
	}
	var outstanding int32
	for _, c := range checkouts {
		if c.EquipmentID == eq.ID && c.Status.Outstanding() {
			outstanding++
		}
	}
	available := eq.TotalQuantity - outstanding
	if eq.Status == domain.EquipmentStatusMaintenance {
		available--
	}
	return max(0, available)
}

// CheckAvailability explains why requested more units of eq cannot be added
// to a cart already holding inCart of them.
func CheckAvailability(eq domain.Equipment, requested, inCart int32) error {
	switch eq.Status {
	case domain.EquipmentStatusMaintenance:
		return &domain.UnavailableError{EquipmentID: eq.ID, Reason: domain.ReasonMaintenance}
	case domain.EquipmentStatusRetired:
		return &domain.UnavailableError{EquipmentID: eq.ID, Reason: domain.ReasonRetired}
	case domain.EquipmentStatusLost:
		return &domain.UnavailableError{EquipmentID: eq.ID, Reason: domain.ReasonLost}
	}
	if requested <= 0 {
		return &domain.ValidationError{Field: "quantity", Message: "must be positive"}
	}
	if eq.AvailableQuantity-inCart < requested {
		return &domain.UnavailableError{
			EquipmentID: eq.ID,
			Reason:      domain.ReasonInsufficient,
			Available:   max(0, eq.AvailableQuantity-inCart),
			Requested:   requested,
		}
	}
	return nil
}

func CanCheckout(eq domain.Equipment, requested, inCart int32) bool {
	return CheckAvailability(eq, requested, inCart) == nil
}

// ApplyCheckout takes qty units out of stock.
func ApplyCheckout(eq domain.Equipment, qty int32) (domain.Equipment, error) {
	if err := CheckAvailability(eq, qty, 0); err != nil {
		return eq, err
	}
	eq.AvailableQuantity -= qty
	if eq.AvailableQuantity == 0 {
		if next, err := Transition(eq.Status, TriggerDepleted); err == nil {
			eq.Status = next
		}
	}
	return eq, nil
}

// Restock recomputes eq after units came back. checkouts is the record's
// outstanding set once the returned checkouts are closed, so maintenance
// keeps holding its unit back.
func Restock(eq domain.Equipment, checkouts []domain.Checkout) domain.Equipment {
	eq.AvailableQuantity = AvailableQuantity(eq, checkouts)
	return Settle(eq)
}

// Resize changes the number of units eq owns and rebuilds its counter from
// checkouts. A record cannot own fewer units than are out.
func Resize(eq domain.Equipment, total int32, checkouts []domain.Checkout) (domain.Equipment, error) {
	if total < 1 {
		return eq, &domain.ValidationError{Field: "total_quantity", Message: "must be at least 1"}
	}
	var outstanding int32
	for _, c := range checkouts {
		if c.EquipmentID == eq.ID && c.Status.Outstanding() {
			outstanding++
		}
	}
	if total < outstanding {
		return eq, &domain.ValidationError{Field: "total_quantity", Message: fmt.Sprintf("%d units are still out", outstanding)}
	}
	eq.TotalQuantity = total
	return Restock(eq, checkouts), nil
}

// Settle aligns available/checked-out with the cached counter. Other
// statuses are left alone.
func Settle(eq domain.Equipment) domain.Equipment {
	trigger := TriggerRestocked
	if eq.AvailableQuantity == 0 {
		trigger = TriggerDepleted
	}
	if eq.Status != domain.EquipmentStatusAvailable && eq.Status != domain.EquipmentStatusCheckedOut {
		return eq
	}
	if next, err := Transition(eq.Status, trigger); err == nil {
		eq.Status = next
	}
	return eq
}

// ReturnCheckout closes an open checkout.
func ReturnCheckout(c domain.Checkout, now time.Time, notes string) (domain.Checkout, error) {
	if c.Status.Terminal() {
		return c, ErrCheckoutClosed
	}
	c.Status = domain.CheckoutStatusReturned
	c.ReturnDate = &now
	c.Notes = appendNote(c.Notes, notes)
	return c, nil
}

// ApplyLoss marks an open checkout lost. The unit stays outstanding, so
// the stock counter is not touched.
func ApplyLoss(c domain.Checkout, notes string) (domain.Checkout, error) {
	if c.Status.Terminal() {
		return c, ErrCheckoutClosed
	}
	c.Status = domain.CheckoutStatusLost
	c.Notes = appendNote(c.Notes, notes)
	return c, nil
}

// RecoverCheckout is the only way out of lost.
func RecoverCheckout(c domain.Checkout, now time.Time, notes string) (domain.Checkout, error) {
	if c.Status != domain.CheckoutStatusLost {
		return c, ErrNotLost
	}
	c.Status = domain.CheckoutStatusReturned
	c.ReturnDate = &now
	c.Notes = appendNote(c.Notes, notes)
	return c, nil
}

// MarkOverdue returns copies of the active checkouts whose due day has passed.
func MarkOverdue(checkouts []domain.Checkout, now time.Time) []domain.Checkout {
	today := StartOfDay(now)
	var changed []domain.Checkout
	for _, c := range checkouts {
		if c.Status == domain.CheckoutStatusActive && StartOfDay(c.DueDate).Before(today) {
			c.Status = domain.CheckoutStatusOverdue
			changed = append(changed, c)
		}
	}
	return changed
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func appendNote(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
