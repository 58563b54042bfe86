// Package checkout holds the operator workflow that builds a cart and turns
// it into a delivery note. It performs no I/O.
package checkout

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/ledger"
	"equiptrack-backend/internal/scan"
)

type State string

const (
	StateSelectingUser      State = "selecting_user"
	StateSelectingEquipment State = "selecting_equipment"
	StateReviewingSummary   State = "reviewing_summary"
	StateCommitted          State = "committed"
)

var (
	ErrWrongState   = errors.New("operation not allowed in the current session state")
	ErrItemNotFound = errors.New("item not in cart")
)

// ErrEmptyCart is a validation failure on the cart itself.
var ErrEmptyCart error = &domain.ValidationError{Field: "cart", Message: "is empty"}

// Item is one cart line. InstanceIDs lists the individually scanned units
// and never exceeds Quantity.
type Item struct {
	Equipment   domain.Equipment `json:"equipment"`
	Quantity    int32            `json:"quantity"`
	InstanceIDs []string         `json:"instance_ids,omitempty"`
}

// Session is the state of one checkout in progress.
type Session struct {
	ID        string               `json:"id"`
	State     State                `json:"state"`
	User      *domain.User         `json:"user,omitempty"`
	Items     []Item               `json:"items"`
	DueDate   time.Time            `json:"due_date"`
	Notes     string               `json:"notes,omitempty"`
	CreatedOn time.Time            `json:"created_on"`
	Note      *domain.DeliveryNote `json:"delivery_note,omitempty"`
}

func New(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		State:     StateSelectingUser,
		DueDate:   ledger.StartOfDay(now).AddDate(0, 0, 7),
		CreatedOn: now,
	}
}

func (s *Session) require(states ...State) error {
	if slices.Contains(states, s.State) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrWrongState, s.State)
}

// SelectUser sets the borrower and moves on to equipment selection.
func (s *Session) SelectUser(u domain.User) error {
	if err := s.require(StateSelectingUser); err != nil {
		return err
	}
	if u.ID == "" {
		return &domain.ValidationError{Field: "user", Message: "is required"}
	}
	s.User = &u
	s.State = StateSelectingEquipment
	return nil
}

func (s *Session) inCart(equipmentID string) int32 {
	for _, it := range s.Items {
		if it.Equipment.ID == equipmentID {
			return it.Quantity
		}
	}
	return 0
}

func (s *Session) indexOf(equipmentID string) int {
	return slices.IndexFunc(s.Items, func(it Item) bool { return it.Equipment.ID == equipmentID })
}

// AddMatch adds a resolved scan. Instance matches always add exactly one unit.
func (s *Session) AddMatch(m *scan.Match, qty int32) error {
	if m == nil {
		return domain.ErrNotFound
	}
	if m.Instance == nil {
		return s.AddEquipment(m.Equipment, qty)
	}
	if err := s.require(StateSelectingEquipment); err != nil {
		return err
	}
	in := m.Instance
	if in.Status != domain.InstanceStatusAvailable {
		return &domain.UnavailableError{EquipmentID: m.Equipment.ID, Reason: domain.ReasonInstanceBusy}
	}
	if i := s.indexOf(m.Equipment.ID); i >= 0 && slices.Contains(s.Items[i].InstanceIDs, in.ID) {
		return &domain.ValidationError{Field: "instance", Message: "already in cart"}
	}
	if err := ledger.CheckAvailability(m.Equipment, 1, s.inCart(m.Equipment.ID)); err != nil {
		return err
	}
	s.put(m.Equipment, 1, in.ID)
	return nil
}

// AddEquipment adds qty units picked by hand or by a batch label.
func (s *Session) AddEquipment(eq domain.Equipment, qty int32) error {
	if err := s.require(StateSelectingEquipment); err != nil {
		return err
	}
	if err := ledger.CheckAvailability(eq, qty, s.inCart(eq.ID)); err != nil {
		return err
	}
	s.put(eq, qty, "")
	return nil
}

func (s *Session) put(eq domain.Equipment, qty int32, instanceID string) {
	i := s.indexOf(eq.ID)
	if i < 0 {
		s.Items = append(s.Items, Item{Equipment: eq})
		i = len(s.Items) - 1
	}
	s.Items[i].Equipment = eq
	s.Items[i].Quantity += qty
	if instanceID != "" {
		s.Items[i].InstanceIDs = append(s.Items[i].InstanceIDs, instanceID)
	}
}

// SetQuantity replaces the quantity of a line. It cannot drop below the
// number of individually scanned units on that line.
func (s *Session) SetQuantity(equipmentID string, qty int32) error {
	if err := s.require(StateSelectingEquipment, StateReviewingSummary); err != nil {
		return err
	}
	i := s.indexOf(equipmentID)
	if i < 0 {
		return ErrItemNotFound
	}
	if qty == 0 {
		return s.RemoveItem(equipmentID)
	}
	it := s.Items[i]
	if qty < int32(len(it.InstanceIDs)) {
		return &domain.ValidationError{Field: "quantity", Message: "below the number of scanned units"}
	}
	if err := ledger.CheckAvailability(it.Equipment, qty, 0); err != nil {
		return err
	}
	s.Items[i].Quantity = qty
	return nil
}

func (s *Session) RemoveItem(equipmentID string) error {
	if err := s.require(StateSelectingEquipment, StateReviewingSummary); err != nil {
		return err
	}
	i := s.indexOf(equipmentID)
	if i < 0 {
		return ErrItemNotFound
	}
	s.Items = slices.Delete(s.Items, i, i+1)
	return nil
}

// Review freezes the cart for the summary screen.
func (s *Session) Review() error {
	if err := s.require(StateSelectingEquipment); err != nil {
		return err
	}
	if len(s.Items) == 0 {
		return ErrEmptyCart
	}
	s.State = StateReviewingSummary
	return nil
}

func (s *Session) SetDueDate(due, today time.Time) error {
	if err := s.require(StateSelectingEquipment, StateReviewingSummary); err != nil {
		return err
	}
	if ledger.StartOfDay(due).Before(ledger.StartOfDay(today)) {
		return &domain.ValidationError{Field: "due_date", Message: "must not be in the past"}
	}
	s.DueDate = due
	return nil
}

func (s *Session) SetNotes(notes string) error {
	if err := s.require(StateSelectingEquipment, StateReviewingSummary); err != nil {
		return err
	}
	s.Notes = strings.TrimSpace(notes)
	return nil
}

// Back steps one state backwards. The cart is kept.
func (s *Session) Back() error {
	switch s.State {
	case StateReviewingSummary:
		s.State = StateSelectingEquipment
	case StateSelectingEquipment:
		s.State = StateSelectingUser
		s.User = nil
	default:
		return fmt.Errorf("%w: %s", ErrWrongState, s.State)
	}
	return nil
}

// TotalUnits is the number of checkout records a commit will create.
func (s *Session) TotalUnits() int32 {
	var n int32
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// MarkCommitted records the created note. Only a successful gateway commit may call it.
func (s *Session) MarkCommitted(note *domain.DeliveryNote) error {
	if err := s.require(StateReviewingSummary); err != nil {
		return err
	}
	s.Note = note
	s.State = StateCommitted
	return nil
}
