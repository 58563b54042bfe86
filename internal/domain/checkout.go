package domain

import "time"

type CheckoutStatus string

const (
	CheckoutStatusActive   CheckoutStatus = "active"
	CheckoutStatusOverdue  CheckoutStatus = "overdue"
	CheckoutStatusReturned CheckoutStatus = "returned"
	CheckoutStatusLost     CheckoutStatus = "lost"
)

// Outstanding reports whether the unit still counts against stock.
// Lost units stay outstanding until they are recovered.
func (s CheckoutStatus) Outstanding() bool {
	return s == CheckoutStatusActive || s == CheckoutStatusOverdue || s == CheckoutStatusLost
}

func (s CheckoutStatus) Terminal() bool {
	return s == CheckoutStatusReturned || s == CheckoutStatusLost
}

// Checkout is one lent unit.
type Checkout struct {
	ID             string         `json:"id"`
	EquipmentID    string         `json:"equipment_id"`
	InstanceID     *string        `json:"instance_id,omitempty"`
	UserID         string         `json:"user_id"`
	DeliveryNoteID *string        `json:"delivery_note_id,omitempty"`
	Status         CheckoutStatus `json:"status"`
	CheckoutDate   time.Time      `json:"checkout_date"`
	DueDate        time.Time      `json:"due_date"`
	ReturnDate     *time.Time     `json:"return_date,omitempty"`
	Notes          string         `json:"notes,omitempty"`
}

type DeliveryNoteStatus string

const (
	DeliveryNoteStatusActive   DeliveryNoteStatus = "active"
	DeliveryNoteStatusPartial  DeliveryNoteStatus = "partial"
	DeliveryNoteStatusReturned DeliveryNoteStatus = "returned"
	DeliveryNoteStatusOverdue  DeliveryNoteStatus = "overdue"
	DeliveryNoteStatusLost     DeliveryNoteStatus = "lost"
)

// DeliveryNote groups the checkouts committed together for one borrower.
type DeliveryNote struct {
	ID        string     `json:"id"`
	Number    string     `json:"number"`
	SessionID string     `json:"session_id,omitempty"`
	UserID    string     `json:"user_id"`
	User      *User      `json:"user,omitempty"`
	IssueDate time.Time  `json:"issue_date"`
	DueDate   time.Time  `json:"due_date"`
	Notes     string     `json:"notes,omitempty"`
	Checkouts []Checkout `json:"checkouts,omitempty"`
}

// Status is derived from the checkouts, never stored.
func (n *DeliveryNote) Status() DeliveryNoteStatus {
	return DeriveDeliveryNoteStatus(n.Checkouts)
}

// DeriveDeliveryNoteStatus applies lost > overdue > returned > partial > active.
func DeriveDeliveryNoteStatus(checkouts []Checkout) DeliveryNoteStatus {
	if len(checkouts) == 0 {
		return DeliveryNoteStatusActive
	}
	var lost, overdue, returned bool
	returnedCount := 0
	for _, c := range checkouts {
		switch c.Status {
		case CheckoutStatusLost:
			lost = true
		case CheckoutStatusOverdue:
			overdue = true
		case CheckoutStatusReturned:
			returned = true
			returnedCount++
		}
	}
	switch {
	case lost:
		return DeliveryNoteStatusLost
	case overdue:
		return DeliveryNoteStatusOverdue
	case returnedCount == len(checkouts):
		return DeliveryNoteStatusReturned
	case returned:
		return DeliveryNoteStatusPartial
	default:
		return DeliveryNoteStatusActive
	}
}
