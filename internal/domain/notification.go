package domain

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationCheckout NotificationType = "checkout"
	NotificationReturn   NotificationType = "return"
	NotificationOverdue  NotificationType = "overdue"
	NotificationLost     NotificationType = "lost"
)

// Notification is what the sinks deliver. Delivery is best effort.
type Notification struct {
	Type       NotificationType  `json:"type"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Recipient  string            `json:"recipient,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredOn time.Time         `json:"occurred_on"`
}

func NewCheckoutNotification(note *DeliveryNote, user *User, now time.Time) Notification {
	return Notification{
		Type:      NotificationCheckout,
		Title:     "Delivery note created",
		Message:   fmt.Sprintf("delivery note %s created for %s (%d items)", note.Number, user.DisplayName(), len(note.Checkouts)),
		Recipient: user.Email,
		Attributes: map[string]string{
			"delivery_note_id": note.ID,
			"user_id":          user.ID,
		},
		OccurredOn: now,
	}
}

func NewOverdueNotification(c Checkout, now time.Time) Notification {
	return Notification{
		Type:    NotificationOverdue,
		Title:   "Checkout overdue",
		Message: fmt.Sprintf("checkout %s of equipment %s was due on %s", c.ID, c.EquipmentID, c.DueDate.Format("2006-01-02")),
		Attributes: map[string]string{
			"checkout_id":  c.ID,
			"equipment_id": c.EquipmentID,
			"user_id":      c.UserID,
		},
		OccurredOn: now,
	}
}

func NewReturnNotification(c Checkout, now time.Time) Notification {
	return Notification{
		Type:    NotificationReturn,
		Title:   "Equipment returned",
		Message: fmt.Sprintf("checkout %s of equipment %s was returned", c.ID, c.EquipmentID),
		Attributes: map[string]string{
			"checkout_id":  c.ID,
			"equipment_id": c.EquipmentID,
			"user_id":      c.UserID,
		},
		OccurredOn: now,
	}
}

func NewLostNotification(c Checkout, now time.Time) Notification {
	return Notification{
		Type:    NotificationLost,
		Title:   "Equipment lost",
		Message: fmt.Sprintf("checkout %s of equipment %s was declared lost", c.ID, c.EquipmentID),
		Attributes: map[string]string{
			"checkout_id":  c.ID,
			"equipment_id": c.EquipmentID,
			"user_id":      c.UserID,
		},
		OccurredOn: now,
	}
}
