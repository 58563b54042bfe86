package ledger

import (
	"fmt"

	"equiptrack-backend/internal/domain"
)

// RecoveryPolicy decides what happens to the stock when a lost unit turns up.
type RecoveryPolicy string

const (
	// RecoveryRestore puts the unit straight back into stock.
	RecoveryRestore RecoveryPolicy = "restore"
	// RecoveryInspect sends the record to maintenance until an operator ends it.
	RecoveryInspect RecoveryPolicy = "inspect"
)

func ParseRecoveryPolicy(s string) (RecoveryPolicy, error) {
	switch RecoveryPolicy(s) {
	case RecoveryRestore, RecoveryInspect:
		return RecoveryPolicy(s), nil
	}
	return "", fmt.Errorf("unknown recovery policy %q", s)
}

// ApplyRecovery updates eq after one of its lost checkouts was recovered.
// checkouts must already contain the recovered checkout as returned.
func ApplyRecovery(eq domain.Equipment, policy RecoveryPolicy, checkouts []domain.Checkout) (domain.Equipment, error) {
	if eq.Status == domain.EquipmentStatusRetired {
		eq.AvailableQuantity = 0
		return eq, nil
	}
	if eq.Status == domain.EquipmentStatusLost {
		next, err := Transition(eq.Status, TriggerRecover)
		if err != nil {
			return eq, err
		}
		eq.Status = next
	}

	switch policy {
	case RecoveryRestore:
		return Restock(eq, checkouts), nil
	case RecoveryInspect:
		if eq.Status == domain.EquipmentStatusMaintenance {
			eq.AvailableQuantity = AvailableQuantity(eq, checkouts)
			return eq, nil
		}
		return ApplyTrigger(eq, TriggerMaintenanceStart, checkouts)
	default:
		return eq, fmt.Errorf("unknown recovery policy %q", policy)
	}
}
