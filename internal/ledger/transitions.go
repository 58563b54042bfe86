package ledger

import (
	"errors"
	"fmt"

	"equiptrack-backend/internal/domain"
)

var ErrForbiddenTransition = errors.New("forbidden status transition")

type Trigger string

const (
	TriggerDepleted         Trigger = "depleted"
	TriggerRestocked        Trigger = "restocked"
	TriggerMaintenanceStart Trigger = "maintenance-start"
	TriggerMaintenanceEnd   Trigger = "maintenance-end"
	TriggerRetire           Trigger = "retire"
	TriggerDeclareLost      Trigger = "declare-lost"
	TriggerRecover          Trigger = "recover"
)

// Anything missing from this table is forbidden. Retired is final.
var transitions = map[domain.EquipmentStatus]map[Trigger]domain.EquipmentStatus{
	domain.EquipmentStatusAvailable: {
		TriggerDepleted:         domain.EquipmentStatusCheckedOut,
		TriggerMaintenanceStart: domain.EquipmentStatusMaintenance,
		TriggerRetire:           domain.EquipmentStatusRetired,
		TriggerDeclareLost:      domain.EquipmentStatusLost,
	},
	domain.EquipmentStatusCheckedOut: {
		TriggerRestocked:        domain.EquipmentStatusAvailable,
		TriggerMaintenanceStart: domain.EquipmentStatusMaintenance,
		TriggerRetire:           domain.EquipmentStatusRetired,
		TriggerDeclareLost:      domain.EquipmentStatusLost,
	},
	domain.EquipmentStatusMaintenance: {
		TriggerMaintenanceEnd: domain.EquipmentStatusAvailable,
		TriggerRetire:         domain.EquipmentStatusRetired,
	},
	domain.EquipmentStatusLost: {
		TriggerRecover: domain.EquipmentStatusAvailable,
		TriggerRetire:  domain.EquipmentStatusRetired,
	},
	domain.EquipmentStatusRetired: {},
}

func Transition(from domain.EquipmentStatus, trigger Trigger) (domain.EquipmentStatus, error) {
	next, ok := transitions[from][trigger]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrForbiddenTransition, trigger, from)
	}
	return next, nil
}

// ApplyTrigger moves eq through the table and rebuilds its counter from the
// checkout set, since maintenance and retirement change the formula.
func ApplyTrigger(eq domain.Equipment, trigger Trigger, checkouts []domain.Checkout) (domain.Equipment, error) {
	next, err := Transition(eq.Status, trigger)
	if err != nil {
		return eq, err
	}
	eq.Status = next
	eq.AvailableQuantity = AvailableQuantity(eq, checkouts)
	return Settle(eq), nil
}
