package ledger

import "equiptrack-backend/internal/domain"

// Adjustment records a cache correction made by Reconcile.
type Adjustment struct {
	EquipmentID       string                 `json:"equipment_id"`
	PreviousAvailable int32                  `json:"previous_available"`
	Available         int32                  `json:"available"`
	PreviousStatus    domain.EquipmentStatus `json:"previous_status"`
	Status            domain.EquipmentStatus `json:"status"`
}

// Reconcile rebuilds every cached counter from the full checkout set and
// returns only the records that drifted.
func Reconcile(equipment []domain.Equipment, checkouts []domain.Checkout) []Adjustment {
	byEquipment := make(map[string][]domain.Checkout)
	for _, c := range checkouts {
		byEquipment[c.EquipmentID] = append(byEquipment[c.EquipmentID], c)
	}

	var adjustments []Adjustment
	for _, eq := range equipment {
		fixed := eq
		fixed.AvailableQuantity = AvailableQuantity(eq, byEquipment[eq.ID])
		fixed = Settle(fixed)
		if fixed.AvailableQuantity == eq.AvailableQuantity && fixed.Status == eq.Status {
			continue
		}
		adjustments = append(adjustments, Adjustment{
			EquipmentID:       eq.ID,
			PreviousAvailable: eq.AvailableQuantity,
			Available:         fixed.AvailableQuantity,
			PreviousStatus:    eq.Status,
			Status:            fixed.Status,
		})
	}
	return adjustments
}
