package domain

import (
	"fmt"
	"strings"
	"time"
)

type EquipmentStatus string

const (
	EquipmentStatusAvailable   EquipmentStatus = "available"
	EquipmentStatusCheckedOut  EquipmentStatus = "checked-out"
	EquipmentStatusMaintenance EquipmentStatus = "maintenance"
	EquipmentStatusRetired     EquipmentStatus = "retired"
	EquipmentStatusLost        EquipmentStatus = "lost"
)

// Blocking reports whether a record in this status can never be lent out.
func (s EquipmentStatus) Blocking() bool {
	return s == EquipmentStatusMaintenance || s == EquipmentStatusRetired || s == EquipmentStatusLost
}

type QRType string

const (
	QRTypeIndividual QRType = "individual"
	QRTypeBatch      QRType = "batch"
)

// Equipment is a catalog record. AvailableQuantity is a cache of
// TotalQuantity minus outstanding checkouts and is rebuilt by the reconcile sweep.
type Equipment struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	SerialNumber      string          `json:"serial_number"`
	ArticleNumber     string          `json:"article_number,omitempty"`
	Category          string          `json:"category,omitempty"`
	Location          string          `json:"location,omitempty"`
	TotalQuantity     int32           `json:"total_quantity"`
	AvailableQuantity int32           `json:"available_quantity"`
	Status            EquipmentStatus `json:"status"`
	QRType            QRType          `json:"qr_type"`
	CreatedOn         time.Time       `json:"created_on"`
	UpdatedOn         time.Time       `json:"updated_on"`
}

type InstanceStatus string

const (
	InstanceStatusAvailable   InstanceStatus = "available"
	InstanceStatusCheckedOut  InstanceStatus = "checked-out"
	InstanceStatusMaintenance InstanceStatus = "maintenance"
	InstanceStatusLost        InstanceStatus = "lost"
)

// Instance is one physical unit of an individually tracked record.
type Instance struct {
	ID             string         `json:"id"`
	EquipmentID    string         `json:"equipment_id"`
	InstanceNumber int32          `json:"instance_number"`
	QRCode         string         `json:"qr_code"`
	Status         InstanceStatus `json:"status"`
	CreatedOn      time.Time      `json:"created_on"`
}

// InstanceQRCode builds the printed code of the n-th unit of a record.
func InstanceQRCode(eq Equipment, n int32) string {
	prefix := eq.ArticleNumber
	if strings.TrimSpace(prefix) == "" {
		prefix = eq.ID
	}
	return fmt.Sprintf("%s-%03d", strings.ToUpper(strings.TrimSpace(prefix)), n)
}

// ProvisionInstances creates count instances numbered after the last existing one.
// Batch records carry no instances.
func ProvisionInstances(eq Equipment, existing []Instance, count int32, now time.Time) ([]Instance, error) {
	if eq.QRType != QRTypeIndividual {
		return nil, &ValidationError{Field: "qr_type", Message: "only individual records carry instances"}
	}
	if count <= 0 {
		return nil, &ValidationError{Field: "count", Message: "must be positive"}
	}
	var last int32
	for _, in := range existing {
		if in.EquipmentID == eq.ID && in.InstanceNumber > last {
			last = in.InstanceNumber
		}
	}
	if int(last)+int(count) > int(eq.TotalQuantity) {
		return nil, &ValidationError{Field: "count", Message: fmt.Sprintf("record has only %d units", eq.TotalQuantity)}
	}

	out := make([]Instance, 0, count)
	for i := int32(1); i <= count; i++ {
		n := last + i
		out = append(out, Instance{
			EquipmentID:    eq.ID,
			InstanceNumber: n,
			QRCode:         InstanceQRCode(eq, n),
			Status:         InstanceStatusAvailable,
			CreatedOn:      now,
		})
	}
	return out, nil
}

// Catalog is an immutable snapshot handed to the resolver and the ledger.
// Callers must not mutate the slices.
type Catalog struct {
	Version   int64       `json:"version"`
	Equipment []Equipment `json:"equipment"`
	Instances []Instance  `json:"instances,omitempty"`
}

func (c *Catalog) FindEquipment(id string) (Equipment, bool) {
	for _, eq := range c.Equipment {
		if eq.ID == id {
			return eq, true
		}
	}
	return Equipment{}, false
}
