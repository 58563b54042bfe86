package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equiptrack-backend/internal/domain"
	"equiptrack-backend/internal/scan"
)

var today = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func camera() domain.Equipment {
	return domain.Equipment{ID: "X1", Name: "Camera", SerialNumber: "SN-100", TotalQuantity: 2, AvailableQuantity: 2, Status: domain.EquipmentStatusAvailable, QRType: domain.QRTypeBatch}
}

func lights() domain.Equipment {
	return domain.Equipment{ID: "X3", Name: "Light Stand", SerialNumber: "LS-9000", ArticleNumber: "ART-LIGHT", TotalQuantity: 3, AvailableQuantity: 3, Status: domain.EquipmentStatusAvailable, QRType: domain.QRTypeIndividual}
}

func borrower() domain.User {
	return domain.User{ID: "U1", FirstName: "Ada", LastName: "Lovelace"}
}

func selecting(t *testing.T) *Session {
	s := New("S1", today)
	require.NoError(t, s.SelectUser(borrower()))
	return s
}

func TestSession_HappyPath(t *testing.T) {
	s := New("S1", today)
	assert.Equal(t, StateSelectingUser, s.State)

	require.NoError(t, s.SelectUser(borrower()))
	assert.Equal(t, StateSelectingEquipment, s.State)

	require.NoError(t, s.AddEquipment(camera(), 1))
	require.NoError(t, s.AddEquipment(camera(), 1))
	assert.Len(t, s.Items, 1)
	assert.Equal(t, int32(2), s.Items[0].Quantity)

	require.NoError(t, s.Review())
	assert.Equal(t, StateReviewingSummary, s.State)

	require.NoError(t, s.SetDueDate(today.AddDate(0, 0, 3), today))
	require.NoError(t, s.MarkCommitted(&domain.DeliveryNote{ID: "N1"}))
	assert.Equal(t, StateCommitted, s.State)
}

func TestSession_WrongState(t *testing.T) {
	s := New("S1", today)
	assert.ErrorIs(t, s.AddEquipment(camera(), 1), ErrWrongState)
	assert.ErrorIs(t, s.Review(), ErrWrongState)
	assert.ErrorIs(t, s.MarkCommitted(&domain.DeliveryNote{}), ErrWrongState)
	assert.ErrorIs(t, s.Back(), ErrWrongState)
}

func TestSession_AvailabilityGuards(t *testing.T) {
	t.Run("Cart counts against stock", func(t *testing.T) {
		s := selecting(t)
		require.NoError(t, s.AddEquipment(camera(), 2))
		err := s.AddEquipment(camera(), 1)
		assert.True(t, domain.IsUnavailable(err))
		assert.Equal(t, int32(2), s.Items[0].Quantity)
	})

	t.Run("Maintenance rejected", func(t *testing.T) {
		s := selecting(t)
		eq := camera()
		eq.Status = domain.EquipmentStatusMaintenance
		var ue *domain.UnavailableError
		require.ErrorAs(t, s.AddEquipment(eq, 1), &ue)
		assert.Equal(t, domain.ReasonMaintenance, ue.Reason)
		assert.Empty(t, s.Items)
	})
}

func TestSession_Instances(t *testing.T) {
	in := domain.Instance{ID: "I1", EquipmentID: "X3", InstanceNumber: 1, QRCode: "ART-LIGHT-001", Status: domain.InstanceStatusAvailable}
	m := &scan.Match{Equipment: lights(), Instance: &in, Method: scan.MatchExact, Field: scan.FieldQRCode}

	t.Run("Adds one unit", func(t *testing.T) {
		s := selecting(t)
		require.NoError(t, s.AddMatch(m, 5))
		assert.Equal(t, int32(1), s.Items[0].Quantity)
		assert.Equal(t, []string{"I1"}, s.Items[0].InstanceIDs)
	})

	t.Run("Same unit twice", func(t *testing.T) {
		s := selecting(t)
		require.NoError(t, s.AddMatch(m, 1))
		assert.True(t, domain.IsValidation(s.AddMatch(m, 1)))
	})

	t.Run("Unit already out", func(t *testing.T) {
		s := selecting(t)
		busy := in
		busy.Status = domain.InstanceStatusCheckedOut
		err := s.AddMatch(&scan.Match{Equipment: lights(), Instance: &busy}, 1)
		assert.True(t, domain.IsUnavailable(err))
	})

	t.Run("Quantity floor", func(t *testing.T) {
		s := selecting(t)
		second := domain.Instance{ID: "I2", EquipmentID: "X3", InstanceNumber: 2, Status: domain.InstanceStatusAvailable}
		require.NoError(t, s.AddMatch(m, 1))
		require.NoError(t, s.AddMatch(&scan.Match{Equipment: lights(), Instance: &second}, 1))
		require.NoError(t, s.SetQuantity("X3", 3))
		assert.True(t, domain.IsValidation(s.SetQuantity("X3", 1)))
		assert.Equal(t, int32(3), s.Items[0].Quantity)
	})

	t.Run("Nil match", func(t *testing.T) {
		s := selecting(t)
		assert.ErrorIs(t, s.AddMatch(nil, 1), domain.ErrNotFound)
	})
}

func TestSession_EditCart(t *testing.T) {
	s := selecting(t)
	require.NoError(t, s.AddEquipment(camera(), 1))
	require.NoError(t, s.AddEquipment(lights(), 1))

	require.NoError(t, s.SetQuantity("X3", 3))
	assert.Equal(t, int32(4), s.TotalUnits())
	assert.True(t, domain.IsUnavailable(s.SetQuantity("X3", 4)))

	require.NoError(t, s.RemoveItem("X1"))
	assert.ErrorIs(t, s.RemoveItem("X1"), ErrItemNotFound)
	assert.Equal(t, []string{"X3"}, s.EquipmentIDs())

	require.NoError(t, s.SetQuantity("X3", 0))
	assert.Empty(t, s.Items)
	assert.ErrorIs(t, s.Review(), ErrEmptyCart)
	var ve *domain.ValidationError
	require.ErrorAs(t, s.Review(), &ve)
	assert.Equal(t, "cart", ve.Field)
}

func TestSession_Back(t *testing.T) {
	s := selecting(t)
	require.NoError(t, s.AddEquipment(camera(), 1))
	require.NoError(t, s.Review())

	require.NoError(t, s.Back())
	assert.Equal(t, StateSelectingEquipment, s.State)
	assert.Len(t, s.Items, 1)

	require.NoError(t, s.Back())
	assert.Equal(t, StateSelectingUser, s.State)
	assert.Nil(t, s.User)
	assert.Len(t, s.Items, 1)
}

func TestSession_DueDate(t *testing.T) {
	s := selecting(t)
	assert.True(t, domain.IsValidation(s.SetDueDate(today.AddDate(0, 0, -1), today)))
	assert.NoError(t, s.SetDueDate(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), today))
}

func TestSession_Plan(t *testing.T) {
	in := domain.Instance{ID: "I2", EquipmentID: "X3", Status: domain.InstanceStatusAvailable}
	s := selecting(t)
	require.NoError(t, s.AddEquipment(camera(), 2))
	require.NoError(t, s.AddMatch(&scan.Match{Equipment: lights(), Instance: &in}, 1))
	require.NoError(t, s.SetNotes("  for the shoot  "))

	_, err := s.Plan(today, nil)
	assert.ErrorIs(t, err, ErrWrongState)

	require.NoError(t, s.Review())
	p, err := s.Plan(today, nil)
	require.NoError(t, err)

	assert.Equal(t, "U1", p.Note.UserID)
	assert.Equal(t, "for the shoot", p.Note.Notes)
	require.Len(t, p.Checkouts, 3)
	assert.Nil(t, p.Checkouts[0].InstanceID)
	require.NotNil(t, p.Checkouts[2].InstanceID)
	assert.Equal(t, "I2", *p.Checkouts[2].InstanceID)
	assert.Equal(t, []string{"I2"}, p.Instances)

	require.Len(t, p.Updates, 2)
	assert.Equal(t, int32(2), p.Updates[0].ExpectedAvailable)
	assert.Equal(t, int32(0), p.Updates[0].Available)
	assert.Equal(t, domain.EquipmentStatusCheckedOut, p.Updates[0].Status)
	assert.Equal(t, int32(2), p.Updates[1].Available)

	t.Run("Fresh state wins over cart snapshot", func(t *testing.T) {
		fresh := camera()
		fresh.AvailableQuantity = 1
		_, err := s.Plan(today, map[string]domain.Equipment{"X1": fresh})
		assert.True(t, domain.IsUnavailable(err))
	})

	t.Run("Stale due date", func(t *testing.T) {
		_, err := s.Plan(today.AddDate(0, 0, 30), nil)
		assert.True(t, domain.IsValidation(err))
	})
}

func TestPlan_AssignInstances(t *testing.T) {
	scanned := domain.Instance{ID: "I1", EquipmentID: "X3", InstanceNumber: 1, Status: domain.InstanceStatusAvailable}
	units := []domain.Instance{
		scanned,
		{ID: "I2", EquipmentID: "X3", InstanceNumber: 2, Status: domain.InstanceStatusCheckedOut},
		{ID: "I3", EquipmentID: "X3", InstanceNumber: 3, Status: domain.InstanceStatusAvailable},
		{ID: "I9", EquipmentID: "X9", InstanceNumber: 1, Status: domain.InstanceStatusAvailable},
	}

	t.Run("Hand-picked units get free instances", func(t *testing.T) {
		s := selecting(t)
		require.NoError(t, s.AddMatch(&scan.Match{Equipment: lights(), Instance: &scanned}, 1))
		require.NoError(t, s.AddEquipment(lights(), 1))
		require.NoError(t, s.Review())
		p, err := s.Plan(today, nil)
		require.NoError(t, err)
		assert.Equal(t, "S1", p.Note.SessionID)

		require.NoError(t, p.AssignInstances("X3", units))
		require.Len(t, p.Checkouts, 2)
		require.NotNil(t, p.Checkouts[1].InstanceID)
		assert.Equal(t, "I3", *p.Checkouts[1].InstanceID)
		assert.Equal(t, []string{"I1", "I3"}, p.Instances)
	})

	t.Run("Not enough free units", func(t *testing.T) {
		s := selecting(t)
		require.NoError(t, s.AddEquipment(lights(), 3))
		require.NoError(t, s.Review())
		p, err := s.Plan(today, nil)
		require.NoError(t, err)

		var ue *domain.UnavailableError
		require.ErrorAs(t, p.AssignInstances("X3", units), &ue)
		assert.Equal(t, domain.ReasonInstanceBusy, ue.Reason)
	})
}
